package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/inventario/api/responses"
	"github.com/angelmondragon/inventario/api/validators"
	pkgerrors "github.com/angelmondragon/inventario/pkg/errors"
	"github.com/angelmondragon/inventario/pkg/logger"
	pkgredis "github.com/angelmondragon/inventario/pkg/redis"
)

const (
	// IdempotencyHeader and IdempotencyField carry the same token; pages use
	// the hidden form field, scripted clients the header.
	IdempotencyHeader = "Idempotency-Key"
	IdempotencyField  = "idempotency_key"

	defaultIdempotencyTTL = 24 * time.Hour
	// a replayed sale would decrement stock twice, so it is remembered longer
	criticalIdempotencyTTL = 7 * 24 * time.Hour

	// bounds a reservation left behind by a process that died mid-request
	pendingIdempotencyTTL = 2 * time.Minute

	msgSubmissionInFlight = "Formulario en proceso, intenta de nuevo"
	msgKeyReused          = "Formulario ya enviado con otros datos"

	maxIdempotencyKeyLen = 128
	maxIdempotentBody    = 64 << 10
)

type routeMatcher func(string) bool

type idempotencyRule struct {
	method   string
	matcher  routeMatcher
	critical bool
}

var idempotencyRules = []idempotencyRule{
	{method: http.MethodPost, matcher: matchExact("/agregar")},
	{method: http.MethodPost, matcher: matchExact("/editar/{id}")},
	{method: http.MethodPost, matcher: matchExact("/borrar/{id}")},
	{method: http.MethodPost, matcher: matchExact("/ventas"), critical: true},
}

type idempotencyRecord struct {
	Status      int               `json:"status"`
	Body        string            `json:"body"`
	Headers     map[string]string `json:"headers,omitempty"`
	RequestHash string            `json:"request_hash"`
	InFlight    bool              `json:"in_flight,omitempty"`
}

// replayedHeaders are the response headers a browser needs to follow a
// replayed form submission.
var replayedHeaders = []string{"Content-Type", "Location"}

// Idempotency replays the first successful response of a form submission
// when the same key is posted again, so a double click or a resubmitted page
// records one sale. The key is reserved before the handler runs; a duplicate
// arriving meanwhile gets 409. Rejected submissions (4xx, 5xx) release the key
// so the corrected form can be sent again. Requests without a key, or without
// a store, pass straight through.
func Idempotency(store pkgredis.IdempotencyStore, ttl time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			pattern := routePattern(r)
			routeTTL, ok := routeTTL(r.Method, pattern, ttl)
			if !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxIdempotentBody+1))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "Datos inválidos: formulario ilegible"))
				return
			}
			r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), r.Body))

			idempotencyKey := extractIdempotencyKey(r, body)
			if idempotencyKey == "" || len(body) > maxIdempotentBody {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithField(ctx, "idempotency_key", idempotencyKey)
			}

			requestHash := hashBody(body)
			key := store.IdempotencyKey(buildScope(r), idempotencyKey)

			placeholder, err := json.Marshal(idempotencyRecord{InFlight: true, RequestHash: requestHash})
			if err != nil {
				logError(ctx, logg, "idempotency.marshal_failed", err)
				next.ServeHTTP(w, r)
				return
			}
			reserved, err := store.SetNX(ctx, key, string(placeholder), pendingIdempotencyTTL)
			if err != nil {
				logError(ctx, logg, "idempotency.reserve_failed", err)
				next.ServeHTTP(w, r)
				return
			}
			if !reserved {
				answerDuplicate(ctx, logg, w, store, key, requestHash)
				return
			}

			// the outcome is stored even if the client hangs up mid-request
			storeCtx := context.WithoutCancel(ctx)
			completed := false
			defer func() {
				if !completed {
					releaseKey(storeCtx, logg, store, key)
				}
			}()

			rec := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(rec, r)
			completed = true

			status := defaultStatus(rec.status)
			if status >= http.StatusBadRequest {
				// rejected and failed submissions stay open under the same key
				releaseKey(storeCtx, logg, store, key)
				return
			}

			record := idempotencyRecord{
				Status:      status,
				Body:        base64.StdEncoding.EncodeToString(rec.body.Bytes()),
				RequestHash: requestHash,
			}
			for _, name := range replayedHeaders {
				if v := rec.Header().Get(name); v != "" {
					if record.Headers == nil {
						record.Headers = map[string]string{}
					}
					record.Headers[name] = v
				}
			}

			payload, err := json.Marshal(record)
			if err != nil {
				logError(ctx, logg, "idempotency.marshal_failed", err)
				releaseKey(storeCtx, logg, store, key)
				return
			}
			if err := store.Set(storeCtx, key, string(payload), routeTTL); err != nil {
				logError(ctx, logg, "idempotency.persist_failed", err)
			}
		})
	}
}

// answerDuplicate responds to a submission whose key is already taken: the
// stored response when it matches, 409 while the first one is still running
// or when the form changed.
func answerDuplicate(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, store pkgredis.IdempotencyStore, key, requestHash string) {
	stored, err := store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logError(ctx, logg, "idempotency.lookup_failed", err)
		}
		// released or expired between SETNX and GET; the client may resend
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, msgSubmissionInFlight))
		return
	}
	record, err := decodeRecord(stored)
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode idempotency record"))
		return
	}
	if record.InFlight {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, msgSubmissionInFlight))
		return
	}
	if record.RequestHash != requestHash {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, msgKeyReused))
		return
	}
	if logg != nil {
		logg.Info(ctx, "idempotency.replayed")
	}
	writeStoredResponse(w, record)
}

func releaseKey(ctx context.Context, logg *logger.Logger, store pkgredis.IdempotencyStore, key string) {
	if err := store.Del(ctx, key); err != nil {
		logError(ctx, logg, "idempotency.release_failed", err)
	}
}

// extractIdempotencyKey prefers the header and falls back to the hidden form
// field. The body is parsed on a copy so handlers still see it untouched.
func extractIdempotencyKey(r *http.Request, body []byte) string {
	if key := validators.SanitizeString(r.Header.Get(IdempotencyHeader), maxIdempotencyKeyLen); key != "" {
		return key
	}
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/x-www-form-urlencoded" {
		return ""
	}
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return ""
	}
	return validators.SanitizeString(values.Get(IdempotencyField), maxIdempotencyKeyLen)
}

func buildScope(r *http.Request) string {
	return strings.Join([]string{r.Method, r.URL.Path}, "|")
}

func decodeRecord(payload string) (*idempotencyRecord, error) {
	var record idempotencyRecord
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func writeStoredResponse(w http.ResponseWriter, record *idempotencyRecord) {
	if record == nil {
		return
	}
	for name, value := range record.Headers {
		if value != "" {
			w.Header().Set(name, value)
		}
	}
	w.WriteHeader(record.Status)
	if decoded, err := base64.StdEncoding.DecodeString(record.Body); err == nil {
		_, _ = w.Write(decoded)
	}
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base64.StdEncoding.EncodeToString(sum[:])
}

func defaultStatus(value int) int {
	if value == 0 {
		return http.StatusOK
	}
	return value
}

func routePattern(r *http.Request) string {
	if r == nil {
		return ""
	}
	if ctx := chi.RouteContext(r.Context()); ctx != nil {
		if pattern := ctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

func routeTTL(method, pattern string, base time.Duration) (time.Duration, bool) {
	if pattern == "" {
		return 0, false
	}
	for _, rule := range idempotencyRules {
		if rule.method != method {
			continue
		}
		if rule.matcher(pattern) {
			if rule.critical && base < criticalIdempotencyTTL {
				return criticalIdempotencyTTL, true
			}
			return base, true
		}
	}
	return 0, false
}

func matchExact(path string) routeMatcher {
	return func(pattern string) bool {
		return pattern == path
	}
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *responseCapture) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseCapture) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func logError(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if logg == nil || err == nil {
		return
	}
	logg.Error(ctx, msg, err)
}
