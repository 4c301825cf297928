package validators

import (
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/form/v4"
	"github.com/go-playground/locales/es"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	estranslations "github.com/go-playground/validator/v10/translations/es"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/inventario/pkg/errors"
)

// maxFormBytes bounds urlencoded bodies; the largest field is a 2000 char description.
const maxFormBytes = 64 << 10

var (
	decoder             = newDecoder()
	validate, translate = newValidator()
)

func newDecoder() *form.Decoder {
	d := form.NewDecoder()
	d.SetTagName("form")
	return d
}

func newValidator() (*validator.Validate, ut.Translator) {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})

	_ = v.RegisterValidation("int_gte", intGTE)
	_ = v.RegisterValidation("money", money)

	locale := es.New()
	trans, _ := ut.New(locale, locale).GetTranslator("es")
	_ = estranslations.RegisterDefaultTranslations(v, trans)
	registerTranslation(v, trans, "int_gte", "{0} debe ser un número entero mayor o igual a {1}")
	registerTranslation(v, trans, "money", "{0} debe ser un importe no negativo con hasta dos decimales")

	return v, trans
}

func registerTranslation(v *validator.Validate, trans ut.Translator, tag, text string) {
	_ = v.RegisterTranslation(tag, trans, func(t ut.Translator) error {
		return t.Add(tag, text, true)
	}, func(t ut.Translator, fe validator.FieldError) string {
		msg, err := t.T(tag, fe.Field(), fe.Param())
		if err != nil {
			return fe.Field() + " no es válido"
		}
		return msg
	})
}

// intGTE accepts base-10 integers that fit a SQL INTEGER and are >= param.
func intGTE(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	if raw == "" {
		return true
	}
	value, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return false
	}
	min, err := strconv.ParseInt(fl.Param(), 10, 64)
	if err != nil {
		return false
	}
	return value >= min
}

// money accepts non-negative decimals that fit NUMERIC(10,2).
func money(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	if raw == "" {
		return true
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return false
	}
	if d.IsNegative() || !d.Equal(d.Round(2)) {
		return false
	}
	return d.LessThan(decimal.New(1, 8))
}

// DecodeForm parses an urlencoded form body into dest (fields tagged `form`)
// and validates it. Failures come back as CodeValidation errors whose message
// lists every offending field.
func DecodeForm(w http.ResponseWriter, r *http.Request, dest any) error {
	if r.Body != nil && w != nil {
		r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	}
	if err := r.ParseForm(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "Datos inválidos: formulario ilegible")
	}
	values := make(map[string][]string, len(r.PostForm))
	for key, vals := range r.PostForm {
		trimmed := make([]string, len(vals))
		for i, v := range vals {
			trimmed[i] = strings.TrimSpace(v)
		}
		values[key] = trimmed
	}
	if err := decoder.Decode(dest, values); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "Datos inválidos: formulario ilegible")
	}
	return Struct(dest)
}

// Struct validates an already populated request struct.
func Struct(dest any) error {
	if err := validate.Struct(dest); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

func formatValidationErrors(err error) *pkgerrors.Error {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "Datos inválidos")
	}
	details := make(map[string]string, len(errs))
	messages := make([]string, 0, len(errs))
	for _, fieldErr := range errs {
		msg := fieldErr.Translate(translate)
		details[fieldErr.Field()] = msg
		messages = append(messages, msg)
	}
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("Datos inválidos: %s", strings.Join(messages, ", "))).WithDetails(details)
}
