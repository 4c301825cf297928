package redis

import "strings"

const (
	keyNamespace      = "inv"
	idempotencyPrefix = "idempotency"
	rateLimitPrefix   = "rate_limit"
)

// IdempotencyKey namespaces a form submission key under its route scope.
func (c *Client) IdempotencyKey(scope, id string) string {
	return buildKey(idempotencyPrefix, scope, id)
}

// RateLimitKey namespaces a rate limit counter; bucket is the window index.
func (c *Client) RateLimitKey(scope, bucket string) string {
	return buildKey(rateLimitPrefix, scope, bucket)
}

func buildKey(parts ...string) string {
	key := keyNamespace
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			key += ":" + part
		}
	}
	return key
}
