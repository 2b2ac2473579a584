package utils

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// RedactionMarker replaces the value of every denylisted header before a
// capture is persisted.
const RedactionMarker = "[REDACTED]"

// defaultRedactedHeaders always get redacted, regardless of configuration.
var defaultRedactedHeaders = []string{
	"authorization",
	"cookie",
	"set-cookie",
	"x-api-key",
}

// RedactHeaders returns a copy of headers with every denylisted name
// (case-insensitive, built-in set plus extra) replaced by the marker.
// The original values never reach storage.
func RedactHeaders(headers map[string]string, extra []string) map[string]string {
	denylist := make(map[string]bool, len(defaultRedactedHeaders)+len(extra))
	for _, name := range defaultRedactedHeaders {
		denylist[name] = true
	}
	for _, name := range extra {
		denylist[strings.ToLower(strings.TrimSpace(name))] = true
	}

	redacted := make(map[string]string, len(headers))
	for k, v := range headers {
		if denylist[strings.ToLower(k)] {
			redacted[k] = RedactionMarker
		} else {
			redacted[k] = v
		}
	}
	return redacted
}

// ClientIP resolves the source address of a request. The forwarded header is
// only honored when the deployment explicitly trusts its proxy; a forged
// X-Forwarded-For would otherwise let clients spoof their address.
func ClientIP(c *fiber.Ctx, trustProxyHeader bool) string {
	if trustProxyHeader {
		if forwarded := c.Get(fiber.HeaderXForwardedFor); forwarded != "" {
			first, _, _ := strings.Cut(forwarded, ",")
			if first = strings.TrimSpace(first); first != "" {
				return first
			}
		}
	}
	return c.IP()
}
