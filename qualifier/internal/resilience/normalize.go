package resilience

import (
	"errors"
	"net/url"
	"strings"
)

var errInvalidHost = errors.New("resilience: invalid host")

// normalizeHost reduces a USS or observer base URL to a stable limiter key,
// adapted from the teacher engine's ratelimit.normalizeDomain.
func normalizeHost(raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", errInvalidHost
	}
	if strings.Contains(value, "://") {
		u, err := url.Parse(value)
		if err != nil || u.Host == "" {
			return "", errInvalidHost
		}
		value = u.Host
	}
	return strings.ToLower(value), nil
}
