package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"server/internal/infra/geoip"
)

type countryKey struct{}

// Country annotates the request context with the caller's ISO country code
// when a GeoIP database is configured. Lookup failures are ignored; geo
// enrichment is best effort and only feeds audit metadata.
func Country(resolver *geoip.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if resolver == nil {
				next.ServeHTTP(w, r)
				return
			}
			if code, err := resolver.CountryCode(clientIP(r)); err == nil && code != "" {
				ctx := context.WithValue(r.Context(), countryKey{}, strings.ToUpper(code))
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CountryFromContext returns the resolved country code, or "".
func CountryFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(countryKey{}).(string); ok {
		return v
	}
	return ""
}

func clientIP(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		if first, _, ok := strings.Cut(xf, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(xf)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
