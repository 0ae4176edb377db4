package middleware

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"github.com/angelmondragon/dispo-backend/pkg/logger"
)

const (
	requestIDHeader     = "X-Request-Id"
	correlationIDHeader = "X-Correlation-Id"
	maxRequestIDLen     = 128
)

var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]+$`)

// RequestID propagates the caller's X-Request-Id (or X-Correlation-Id) when it is a sane
// token and mints a uuid otherwise. The id is echoed on the response and logged.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := inboundRequestID(r)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, reqID)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func inboundRequestID(r *http.Request) string {
	for _, header := range []string{requestIDHeader, correlationIDHeader} {
		value := r.Header.Get(header)
		if value != "" && len(value) <= maxRequestIDLen && requestIDPattern.MatchString(value) {
			return value
		}
	}
	return ""
}
