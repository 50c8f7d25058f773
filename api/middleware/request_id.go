package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/kwesidadzie/bundlehub-backend/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

// RequestID assigns an identifier to each request, preferring the one sent by
// the client, and stamps it on the response and the log context.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(requestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}

			w.Header().Set(requestIDHeader, requestID)
			ctx := logg.WithRequestID(r.Context(), requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
