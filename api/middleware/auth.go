package middleware

import (
	"net/http"
	"strings"

	"github.com/kwesidadzie/bundlehub-backend/api/responses"
	"github.com/kwesidadzie/bundlehub-backend/pkg/auth"
	"github.com/kwesidadzie/bundlehub-backend/pkg/config"
	pkgerrors "github.com/kwesidadzie/bundlehub-backend/pkg/errors"
	"github.com/kwesidadzie/bundlehub-backend/pkg/logger"
)

// Auth validates the bearer token and seeds the request context with the
// authenticated agent and role.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeUnauthorized, "authorization header required"))
				return
			}

			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || raw == "" {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeUnauthorized, "bearer token required"))
				return
			}

			claims, err := auth.ParseAccessToken(cfg, raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithAgentID(r.Context(), claims.AgentID.String())
			ctx = WithRole(ctx, claims.Role)
			ctx = logg.WithFields(ctx, map[string]any{
				"agent_id":   claims.AgentID.String(),
				"actor_role": claims.Role,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
