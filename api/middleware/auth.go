package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/camdenretail/tillcore-backend/api/responses"
	pkgauth "github.com/camdenretail/tillcore-backend/pkg/auth"
	"github.com/camdenretail/tillcore-backend/pkg/config"
	pkgerrors "github.com/camdenretail/tillcore-backend/pkg/errors"
	"github.com/camdenretail/tillcore-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the claims.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgauth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := context.WithValue(r.Context(), ctxOperatorID, claims.OperatorID.String())
			ctx = context.WithValue(ctx, ctxCompanyID, claims.CompanyID.String())
			ctx = context.WithValue(ctx, ctxRole, string(claims.Role))
			if claims.DeviceID != "" {
				ctx = context.WithValue(ctx, ctxDeviceID, claims.DeviceID)
			}

			if logg != nil {
				fields := map[string]any{
					"operator_id":   claims.OperatorID.String(),
					"company_id":    claims.CompanyID.String(),
					"operator_role": string(claims.Role),
				}
				if claims.DeviceID != "" {
					fields["device_id"] = claims.DeviceID
				}
				ctx = logg.WithFields(ctx, fields)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects requests whose token does not carry the given role.
func RequireRole(role string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if RoleFromContext(r.Context()) != role {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
