package auth

import (
	"net/http"
	"strings"

	apperrors "github.com/rango-exchange/router-middleware/pkg/app/errors"
	apphttp "github.com/rango-exchange/router-middleware/pkg/app/http"
)

// Middleware returns a chi-compatible middleware rejecting requests that do
// not carry a valid bearer token.
func (a *TokenAuthority) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				apphttp.DefaultErrorHandler(w, apperrors.UnAuthorizedError(nil, "missing bearer token"))
				return
			}

			claims, err := a.ValidateToken(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				apphttp.DefaultErrorHandler(w, apperrors.UnAuthorizedError(err, "invalid token"))
				return
			}

			ctx := WithSubject(r.Context(), claims.Subject)
			ctx = WithRole(ctx, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
