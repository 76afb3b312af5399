package server

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	apierrors "github.com/maruel/csvdb/internal/errors"
	"github.com/maruel/csvdb/internal/server/handlers"
)

// AuthMiddleware requires a valid HS256 bearer token signed with secret on
// every request that may modify the table. Reads stay anonymous. The token
// subject is available to handlers through handlers.SubjectFromContext. An
// empty secret disables the check.
func AuthMiddleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(secret) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || !strings.HasPrefix(r.URL.Path, "/api/") {
				next.ServeHTTP(w, r)
				return
			}
			tokenString, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || tokenString == "" {
				writeErrorResponse(w, http.StatusUnauthorized, apierrors.ErrUnauthorized, "Missing bearer token", nil)
				return
			}
			token, err := jwt.Parse(tokenString, func(*jwt.Token) (any, error) {
				return secret, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !token.Valid {
				slog.DebugContext(r.Context(), "Rejected token", "err", err)
				writeErrorResponse(w, http.StatusUnauthorized, apierrors.ErrUnauthorized, "Invalid token", nil)
				return
			}
			sub, _ := token.Claims.GetSubject()
			next.ServeHTTP(w, r.WithContext(handlers.WithSubject(r.Context(), sub)))
		})
	}
}
