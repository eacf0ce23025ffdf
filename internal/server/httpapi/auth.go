package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/plantcare/internal/common"
	"github.com/dmitrijs2005/plantcare/internal/server/auth"
)

type ctxKey string

const userIDKey ctxKey = "userID"

// BearerAuth rejects requests without a valid bearer token and stores the
// token's user id in the request context.
func BearerAuth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get(common.AuthorizationHeader)
			if header == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing authorization header")
				return
			}

			token, found := strings.CutPrefix(header, common.BearerPrefix)
			if !found || strings.TrimSpace(token) == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid authorization format")
				return
			}

			userID, err := auth.GetUserIDFromToken(strings.TrimSpace(token), secret)
			if err != nil {
				detail := "invalid token"
				if errors.Is(err, common.ErrTokenExpired) {
					detail = "token expired"
				}
				writeError(w, http.StatusUnauthorized, "unauthorized", detail)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}
