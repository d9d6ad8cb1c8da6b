package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/heartmarshall/wildguess-backend/pkg/ctxutil"
)

type tokenValidator interface {
	ValidateAccessToken(token string) (uuid.UUID, error)
}

// Auth authenticates requests that carry a bearer token. Requests without
// one pass through as anonymous; an invalid token is rejected with 401.
// A nil validator (auth disabled) treats every request as anonymous.
func Auth(validator tokenValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" || validator == nil {
				next.ServeHTTP(w, r)
				return
			}
			playerID, err := validator.ValidateAccessToken(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if sw, ok := w.(*statusWriter); ok {
				sw.playerID = playerID.String()
			}
			ctx := ctxutil.WithPlayerID(r.Context(), playerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePlayer rejects anonymous requests. Mount it on routes that read
// or change persisted player state.
func RequirePlayer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := ctxutil.PlayerIDFromCtx(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) < 7 || !strings.EqualFold(header[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
