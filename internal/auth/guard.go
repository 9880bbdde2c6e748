package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/isdelr/opensocial-be/internal/models"
	"github.com/rs/zerolog/log"
)

type contextKey string

const userContextKey = contextKey("user")

// UserResolver looks up the account a verified token refers to.
type UserResolver interface {
	GetUser(ctx context.Context, id string) (models.User, error)
}

// Guard creates a middleware for protecting routes. The resolved user, with
// its password digest stripped, is stored in the request context.
func Guard(tokens *TokenService, users UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := bearerToken(r.Header.Get("Authorization"))
			if tokenStr == "" {
				writeUnauthorized(w, "Not authorized, no token")
				return
			}

			userID, err := tokens.Verify(tokenStr)
			if err != nil {
				writeUnauthorized(w, "Not authorized")
				return
			}

			user, err := users.GetUser(r.Context(), userID)
			if err != nil {
				log.Warn().Err(err).Str("user_id", userID).Msg("Token subject could not be resolved")
				writeUnauthorized(w, "Not authorized")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user.Public())))
		})
	}
}

// UserFromContext returns the user attached by Guard.
func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userContextKey).(models.User)
	return user, ok
}

// WithUser attaches user to ctx for UserFromContext.
func WithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}
