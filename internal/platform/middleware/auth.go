package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	id "tokensafe/pkg/domain"
	"tokensafe/pkg/requestcontext"
)

// TokenValidator verifies a bearer token and returns the caller identity it
// attests to. The hosting environment guarantees tokens are only issued to
// keyholders, so a validated identity is treated as an authenticated signer.
type TokenValidator interface {
	ValidateToken(tokenString string) (id.AccountID, error)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// authenticated signer identity in the request context.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			signer, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithSigner(ctx, signer)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
