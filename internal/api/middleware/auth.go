package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/phrazzld/archiver/internal/api/shared"
	"github.com/phrazzld/archiver/internal/auth"
)

// AuthMiddleware admits requests that carry a valid operator token.
type AuthMiddleware struct {
	jwtService auth.JWTService
}

// NewAuthMiddleware creates an AuthMiddleware backed by jwtService.
func NewAuthMiddleware(jwtService auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwtService: jwtService}
}

// Authenticate rejects requests without a valid "Authorization: Bearer"
// operator token. The token's subject is available downstream through
// GetOperator.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, msg := bearerToken(r.Header.Get("Authorization"))
		if msg != "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, msg)
			return
		}

		claims, err := m.jwtService.ValidateToken(r.Context(), token)
		if err != nil {
			if msg, rejected := rejection(err); rejected {
				shared.RespondWithError(w, r, http.StatusUnauthorized, msg)
				return
			}
			shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Authentication error", err)
			return
		}

		ctx := context.WithValue(r.Context(), shared.OperatorContextKey, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken extracts the token from an Authorization header value. A
// non-empty message means the header is unusable.
func bearerToken(header string) (token, msg string) {
	if header == "" {
		return "", "Authorization header required"
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" || strings.Contains(token, " ") {
		return "", "Invalid authorization format"
	}
	return token, ""
}

// rejection maps a token validation failure to the client-facing message.
// Errors it does not recognize are server faults.
func rejection(err error) (string, bool) {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired", true
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return "Invalid token", true
	default:
		return "", false
	}
}

// GetOperator returns the subject of the operator token that authenticated r.
func GetOperator(r *http.Request) (string, bool) {
	subject, ok := r.Context().Value(shared.OperatorContextKey).(string)
	return subject, ok
}
