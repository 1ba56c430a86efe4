package middleware

import (
	"net/http"

	"github.com/go-chi/jwtauth/v5"
	"github.com/pinky-hr/attendance-engine/internal/domain/auth"
	"github.com/pinky-hr/attendance-engine/internal/handler/http/response"
	"github.com/pinky-hr/attendance-engine/internal/pkg/jwt"
)

// AuthRequired rejects requests without a verified operator access token.
// It runs after jwtauth.Verifier.
func AuthRequired(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			response.Unauthorized(w, err.Error())
			return
		}
		if token == nil {
			response.HandleError(w, auth.ErrInvalidToken)
			return
		}

		tokenType, ok := claims["type"].(string)
		if !ok || tokenType != jwt.TokenTypeAccess {
			response.HandleError(w, auth.ErrInvalidToken)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Subject returns the operator identity carried by the request token.
func Subject(r *http.Request) *string {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		return nil
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return nil
	}
	return &sub
}
