package middleware

import (
	"net/http"

	"github.com/go-chi/jwtauth/v5"

	"github.com/stafftrack/attendance-backend-go/internal/handler/http/response"
)

// AdminOnly requires an admin or owner role claim.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			response.Forbidden(w, "Admin privilege required")
			return
		}

		role, ok := claims["role"].(string)
		if !ok || (role != "admin" && role != "owner") {
			response.Forbidden(w, "Admin privilege required")
			return
		}

		next.ServeHTTP(w, r)
	})
}
