package middleware

import (
	"net/http"

	"github.com/go-chi/jwtauth/v5"

	"github.com/stafftrack/attendance-backend-go/internal/handler/http/response"
)

func AuthRequired(ja *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			token, _, err := jwtauth.FromContext(r.Context())

			if err != nil {
				response.Unauthorized(w, err.Error())
				return
			}

			if token == nil {
				response.Unauthorized(w, "Invalid token")
				return
			}

			claims, err := token.AsMap(r.Context())
			if err != nil {
				response.Unauthorized(w, "Invalid token")
				return
			}

			userID, ok := claims["user_id"].(string)
			if !ok || userID == "" {
				response.Unauthorized(w, "Invalid token")
				return
			}

			companyID, ok := claims["company_id"].(string)
			if !ok || companyID == "" {
				response.Unauthorized(w, "Invalid token")
				return
			}

			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(hfn)
	}
}
