package http

import (
	"log/slog"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/stafftrack/attendance-backend-go/internal/handler/http/middleware"
)

// NewJWTAuth builds the token verifier used by the router. A small clock
// skew is tolerated so that freshly issued tokens from a drifting issuer
// still validate.
func NewJWTAuth(secret string) *jwtauth.JWTAuth {
	return jwtauth.New("HS256", []byte(secret), nil, jwt.WithAcceptableSkew(30*time.Second))
}

func NewRouter(
	jwtAuth *jwtauth.JWTAuth,
	attendanceHandler AttendanceHandler,
	performanceHandler PerformanceHandler,
	deviceHandler DeviceHandler,
	notificationHandler NotificationHandler,
) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(false)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "stafftrack-attendance"),
		slog.String("version", "v1.0.0"),
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {

		// Device pings authenticate with the device key, not a JWT.
		r.Post("/devices/ping", deviceHandler.Ping)

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(jwtAuth))
			r.Use(middleware.AuthRequired(jwtAuth))

			r.Route("/attendance", func(r chi.Router) {
				r.Post("/check-in", attendanceHandler.CheckIn)
				r.Post("/check-out", attendanceHandler.CheckOut)
				r.Get("/me", attendanceHandler.GetMyAttendance)

				r.Route("/breaks", func(r chi.Router) {
					r.Post("/start", attendanceHandler.StartBreak)
					r.Post("/end", attendanceHandler.EndBreak)
				})

				// Admin only
				r.Group(func(r chi.Router) {
					r.Use(middleware.AdminOnly)
					r.Get("/", attendanceHandler.List)
				})
			})

			r.Route("/performance", func(r chi.Router) {
				r.Get("/leaderboard", performanceHandler.GetLeaderboard)
				r.Get("/snapshots", performanceHandler.GetSnapshots)

				// Admin only
				r.Group(func(r chi.Router) {
					r.Use(middleware.AdminOnly)
					r.Post("/snapshots/run", performanceHandler.RunSnapshot)
				})
			})

			r.Post("/devices", deviceHandler.Register)

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", notificationHandler.List)
				r.Post("/{id}/read", notificationHandler.MarkAsRead)
			})
		})

		// SSE cannot send an Authorization header, so the stream route
		// accepts the token as a query parameter.
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verify(jwtAuth, jwtauth.TokenFromQuery))
			r.Use(middleware.AuthRequired(jwtAuth))

			r.Get("/notifications/stream", notificationHandler.Stream)
		})
	})
	return r
}
