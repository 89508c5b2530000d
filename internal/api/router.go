package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"bodylog/internal/auth"
	"bodylog/internal/config"
	"bodylog/internal/constants"
	"bodylog/internal/db"
)

type Server struct {
	router *chi.Mux
	config *config.Config
}

func NewServer(
	cfg *config.Config,
	database *db.DB,
	emailService auth.EmailSender,
) (*Server, error) {
	userRepo := db.NewUserRepository(database)
	authTokenRepo := db.NewAuthTokenRepository(database)
	sessionRepo := db.NewSessionRepository(database)
	relationshipRepo := db.NewRelationshipRepository(database)
	segmentRepo := db.NewSegmentRepository(database)
	exerciseRepo := db.NewExerciseRepository(database)
	experienceRepo := db.NewExperienceRepository(database)
	progressRepo := db.NewProgressRepository(database)

	authService := auth.NewService(userRepo, authTokenRepo, sessionRepo, emailService, cfg.Server.BaseURL)

	authHandler := NewAuthHandler(authService, userRepo, cfg.IsDevelopment())
	userHandler := NewUserHandler(userRepo, relationshipRepo, experienceRepo, progressRepo)
	segmentHandler := NewSegmentHandler(segmentRepo)
	exerciseHandler := NewExerciseHandler(exerciseRepo)
	experienceHandler := NewExperienceHandler(experienceRepo)
	progressHandler := NewProgressHandler(progressRepo)
	healthHandler := NewHealthHandler(database)

	authMiddleware := NewAuthMiddleware(authService)

	issueLimiter := httprate.Limit(5, time.Minute, rateLimitOptions()...)
	verifyLimiter := httprate.Limit(10, time.Minute, rateLimitOptions()...)

	r := chi.NewRouter()
	r.Use(slogRequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(corsMiddleware)
	r.Use(securityHeadersMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Use(maxBodySizeMiddleware(1 << 20)) // 1 MB

		r.Get("/health", healthHandler.Check)

		r.Route("/auth", func(r chi.Router) {
			r.With(issueLimiter).Post("/check-email", authHandler.CheckEmail)
			r.With(issueLimiter).Post("/magic-link", authHandler.RequestMagicLink)
			r.With(verifyLimiter).Post("/verify", authHandler.Verify)
			r.Post("/get-role", authHandler.GetRole)
			r.Post("/logout", authHandler.Logout)

			r.Group(func(r chi.Router) {
				r.Use(authMiddleware.RequireAuth)
				r.Get("/me", authHandler.Me)
			})
		})

		r.Route("/segments", func(r chi.Router) {
			r.Get("/", segmentHandler.GetAll)
			r.Get("/{id}", segmentHandler.Get)
		})

		r.Route("/exercises", func(r chi.Router) {
			r.Get("/categories", exerciseHandler.GetCategories)
			r.With(authMiddleware.OptionalAuth).Get("/", exerciseHandler.GetAll)
			r.Get("/{id}", exerciseHandler.Get)

			r.With(authMiddleware.RequireInstructor).Post("/", exerciseHandler.Create)

			r.Group(func(r chi.Router) {
				r.Use(authMiddleware.RequireAuth)
				r.Put("/{id}", exerciseHandler.Update)
				r.Delete("/{id}", exerciseHandler.Delete)
			})
		})

		r.Route("/experiences", func(r chi.Router) {
			r.Use(authMiddleware.RequireAuth)
			r.Get("/", experienceHandler.GetAll)
			r.Post("/", experienceHandler.Create)
			r.Post("/safety-checkin", experienceHandler.SafetyCheckin)
			r.Get("/session/{sessionID}", experienceHandler.GetSession)
			r.Get("/{id}", experienceHandler.Get)
			r.Delete("/{id}", experienceHandler.Delete)
		})

		r.Route("/progress", func(r chi.Router) {
			r.Use(authMiddleware.RequireAuth)
			r.Get("/", progressHandler.GetSummary)
			r.Get("/trends", progressHandler.GetTrends)
			r.Get("/segments", progressHandler.GetSegmentStats)
			r.Get("/comparisons", progressHandler.GetComparisons)
			r.Get("/exercises", progressHandler.GetExerciseUsage)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(authMiddleware.RequireAuth)
			r.Put("/me", userHandler.UpdateMe)
			r.Post("/consent", userHandler.SetConsent)
			r.Get("/my-instructors", userHandler.GetMyInstructors)

			r.Group(func(r chi.Router) {
				r.Use(authMiddleware.RequireInstructor)
				r.Get("/students", userHandler.GetStudents)
				r.Post("/students", userHandler.AddStudent)
				r.Get("/students/{id}/progress", userHandler.GetStudentProgress)
			})
		})
	})

	return &Server{
		router: r,
		config: cfg,
	}, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func rateLimitOptions() []httprate.Option {
	return []httprate.Option{
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, constants.ErrCodeRateLimitExceeded, "Too many requests, please try again later")
		}),
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, "+TokenHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func maxBodySizeMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

func slogRequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
			"remote", r.RemoteAddr,
		)
	})
}
