package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/opensocial-be/internal/api/handlers"
	"github.com/isdelr/opensocial-be/internal/auth"
	"github.com/isdelr/opensocial-be/internal/metrics"
	"github.com/isdelr/opensocial-be/internal/services"
)

// Services are the operations the HTTP surface exposes.
type Services struct {
	Users  services.UserServiceProvider
	Social services.SocialServiceProvider
	Posts  services.PostServiceProvider
	Events services.EventServiceProvider
	Tokens *auth.TokenService
}

// Options tunes the router. Metrics and Tracing are optional.
type Options struct {
	AllowedOrigins []string
	MaxUploadBytes int64
	Metrics        *metrics.Metrics
	Tracing        func(http.Handler) http.Handler
}

// NewRouter creates and configures a new Chi router.
func NewRouter(svc Services, opts Options) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if opts.Tracing != nil {
		r.Use(opts.Tracing)
	}
	r.Use(RequestLogger)
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware)
	}
	r.Use(middleware.Recoverer)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(svc.Users)
	userHandler := handlers.NewUserHandler(svc.Users, svc.Social, opts.MaxUploadBytes)
	postHandler := handlers.NewPostHandler(svc.Posts, opts.MaxUploadBytes)
	eventHandler := handlers.NewEventHandler(svc.Events)
	guard := auth.Guard(svc.Tokens, svc.Users)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OpenSocial Backend is running"))
	})
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.With(guard).Get("/me", authHandler.Me)
		})

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", postHandler.List)
			r.Group(func(r chi.Router) {
				r.Use(guard)
				r.Post("/", postHandler.Create)
				r.Put("/like/{id}", postHandler.ToggleLike)
				r.Post("/comment/{id}", postHandler.AddComment)
				r.Put("/comment/{id}/{commentId}", postHandler.EditComment)
				r.Put("/{id}", postHandler.Edit)
				r.Delete("/{id}", postHandler.Delete)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/profile/{username}", userHandler.Profile)
			r.Group(func(r chi.Router) {
				r.Use(guard)
				r.Put("/update", userHandler.Update)
				r.Post("/follow/{id}", userHandler.Follow)
				r.Post("/unfollow/{id}", userHandler.Unfollow)
				r.Get("/activity", eventHandler.GetRecent)
			})
		})
	})

	return r
}
