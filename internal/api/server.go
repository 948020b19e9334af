package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"threadline/internal/auth"
	"threadline/internal/config"
	"threadline/internal/logging"
	"threadline/internal/realtime"
	"threadline/pkg/interfaces"
)

// HealthChecker reports backend connectivity for the health endpoint.
type HealthChecker func(ctx context.Context) error

// Server is the HTTP surface: REST handlers, the websocket endpoint and
// all route-level middleware. It holds no business state of its own.
type Server struct {
	users    interfaces.UserStore
	posts    interfaces.PostStore
	messages interfaces.MessageStore
	blobs    interfaces.BlobStorage
	gateway  *realtime.Gateway
	issuer   *auth.Issuer
	guard    *auth.Middleware
	validate *validator.Validate
	cfg      *config.Config
	health   HealthChecker
	router   chi.Router
}

// NewServer wires the handlers onto a chi router.
func NewServer(
	cfg *config.Config,
	users interfaces.UserStore,
	posts interfaces.PostStore,
	messages interfaces.MessageStore,
	blobs interfaces.BlobStorage,
	gateway *realtime.Gateway,
	issuer *auth.Issuer,
	health HealthChecker,
) *Server {
	s := &Server{
		users:    users,
		posts:    posts,
		messages: messages,
		blobs:    blobs,
		gateway:  gateway,
		issuer:   issuer,
		guard:    auth.NewMiddleware(issuer, users),
		validate: validator.New(),
		cfg:      cfg,
		health:   health,
	}

	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORS.Origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/ws", s.gateway.HandleWebSocket)

	rl := s.cfg.RateLimit

	r.Route("/api", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.With(httprate.LimitByIP(rl.SignupRequests, rl.SignupWindow)).
				Post("/signup", s.handleSignup)
			r.With(httprate.LimitByIP(rl.AuthRequests, rl.AuthWindow)).
				Post("/login", s.handleLogin)
			r.Post("/logout", s.handleLogout)
			r.Get("/profile/{query}", s.handleGetProfile)

			r.Group(func(r chi.Router) {
				r.Use(s.guard.Protect)
				r.Get("/suggested", s.handleSuggestedUsers)
				r.Post("/follow/{id}", s.handleFollowUser)
				r.Put("/update/{id}", s.handleUpdateUser)
				r.Put("/freeze", s.handleFreezeAccount)
			})
		})

		r.Route("/posts", func(r chi.Router) {
			r.Get("/{id}", s.handleGetPost)
			r.Get("/user/{username}", s.handleUserPosts)

			r.Group(func(r chi.Router) {
				r.Use(s.guard.Protect)
				r.Get("/feed", s.handleFeed)
				r.Post("/create", s.handleCreatePost)
				r.Delete("/{id}", s.handleDeletePost)
				r.Put("/like/{id}", s.handleLikePost)
				r.Put("/reply/{id}", s.handleReplyToPost)
			})
		})

		r.Route("/messages", func(r chi.Router) {
			r.Use(s.guard.Protect)
			r.With(httprate.LimitByIP(rl.SendRequests, rl.SendWindow)).
				Post("/", s.handleSendMessage)
			r.Get("/conversations", s.handleConversations)
			r.Get("/{otherUserId}", s.handleMessages)
		})
	})

	return r
}

type healthResponse struct {
	Status    string    `json:"status"`
	Database  string    `json:"database"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := healthResponse{Status: "healthy", Database: "healthy", Timestamp: time.Now()}
	status := http.StatusOK

	if s.health != nil {
		if err := s.health(ctx); err != nil {
			resp.Status = "unhealthy"
			resp.Database = err.Error()
			status = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, status, resp)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logging.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}
