package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/reseau-affaires/apiserver/config"
	"github.com/reseau-affaires/apiserver/internal/db"
	"github.com/reseau-affaires/apiserver/internal/handlers"
	"github.com/reseau-affaires/apiserver/internal/mq"
	"github.com/reseau-affaires/apiserver/internal/services"
	"github.com/reseau-affaires/apiserver/internal/storage"
	"github.com/reseau-affaires/apiserver/internal/store"
	"github.com/reseau-affaires/apiserver/types"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	mq         *mq.MQ
	logger     *slog.Logger
}

// Services groups the use-cases served over HTTP.
type Services struct {
	Accounts       *services.AccountService
	Users          *services.UserService
	Profiles       *services.ProfileService
	Annonces       *services.AnnonceService
	Documentations *services.DocumentationService
	Evenements     *services.EvenementService
}

// New connects the database, object storage and broker, then builds the
// router.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	if cfg.JWT.Secret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	objects, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	if !objects.Enabled() {
		logger.Warn("object storage disabled, file uploads will be rejected")
	}

	broker, err := mq.Open(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	notifier := services.NewNotifier(broker, logger)
	accounts := services.NewAccountService(store.NewAccountRepository(dbConn), notifier)
	svcs := Services{
		Accounts:       accounts,
		Users:          services.NewUserService(accounts),
		Profiles:       services.NewProfileService(accounts),
		Annonces:       services.NewAnnonceService(store.NewAnnonceRepository(dbConn), objects, notifier, logger),
		Documentations: services.NewDocumentationService(store.NewDocumentationRepository(dbConn)),
		Evenements:     services.NewEvenementService(store.NewEvenementRepository(dbConn), objects, logger),
	}

	router := NewRouter(cfg, logger, svcs, objects)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		mq:         broker,
		logger:     logger,
	}, nil
}

// NewRouter mounts every route on a chi router with the middleware stack.
func NewRouter(cfg config.Config, logger *slog.Logger, svcs Services, objects handlers.ObjectReader) *chi.Mux {
	maxUpload := cfg.Storage.MaxUploadBytes

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
		corsMiddleware(cfg.CORS),
		secureHeaders(cfg, logger),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/media", func(r chi.Router) {
		handlers.MediaRouter(r, objects)
	})

	router.Group(func(r chi.Router) {
		r.Use(handlers.Authenticate(svcs.Accounts, cfg.JWT.Secret))

		r.Route("/auth", func(r chi.Router) {
			handlers.AuthRouter(r, svcs.Accounts, svcs.Users, cfg.JWT, authRateLimit(cfg.RateLimit))
		})
		r.Route("/signup", func(r chi.Router) {
			r.Use(authRateLimit(cfg.RateLimit))
			handlers.SignupRouter(r, svcs.Accounts)
		})
		r.Route("/annonces", func(r chi.Router) {
			handlers.AnnonceRouter(r, svcs.Annonces, maxUpload)
		})
		r.Route("/evenements", func(r chi.Router) {
			handlers.EvenementRouter(r, svcs.Evenements, maxUpload)
		})
		r.Route("/documentations", func(r chi.Router) {
			handlers.DocumentationRouter(r, svcs.Documentations)
		})
		r.Route("/users", func(r chi.Router) {
			handlers.UserRouter(r, svcs.Users)
		})
		for prefix, role := range map[string]types.Role{
			"/apporteurs":      types.RoleApporteur,
			"/chercheurs":      types.RoleChercheur,
			"/experts":         types.RoleExpert,
			"/administrateurs": types.RoleAdministrateur,
		} {
			r.Route(prefix, func(r chi.Router) {
				handlers.ProfileRouter(r, svcs.Profiles, role)
			})
		}
	})

	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("http server listening", slog.String("addr", s.httpServer.Addr))
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests and releases the database and broker.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.mq != nil {
		_ = s.mq.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return err
}
