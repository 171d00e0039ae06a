package server

import (
	"context"
	"gw-wallet-ledger/internal/api/middlew"
	"gw-wallet-ledger/internal/metrics"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Server struct {
	httpServer *http.Server
	Router     *chi.Mux
	port       string
}

type Options struct {
	Port           string
	AllowedOrigins []string
	Metrics        *metrics.Metrics
	Log            *slog.Logger
}

func NewServer(opts Options) *Server {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middlew.WithLogger(opts.Log))
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	router.Use(opts.Metrics.Middleware)

	serv := &http.Server{
		Addr:         ":" + opts.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return &Server{
		httpServer: serv,
		Router:     router,
		port:       opts.Port,
	}
}

func (s *Server) Run() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) RegisterSwagger() {
	s.Router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:"+s.port+"/swagger/doc.json"),
	))
}

func (s *Server) RegisterMetrics(m *metrics.Metrics) {
	if m == nil {
		return
	}
	s.Router.Method(http.MethodGet, "/metrics", m.Handler())
}
