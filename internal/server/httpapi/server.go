// Package httpapi is the server's HTTP surface: a chi router over the
// guide, collection, identification and image services.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrijs2005/plantcare/internal/logging"
	"github.com/dmitrijs2005/plantcare/internal/server/services"
)

const (
	maxBodyBytes         = 1 << 20
	maxIdentifyBodyBytes = 10 << 20
	maxSyncItems         = 1000
)

type Services struct {
	Guides      services.GuideService
	Collections services.CollectionService
	Identify    services.IdentifyService
	Images      services.ImageService
}

type Options struct {
	Addr            string
	JWTSecret       []byte
	ShutdownTimeout time.Duration
	// Gatherer backs GET /metrics; nil leaves the route out.
	Gatherer prometheus.Gatherer
	Metrics  *Metrics
	Limiter  *RateLimiter
}

type Server struct {
	addr            string
	shutdownTimeout time.Duration
	svc             Services
	log             logging.Logger
	router          chi.Router
}

func New(opts Options, svc Services, logger logging.Logger) *Server {
	s := &Server{
		addr:            opts.Addr,
		shutdownTimeout: opts.ShutdownTimeout,
		svc:             svc,
		log:             logger.With("module", "http_server"),
	}
	s.router = s.routes(opts)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes(opts Options) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, s.logRequests, opts.Metrics.instrument, middleware.Recoverer)

	r.Get("/health", s.health)
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		if opts.Limiter != nil {
			r.Use(opts.Limiter.Middleware)
		}
		r.Post("/identify", s.identify)
		r.Get("/guides/{id}", s.getGuide)
		r.Get("/guides/by-plant/{plantId}", s.listGuides)
	})

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(opts.JWTSecret))

		r.Post("/guides", s.createGuide)
		r.Put("/guides/{id}", s.updateGuide)
		r.Delete("/guides/{id}", s.deleteGuide)

		r.Route("/collections", func(r chi.Router) {
			r.Get("/", s.listCollections)
			r.Post("/", s.createCollection)
			r.Post("/sync", s.syncCollections)
			r.Get("/changes", s.collectionChanges)
			r.Post("/images/presign", s.presignImage)
			r.Get("/{id}", s.getCollection)
			r.Patch("/{id}", s.updateCollection)
			r.Delete("/{id}", s.deleteCollection)
			r.Post("/{id}/care", s.recordCare)
			r.Get("/{id}/care", s.careHistory)
		})
	})

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// Run serves until ctx is cancelled, then drains in-flight requests for at
// most the shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	done := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.log.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
		defer cancel()
		done <- srv.Shutdown(shutdownCtx)
	}()

	s.log.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-done
}
