package mockbackend

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/rhuss/docchat/pkg/observability"
)

// Config holds mock backend settings.
type Config struct {
	Addr            string
	RateLimitRPM    int           // 0 disables limiting
	FragmentSize    int           // bytes per streamed fragment
	FragmentDelay   time.Duration // pause between fragments
	APIKey          string        // required bearer token when set
	MaxUploadBytes  int64
	Metrics         bool // expose /metrics and record request metrics
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration // 0 keeps long streams open
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		FragmentSize:    8,
		FragmentDelay:   20 * time.Millisecond,
		MaxUploadBytes:  20 << 20, // 20 MB
		Metrics:         true,
		ReadTimeout:     30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// Server wraps an http.Server serving the mock backend and manages its
// lifecycle including graceful shutdown.
type Server struct {
	cfg        Config
	logger     *slog.Logger
	backend    *Backend
	limiter    *Limiter
	handler    http.Handler
	httpServer *http.Server
}

// New creates a mock backend server.
func New(cfg Config, opts ...Option) *Server {
	def := DefaultConfig()
	if cfg.FragmentSize <= 0 {
		cfg.FragmentSize = def.FragmentSize
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = def.MaxUploadBytes
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = def.ShutdownTimeout
	}

	s := &Server{cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	s.backend = newBackend(cfg, s.logger)
	s.limiter = NewLimiter(cfg.RateLimitRPM)

	apiMux := http.NewServeMux()
	s.backend.register(apiMux)
	protected := Chain(
		Auth(cfg.APIKey),
		RateLimit(s.limiter, func(r *http.Request) {
			observability.RateLimitRejectedTotal.WithLabelValues(observability.RouteLabel(r.URL.Path)).Inc()
		}),
	)(apiMux)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	if cfg.Metrics {
		mux.Handle("GET /metrics", observability.Handler())
	}
	mux.Handle("/", protected)

	chain := []Middleware{Recovery(s.logger), RequestID(), Logging(s.logger)}
	if cfg.Metrics {
		chain = append([]Middleware{observability.MetricsMiddleware}, chain...)
	}
	s.handler = Chain(chain...)(mux)

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves on the configured address until ctx is done, then
// shuts down gracefully, letting in-flight streams finish within the
// shutdown timeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("mock backend starting", "addr", ln.Addr().String(),
			"rate_limit_rpm", s.cfg.RateLimitRPM, "fragment_size", s.cfg.FragmentSize)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("mock backend shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
