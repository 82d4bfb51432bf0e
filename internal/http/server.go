package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/securecookie"

	applog "custdash/internal/log"
	"custdash/internal/middleware/ratelimit"
	"custdash/internal/middleware/security"
	"custdash/internal/middleware/trace"
	"custdash/internal/services"
	appweb "custdash/web"
)

// ServerConfig holds the HTTP settings.
type ServerConfig struct {
	Addr               string
	RateLimitPerMinute int
	// CookieHashKey signs the session cookie. A random key is generated when
	// empty, so sessions do not survive a restart.
	CookieHashKey []byte
	// StorageCheck reports the state of the backing store for /readyz.
	// Backends without one leave it nil.
	StorageCheck func(ctx context.Context) (map[string]any, error)
}

// Server serves the dashboard page, its HTMX partials and the JSON views of
// the session state.
type Server struct {
	http.Server
	templates *template.Template
	loader    *services.SnapshotLoader
	sessions  *services.SessionStore
	charts    *HTMLChartRenderer
	cookies   *securecookie.SecureCookie
	storage   func(ctx context.Context) (map[string]any, error)
	logger    *applog.Logger

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware

	appMetrics   appMetrics
	shutdownOnce sync.Once
}

type appMetrics struct {
	started       time.Time
	filterChanges int64
	rejected      int64
}

// NewServer configures routes and templates, returning a ready-to-run server.
// charts may be nil when sessions were created without a renderer.
func NewServer(cfg ServerConfig, loader *services.SnapshotLoader, sessions *services.SessionStore, charts *HTMLChartRenderer, logger *applog.Logger) *Server {
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	mux := http.NewServeMux()
	detector := security.NewDetector(logger)

	hashKey := cfg.CookieHashKey
	if len(hashKey) == 0 {
		hashKey = securecookie.GenerateRandomKey(32)
	}
	cookies := securecookie.New(hashKey, nil)
	if sessions != nil {
		cookies.MaxAge(int(sessions.TTL().Seconds()))
	}

	s := &Server{
		Server: http.Server{
			Addr:              cfg.Addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		loader:           loader,
		sessions:         sessions,
		charts:           charts,
		cookies:          cookies,
		storage:          cfg.StorageCheck,
		logger:           logger,
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(logger, detector.ExtractClientIP),
		appMetrics:       appMetrics{started: time.Now()},
	}

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Error("Failed parsing templates",
			applog.FieldError, err,
			"error_type", applog.ErrorTypeConfiguration)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	limited := s.rateLimiter.Middleware(detector.ExtractClientIP, s.onRateLimited)

	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)

	// UI partials
	mux.HandleFunc("/ui/dashboard", s.handleDashboardPartial)
	mux.Handle("/ui/customer", limited(http.HandlerFunc(s.handleSelectCustomer)))
	mux.Handle("/ui/min-amount", limited(http.HandlerFunc(s.handleSetMinAmount)))

	// JSON views
	mux.HandleFunc("/api/customers", s.handleAPICustomers)
	mux.HandleFunc("/api/transactions", s.handleAPITransactions)
	mux.HandleFunc("/api/chart", s.handleAPIChart)
	mux.Handle("/api/filter", limited(http.HandlerFunc(s.handleAPIFilter)))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Handler = s.traceMiddleware.Middleware(detector.Middleware(headers.Middleware(mux)))

	return s
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Too many filter changes. Please slow down.").Write(w)
}

// Shutdown stops the rate limiter and drains the HTTP server. Sessions are
// owned by the caller.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) countFilterChange() {
	atomic.AddInt64(&s.appMetrics.filterChanges, 1)
}

func (s *Server) countRejected() {
	atomic.AddInt64(&s.appMetrics.rejected, 1)
}
