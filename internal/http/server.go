package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"finanzas/internal/auth"
	"finanzas/internal/core"
	"finanzas/internal/ledger"
	"finanzas/internal/log"
	"finanzas/internal/middleware/cors"
	"finanzas/internal/middleware/ratelimit"
	"finanzas/internal/middleware/recovery"
	"finanzas/internal/middleware/security"
	"finanzas/internal/middleware/trace"
	"finanzas/internal/services"
)

// UploadPath is the route of the batch upload endpoint.
const UploadPath = "/functions/v1/process-batch-upload"

// Uploader runs the ingestion pipeline for one caller.
type Uploader interface {
	Process(ctx context.Context, userID string, req core.UploadRequest) (core.IngestionResult, error)
	Stats() services.IngestionStats
}

// Config holds the transport settings.
type Config struct {
	Addr               string
	AllowedOrigins     []string
	RateLimitPerMinute int // 0 disables
	MaxUploadBytes     int64
}

type Server struct {
	http.Server

	uploader Uploader
	resolver auth.Resolver
	pinger   ledger.Pinger
	logger   *log.Logger

	maxUploadBytes int64
	started        time.Time

	traceMiddleware  *trace.Middleware
	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector

	stopBackground context.CancelFunc
	shutdownOnce   sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
// pinger may be nil, in which case readiness always succeeds.
func NewServer(cfg Config, uploader Uploader, resolver auth.Resolver, pinger ledger.Pinger, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	detector := security.NewDetector()
	limiter := ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute})

	s := &Server{
		Server: http.Server{
			Addr:              cfg.Addr,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       60 * time.Second,
			MaxHeaderBytes:    1 << 16, // 64KB
		},
		uploader:         uploader,
		resolver:         resolver,
		pinger:           pinger,
		logger:           logger,
		maxUploadBytes:   cfg.MaxUploadBytes,
		started:          time.Now(),
		traceMiddleware:  trace.NewMiddleware(detector.ExtractClientIP),
		rateLimiter:      limiter,
		securityDetector: detector,
	}

	mux := http.NewServeMux()
	mux.HandleFunc(UploadPath, s.handleUpload)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)

	var h http.Handler = mux
	if cfg.RateLimitPerMinute > 0 {
		h = limiter.Middleware(detector.ExtractClientIP, s.writeRateLimited, http.MethodPost)(h)
	}
	h = cors.Middleware(cors.Config{AllowedOrigins: cfg.AllowedOrigins})(h)
	h = s.rejectSuspicious(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = log.Middleware(logger, trace.GetRequestID)(h)
	h = s.traceMiddleware.Middleware(h)
	h = recovery.Middleware(logger, nil)(h)
	s.Handler = h

	bg, cancel := context.WithCancel(context.Background())
	s.stopBackground = cancel
	go limiter.Run(bg)

	return s
}

// Shutdown stops background routines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.stopBackground()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) rejectSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.securityDetector.DetectSuspiciousRequest(r) {
			log.FromContext(r.Context(), s.logger).WarnContext(r.Context(), "Suspicious request rejected",
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
				"user_agent", r.Header.Get("User-Agent"))
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context(), s.logger).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	NewJSONResponse().
		Status(http.StatusTooManyRequests).
		Body(core.IngestionResult{Success: false, Message: "Demasiadas solicitudes. Inténtelo más tarde."}).
		Write(w)
}
