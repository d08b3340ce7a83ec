package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"famledger/internal/auth"
	"famledger/internal/export"
	"famledger/internal/log"
	"famledger/internal/middleware/ratelimit"
	"famledger/internal/middleware/security"
	"famledger/internal/middleware/trace"
	"famledger/internal/services"
	"famledger/internal/sheets"
	appweb "famledger/web"
)

// ReportSender delivers a report by e-mail.
type ReportSender interface {
	Send(ctx context.Context, to []string, rep export.Report) error
}

// Dependencies are the collaborators the HTTP surface is built on. Mailer and
// Ready are optional.
type Dependencies struct {
	Store    sheets.Store
	Ledger   *services.LedgerService
	Sessions *auth.Sessions
	Mailer   ReportSender
	// Ready reports whether the backend can serve requests.
	Ready     func(ctx context.Context) error
	RateLimit ratelimit.Config
}

// Server wraps http.Server with the ledger handlers and their middleware.
type Server struct {
	http.Server

	store     sheets.Store
	ledger    *services.LedgerService
	sessions  *auth.Sessions
	mailer    ReportSender
	ready     func(ctx context.Context) error
	templates *template.Template

	logger   *log.Logger
	events   *log.StructuredLogger
	clientIP *security.ClientIP
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware

	started      time.Time
	now          func() time.Time
	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server.
func NewServer(addr string, deps Dependencies, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		store:    deps.Store,
		ledger:   deps.Ledger,
		sessions: deps.Sessions,
		mailer:   deps.Mailer,
		ready:    deps.Ready,
		logger:   logger,
		events:   log.NewStructuredLogger(logger),
		clientIP: security.NewClientIP(),
		limiter:  ratelimit.NewLimiter(deps.RateLimit),
		started:  time.Now(),
		now:      time.Now,
	}
	s.tracer = trace.NewMiddleware(logger, s.clientIP.Extract)

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates",
			log.FieldError, err,
			log.FieldComponent, log.ComponentTemplate)
	}
	s.templates = t

	s.Handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/logout", s.handleLogout)

	private := func(h http.HandlerFunc) http.Handler {
		return security.NoStore(s.sessions.RequireSession(h))
	}
	mux.Handle("GET /api/me", private(s.handleMe))
	mux.Handle("GET /api/transactions", private(s.handleListTransactions))
	mux.Handle("POST /api/transactions/search", private(s.handleSearchTransactions))
	mux.Handle("POST /api/transactions", private(s.handleCreateTransaction))
	mux.Handle("GET /api/transactions/{id}", private(s.handleGetTransaction))
	mux.Handle("PUT /api/transactions/{id}", private(s.handleUpdateTransaction))
	mux.Handle("DELETE /api/transactions/{id}", private(s.handleDeleteTransaction))
	mux.Handle("GET /api/summary", private(s.handleSummary))
	mux.Handle("GET /api/export/xlsx", private(s.handleExportXLSX))
	mux.Handle("GET /api/export/pdf", private(s.handleExportPDF))
	mux.Handle("POST /api/export/email", private(s.handleExportEmail))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	var h http.Handler = mux
	h = s.limiter.Middleware(s.clientIP.Extract, isMutating)(h)
	h = headers.Middleware(h)
	h = s.tracer.Middleware(h)
	return h
}

// isMutating selects the requests the rate limiter counts: writes, logins and
// e-mails.
func isMutating(r *http.Request) bool {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	// Ensure shutdown logic runs only once
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
