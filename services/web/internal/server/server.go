package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/csrf"

	"dailyreport/internal/ratelimit"
	"dailyreport/internal/util"
	"dailyreport/pkg/domain"
	"dailyreport/services/web/internal/app"
	"dailyreport/services/web/internal/store"
)

const (
	visitorCookieName = "dr_visitor"
	csrfCookieName    = "dr_csrf"
	csrfFieldName     = "csrf_token"

	msgTooManyAttempts = "Too many attempts. Please wait a minute and try again."
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App      *app.App
	Visitors *store.VisitorTokens
	// CSRFKey is the 32-byte gorilla/csrf key. Nil disables CSRF checks.
	CSRFKey        []byte
	CookieSecure   bool
	Trusted        *util.TrustedProxies
	LoginLimiter   *ratelimit.FixedWindowLimiter
	GateLimiter    *ratelimit.FixedWindowLimiter
	MaxUploadBytes int64
}

// Server serves the daily report pages and the editor API.
type Server struct {
	app            *app.App
	visitors       *store.VisitorTokens
	csrfKey        []byte
	cookieSecure   bool
	trusted        *util.TrustedProxies
	loginLimiter   *ratelimit.FixedWindowLimiter
	gateLimiter    *ratelimit.FixedWindowLimiter
	maxUploadBytes int64
	pages          *pages
	mux            *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("server: app required")
	}
	if cfg.Visitors == nil {
		return nil, errors.New("server: visitor tokens required")
	}
	tmpl, err := loadPages()
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	s := &Server{
		app:            cfg.App,
		visitors:       cfg.Visitors,
		csrfKey:        cfg.CSRFKey,
		cookieSecure:   cfg.CookieSecure,
		trusted:        cfg.Trusted,
		loginLimiter:   cfg.LoginLimiter,
		gateLimiter:    cfg.GateLimiter,
		maxUploadBytes: maxUpload,
		pages:          tmpl,
		mux:            http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler with the middleware chain applied.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog("web", util.WithSecurityHeaders(s.withCSRF(s.withVisitor(s.mux)))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.Handle("GET /static/", staticHandler())

	s.mux.Handle("GET /{$}", s.page(func(w http.ResponseWriter, r *http.Request, _ *app.Visitor) {
		http.Redirect(w, r, "/reports", http.StatusSeeOther)
	}))

	// auth
	s.mux.Handle("GET /login", s.page(s.handleLoginForm))
	s.mux.Handle("POST /login", s.page(s.handleLogin))
	s.mux.Handle("POST /logout", s.page(s.handleLogout))
	s.mux.Handle("GET /register", s.page(s.handleRegisterForm))
	s.mux.Handle("POST /register", s.page(s.handleRegister))
	s.mux.Handle("GET /forgot-password", s.page(s.handleForgotForm))
	s.mux.Handle("POST /forgot-password", s.page(s.handleForgot))
	s.mux.Handle("GET /reset-password", s.page(s.handleResetForm))
	s.mux.Handle("POST /reset-password", s.page(s.handleReset))

	// reports (session required)
	s.mux.Handle("GET /reports", s.page(s.handleReports))
	s.mux.Handle("GET /reports/new", s.page(s.handleNewReportForm))
	s.mux.Handle("POST /reports/new", s.page(s.handleCreateReport))
	s.mux.Handle("GET /reports/{id}/edit", s.page(s.handleEditReportForm))
	s.mux.Handle("POST /reports/{id}/edit", s.page(s.handleUpdateReport))
	s.mux.Handle("GET /reports/{id}/delete", s.page(s.handleDeleteReportForm))
	s.mux.Handle("POST /reports/{id}/delete", s.page(s.handleDeleteReport))

	// editor API (session required, JSON)
	s.mux.Handle("POST /reports/editor/commands", s.api(s.handleEditorCommand))
	s.mux.Handle("POST /reports/editor/images", s.api(s.handleEditorImage))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// withCSRF protects every unsafe request. Plain-HTTP deployments mark the
// request as such so the Referer check does not demand https.
func (s *Server) withCSRF(next http.Handler) http.Handler {
	if len(s.csrfKey) == 0 {
		return next
	}
	protect := csrf.Protect(s.csrfKey,
		csrf.Secure(s.cookieSecure),
		csrf.Path("/"),
		csrf.HttpOnly(true),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.CookieName(csrfCookieName),
		csrf.FieldName(csrfFieldName),
		csrf.ErrorHandler(http.HandlerFunc(s.handleCSRFFailure)),
	)(next)
	if s.cookieSecure {
		return protect
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		protect.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
	})
}

func (s *Server) handleCSRFFailure(w http.ResponseWriter, r *http.Request) {
	util.SecurityEvent(r.Context(), "csrf", "rejected", "path", r.URL.Path, "reason", csrf.FailureReason(r))
	if isAPIPath(r.URL.Path) {
		writeError(w, http.StatusForbidden, "invalid CSRF token")
		return
	}
	http.Error(w, "Forbidden - invalid CSRF token", http.StatusForbidden)
}

// allowRate applies limiter keyed by path and client IP. A nil limiter
// allows everything.
func (s *Server) allowRate(r *http.Request, limiter *ratelimit.FixedWindowLimiter) (bool, int) {
	if limiter == nil {
		return true, 0
	}
	key := r.URL.Path + "|" + util.ClientIP(r, s.trusted)
	if limiter.Allow(r.Context(), key) {
		return true, 0
	}
	util.SecurityEvent(r.Context(), "rate_limit", "blocked", "path", r.URL.Path)
	return false, int(limiter.Window() / time.Second)
}

func setRetryAfter(w http.ResponseWriter, retryAfter int) {
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
}

// statusFor maps a failure kind to the HTTP status of the re-rendered page.
func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindRejected:
		return http.StatusUnprocessableEntity
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindBusy:
		return http.StatusConflict
	case domain.KindTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
