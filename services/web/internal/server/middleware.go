package server

import (
	"context"
	"net/http"
	"strings"

	"dailyreport/internal/util"
	"dailyreport/services/web/internal/app"
	"dailyreport/services/web/internal/session"
)

type visitorContextKey struct{}

// visitorHandler is a route that runs with the visitor already resolved.
type visitorHandler func(http.ResponseWriter, *http.Request, *app.Visitor)

// withVisitor resolves the signed visitor cookie, issuing a new visitor when
// it is missing or invalid, and persists the cookie jar after the request.
func (s *Server) withVisitor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" || strings.HasPrefix(r.URL.Path, "/static/") {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		id := ""
		if c, err := r.Cookie(visitorCookieName); err == nil {
			if parsed, err := s.visitors.Parse(c.Value); err == nil {
				id = parsed
			} else {
				util.LoggerFromContext(ctx).Debug("discarding visitor cookie", "err", err)
			}
		}
		if id == "" {
			id = s.app.NewVisitorID()
			if err := s.issueVisitorCookie(w, id); err != nil {
				util.LoggerFromContext(ctx).Error("issue visitor cookie failed", "err", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
		}
		visitor, err := s.app.Visitor(ctx, id)
		if err != nil {
			util.LoggerFromContext(ctx).Error("resolve visitor failed", "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		ctx = util.ContextWithLogger(ctx, util.LoggerFromContext(ctx).With("visitor_id", id))
		ctx = context.WithValue(ctx, visitorContextKey{}, visitor)
		next.ServeHTTP(w, r.WithContext(ctx))

		if err := s.app.Persist(context.WithoutCancel(ctx), visitor); err != nil {
			util.LoggerFromContext(ctx).Warn("persist visitor failed", "err", err)
		}
	})
}

func (s *Server) issueVisitorCookie(w http.ResponseWriter, id string) error {
	token, err := s.visitors.Issue(id)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     visitorCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.visitors.TTL().Seconds()),
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func visitorFrom(ctx context.Context) *app.Visitor {
	v, _ := ctx.Value(visitorContextKey{}).(*app.Visitor)
	return v
}

// page bootstraps the session and applies the route guard before rendering.
func (s *Server) page(next visitorHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v := visitorFrom(r.Context())
		if v == nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		state := v.Boot.Run(r.Context())
		decision := session.Decide(state, r.URL.Path)
		switch {
		case decision.Redirect != "":
			http.Redirect(w, r, decision.Redirect, http.StatusSeeOther)
		case decision.Loading:
			s.render(w, r, v, http.StatusOK, "loading", "Loading", nil)
		default:
			next(w, r, v)
		}
	})
}

// api is page for JSON endpoints: an unauthenticated caller gets 401 JSON
// instead of a redirect.
func (s *Server) api(next visitorHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v := visitorFrom(r.Context())
		if v == nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		state := v.Boot.Run(r.Context())
		decision := session.Decide(state, r.URL.Path)
		switch {
		case decision.Redirect != "":
			writeError(w, http.StatusUnauthorized, "unauthorized")
		case decision.Loading:
			writeError(w, http.StatusServiceUnavailable, "session not ready")
		default:
			next(w, r, v)
		}
	})
}

func isAPIPath(path string) bool {
	return strings.HasPrefix(path, "/reports/editor/")
}
