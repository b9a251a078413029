package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"slices"
	"strings"

	"github.com/gorilla/csrf"

	"dailyreport/internal/util"
	"dailyreport/pkg/domain"
	"dailyreport/services/web/internal/app"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var pageNames = []string{
	"login",
	"register_gate",
	"register",
	"forgot_password",
	"reset_password",
	"reports",
	"report_form",
	"delete_report",
	"loading",
	"error",
}

var templateFuncs = template.FuncMap{
	"join": strings.Join,
	"has":  slices.Contains[[]string],
}

type pages struct {
	byName map[string]*template.Template
}

func loadPages() (*pages, error) {
	p := &pages{byName: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		t, err := template.New("layout.html").Funcs(templateFuncs).
			ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		p.byName[name] = t
	}
	return p, nil
}

func staticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

// view is the data every page template receives.
type view struct {
	Title     string
	User      *domain.User
	Flashes   []app.Flash
	CSRFField template.HTML
	CSRFToken string
	Data      any
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, v *app.Visitor, status int, name, title string, data any) {
	t, ok := s.pages.byName[name]
	if !ok {
		util.LoggerFromContext(r.Context()).Error("unknown template", "name", name)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	page := view{
		Title:     title,
		User:      v.Session.Snapshot().User,
		Flashes:   v.Flashes(),
		CSRFField: csrf.TemplateField(r),
		CSRFToken: csrf.Token(r),
		Data:      data,
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, page); err != nil {
		util.LoggerFromContext(r.Context()).Error("render page failed", "name", name, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// renderFailure shows the error page for a failure that leaves nothing else
// to render, such as a missing or foreign report.
func (s *Server) renderFailure(w http.ResponseWriter, r *http.Request, v *app.Visitor, err error) {
	msg := domain.MessageOf(err, "Something went wrong.")
	s.render(w, r, v, statusFor(err), "error", "Error", msg)
}
