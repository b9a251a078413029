package server

import (
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"dailyreport/pkg/domain"
	"dailyreport/pkg/editor"
	"dailyreport/services/web/internal/app"
	"dailyreport/services/web/internal/reports"
)

type reportsPage struct {
	Filter  reports.Filter
	Teams   []string
	Users   []string
	Tags    []domain.Tag
	Entries []reports.Entry
	Total   int
	Error   string
}

type reportFormPage struct {
	Action      string
	Submit      string
	Tags        []domain.Tag
	Suggestions []domain.Tag
	Content     string
	Editing     template.HTML
	Placeholder string
	Error       string
}

type deletePage struct {
	Report domain.Report
	Prompt string
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request, v *app.Visitor) {
	q := r.URL.Query()
	data := reportsPage{Filter: reports.Filter{
		Team:    q.Get("team"),
		User:    q.Get("user"),
		Tags:    q["tag"],
		Keyword: q.Get("q"),
	}}
	if data.Filter.Team == "" {
		data.Filter.Team = reports.AllTeams
	}
	all, err := v.Reports.Load(r.Context())
	if err != nil {
		data.Error = domain.MessageOf(err, "Failed to load reports.")
		data.Teams = reports.Teams(nil)
		s.render(w, r, v, http.StatusOK, "reports", "Reports", data)
		return
	}
	data.Teams = reports.Teams(all)
	data.Users = reports.Users(all)
	data.Tags = reports.TagSet(all)
	data.Total = len(all)
	user := v.Session.Snapshot().User
	data.Entries = reports.Entries(reports.Apply(all, data.Filter), user, v.Reports.Location())
	s.render(w, r, v, http.StatusOK, "reports", "Reports", data)
}

func (s *Server) handleNewReportForm(w http.ResponseWriter, r *http.Request, v *app.Visitor) {
	form := newReportForm("/reports/new", "Submit", nil, "")
	form.Suggestions = v.Reports.Suggestions(r.Context())
	s.render(w, r, v, http.StatusOK, "report_form", "New report", form)
}

func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request, v *app.Visitor) {
	draft := draftFromForm(r)
	res, err := v.Reports.Create(r.Context(), v.Session.Snapshot().User, draft)
	if err != nil {
		form := newReportForm("/reports/new", "Submit", draft.Tags, draft.Content)
		form.Suggestions = v.Reports.Suggestions(r.Context())
		form.Error = domain.MessageOf(err, "Failed to submit report.")
		s.render(w, r, v, statusFor(err), "report_form", "New report", form)
		return
	}
	v.AddFlash(app.FlashSuccess, res.Message)
	http.Redirect(w, r, res.Next, http.StatusSeeOther)
}

func (s *Server) handleEditReportForm(w http.ResponseWriter, r *http.Request, v *app.Visitor) {
	edit, err := v.Reports.EditForm(r.Context(), v.Session.Snapshot().User, r.PathValue("id"))
	if err != nil {
		s.renderFailure(w, r, v, err)
		return
	}
	form := newReportForm(editPath(edit.Report.ID), "Update", edit.Report.Tags, edit.Report.Content)
	form.Suggestions = edit.Suggestions
	s.render(w, r, v, http.StatusOK, "report_form", "Edit report", form)
}

func (s *Server) handleUpdateReport(w http.ResponseWriter, r *http.Request, v *app.Visitor) {
	id := r.PathValue("id")
	draft := draftFromForm(r)
	res, err := v.Reports.Update(r.Context(), v.Session.Snapshot().User, id, draft)
	if err != nil {
		switch domain.KindOf(err) {
		case domain.KindNotFound, domain.KindForbidden:
			s.renderFailure(w, r, v, err)
			return
		}
		form := newReportForm(editPath(id), "Update", draft.Tags, draft.Content)
		form.Error = domain.MessageOf(err, "Failed to update report.")
		s.render(w, r, v, statusFor(err), "report_form", "Edit report", form)
		return
	}
	v.AddFlash(app.FlashSuccess, res.Message)
	http.Redirect(w, r, res.Next, http.StatusSeeOther)
}

func (s *Server) handleDeleteReportForm(w http.ResponseWriter, r *http.Request, v *app.Visitor) {
	id := r.PathValue("id")
	all, err := v.Reports.Load(r.Context())
	if err != nil {
		s.renderFailure(w, r, v, err)
		return
	}
	user := v.Session.Snapshot().User
	for _, report := range all {
		if report.ID != id {
			continue
		}
		if !reports.CanModify(user, report) {
			s.renderFailure(w, r, v, domain.NewFailure(domain.KindForbidden, "You can only change your own reports.", nil))
			return
		}
		s.render(w, r, v, http.StatusOK, "delete_report", "Delete report", deletePage{Report: report, Prompt: reports.DeletePrompt})
		return
	}
	s.renderFailure(w, r, v, domain.NewFailure(domain.KindNotFound, "Report not found.", nil))
}

func (s *Server) handleDeleteReport(w http.ResponseWriter, r *http.Request, v *app.Visitor) {
	confirmed := reports.ConfirmFunc(func(string) bool {
		return r.PostFormValue("confirm") == "yes"
	})
	res, err := v.Reports.Delete(r.Context(), v.Session.Snapshot().User, r.PathValue("id"), confirmed)
	if err != nil {
		switch domain.KindOf(err) {
		case domain.KindNotFound, domain.KindForbidden:
			s.renderFailure(w, r, v, err)
		default:
			v.AddFlash(app.FlashError, domain.MessageOf(err, "Failed to delete report."))
			http.Redirect(w, r, "/reports", http.StatusSeeOther)
		}
		return
	}
	v.AddFlash(app.FlashSuccess, res.Message)
	http.Redirect(w, r, "/reports", http.StatusSeeOther)
}

func newReportForm(action, submit string, tags []domain.Tag, content string) reportFormPage {
	ed := editor.New(content)
	return reportFormPage{
		Action:      action,
		Submit:      submit,
		Tags:        reports.NewTagField(tags).Tags(),
		Content:     ed.FieldValue(),
		Editing:     template.HTML(ed.View().RenderEditing()),
		Placeholder: ed.View().Placeholder(),
	}
}

// draftFromForm reads the committed tag chips ("tag") and the comma
// separated fallback field ("tags") through the tag normalizer.
func draftFromForm(r *http.Request) reports.Draft {
	_ = r.ParseForm()
	field := reports.NewTagField(nil)
	for _, name := range r.PostForm["tag"] {
		field.Add(reports.RawTag(name))
	}
	for _, name := range strings.Split(r.PostFormValue("tags"), ",") {
		field.Add(reports.RawTag(name))
	}
	return reports.Draft{Tags: field.Tags(), Content: r.PostFormValue("content")}
}

func editPath(id string) string {
	return "/reports/" + url.PathEscape(id) + "/edit"
}
