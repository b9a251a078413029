package reports

import (
	"html/template"
	"slices"
	"strings"
	"time"

	"dailyreport/pkg/domain"
	"dailyreport/pkg/editor"
	"dailyreport/pkg/sanitize"
)

// AllTeams is the team filter value that matches every team.
const AllTeams = "All teams"

var createdAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// Filter narrows the report list. Zero values match everything.
type Filter struct {
	Team    string
	User    string
	Tags    []string
	Keyword string
}

// Match reports whether r passes every set criterion. A report must carry
// all selected tags.
func (f Filter) Match(r domain.Report) bool {
	if f.Team != "" && f.Team != AllTeams && r.Team != f.Team {
		return false
	}
	if f.User != "" && r.UserName != f.User {
		return false
	}
	for _, want := range f.Tags {
		if !slices.ContainsFunc(r.Tags, func(t domain.Tag) bool { return t.Name == want }) {
			return false
		}
	}
	if kw := strings.ToLower(strings.TrimSpace(f.Keyword)); kw != "" {
		return strings.Contains(strings.ToLower(searchText(r)), kw)
	}
	return true
}

func searchText(r domain.Report) string {
	parts := []string{editor.PlainText(r.Content), r.UserName, r.Team}
	for _, t := range r.Tags {
		parts = append(parts, t.Name)
	}
	return strings.Join(parts, " ")
}

// Apply filters reports and sorts the result newest first.
func Apply(reports []domain.Report, f Filter) []domain.Report {
	out := make([]domain.Report, 0, len(reports))
	for _, r := range reports {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return SortNewestFirst(out)
}

// SortNewestFirst orders by createdAt descending. Reports without a parseable
// createdAt follow, in their original order.
func SortNewestFirst(reports []domain.Report) []domain.Report {
	type keyed struct {
		report domain.Report
		at     time.Time
		ok     bool
	}
	items := make([]keyed, len(reports))
	for i, r := range reports {
		at, ok := parseCreatedAt(r.CreatedAt, time.UTC)
		items[i] = keyed{report: r, at: at, ok: ok}
	}
	slices.SortStableFunc(items, func(a, b keyed) int {
		switch {
		case a.ok && b.ok:
			return b.at.Compare(a.at)
		case a.ok:
			return -1
		case b.ok:
			return 1
		}
		return 0
	})
	out := make([]domain.Report, len(items))
	for i, it := range items {
		out[i] = it.report
	}
	return out
}

func parseCreatedAt(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range createdAtLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DisplayTime renders createdAt as 24h HH:MM in loc, or "" when unparseable.
func DisplayTime(createdAt string, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	t, ok := parseCreatedAt(createdAt, loc)
	if !ok {
		return ""
	}
	return t.In(loc).Format("15:04")
}

// Teams lists AllTeams followed by each team in first-seen order.
func Teams(reports []domain.Report) []string {
	out := []string{AllTeams}
	for _, r := range reports {
		if r.Team != "" && !slices.Contains(out, r.Team) {
			out = append(out, r.Team)
		}
	}
	return out
}

// Users lists each author name in first-seen order.
func Users(reports []domain.Report) []string {
	var out []string
	for _, r := range reports {
		if r.UserName != "" && !slices.Contains(out, r.UserName) {
			out = append(out, r.UserName)
		}
	}
	return out
}

// TagSet is the unique-by-name projection over all reports' tags.
func TagSet(reports []domain.Report) []domain.Tag {
	var out []domain.Tag
	seen := make(map[string]bool)
	for _, r := range reports {
		for _, t := range r.Tags {
			if t.Name == "" || seen[t.Name] {
				continue
			}
			seen[t.Name] = true
			out = append(out, domain.Tag{Name: t.Name})
		}
	}
	return out
}

// CanModify reports whether user owns the report.
func CanModify(user *domain.User, r domain.Report) bool {
	return user != nil && r.ID != "" && user.ID == r.UserID
}

// Entry is one report prepared for the list page.
type Entry struct {
	Report    domain.Report
	Body      template.HTML
	Time      string
	CanModify bool
}

// Entries sanitizes each report body for display.
func Entries(reports []domain.Report, user *domain.User, loc *time.Location) []Entry {
	out := make([]Entry, 0, len(reports))
	for _, r := range reports {
		out = append(out, Entry{
			Report:    r,
			Body:      sanitize.Report(r.Content),
			Time:      DisplayTime(r.CreatedAt, loc),
			CanModify: CanModify(user, r),
		})
	}
	return out
}
