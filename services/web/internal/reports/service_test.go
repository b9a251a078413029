package reports

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"dailyreport/pkg/domain"
	"dailyreport/services/web/internal/reportclient"
)

type fakeAPI struct {
	mu        sync.Mutex
	reports   []domain.Report
	tags      []string
	listErr   error
	tagsErr   error
	writeErr  error
	created   []domain.Report
	updated   []domain.Report
	deleted   []string
	listCalls int
}

func (f *fakeAPI) List(ctx context.Context) ([]domain.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]domain.Report(nil), f.reports...), nil
}

func (f *fakeAPI) Tags(ctx context.Context) ([]string, error) {
	return f.tags, f.tagsErr
}

func (f *fakeAPI) Create(ctx context.Context, r domain.Report) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return "", f.writeErr
	}
	f.created = append(f.created, r)
	r.CreatedAt = "2024-01-05T09:00:00Z"
	f.reports = append(f.reports, r)
	return "ok", nil
}

func (f *fakeAPI) Update(ctx context.Context, r domain.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.updated = append(f.updated, r)
	return nil
}

func (f *fakeAPI) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

var ann = &domain.User{ID: "u-1", Name: "Ann", Team: "core"}

func newTestService(api API) *Service {
	s := NewService(api, time.UTC)
	s.now = func() time.Time { return time.Date(2024, 1, 5, 23, 30, 0, 0, time.UTC) }
	return s
}

func TestCreateSubmitsAndRefetches(t *testing.T) {
	api := &fakeAPI{reports: sampleReports()}
	svc := newTestService(api)

	res, err := svc.Create(context.Background(), ann, Draft{
		Tags:    []domain.Tag{{Name: "dev"}},
		Content: "<p>Implemented API yesterday.</p>",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(api.created) != 1 {
		t.Fatalf("expected one POST, got %d", len(api.created))
	}
	got := api.created[0]
	if got.ID == "" || got.UserID != "u-1" || got.UserName != "Ann" || got.Team != "core" || got.Date != "2024-01-05" {
		t.Fatalf("unexpected report: %+v", got)
	}
	if got.Content != "<p>Implemented API yesterday.</p>" || len(got.Tags) != 1 || got.Tags[0].Name != "dev" {
		t.Fatalf("unexpected body: %+v", got)
	}
	if res.Message != msgSubmitted || res.Next != "/reports" || api.listCalls != 1 {
		t.Fatalf("unexpected result: %+v (list calls %d)", res, api.listCalls)
	}
	if res.Reports[0].ID != got.ID {
		t.Fatalf("new report should sort first, got %s", res.Reports[0].ID)
	}
}

func TestCreateRejectsEmptyContent(t *testing.T) {
	api := &fakeAPI{}
	for _, content := range []string{"", "<p></p>", "<p><br></p>", "  "} {
		_, err := newTestService(api).Create(context.Background(), ann, Draft{Content: content})
		if domain.KindOf(err) != domain.KindValidation || err.Error() != msgContentMissing {
			t.Fatalf("expected validation failure for %q, got %v", content, err)
		}
	}
	if len(api.created) != 0 {
		t.Fatal("empty content must not be submitted")
	}
}

func TestCreateFailureMessages(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&reportclient.APIError{Status: http.StatusBadRequest, Message: "Date already reported"}, "Date already reported"},
		{&reportclient.APIError{Status: http.StatusInternalServerError}, msgSubmitFailed},
		{errors.New("connection refused"), msgSubmitFailed},
	}
	for _, tt := range tests {
		_, err := newTestService(&fakeAPI{writeErr: tt.err}).Create(context.Background(), ann, Draft{Content: "<p>x</p>"})
		if err == nil || err.Error() != tt.want {
			t.Fatalf("expected %q, got %v", tt.want, err)
		}
	}
}

func TestUpdateReplacesTagsAndContent(t *testing.T) {
	api := &fakeAPI{reports: sampleReports()}
	res, err := newTestService(api).Update(context.Background(), ann, "r-1", Draft{
		Tags:    []domain.Tag{{Name: "ops"}},
		Content: "<p>Updated</p>",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(api.updated) != 1 {
		t.Fatalf("expected one PUT, got %d", len(api.updated))
	}
	got := api.updated[0]
	if got.ID != "r-1" || got.UserName != "Ann" || got.Content != "<p>Updated</p>" || got.Tags[0].Name != "ops" {
		t.Fatalf("unexpected update: %+v", got)
	}
	if res.Message != msgUpdated {
		t.Fatalf("unexpected message: %q", res.Message)
	}
}

func TestUpdateChecksOwnership(t *testing.T) {
	api := &fakeAPI{reports: sampleReports()}
	svc := newTestService(api)
	if _, err := svc.Update(context.Background(), ann, "r-2", Draft{Content: "<p>x</p>"}); domain.KindOf(err) != domain.KindForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := svc.Update(context.Background(), ann, "missing", Draft{Content: "<p>x</p>"}); domain.KindOf(err) != domain.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(api.updated) != 0 {
		t.Fatal("no PUT expected")
	}
}

func TestDeleteDeclinedSendsNothing(t *testing.T) {
	api := &fakeAPI{reports: sampleReports()}
	var asked string
	res, err := newTestService(api).Delete(context.Background(), ann, "r-1", ConfirmFunc(func(p string) bool {
		asked = p
		return false
	}))
	if err != nil || res.Message != "" || res.Reports != nil || res.Next != "" {
		t.Fatalf("unexpected result: %+v %v", res, err)
	}
	if asked != DeletePrompt {
		t.Fatalf("unexpected prompt: %q", asked)
	}
	if len(api.deleted) != 0 || api.listCalls != 0 {
		t.Fatal("declined delete must not send requests")
	}
}

func TestDeleteConfirmed(t *testing.T) {
	api := &fakeAPI{reports: sampleReports()}
	res, err := newTestService(api).Delete(context.Background(), ann, "r-1", ConfirmFunc(func(string) bool { return true }))
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(api.deleted) != 1 || api.deleted[0] != "r-1" || res.Message != msgDeleted {
		t.Fatalf("unexpected delete: %v %+v", api.deleted, res)
	}

	api.writeErr = errors.New("timeout")
	if _, err := newTestService(api).Delete(context.Background(), ann, "r-1", ConfirmFunc(func(string) bool { return true })); err == nil || err.Error() != msgDeleteFailed {
		t.Fatalf("expected delete failure, got %v", err)
	}
}

func TestEditFormMergesSuggestions(t *testing.T) {
	reports := sampleReports()
	reports[0].Content = `<p>a</p><button class="image-delete-button">×</button>`
	api := &fakeAPI{reports: reports, tags: []string{"backend", "dev"}}

	form, err := newTestService(api).EditForm(context.Background(), ann, "r-1")
	if err != nil {
		t.Fatalf("edit form: %v", err)
	}
	if form.Report.Content != "<p>a</p>" {
		t.Fatalf("legacy markup not cleaned: %q", form.Report.Content)
	}
	var names []string
	for _, tag := range form.Suggestions {
		names = append(names, tag.Name)
	}
	want := []string{"backend", "dev", "infra", "meeting"}
	if len(names) != len(want) {
		t.Fatalf("unexpected suggestions: %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("unexpected suggestions: %v", names)
		}
	}
}

func TestSuggestionsFailureYieldsNone(t *testing.T) {
	api := &fakeAPI{tagsErr: errors.New("down")}
	if got := newTestService(api).Suggestions(context.Background()); len(got) != 0 {
		t.Fatalf("expected no suggestions, got %v", got)
	}
}
