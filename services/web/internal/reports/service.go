package reports

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"dailyreport/internal/util"
	"dailyreport/pkg/domain"
	"dailyreport/pkg/editor"
	"dailyreport/services/web/internal/reportclient"
)

// DeletePrompt is asked before a report is deleted.
const DeletePrompt = "Are you sure you want to delete this report?"

const (
	msgLoadFailed     = "Failed to load reports."
	msgContentMissing = "Please enter the report content."
	msgSignInRequired = "Sign in to continue."
	msgNotFound       = "Report not found."
	msgNotOwner       = "You can only change your own reports."
	msgSubmitted      = "Report submitted."
	msgSubmitFailed   = "Failed to submit report."
	msgUpdated        = "Report updated."
	msgUpdateFailed   = "Failed to update report."
	msgDeleted        = "Report deleted."
	msgDeleteFailed   = "Failed to delete report."
)

// API is the backend report surface.
type API interface {
	List(ctx context.Context) ([]domain.Report, error)
	Tags(ctx context.Context) ([]string, error)
	Create(ctx context.Context, report domain.Report) (string, error)
	Update(ctx context.Context, report domain.Report) error
	Delete(ctx context.Context, id string) error
}

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// Draft is what a report form submits.
type Draft struct {
	Tags    []domain.Tag
	Content string
}

// Result is the outcome of a successful write: the message to show, the
// refetched list and where to go next.
type Result struct {
	Message string
	Reports []domain.Report
	Next    string
}

// EditForm is what the edit page needs.
type EditForm struct {
	Report      domain.Report
	Suggestions []domain.Tag
}

// Service runs the report flows for one visitor.
type Service struct {
	api API
	loc *time.Location
	now func() time.Time
}

// NewService returns a Service that dates reports in loc.
func NewService(api API, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{api: api, loc: loc, now: time.Now}
}

// Location is the zone used for report dates and display times.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Load fetches every report.
func (s *Service) Load(ctx context.Context) ([]domain.Report, error) {
	reports, err := s.api.List(ctx)
	if err != nil {
		return nil, s.failure(ctx, err, msgLoadFailed)
	}
	return reports, nil
}

// Suggestions loads the backend tag list. Failures are logged and yield none.
func (s *Service) Suggestions(ctx context.Context) []domain.Tag {
	names, err := s.api.Tags(ctx)
	if err != nil {
		util.LoggerFromContext(ctx).Warn("load tag suggestions failed", "err", err)
		return nil
	}
	field := NewTagField(nil)
	for _, name := range names {
		field.Add(RawTag(name))
	}
	return field.Tags()
}

// EditForm loads the report and suggestions in parallel. The suggestions
// merge the backend list with the tags of every loaded report.
func (s *Service) EditForm(ctx context.Context, user *domain.User, id string) (EditForm, error) {
	var (
		reports     []domain.Report
		suggestions []domain.Tag
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		reports, err = s.Load(gctx)
		return err
	})
	g.Go(func() error {
		suggestions = s.Suggestions(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return EditForm{}, err
	}
	report, err := s.owned(user, reports, id)
	if err != nil {
		return EditForm{}, err
	}
	report.Content = editor.CleanLegacyMarkup(report.Content)
	merged := NewTagField(suggestions)
	for _, t := range TagSet(reports) {
		merged.Add(ExistingTag(t))
	}
	return EditForm{Report: report, Suggestions: merged.Tags()}, nil
}

// Create submits a new report with a client-generated id and today's date.
func (s *Service) Create(ctx context.Context, user *domain.User, draft Draft) (Result, error) {
	if user == nil {
		return Result{}, domain.NewFailure(domain.KindForbidden, msgSignInRequired, nil)
	}
	content, err := canonicalContent(draft.Content)
	if err != nil {
		return Result{}, err
	}
	report := domain.Report{
		ID:       util.NewUUID(),
		UserID:   user.ID,
		UserName: user.Name,
		Team:     user.Team,
		Date:     s.now().In(s.loc).Format(time.DateOnly),
		Tags:     NewTagField(draft.Tags).Tags(),
		Content:  content,
	}
	if _, err := s.api.Create(ctx, report); err != nil {
		return Result{}, s.failure(ctx, err, msgSubmitFailed)
	}
	return s.done(ctx, msgSubmitted), nil
}

// Update replaces the tags and content of an owned report.
func (s *Service) Update(ctx context.Context, user *domain.User, id string, draft Draft) (Result, error) {
	content, err := canonicalContent(draft.Content)
	if err != nil {
		return Result{}, err
	}
	reports, err := s.Load(ctx)
	if err != nil {
		return Result{}, err
	}
	report, err := s.owned(user, reports, id)
	if err != nil {
		return Result{}, err
	}
	report.Tags = NewTagField(draft.Tags).Tags()
	report.Content = content
	if err := s.api.Update(ctx, report); err != nil {
		return Result{}, s.failure(ctx, err, msgUpdateFailed)
	}
	return s.done(ctx, msgUpdated), nil
}

// Delete removes an owned report after confirmation. A declined
// confirmation sends nothing and returns a zero Result.
func (s *Service) Delete(ctx context.Context, user *domain.User, id string, confirm Confirmer) (Result, error) {
	if confirm == nil || !confirm.Confirm(DeletePrompt) {
		return Result{}, nil
	}
	reports, err := s.Load(ctx)
	if err != nil {
		return Result{}, err
	}
	if _, err := s.owned(user, reports, id); err != nil {
		return Result{}, err
	}
	if err := s.api.Delete(ctx, id); err != nil {
		return Result{}, s.failure(ctx, err, msgDeleteFailed)
	}
	return s.done(ctx, msgDeleted), nil
}

// done refetches the list after a write. A failed refetch is logged; the
// write itself already succeeded.
func (s *Service) done(ctx context.Context, msg string) Result {
	reports, err := s.api.List(ctx)
	if err != nil {
		util.LoggerFromContext(ctx).Warn("refetch reports failed", "err", err)
	}
	return Result{Message: msg, Reports: SortNewestFirst(reports), Next: "/reports"}
}

func (s *Service) owned(user *domain.User, reports []domain.Report, id string) (domain.Report, error) {
	if user == nil {
		return domain.Report{}, domain.NewFailure(domain.KindForbidden, msgSignInRequired, nil)
	}
	for _, r := range reports {
		if r.ID != id {
			continue
		}
		if !CanModify(user, r) {
			return domain.Report{}, domain.NewFailure(domain.KindForbidden, msgNotOwner, nil)
		}
		return r, nil
	}
	return domain.Report{}, domain.NewFailure(domain.KindNotFound, msgNotFound, nil)
}

// canonicalContent normalizes editor output and rejects empty documents.
func canonicalContent(content string) (string, error) {
	html := editor.Load(content).HTML()
	if editor.IsEmptyContent(html) {
		return "", domain.NewFailure(domain.KindValidation, msgContentMissing, nil)
	}
	return html, nil
}

func (s *Service) failure(ctx context.Context, err error, generic string) *domain.Failure {
	logger := util.LoggerFromContext(ctx)
	var apiErr *reportclient.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = generic
		}
		kind := domain.KindRejected
		switch apiErr.Status {
		case http.StatusUnauthorized, http.StatusForbidden:
			kind = domain.KindForbidden
		case http.StatusNotFound:
			kind = domain.KindNotFound
		}
		return domain.NewFailure(kind, msg, err)
	}
	if errors.Is(err, reportclient.ErrUnexpectedResponse) {
		logger.Error("unexpected report response", "err", err)
		return domain.NewFailure(domain.KindUnexpected, generic, err)
	}
	logger.Warn("report request failed", "err", err)
	return domain.NewFailure(domain.KindTransport, generic, err)
}
