package session

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"dailyreport/internal/util"
	"dailyreport/pkg/domain"
	"dailyreport/services/web/internal/authclient"
)

type fakeGateway struct {
	mu        sync.Mutex
	meUser    *domain.User
	meErr     error
	loginErr  error
	logoutErr error
	meGate    chan struct{}

	meCalls     atomic.Int32
	loginCalls  atomic.Int32
	logoutCalls atomic.Int32
}

func (f *fakeGateway) Me(ctx context.Context) (*domain.User, error) {
	f.meCalls.Add(1)
	if f.meGate != nil {
		<-f.meGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.meUser, f.meErr
}

func (f *fakeGateway) Login(ctx context.Context, email, password string) error {
	f.loginCalls.Add(1)
	return f.loginErr
}

func (f *fakeGateway) Logout(ctx context.Context) error {
	f.logoutCalls.Add(1)
	return f.logoutErr
}

func TestDecide(t *testing.T) {
	user := &domain.User{ID: "u-1"}
	tests := []struct {
		name  string
		state State
		path  string
		want  Decision
	}{
		{"uninitialized protected", State{}, "/reports", Decision{Allow: true, Loading: true}},
		{"uninitialized public", State{}, "/login", Decision{Allow: true, Loading: true}},
		{"loading", State{IsInitialized: true, IsLoading: true}, "/reports/new", Decision{Allow: true, Loading: true}},
		{"anonymous protected", State{IsInitialized: true}, "/reports", Decision{Redirect: LoginPath}},
		{"anonymous nested", State{IsInitialized: true}, "/reports/r-1/edit", Decision{Redirect: LoginPath}},
		{"anonymous lookalike", State{IsInitialized: true}, "/reportsarchive", Decision{Allow: true}},
		{"anonymous public", State{IsInitialized: true}, "/register", Decision{Allow: true}},
		{"signed in", State{IsInitialized: true, User: user}, "/reports", Decision{Allow: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.state, tt.path)
			if got != tt.want {
				t.Fatalf("Decide = %+v, want %+v", got, tt.want)
			}
			if again := Decide(tt.state, tt.path); again != got {
				t.Fatalf("decision not idempotent: %+v then %+v", got, again)
			}
		})
	}
}

func TestBootstrapOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		user    *domain.User
		err     error
		wantID  string
		wantErr string
	}{
		{name: "signed in", user: &domain.User{ID: "u-1"}, wantID: "u-1"},
		{name: "no user", user: nil},
		{name: "unauthenticated", err: &authclient.APIError{Status: http.StatusUnauthorized, Message: "Unauthorized"}, wantErr: "Unauthorized"},
		{name: "transport", err: errors.New("connection refused"), wantErr: sessionUnavailableMessage},
		{name: "unexpected", err: authclient.ErrUnexpectedResponse, wantErr: sessionUnavailableMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{meUser: tt.user, meErr: tt.err}
			store := NewStore()
			state := NewBootstrapper(store, gw, time.Second).Run(context.Background())
			if !state.IsInitialized || state.IsLoading {
				t.Fatalf("expected initialized and not loading: %+v", state)
			}
			gotID := ""
			if state.User != nil {
				gotID = state.User.ID
			}
			if gotID != tt.wantID || state.Error != tt.wantErr {
				t.Fatalf("unexpected state: %+v", state)
			}
		})
	}
}

func TestBootstrapRunsOnce(t *testing.T) {
	gw := &fakeGateway{meUser: &domain.User{ID: "u-1"}, meGate: make(chan struct{})}
	boot := NewBootstrapper(NewStore(), gw, 0)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			boot.Run(context.Background())
		}()
	}
	for gw.meCalls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	close(gw.meGate)
	wg.Wait()
	boot.Run(context.Background())

	if got := gw.meCalls.Load(); got != 1 {
		t.Fatalf("expected one identity fetch, got %d", got)
	}
}

func TestStaleFetchDoesNotResurrectUser(t *testing.T) {
	store := NewStore()
	gen := store.currentGeneration()
	if !store.beginFetch(gen) {
		t.Fatal("expected fetch to begin")
	}
	store.signOut()
	if store.finishFetch(gen, &domain.User{ID: "old"}, "") {
		t.Fatal("stale fetch result must be discarded")
	}
	if snap := store.Snapshot(); snap.User != nil || snap.IsInitialized {
		t.Fatalf("unexpected state after stale fetch: %+v", snap)
	}
}

func TestLoginValidationMakesNoCall(t *testing.T) {
	gw := &fakeGateway{}
	auth := NewAuthenticator(NewStore(), gw)
	for _, c := range [][2]string{{"", "pw"}, {"a@example.com", ""}, {"   ", "pw"}} {
		_, err := auth.Login(context.Background(), c[0], c[1])
		if domain.KindOf(err) != domain.KindValidation || err.Error() != msgLoginRequired {
			t.Fatalf("expected validation failure for %q, got %v", c, err)
		}
	}
	if gw.loginCalls.Load() != 0 {
		t.Fatal("validation failure must not call the backend")
	}
}

func TestLoginStoresFetchedIdentity(t *testing.T) {
	gw := &fakeGateway{meUser: &domain.User{ID: "u-canonical", Name: "Ann"}}
	store := NewStore()
	next, err := NewAuthenticator(store, gw).Login(context.Background(), "a@example.com", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if next != ReportsPath {
		t.Fatalf("unexpected navigation target: %q", next)
	}
	snap := store.Snapshot()
	if snap.User == nil || snap.User.ID != "u-canonical" || !snap.IsInitialized {
		t.Fatalf("unexpected state: %+v", snap)
	}
}

func TestLoginFailures(t *testing.T) {
	tests := []struct {
		name     string
		gw       *fakeGateway
		wantKind domain.FailureKind
		wantMsg  string
	}{
		{
			name:     "rejected with text",
			gw:       &fakeGateway{loginErr: &authclient.APIError{Status: 401, Message: "Please verify your email first."}},
			wantKind: domain.KindRejected,
			wantMsg:  "Please verify your email first.",
		},
		{
			name:     "rejected without text",
			gw:       &fakeGateway{loginErr: &authclient.APIError{Status: 401}},
			wantKind: domain.KindRejected,
			wantMsg:  msgLoginRejected,
		},
		{
			name:     "transport",
			gw:       &fakeGateway{loginErr: errors.New("dial tcp: refused")},
			wantKind: domain.KindTransport,
			wantMsg:  msgLoginFailed,
		},
		{
			name:     "identity fetch failed",
			gw:       &fakeGateway{meErr: errors.New("timeout")},
			wantKind: domain.KindUnexpected,
			wantMsg:  msgIdentityFailure,
		},
		{
			name:     "identity missing",
			gw:       &fakeGateway{},
			wantKind: domain.KindUnexpected,
			wantMsg:  msgIdentityFailure,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore()
			_, err := NewAuthenticator(store, tt.gw).Login(context.Background(), "a@example.com", "pw")
			if domain.KindOf(err) != tt.wantKind || err.Error() != tt.wantMsg {
				t.Fatalf("unexpected failure: kind=%q err=%v", domain.KindOf(err), err)
			}
			if snap := store.Snapshot(); snap != (State{}) {
				t.Fatalf("store must not change on failure: %+v", snap)
			}
		})
	}
}

func TestLoginRejectsConcurrentSubmit(t *testing.T) {
	auth := NewAuthenticator(NewStore(), &fakeGateway{})
	auth.busy.TryAcquire()
	defer auth.busy.Release()

	_, err := auth.Login(context.Background(), "a@example.com", "pw")
	if domain.KindOf(err) != domain.KindBusy {
		t.Fatalf("expected busy failure, got %v", err)
	}
}

func TestLogoutAlwaysClears(t *testing.T) {
	for _, logoutErr := range []error{nil, errors.New("backend down")} {
		gw := &fakeGateway{logoutErr: logoutErr}
		store := NewStore()
		store.signIn(&domain.User{ID: "u-1"})

		next := NewAuthenticator(store, gw).Logout(context.Background())
		if next != LoginPath {
			t.Fatalf("unexpected navigation target: %q", next)
		}
		if snap := store.Snapshot(); snap.User != nil || snap.IsInitialized {
			t.Fatalf("expected cleared store, got %+v", snap)
		}
		if gw.logoutCalls.Load() != 1 {
			t.Fatal("expected backend logout call")
		}
	}
}

func TestLogoutRecordsBackendFailure(t *testing.T) {
	tests := []struct {
		logoutErr error
		outcome   string
	}{
		{nil, `"outcome":"success"`},
		{errors.New("backend down"), `"outcome":"backend_failed"`},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		ctx := util.ContextWithLogger(context.Background(), slog.New(slog.NewJSONHandler(&buf, nil)))
		store := NewStore()
		store.signIn(&domain.User{ID: "u-1"})

		NewAuthenticator(store, &fakeGateway{logoutErr: tt.logoutErr}).Logout(ctx)
		if !strings.Contains(buf.String(), tt.outcome) || !strings.Contains(buf.String(), `"event":"logout"`) {
			t.Fatalf("expected logout event with %s, got %s", tt.outcome, buf.String())
		}
	}
}
