package session

import (
	"context"
	"errors"
	"strings"

	"dailyreport/internal/util"
	"dailyreport/pkg/domain"
	"dailyreport/services/web/internal/authclient"
)

const (
	msgLoginRequired   = "Enter your email address and password."
	msgLoginRejected   = "Incorrect email address or password."
	msgLoginBusy       = "A sign-in is already in progress."
	msgIdentityFailure = "Signed in, but your account could not be loaded. Please try again."
	msgLoginFailed     = "Login failed."
)

// Authenticator runs the login and logout flows for one visitor.
type Authenticator struct {
	store   *Store
	gateway Gateway
	busy    util.Busy
}

func NewAuthenticator(store *Store, gateway Gateway) *Authenticator {
	return &Authenticator{store: store, gateway: gateway}
}

// Busy reports whether a login is in flight.
func (a *Authenticator) Busy() bool {
	return a.busy.Active()
}

// Login confirms credentials, then fetches the identity that becomes the
// session user. Nothing is stored unless both steps succeed. It returns the
// path to navigate to.
func (a *Authenticator) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return "", domain.NewFailure(domain.KindValidation, msgLoginRequired, nil)
	}
	if !a.busy.TryAcquire() {
		return "", domain.NewFailure(domain.KindBusy, msgLoginBusy, nil)
	}
	defer a.busy.Release()

	if err := a.gateway.Login(ctx, email, password); err != nil {
		var apiErr *authclient.APIError
		if errors.As(err, &apiErr) {
			util.SecurityEvent(ctx, "login", "rejected", "status", apiErr.Status)
			msg := apiErr.Message
			if msg == "" {
				msg = msgLoginRejected
			}
			return "", domain.NewFailure(domain.KindRejected, msg, err)
		}
		util.SecurityEvent(ctx, "login", "error", "err", err)
		return "", domain.NewFailure(domain.KindTransport, msgLoginFailed, err)
	}

	user, err := a.gateway.Me(ctx)
	if err != nil || user == nil {
		if err == nil {
			err = errors.New("identity fetch returned no user")
		}
		util.SecurityEvent(ctx, "login", "identity_failed", "err", err)
		return "", domain.NewFailure(domain.KindUnexpected, msgIdentityFailure, err)
	}
	a.store.signIn(user)
	util.SecurityEvent(ctx, "login", "success", "user_id", user.ID)
	return ReportsPath, nil
}

// Logout tells the backend on a best-effort basis and always clears the
// local session. It returns the login path.
func (a *Authenticator) Logout(ctx context.Context) string {
	userID := ""
	if snap := a.store.Snapshot(); snap.User != nil {
		userID = snap.User.ID
	}
	outcome := "success"
	if err := a.gateway.Logout(ctx); err != nil {
		util.LoggerFromContext(ctx).Warn("backend logout failed", "err", err)
		outcome = "backend_failed"
	}
	a.store.signOut()
	util.SecurityEvent(ctx, "logout", outcome, "user_id", userID)
	return LoginPath
}
