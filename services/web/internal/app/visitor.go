package app

import (
	"context"
	"sync"
	"time"

	"dailyreport/pkg/auth"
	"dailyreport/services/web/internal/authclient"
	"dailyreport/services/web/internal/reports"
	"dailyreport/services/web/internal/session"
	"dailyreport/services/web/internal/store"
	"dailyreport/services/web/internal/upload"
)

// Flash kinds.
const (
	FlashSuccess = "success"
	FlashError   = "error"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Kind    string
	Message string
}

// Visitor is the state one browser holds: its session, its backend cookies
// and a few UI flags.
type Visitor struct {
	ID      string
	Session *session.Store
	Boot    *session.Bootstrapper
	Auth    *session.Authenticator
	Reports *reports.Service

	accounts *authclient.Client
	gate     auth.Gate
	uploader upload.Uploader
	policy   upload.Policy
	jar      *store.PersistentJar
	lastSeen time.Time

	mu               sync.Mutex
	registerUnlocked bool
	flashes          []Flash
}

// Logout signs the visitor out and drops every backend cookie, so a failed
// backend logout cannot leave a live session behind. It returns the login path.
func (v *Visitor) Logout(ctx context.Context) string {
	next := v.Auth.Logout(ctx)
	v.jar.Clear()
	return next
}

// Uploads returns an upload coordinator reporting to notifier.
func (v *Visitor) Uploads(notifier upload.Notifier) *upload.Coordinator {
	return upload.NewCoordinator(v.uploader, notifier, v.policy)
}

// AddFlash queues a message for the next page.
func (v *Visitor) AddFlash(kind, message string) {
	if message == "" {
		return
	}
	v.mu.Lock()
	v.flashes = append(v.flashes, Flash{Kind: kind, Message: message})
	v.mu.Unlock()
}

// Flashes returns and clears the queued messages.
func (v *Visitor) Flashes() []Flash {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := v.flashes
	v.flashes = nil
	return out
}

// Success and Error let a Visitor act as an upload notifier.
func (v *Visitor) Success(msg string) { v.AddFlash(FlashSuccess, msg) }
func (v *Visitor) Error(msg string)   { v.AddFlash(FlashError, msg) }
