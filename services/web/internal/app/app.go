package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"dailyreport/internal/util"
	"dailyreport/pkg/auth"
	"dailyreport/services/web/internal/authclient"
	"dailyreport/services/web/internal/reportclient"
	"dailyreport/services/web/internal/reports"
	"dailyreport/services/web/internal/session"
	"dailyreport/services/web/internal/store"
	"dailyreport/services/web/internal/upload"
)

// Config holds runtime configuration for the web application core.
type Config struct {
	APIBaseURL          string
	RequestTimeout      time.Duration
	SessionFetchTimeout time.Duration
	VisitorTTL          time.Duration
	Location            *time.Location
	RegisterGate        auth.Gate
	UploadPolicy        upload.Policy
	// Jars defaults to an in-memory store.
	Jars store.JarStore
	// Uploader defaults to the backend upload endpoint of each visitor.
	Uploader upload.Uploader
}

// App keeps the per-browser visitor state and wires it to the backend.
type App struct {
	cfg Config

	mu       sync.Mutex
	visitors map[string]*Visitor
	now      func() time.Time
}

// New constructs the application core.
func New(cfg Config) (*App, error) {
	if cfg.APIBaseURL == "" {
		return nil, errors.New("api base URL required")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.SessionFetchTimeout <= 0 {
		cfg.SessionFetchTimeout = 5 * time.Second
	}
	if cfg.VisitorTTL <= 0 {
		cfg.VisitorTTL = 7 * 24 * time.Hour
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Jars == nil {
		cfg.Jars = store.NewMemoryJarStore()
	}
	return &App{cfg: cfg, visitors: make(map[string]*Visitor), now: time.Now}, nil
}

// NewVisitorID returns an id for a browser seen for the first time.
func (a *App) NewVisitorID() string {
	return util.NewUUID()
}

// Visitor returns the state for id, restoring its cookie jar from the jar
// store when this process has not seen it yet.
func (a *App) Visitor(ctx context.Context, id string) (*Visitor, error) {
	if id == "" {
		return nil, errors.New("visitor id required")
	}
	a.mu.Lock()
	if v, ok := a.visitors[id]; ok {
		v.lastSeen = a.now()
		a.mu.Unlock()
		return v, nil
	}
	a.mu.Unlock()

	stored, err := a.cfg.Jars.Load(ctx, id)
	if err != nil && !errors.Is(err, store.ErrJarNotFound) {
		// Without the jar the visitor starts signed out.
		util.LoggerFromContext(ctx).Warn("load visitor jar failed", "visitor_id", id, "err", err)
		stored = nil
	}
	v, err := a.newVisitor(id, stored)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if existing, ok := a.visitors[id]; ok {
		existing.lastSeen = a.now()
		return existing, nil
	}
	v.lastSeen = a.now()
	a.visitors[id] = v
	return v, nil
}

func (a *App) newVisitor(id string, stored []store.StoredCookie) (*Visitor, error) {
	jar, err := store.NewPersistentJar(stored)
	if err != nil {
		return nil, fmt.Errorf("init cookie jar: %w", err)
	}
	accounts := authclient.NewClient(a.cfg.APIBaseURL, jar, a.cfg.RequestTimeout)
	api := reportclient.NewClient(a.cfg.APIBaseURL, jar, a.cfg.RequestTimeout)
	sessions := session.NewStore()
	uploader := a.cfg.Uploader
	if uploader == nil {
		uploader = upload.Backend(api)
	}
	return &Visitor{
		ID:       id,
		Session:  sessions,
		Boot:     session.NewBootstrapper(sessions, accounts, a.cfg.SessionFetchTimeout),
		Auth:     session.NewAuthenticator(sessions, accounts),
		Reports:  reports.NewService(api, a.cfg.Location),
		accounts: accounts,
		gate:     a.cfg.RegisterGate,
		uploader: uploader,
		policy:   a.cfg.UploadPolicy,
		jar:      jar,
	}, nil
}

// Persist writes the visitor's cookie jar when the backend changed it.
func (a *App) Persist(ctx context.Context, v *Visitor) error {
	if v == nil || !v.jar.Dirty() {
		return nil
	}
	if err := a.cfg.Jars.Save(ctx, v.ID, v.jar.Export(), a.cfg.VisitorTTL); err != nil {
		return fmt.Errorf("persist visitor %s: %w", v.ID, err)
	}
	return nil
}

// Sweep drops visitors idle for longer than idle from memory. Their jars stay
// in the jar store. It returns how many were dropped.
func (a *App) Sweep(idle time.Duration) int {
	cutoff := a.now().Add(-idle)
	a.mu.Lock()
	defer a.mu.Unlock()
	dropped := 0
	for id, v := range a.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(a.visitors, id)
			dropped++
		}
	}
	return dropped
}

// RunJanitor sweeps idle visitors every interval until ctx is done.
func (a *App) RunJanitor(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.Sweep(idle); n > 0 {
				util.LoggerFromContext(ctx).Debug("swept idle visitors", "count", n)
			}
		}
	}
}

// RegisterGateEnabled reports whether /register is behind the access gate.
func (a *App) RegisterGateEnabled() bool {
	return a.cfg.RegisterGate.Enabled()
}

// Location is the zone reports are dated in.
func (a *App) Location() *time.Location {
	return a.cfg.Location
}
