package session

import (
	"context"
	"errors"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"dailyreport/internal/util"
	"dailyreport/pkg/domain"
	"dailyreport/services/web/internal/authclient"
)

const sessionUnavailableMessage = "Could not confirm your session."

// Gateway is the slice of the auth backend the session flows need.
type Gateway interface {
	Me(ctx context.Context) (*domain.User, error)
	Login(ctx context.Context, email, password string) error
	Logout(ctx context.Context) error
}

// Bootstrapper establishes the session once per visitor. The backend cookie
// is the session of record; on a transport failure the visitor is treated as
// signed out.
type Bootstrapper struct {
	store   *Store
	gateway Gateway
	timeout time.Duration
	group   singleflight.Group
}

// NewBootstrapper returns a Bootstrapper. A zero timeout leaves the fetch
// bounded only by the gateway's own client timeout.
func NewBootstrapper(store *Store, gateway Gateway, timeout time.Duration) *Bootstrapper {
	return &Bootstrapper{store: store, gateway: gateway, timeout: timeout}
}

// Run fetches the current user unless the store is already initialized.
// Concurrent calls share one fetch. It never fails; the outcome is in the
// returned state.
func (b *Bootstrapper) Run(ctx context.Context) State {
	if snap := b.store.Snapshot(); snap.IsInitialized {
		return snap
	}
	gen := b.store.currentGeneration()
	_, _, _ = b.group.Do(strconv.FormatUint(gen, 10), func() (any, error) {
		if !b.store.beginFetch(gen) {
			return nil, nil
		}
		b.fetch(ctx, gen)
		return nil, nil
	})
	return b.store.Snapshot()
}

func (b *Bootstrapper) fetch(ctx context.Context, gen uint64) {
	logger := util.LoggerFromContext(ctx)
	// The shared fetch must outlive the request that happened to start it.
	fetchCtx := context.WithoutCancel(ctx)
	if b.timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(fetchCtx, b.timeout)
		defer cancel()
	}

	user, err := b.gateway.Me(fetchCtx)
	var apiErr *authclient.APIError
	switch {
	case err == nil:
		b.store.finishFetch(gen, user, "")
	case errors.As(err, &apiErr):
		b.store.finishFetch(gen, nil, apiErr.Error())
	case errors.Is(err, authclient.ErrUnexpectedResponse):
		logger.Error("session fetch returned an unexpected response", "err", err)
		b.store.finishFetch(gen, nil, sessionUnavailableMessage)
	default:
		logger.Warn("session fetch failed", "err", err)
		b.store.finishFetch(gen, nil, sessionUnavailableMessage)
	}
}
