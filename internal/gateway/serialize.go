package gateway

import (
	"context"
	"sync"

	"github.com/evetabi/arbengine/internal/domain"
)

// accountLock is a per-account mutex, created lazily the first time a key is
// seen. The pattern (RWMutex-guarded map of lazily-created locks, with a
// double-checked-locking slow path) mirrors a per-IP token bucket registry:
// here it serializes Place calls against the same provider account so two
// goroutines never submit two bets on one account at the same instant.
type accountLock struct {
	mu    sync.RWMutex
	locks map[string]*sync.Mutex
}

func newAccountLock() *accountLock {
	return &accountLock{locks: make(map[string]*sync.Mutex)}
}

func (a *accountLock) forKey(key string) *sync.Mutex {
	a.mu.RLock()
	l, ok := a.locks[key]
	a.mu.RUnlock()
	if ok {
		return l
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if l, ok = a.locks[key]; ok {
		return l
	}
	l = &sync.Mutex{}
	a.locks[key] = l
	return l
}

// SerializingGateway wraps a Gateway so that Place calls against the same
// (tenant, provider, account) tuple never run concurrently, even if two
// pair coordinators happen to race on the same account.
type SerializingGateway struct {
	inner Gateway
	locks *accountLock
}

// NewSerializingGateway wraps inner with per-account call serialization.
func NewSerializingGateway(inner Gateway) *SerializingGateway {
	return &SerializingGateway{inner: inner, locks: newAccountLock()}
}

func (g *SerializingGateway) Place(ctx context.Context, leg domain.BetLeg) (PlaceResult, error) {
	lock := g.locks.forKey(leg.CooldownKey())
	lock.Lock()
	defer lock.Unlock()
	return g.inner.Place(ctx, leg)
}

func (g *SerializingGateway) PollStatus(ctx context.Context, provider, ticketID, account string) (domain.SettlementStatus, error) {
	return g.inner.PollStatus(ctx, provider, ticketID, account)
}

func (g *SerializingGateway) SessionReady(ctx context.Context, tenant, provider, account string) (bool, error) {
	return g.inner.SessionReady(ctx, tenant, provider, account)
}
