// Package cooldown implements the process-wide cooldown registry: an
// in-memory mirror of active per-(tenant, provider, account) exclusion
// windows, hydrated from the durable store at start-up and queried
// synchronously before every pair execution.
package cooldown

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/evetabi/arbengine/internal/domain"
	"github.com/evetabi/arbengine/internal/kvstore"
)

// Window is the hard cooldown duration. It is not configurable at this
// layer — config.EngineConfig.CooldownSeconds exists for observability, but
// the registry enforces exactly this constant: the durable TTL, the active
// predicate, and the blocked-event arithmetic all assume it.
const Window = 60 * time.Second

// Registry is the process-wide mapping from cooldown_key to its entry.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]domain.CooldownEntry

	store  kvstore.Store
	logger *slog.Logger
}

// New constructs an empty Registry backed by store for durability.
func New(store kvstore.Store, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		entries: make(map[string]domain.CooldownEntry),
		store:   store,
		logger:  logger,
	}
}

// Hydrate scans the durable store for every key under the "cooldown:"
// prefix and loads it into memory, so cooldowns survive a process restart.
// Call this once, before the engine starts accepting PairRequests.
func (r *Registry) Hydrate(ctx context.Context) error {
	keys, err := r.store.ScanPrefix(ctx, "cooldown:")
	if err != nil {
		return err
	}

	loaded := 0
	r.mu.Lock()
	for _, key := range keys {
		raw, err := r.store.Get(ctx, key)
		if err != nil {
			r.logger.Warn("cooldown: hydrate skipped unreadable key", "key", key, "err", err)
			continue
		}
		tenant, provider, account, ok := splitKey(key)
		if !ok {
			r.logger.Warn("cooldown: hydrate skipped malformed key", "key", key)
			continue
		}
		acquiredAt, err := parseTimestamp(raw)
		if err != nil {
			r.logger.Warn("cooldown: hydrate skipped malformed value", "key", key, "err", err)
			continue
		}
		r.entries[key] = domain.CooldownEntry{
			Tenant:     tenant,
			Provider:   provider,
			Account:    account,
			AcquiredAt: acquiredAt,
			ExpiresAt:  acquiredAt.Add(Window),
		}
		loaded++
	}
	r.mu.Unlock()

	r.logger.Info("cooldown: registry hydrated from durable store", "count", loaded)
	return nil
}

// Check reports whether the given (tenant, provider, account) tuple is
// still inside its cooldown window, and if so, the number of seconds
// remaining. A present-but-stale entry (its ExpiresAt has passed) is
// treated as absent; Acquire simply overwrites it.
func (r *Registry) Check(tenant, provider, account string, now time.Time) (active bool, remaining time.Duration) {
	key := Key(tenant, provider, account)

	r.mu.RLock()
	entry, ok := r.entries[key]
	r.mu.RUnlock()

	if !ok || !entry.Active(now) {
		return false, 0
	}
	return true, entry.ExpiresAt.Sub(now)
}

// Acquire records a new cooldown for the tuple, both in memory and — best
// effort — in the durable store with a TTL of exactly Window. A durable
// store failure is logged and does not prevent the in-memory acquisition:
// the placement already happened, so the window must hold locally even if
// it won't survive a restart.
func (r *Registry) Acquire(ctx context.Context, tenant, provider, account string, now time.Time) {
	key := Key(tenant, provider, account)
	entry := domain.CooldownEntry{
		Tenant:     tenant,
		Provider:   provider,
		Account:    account,
		AcquiredAt: now,
		ExpiresAt:  now.Add(Window),
	}

	r.mu.Lock()
	r.entries[key] = entry
	r.mu.Unlock()

	value := strconv.FormatInt(now.Unix(), 10)
	if err := r.store.SetWithTTL(ctx, key, value, Window); err != nil {
		r.logger.Warn("cooldown: durable persist failed, in-memory entry still active", "key", key, "err", err)
	}
}

// Snapshot returns every entry still active at the given time, for the
// read-only admin surface. Stale entries are filtered out, not evicted —
// eviction stays passive.
func (r *Registry) Snapshot(now time.Time) []domain.CooldownEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.CooldownEntry, 0, len(r.entries))
	for _, entry := range r.entries {
		if entry.Active(now) {
			out = append(out, entry)
		}
	}
	return out
}

// Key returns the composite cooldown key for a (tenant, provider, account)
// tuple, matching the durable store's key schema.
func Key(tenant, provider, account string) string {
	return "cooldown:" + tenant + ":" + provider + ":" + account
}

func splitKey(key string) (tenant, provider, account string, ok bool) {
	parts := strings.Split(key, ":")
	if len(parts) != 4 || parts[0] != "cooldown" {
		return "", "", "", false
	}
	if parts[1] == "" || parts[2] == "" || parts[3] == "" {
		return "", "", "", false
	}
	return parts[1], parts[2], parts[3], true
}

func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return time.Time{}, err
	}
	whole := int64(seconds)
	frac := seconds - float64(whole)
	return time.Unix(whole, int64(frac*float64(time.Second))), nil
}
