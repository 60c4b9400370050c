package domain

import (
	"errors"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sentinel errors — compare with errors.Is()
// ──────────────────────────────────────────────────────────────────────────────

// KV store errors
var (
	// ErrKVTransport is returned when the durable store cannot be reached or
	// returns an error unrelated to the requested operation's semantics
	// (connection refused, timeout, protocol error).
	ErrKVTransport = errors.New("kv store transport error")

	// ErrNotFound is returned by Get when the key does not exist.
	ErrNotFound = errors.New("key not found")
)

// Provider gateway errors
var (
	// ErrProviderRejected is returned when the provider actively declined the
	// bet placement (odds moved, account suspended, insufficient balance).
	// This is a terminal outcome for the leg; it is not retried.
	ErrProviderRejected = errors.New("provider rejected bet placement")

	// ErrProviderTransport is returned when the provider could not be reached
	// or the call failed for reasons unrelated to bet acceptance (timeout,
	// connection reset, malformed response). Also terminal; the core never
	// retries automatically.
	ErrProviderTransport = errors.New("provider transport error")

	// ErrSessionNotReady names the failure where the external session
	// registry has not confirmed a usable authenticated session for the
	// (tenant, provider, account) tuple. Execution must not proceed past this
	// precondition. Gateway.SessionReady reports this as false rather than
	// returning this error.
	ErrSessionNotReady = errors.New("provider session is not ready")
)

// Execution coordinator errors. Coordinator.Execute reports these outcomes
// as reporter events and does not return them; the settlement watcher
// reports an exhausted budget as domain.OutcomeTimeout.
var (
	// ErrCooldownActive names the failure where the (tenant, provider,
	// account) tuple is still inside its post-pair cooldown window.
	ErrCooldownActive = errors.New("cooldown is active for this account")

	// ErrIdempotencyClaimed names the failure where another worker has
	// already claimed (or completed) execution for this arb_id.
	ErrIdempotencyClaimed = errors.New("arbitrage id already claimed")

	// ErrSettlementTimeout names the case where a settlement watcher exhausts
	// its poll budget before both legs reach a terminal status.
	ErrSettlementTimeout = errors.New("settlement polling exhausted its budget")
)

// ──────────────────────────────────────────────────────────────────────────────
// Helper predicates
// ──────────────────────────────────────────────────────────────────────────────

// preconditionErrors collects every error that represents a precondition
// failure in the execution coordinator (nothing was placed with a provider).
var preconditionErrors = []error{
	ErrCooldownActive,
	ErrIdempotencyClaimed,
	ErrSessionNotReady,
}

// IsPrecondition returns true when err represents a precondition failure that
// stopped execution before any provider call was made.
func IsPrecondition(err error) bool {
	for _, target := range preconditionErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsProviderFailure returns true for errors raised by the provider gateway
// itself, whether a rejection or a transport failure.
func IsProviderFailure(err error) bool {
	return errors.Is(err, ErrProviderRejected) || errors.Is(err, ErrProviderTransport)
}

// IsTransport returns true for transport-layer errors from either the KV
// store or the provider gateway — the two external dependencies the core
// never retries automatically.
func IsTransport(err error) bool {
	return errors.Is(err, ErrKVTransport) || errors.Is(err, ErrProviderTransport)
}
