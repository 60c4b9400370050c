// Package gateway defines the provider gateway contract. The browser
// automation that drives the provider sites lives outside this module;
// BridgeClient is the HTTP adapter to it. The engine only ever depends on
// the Gateway interface.
package gateway

import (
	"context"

	"github.com/evetabi/arbengine/internal/domain"
)

// PlaceResult is returned by Place on success.
type PlaceResult struct {
	TicketID string
}

// Gateway places bets and polls their settlement status with a single
// external provider. Implementations are expected to translate
// provider-specific failures into domain.ErrProviderRejected (the provider
// actively declined the bet) or domain.ErrProviderTransport (the call
// itself failed). Neither error is retried by the core.
type Gateway interface {
	// Place submits a single leg for execution. The caller passes its own
	// ctx without a per-call deadline; the implementation applies the soft
	// call timeout (BridgeClient does) and must respect ctx.Done().
	Place(ctx context.Context, leg domain.BetLeg) (PlaceResult, error)

	// PollStatus asks the provider for the current settlement status of a
	// previously placed ticket, on behalf of the account that placed it.
	PollStatus(ctx context.Context, provider, ticketID, account string) (domain.SettlementStatus, error)

	// SessionReady reports whether the external session registry considers
	// the given (tenant, provider, account) tuple to have a usable
	// authenticated session. The core treats this as an opaque boolean
	// precondition and never attempts to establish a session itself.
	SessionReady(ctx context.Context, tenant, provider, account string) (bool, error)
}
