// Package store defines the storage port used by the transfer engine (§4.4)
// and provides its default in-memory implementation.
package store

import (
	"context"
	"errors"

	"github.com/stellar-anchor-service/anchor/internal/data"
)

// ErrNotFound is returned by Get*/Update operations that address a transfer
// id, on-chain id, or external id that does not exist.
var ErrNotFound = errors.New("transfer not found")

// ErrAlreadyExists is returned by Create when the transfer id collides with
// an existing record.
var ErrAlreadyExists = errors.New("transfer already exists")

// ErrInteractiveTokenInvalid is returned by CompleteInteractive when the
// supplied token does not match, was already consumed, or has expired.
var ErrInteractiveTokenInvalid = errors.New("interactive token is invalid, consumed, or expired")

// TransferUpdate carries the partial field set applied by Update. A nil
// pointer leaves the corresponding field untouched.
type TransferUpdate struct {
	Status                *data.TransferStatus
	Amount                *float64
	Dest                  *string
	DestExtra             *string
	OnChainTransactionID  *string
	ExternalTransactionID *string
	StatusMessage         *string
	Metadata              map[string]string
}

// TransferStore is the storage port described in spec §4.4. The default
// in-memory implementation is safe for concurrent callers; a production
// deployment substitutes a persistent implementation of the same contract.
type TransferStore interface {
	Create(ctx context.Context, t *data.Transfer) error
	GetByID(ctx context.Context, id string) (*data.Transfer, error)
	GetByInteractiveToken(ctx context.Context, token string) (*data.Transfer, error)
	GetByOnChainID(ctx context.Context, txID string) (*data.Transfer, error)
	GetByExternalID(ctx context.Context, extID string) (*data.Transfer, error)
	ListByAccount(ctx context.Context, account string, filters data.TransferFilters) ([]*data.Transfer, error)
	Update(ctx context.Context, id string, update TransferUpdate) (*data.Transfer, error)
	Delete(ctx context.Context, id string) error

	// CompleteInteractive atomically validates and consumes an interactive
	// token and advances the transfer's status per the FSM's
	// complete-interactive transition (§4.3, §9 "consume-or-fail"). It never
	// exposes an intermediate state where the token is consumed but the
	// status has not advanced, or vice versa.
	CompleteInteractive(ctx context.Context, id, token string, nextStatus func(data.Transfer) data.TransferStatus) (*data.Transfer, error)
}

// NonceStore is the replay-protection registry described in spec §4.2.1.
type NonceStore interface {
	Add(ctx context.Context, nonce string) error
	Has(ctx context.Context, nonce string) (bool, error)
	Consume(ctx context.Context, nonce string) (bool, error)
	// Sweep removes nonces older than the configured TTL. It is invoked
	// periodically by a cancellable background goroutine, never inline on
	// the request path.
	Sweep(ctx context.Context) int
}
