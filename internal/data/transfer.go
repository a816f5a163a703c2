package data

import "time"

// TransferKind distinguishes a deposit (off-chain to on-chain) from a
// withdrawal (on-chain to off-chain).
type TransferKind string

const (
	TransferKindDeposit    TransferKind = "deposit"
	TransferKindWithdrawal TransferKind = "withdrawal"
)

// TransferMode distinguishes the SEP-24 hosted flow from the SEP-6
// programmatic one.
type TransferMode string

const (
	TransferModeInteractive  TransferMode = "interactive"
	TransferModeProgrammatic TransferMode = "programmatic"
)

// TransferStatus is a state in the transfer lifecycle state machine.
type TransferStatus string

const (
	StatusIncomplete                 TransferStatus = "incomplete"
	StatusPendingUserTransferStart   TransferStatus = "pending_user_transfer_start"
	StatusPendingAnchor              TransferStatus = "pending_anchor"
	StatusPendingExternal            TransferStatus = "pending_external"
	StatusPendingUser                TransferStatus = "pending_user"
	StatusCompleted                  TransferStatus = "completed"
	StatusError                      TransferStatus = "error"
	StatusRefunded                   TransferStatus = "refunded"
)

// terminalStatuses is the set of statuses after which a transfer no longer
// advances; completed_at is populated exactly for members of this set.
var terminalStatuses = map[TransferStatus]bool{
	StatusCompleted: true,
	StatusError:     true,
	StatusRefunded:  true,
}

// IsTerminal reports whether status belongs to the terminal set.
func (s TransferStatus) IsTerminal() bool {
	return terminalStatuses[s]
}

// InteractiveToken is the single-use opaque credential that binds the
// operator's hosted page back to a specific transfer.
type InteractiveToken struct {
	Value     string
	CreatedAt time.Time
	ExpiresAt time.Time
	Consumed  bool
}

// Transfer is one deposit or withdrawal record as defined in the data model.
type Transfer struct {
	ID     string
	Kind   TransferKind
	Mode   TransferMode
	Status TransferStatus

	AssetCode   string
	AssetIssuer string

	Account string

	Amount *float64

	// Destination fields, populated for withdrawals. DestType is the
	// client-supplied "type" selecting a withdrawal method (SEP-6 `type`
	// field); Dest/DestExtra are the off-chain destination and any extra
	// routing detail (e.g. bank account number, memo).
	DestType  string
	Dest      string
	DestExtra string

	InteractiveToken *InteractiveToken
	InteractiveURL   string
	MoreInfoURL      string

	OnChainTransactionID string
	ExternalTransactionID string
	StatusMessage         string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time

	Metadata map[string]string
}

// StatusETA mirrors SEP-24's compliance expectation (P7): the wire ETA is 3
// seconds while a transfer is still waiting on the interactive flow, and
// unset otherwise.
func (t Transfer) StatusETA() (int, bool) {
	if t.Status == StatusIncomplete {
		return 3, true
	}
	return 0, false
}

// TransferFilters narrows a List query. A non-positive Limit means
// unbounded, per the boundary behavior in spec §8.
type TransferFilters struct {
	AssetCode   string
	Kind        TransferKind
	NotOlderThan time.Time
	Limit        int
}
