package anchor

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/url"
	"time"

	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/stellar-anchor-service/anchor/internal/data"
	"github.com/stellar-anchor-service/anchor/internal/monitor"
	"github.com/stellar-anchor-service/anchor/internal/store"
	"github.com/stellar-anchor-service/anchor/internal/urlutil"
)

// InteractiveTokenTTL is how long a freshly minted interactive token
// remains redeemable (§4.3 "Identifier and URL construction").
const InteractiveTokenTTL = 15 * time.Minute

// TransferEngineConfig is the constructor-injected collaborator set for
// TransferEngine, per §9 "State shared across handlers": a long-lived
// service object rather than closures over request middleware.
type TransferEngineConfig struct {
	Domain string
	// InteractiveBaseURL is the operator's hosted page; required, non-empty
	// per §6.4.
	InteractiveBaseURL string
	// SigningAccount is embedded in the default SEP-6 deposit "how" message.
	SigningAccount string
	Assets         data.AssetSet
	Store          store.TransferStore
	Hooks          Hooks
	Events         *HookRegistry
	MonitorService monitor.MonitorServiceInterface
}

// TransferEngine implements the public surface of §4.3.
type TransferEngine struct {
	cfg TransferEngineConfig
}

// NewTransferEngine constructs a TransferEngine. InteractiveBaseURL must be
// non-empty; it is validated at mount time by the caller (config surface,
// §6.3), not here.
func NewTransferEngine(cfg TransferEngineConfig) *TransferEngine {
	if cfg.Events == nil {
		cfg.Events = NewHookRegistry()
	}
	return &TransferEngine{cfg: cfg}
}

// DepositRequest carries the inputs common to both interactive and
// programmatic deposit initiation.
type DepositRequest struct {
	Account   string
	AssetCode string
	Amount    *float64
	Memo      string
	MemoType  string
}

// WithdrawRequest carries the inputs common to both interactive and
// programmatic withdrawal initiation. Dest is always required: the second
// Open Question in §9 is resolved by rejecting an absent destination rather
// than silently defaulting it to the authenticated account.
type WithdrawRequest struct {
	Account   string
	AssetCode string
	Amount    *float64
	Type      string
	Dest      string
	DestExtra string
}

// InteractiveResult is the response shape for both interactive initiation
// operations. URL points at this service's own /interactive redirector
// (§6.1), not directly at the operator's hosted page: the client follows it
// and receives a 302 to the actual interactive base URL (§4.3, §9 "Redirect
// endpoint").
type InteractiveResult struct {
	ID   string
	Type string
	URL  string
}

// ProgrammaticDepositResult is the SEP-6 deposit response shape.
type ProgrammaticDepositResult struct {
	ID         string
	How        string
	ETA        int
	MinAmount  *float64
	MaxAmount  *float64
	FeeFixed   *float64
	FeePercent *float64
	ExtraInfo  string
}

// ProgrammaticWithdrawResult is the SEP-6 withdraw response shape.
type ProgrammaticWithdrawResult struct {
	ID         string
	AccountID  string
	Memo       string
	MemoType   string
	ETA        int
	MinAmount  *float64
	MaxAmount  *float64
	FeeFixed   *float64
	FeePercent *float64
}

// Assets returns the configured asset set, for info-endpoint rendering.
func (e *TransferEngine) Assets() data.AssetSet {
	return e.cfg.Assets
}

// monitorCounter increments tag if a monitor service is configured, logging
// rather than failing the caller on a monitoring error: metrics emission
// never blocks a transfer outcome.
func (e *TransferEngine) monitorCounter(tag monitor.MetricTag, labels monitor.TransferLabels) {
	if e.cfg.MonitorService == nil {
		return
	}
	if err := e.cfg.MonitorService.MonitorCounters(tag, labels.ToMap()); err != nil {
		log.Errorf("monitoring %s: %v", tag, err)
	}
}

// RenderMoreInfo delegates to the operator's more_info hook, if configured,
// falling back to (_, false) so the caller renders the package default
// (§6.4).
func (e *TransferEngine) RenderMoreInfo(t data.Transfer) (string, bool) {
	return e.cfg.Hooks.runMoreInfo(t)
}

func (e *TransferEngine) resolveAsset(code string, forDeposit bool) (data.Asset, data.OperationProfile, error) {
	asset, ok := e.cfg.Assets.Get(code)
	if !ok {
		return data.Asset{}, data.OperationProfile{}, assetNotSupportedError(code)
	}

	profile := asset.Withdraw
	opName := "withdraw"
	if forDeposit {
		profile = asset.Deposit
		opName = "deposit"
	}
	if !profile.Enabled {
		return data.Asset{}, data.OperationProfile{}, operationDisabledError(opName, asset.Code)
	}
	return asset, profile, nil
}

func checkAmount(amount *float64, profile data.OperationProfile, code string) error {
	if amount == nil {
		return nil
	}
	if profile.MinAmount != nil && *amount < *profile.MinAmount {
		return amountOutOfRangeError(code, profile.MinAmount, profile.MaxAmount)
	}
	if profile.MaxAmount != nil && *amount > *profile.MaxAmount {
		return amountOutOfRangeError(code, profile.MinAmount, profile.MaxAmount)
	}
	return nil
}

func (e *TransferEngine) newInteractiveTransfer(ctx context.Context, kind data.TransferKind, account, assetCode, assetIssuer string, amount *float64, dest, destExtra string) (*data.Transfer, string, error) {
	id, err := newTransferID()
	if err != nil {
		return nil, "", err
	}
	token, err := newInteractiveToken()
	if err != nil {
		return nil, "", err
	}

	now := time.Now()
	t := &data.Transfer{
		ID:          id,
		Kind:        kind,
		Mode:        data.TransferModeInteractive,
		Status:      data.StatusIncomplete,
		AssetCode:   assetCode,
		AssetIssuer: assetIssuer,
		Account:     account,
		Amount:      amount,
		Dest:        dest,
		DestExtra:   destExtra,
		InteractiveToken: &data.InteractiveToken{
			Value:     token,
			CreatedAt: now,
			ExpiresAt: now.Add(InteractiveTokenTTL),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	t.MoreInfoURL = urlutil.Endpoint(e.cfg.Domain, fmt.Sprintf("/transaction/more_info?id=%s", t.ID))

	if err := e.cfg.Store.Create(ctx, t); err != nil {
		return nil, "", err
	}
	return t, token, nil
}

// ownInteractiveURL builds the link handed back to the wallet: this
// service's own /interactive route, carrying the transaction_id and token
// that GET /interactive needs to look up the transfer and redirect (§6.1).
func (e *TransferEngine) ownInteractiveURL(transactionID, token string) string {
	q := url.Values{}
	q.Set("transaction_id", transactionID)
	q.Set("token", token)
	return urlutil.Endpoint(e.cfg.Domain, "/interactive") + "?" + q.Encode()
}

// InteractiveRedirectTarget builds the §4.3 redirect destination: the
// operator's base URL with transaction_id and token appended,
// percent-encoded, preserved exactly for the /interactive →
// /interactive/complete round trip (§9 "Redirect endpoint"). Called by the
// GET /interactive handler once it has validated the token.
func (e *TransferEngine) InteractiveRedirectTarget(transactionID, token string) string {
	q := url.Values{}
	q.Set("transaction_id", transactionID)
	q.Set("token", token)
	return e.cfg.InteractiveBaseURL + "?" + q.Encode()
}

// InitiateDepositInteractive implements the SEP-24 deposit initiation row.
func (e *TransferEngine) InitiateDepositInteractive(ctx context.Context, req DepositRequest) (*InteractiveResult, error) {
	asset, profile, err := e.resolveAsset(req.AssetCode, true)
	if err != nil {
		return nil, err
	}
	if err := checkAmount(req.Amount, profile, asset.Code); err != nil {
		return nil, err
	}

	t, token, err := e.newInteractiveTransfer(ctx, data.TransferKindDeposit, req.Account, asset.Code, asset.Issuer, req.Amount, "", "")
	if err != nil {
		return nil, err
	}

	if _, err := e.cfg.Hooks.runDeposit(*t); err != nil {
		return nil, err
	}
	e.cfg.Events.Trigger(EventDepositInitiated, *t)
	e.monitorCounter(monitor.TransferInitiatedCounterTag, monitor.TransferLabels{Kind: string(t.Kind), AssetCode: t.AssetCode, Status: string(t.Status)})

	return &InteractiveResult{
		ID:   t.ID,
		Type: "interactive_customer_info_needed",
		URL:  e.ownInteractiveURL(t.ID, token),
	}, nil
}

// InitiateWithdrawalInteractive implements the SEP-24 withdrawal initiation
// row. Dest is required (§9 Open Question resolution).
func (e *TransferEngine) InitiateWithdrawalInteractive(ctx context.Context, req WithdrawRequest) (*InteractiveResult, error) {
	if req.Dest == "" {
		return nil, destRequiredError()
	}

	asset, profile, err := e.resolveAsset(req.AssetCode, false)
	if err != nil {
		return nil, err
	}
	if err := checkAmount(req.Amount, profile, asset.Code); err != nil {
		return nil, err
	}

	t, token, err := e.newInteractiveTransfer(ctx, data.TransferKindWithdrawal, req.Account, asset.Code, asset.Issuer, req.Amount, req.Dest, req.DestExtra)
	if err != nil {
		return nil, err
	}

	if _, err := e.cfg.Hooks.runWithdraw(*t); err != nil {
		return nil, err
	}
	e.cfg.Events.Trigger(EventWithdrawalInitiated, *t)
	e.monitorCounter(monitor.TransferInitiatedCounterTag, monitor.TransferLabels{Kind: string(t.Kind), AssetCode: t.AssetCode, Status: string(t.Status)})

	return &InteractiveResult{
		ID:   t.ID,
		Type: "interactive_customer_info_needed",
		URL:  e.ownInteractiveURL(t.ID, token),
	}, nil
}

// defaultDepositHow returns the fallback "how" message for SEP-6 deposits
// when no onDeposit hook is configured (§6.4).
func (e *TransferEngine) defaultDepositHow(assetCode string) string {
	return fmt.Sprintf("send %s to %s", assetCode, e.cfg.SigningAccount)
}

// defaultWithdrawMemo returns the fallback random numeric memo for SEP-6
// withdrawals when no onWithdraw hook is configured (§6.4).
func defaultWithdrawMemo() (string, string) {
	return fmt.Sprintf("%d", rand.Int63n(1_000_000_000)), "id"
}

// InitiateDepositProgrammatic implements the SEP-6 deposit initiation row.
func (e *TransferEngine) InitiateDepositProgrammatic(ctx context.Context, req DepositRequest) (*ProgrammaticDepositResult, error) {
	asset, profile, err := e.resolveAsset(req.AssetCode, true)
	if err != nil {
		return nil, err
	}
	if err := checkAmount(req.Amount, profile, asset.Code); err != nil {
		return nil, err
	}

	id, err := newTransferID()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	t := &data.Transfer{
		ID:          id,
		Kind:        data.TransferKindDeposit,
		Mode:        data.TransferModeProgrammatic,
		Status:      data.StatusIncomplete,
		AssetCode:   asset.Code,
		AssetIssuer: asset.Issuer,
		Account:     req.Account,
		Amount:      req.Amount,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	t.MoreInfoURL = urlutil.Endpoint(e.cfg.Domain, fmt.Sprintf("/transaction/more_info?id=%s", t.ID))

	how := e.defaultDepositHow(asset.Code)
	extraInfo := ""
	if hook, err := e.cfg.Hooks.runDeposit(*t); err != nil {
		return nil, err
	} else if hook != nil {
		if hook.How != "" {
			how = hook.How
		}
		extraInfo = hook.ExtraInfo
	}

	if err := e.cfg.Store.Create(ctx, t); err != nil {
		return nil, err
	}
	e.cfg.Events.Trigger(EventDepositInitiated, *t)
	e.monitorCounter(monitor.TransferInitiatedCounterTag, monitor.TransferLabels{Kind: string(t.Kind), AssetCode: t.AssetCode, Status: string(t.Status)})

	eta, _ := t.StatusETA()
	return &ProgrammaticDepositResult{
		ID:         t.ID,
		How:        how,
		ETA:        eta,
		MinAmount:  profile.MinAmount,
		MaxAmount:  profile.MaxAmount,
		FeeFixed:   profile.FeeFixed,
		FeePercent: profile.FeePercent,
		ExtraInfo:  extraInfo,
	}, nil
}

// InitiateWithdrawalProgrammatic implements the SEP-6 withdraw initiation
// row. Type is required; dest is required (§9 Open Question resolution).
func (e *TransferEngine) InitiateWithdrawalProgrammatic(ctx context.Context, req WithdrawRequest) (*ProgrammaticWithdrawResult, error) {
	if req.Type == "" {
		return nil, missingFieldError("type")
	}
	if req.Dest == "" {
		return nil, destRequiredError()
	}

	asset, profile, err := e.resolveAsset(req.AssetCode, false)
	if err != nil {
		return nil, err
	}
	if err := checkAmount(req.Amount, profile, asset.Code); err != nil {
		return nil, err
	}

	id, err := newTransferID()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	t := &data.Transfer{
		ID:          id,
		Kind:        data.TransferKindWithdrawal,
		Mode:        data.TransferModeProgrammatic,
		Status:      data.StatusIncomplete,
		AssetCode:   asset.Code,
		AssetIssuer: asset.Issuer,
		Account:     req.Account,
		Amount:      req.Amount,
		DestType:    req.Type,
		Dest:        req.Dest,
		DestExtra:   req.DestExtra,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	t.MoreInfoURL = urlutil.Endpoint(e.cfg.Domain, fmt.Sprintf("/transaction/more_info?id=%s", t.ID))

	memo, memoType := defaultWithdrawMemo()
	if hook, err := e.cfg.Hooks.runWithdraw(*t); err != nil {
		return nil, err
	} else if hook != nil {
		if hook.Memo != "" {
			memo = hook.Memo
		}
		if hook.MemoType != "" {
			memoType = hook.MemoType
		}
	}

	if err := e.cfg.Store.Create(ctx, t); err != nil {
		return nil, err
	}
	e.cfg.Events.Trigger(EventWithdrawalInitiated, *t)
	e.monitorCounter(monitor.TransferInitiatedCounterTag, monitor.TransferLabels{Kind: string(t.Kind), AssetCode: t.AssetCode, Status: string(t.Status)})

	eta, _ := t.StatusETA()
	return &ProgrammaticWithdrawResult{
		ID:         t.ID,
		AccountID:  e.cfg.SigningAccount,
		Memo:       memo,
		MemoType:   memoType,
		ETA:        eta,
		MinAmount:  profile.MinAmount,
		MaxAmount:  profile.MaxAmount,
		FeeFixed:   profile.FeeFixed,
		FeePercent: profile.FeePercent,
	}, nil
}

// CompleteInteractive implements §4.3's "Completion rule (interactive)": it
// delegates the consume-or-fail mutation to the store, which performs the
// token check and status advance as one atomic operation (§5, §9).
func (e *TransferEngine) CompleteInteractive(ctx context.Context, id, token string) (*data.Transfer, error) {
	updated, err := e.cfg.Store.CompleteInteractive(ctx, id, token, nextOnInteractiveComplete)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTransferNotFound
		}
		if errors.Is(err, store.ErrInteractiveTokenInvalid) {
			return nil, ErrInteractiveTokenUsed
		}
		return nil, err
	}

	if err := e.cfg.Hooks.runInteractiveComplete(*updated); err != nil {
		return nil, err
	}
	e.cfg.Events.Trigger(EventInteractiveCompleted, *updated)
	e.cfg.Events.Trigger(EventTransferStatusChanged, *updated)
	e.monitorCounter(monitor.InteractiveCompletionCounterTag, monitor.TransferLabels{Kind: string(updated.Kind), AssetCode: updated.AssetCode, Status: string(updated.Status)})
	e.monitorCounter(monitor.TransferStatusTransitionCounterTag, monitor.TransferLabels{Kind: string(updated.Kind), AssetCode: updated.AssetCode, Status: string(updated.Status)})

	return updated, nil
}

// UpdateStatusRequest carries the operator-pipeline fields that may
// accompany a status update (§4.3 "Operator update_status").
type UpdateStatusRequest struct {
	Status                data.TransferStatus
	OnChainTransactionID  *string
	ExternalTransactionID *string
	StatusMessage         *string
}

// UpdateStatus implements the operator-side update_status(s) operation: it
// always succeeds and sets status unconditionally (no transition-legality
// check), deriving completed_at from whether s is terminal.
func (e *TransferEngine) UpdateStatus(ctx context.Context, id string, req UpdateStatusRequest) (*data.Transfer, error) {
	status := applyOperatorStatus(req.Status)
	updated, err := e.cfg.Store.Update(ctx, id, store.TransferUpdate{
		Status:                &status,
		OnChainTransactionID:  req.OnChainTransactionID,
		ExternalTransactionID: req.ExternalTransactionID,
		StatusMessage:         req.StatusMessage,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTransferNotFound
		}
		return nil, err
	}

	e.cfg.Events.Trigger(EventTransferStatusChanged, *updated)
	e.monitorCounter(monitor.TransferStatusTransitionCounterTag, monitor.TransferLabels{Kind: string(updated.Kind), AssetCode: updated.AssetCode, Status: string(updated.Status)})
	return updated, nil
}

func (e *TransferEngine) GetByID(ctx context.Context, id string) (*data.Transfer, error) {
	t, err := e.cfg.Store.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrTransferNotFound
	}
	return t, err
}

// GetByOnChainID returns (nil, nil) when no transfer matches, per §4.3's
// "transfer or null" result shape — this is not an error condition.
func (e *TransferEngine) GetByOnChainID(ctx context.Context, txID string) (*data.Transfer, error) {
	t, err := e.cfg.Store.GetByOnChainID(ctx, txID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return t, err
}

// GetByExternalID returns (nil, nil) when no transfer matches (§4.3).
func (e *TransferEngine) GetByExternalID(ctx context.Context, extID string) (*data.Transfer, error) {
	t, err := e.cfg.Store.GetByExternalID(ctx, extID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return t, err
}

// ListByAccount implements the "List by account" row, leaving limit/filter
// semantics (including "limit<=0 means unbounded") to the store.
func (e *TransferEngine) ListByAccount(ctx context.Context, account string, filters data.TransferFilters) ([]*data.Transfer, error) {
	return e.cfg.Store.ListByAccount(ctx, account, filters)
}
