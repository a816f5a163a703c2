package httphandler

import (
	"net/http"

	"github.com/stellar/go-stellar-sdk/support/render/httpjson"

	"github.com/stellar-anchor-service/anchor/internal/anchor"
	"github.com/stellar-anchor-service/anchor/internal/serve/httperror"
	"github.com/stellar-anchor-service/anchor/internal/serve/middleware"
)

// SEP6Handler implements the §6.1 SEP-6 routes on top of an
// anchor.TransferEngine.
type SEP6Handler struct {
	Engine *anchor.TransferEngine
}

// sep6OperationInfo is one entry of the GET /sep6/info deposit/withdraw maps.
type sep6OperationInfo struct {
	Enabled                bool     `json:"enabled"`
	AuthenticationRequired bool     `json:"authentication_required"`
	MinAmount              *float64 `json:"min_amount,omitempty"`
	MaxAmount              *float64 `json:"max_amount,omitempty"`
	FeeFixed               *float64 `json:"fee_fixed,omitempty"`
	FeePercent             *float64 `json:"fee_percent,omitempty"`
}

// SEP6InfoResponse is the GET /sep6/info response shape.
type SEP6InfoResponse struct {
	Deposit  map[string]sep6OperationInfo `json:"deposit"`
	Withdraw map[string]sep6OperationInfo `json:"withdraw"`
}

// GetInfo implements `GET /sep6/info` (unauthenticated; every operation it
// describes requires a bearer token, per §6.1's "authentication_required"
// marker).
func (h SEP6Handler) GetInfo(w http.ResponseWriter, r *http.Request) {
	resp := SEP6InfoResponse{
		Deposit:  map[string]sep6OperationInfo{},
		Withdraw: map[string]sep6OperationInfo{},
	}
	for _, a := range h.Engine.Assets().All() {
		resp.Deposit[a.Code] = sep6OperationInfo{
			Enabled:                a.Deposit.Enabled,
			AuthenticationRequired: true,
			MinAmount:              a.Deposit.MinAmount,
			MaxAmount:              a.Deposit.MaxAmount,
			FeeFixed:               a.Deposit.FeeFixed,
			FeePercent:             a.Deposit.FeePercent,
		}
		resp.Withdraw[a.Code] = sep6OperationInfo{
			Enabled:                a.Withdraw.Enabled,
			AuthenticationRequired: true,
			MinAmount:              a.Withdraw.MinAmount,
			MaxAmount:              a.Withdraw.MaxAmount,
			FeeFixed:               a.Withdraw.FeeFixed,
			FeePercent:             a.Withdraw.FeePercent,
		}
	}
	httpjson.Render(w, resp, httpjson.JSON)
}

// SEP6DepositResponse is the GET /sep6/deposit response shape.
type SEP6DepositResponse struct {
	ID         string   `json:"id"`
	How        string   `json:"how"`
	ETA        int      `json:"eta,omitempty"`
	MinAmount  *float64 `json:"min_amount,omitempty"`
	MaxAmount  *float64 `json:"max_amount,omitempty"`
	FeeFixed   *float64 `json:"fee_fixed,omitempty"`
	FeePercent *float64 `json:"fee_percent,omitempty"`
	ExtraInfo  string   `json:"extra_info,omitempty"`
}

// GetDeposit implements `GET /sep6/deposit`.
func (h SEP6Handler) GetDeposit(w http.ResponseWriter, r *http.Request) {
	subject, ok := middleware.SubjectFromContext(r.Context())
	if !ok {
		httperror.Unauthorized("", nil, nil).Render(w)
		return
	}

	q := r.URL.Query()
	if q.Get("asset_code") == "" {
		httperror.BadRequest("asset_code is required", nil, nil).Render(w)
		return
	}
	amount, err := parseOptionalAmount(q.Get("amount"))
	if err != nil {
		httperror.BadRequest(err.Error(), err, nil).Render(w)
		return
	}
	account, err := resolveAccount(subject, q.Get("account"))
	if err != nil {
		httperror.BadRequest(err.Error(), err, nil).Render(w)
		return
	}

	result, err := h.Engine.InitiateDepositProgrammatic(r.Context(), anchor.DepositRequest{
		Account:   account,
		AssetCode: q.Get("asset_code"),
		Amount:    amount,
		Memo:      q.Get("memo"),
		MemoType:  q.Get("memo_type"),
	})
	if err != nil {
		renderTransferError(w, err)
		return
	}

	httpjson.Render(w, SEP6DepositResponse{
		ID:         result.ID,
		How:        result.How,
		ETA:        result.ETA,
		MinAmount:  result.MinAmount,
		MaxAmount:  result.MaxAmount,
		FeeFixed:   result.FeeFixed,
		FeePercent: result.FeePercent,
		ExtraInfo:  result.ExtraInfo,
	}, httpjson.JSON)
}

// SEP6WithdrawResponse is the GET /sep6/withdraw response shape.
type SEP6WithdrawResponse struct {
	ID         string   `json:"id"`
	AccountID  string   `json:"account_id"`
	Memo       string   `json:"memo,omitempty"`
	MemoType   string   `json:"memo_type,omitempty"`
	ETA        int      `json:"eta,omitempty"`
	MinAmount  *float64 `json:"min_amount,omitempty"`
	MaxAmount  *float64 `json:"max_amount,omitempty"`
	FeeFixed   *float64 `json:"fee_fixed,omitempty"`
	FeePercent *float64 `json:"fee_percent,omitempty"`
}

// GetWithdraw implements `GET /sep6/withdraw`. dest is always required (§9
// Open Question resolution).
func (h SEP6Handler) GetWithdraw(w http.ResponseWriter, r *http.Request) {
	subject, ok := middleware.SubjectFromContext(r.Context())
	if !ok {
		httperror.Unauthorized("", nil, nil).Render(w)
		return
	}

	q := r.URL.Query()
	if q.Get("asset_code") == "" {
		httperror.BadRequest("asset_code is required", nil, nil).Render(w)
		return
	}
	amount, err := parseOptionalAmount(q.Get("amount"))
	if err != nil {
		httperror.BadRequest(err.Error(), err, nil).Render(w)
		return
	}
	account, err := resolveAccount(subject, q.Get("account"))
	if err != nil {
		httperror.BadRequest(err.Error(), err, nil).Render(w)
		return
	}

	result, err := h.Engine.InitiateWithdrawalProgrammatic(r.Context(), anchor.WithdrawRequest{
		Account:   account,
		AssetCode: q.Get("asset_code"),
		Amount:    amount,
		Type:      q.Get("type"),
		Dest:      q.Get("dest"),
		DestExtra: q.Get("dest_extra"),
	})
	if err != nil {
		renderTransferError(w, err)
		return
	}

	httpjson.Render(w, SEP6WithdrawResponse{
		ID:         result.ID,
		AccountID:  result.AccountID,
		Memo:       result.Memo,
		MemoType:   result.MemoType,
		ETA:        result.ETA,
		MinAmount:  result.MinAmount,
		MaxAmount:  result.MaxAmount,
		FeeFixed:   result.FeeFixed,
		FeePercent: result.FeePercent,
	}, httpjson.JSON)
}
