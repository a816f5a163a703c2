package httphandler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/stellar/go-stellar-sdk/support/render/httpjson"

	"github.com/stellar-anchor-service/anchor/internal/anchor"
	"github.com/stellar-anchor-service/anchor/internal/data"
	"github.com/stellar-anchor-service/anchor/internal/serve/httperror"
	"github.com/stellar-anchor-service/anchor/internal/serve/middleware"
	"github.com/stellar-anchor-service/anchor/internal/utils"
)

// SEP24Handler implements the §6.1 SEP-24 routes on top of an
// anchor.TransferEngine.
type SEP24Handler struct {
	Engine *anchor.TransferEngine
}

// sep24AssetInfo is one entry of the GET /sep24/info deposit/withdraw maps.
type sep24AssetInfo struct {
	Enabled   bool     `json:"enabled"`
	MinAmount *float64 `json:"min_amount,omitempty"`
	MaxAmount *float64 `json:"max_amount,omitempty"`
}

// SEP24InfoResponse is the GET /sep24/info response shape.
type SEP24InfoResponse struct {
	Deposit  map[string]sep24AssetInfo `json:"deposit"`
	Withdraw map[string]sep24AssetInfo `json:"withdraw"`
}

// GetInfo implements `GET /sep24/info` (unauthenticated).
func (h SEP24Handler) GetInfo(w http.ResponseWriter, r *http.Request) {
	resp := SEP24InfoResponse{
		Deposit:  map[string]sep24AssetInfo{},
		Withdraw: map[string]sep24AssetInfo{},
	}
	for _, a := range h.Engine.Assets().All() {
		resp.Deposit[a.Code] = sep24AssetInfo{
			Enabled:   a.Deposit.Enabled,
			MinAmount: a.Deposit.MinAmount,
			MaxAmount: a.Deposit.MaxAmount,
		}
		resp.Withdraw[a.Code] = sep24AssetInfo{
			Enabled:   a.Withdraw.Enabled,
			MinAmount: a.Withdraw.MinAmount,
			MaxAmount: a.Withdraw.MaxAmount,
		}
	}
	httpjson.Render(w, resp, httpjson.JSON)
}

// SEP24InteractiveResponse is the response shape for both interactive
// initiation routes.
type SEP24InteractiveResponse struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	URL  string `json:"url"`
}

// readRequestFields decodes either a JSON body or a multipart/urlencoded
// form into a plain string map, matching the content-type branching the
// teacher's SEP-24 handler uses for these routes.
func readRequestFields(r *http.Request) (map[string]string, error) {
	fields := map[string]string{}

	switch {
	case utils.HasContentType(r, "application/json"):
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			return nil, fmt.Errorf("invalid JSON body: %w", err)
		}
	case utils.IsMultipartFormData(r):
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			return nil, fmt.Errorf("invalid multipart body: %w", err)
		}
		for key := range r.MultipartForm.Value {
			fields[key] = r.FormValue(key)
		}
	default:
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("invalid form body: %w", err)
		}
		for key := range r.PostForm {
			fields[key] = r.FormValue(key)
		}
	}
	return fields, nil
}

func parseOptionalAmount(raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("amount must be numeric")
	}
	return &v, nil
}

// PostDepositInteractive implements `POST /sep24/transactions/deposit/interactive`.
func (h SEP24Handler) PostDepositInteractive(w http.ResponseWriter, r *http.Request) {
	subject, ok := middleware.SubjectFromContext(r.Context())
	if !ok {
		httperror.Unauthorized("", nil, nil).Render(w)
		return
	}

	fields, err := readRequestFields(r)
	if err != nil {
		httperror.BadRequest(err.Error(), err, nil).Render(w)
		return
	}
	if fields["asset_code"] == "" {
		httperror.BadRequest("asset_code is required", nil, nil).Render(w)
		return
	}
	amount, err := parseOptionalAmount(fields["amount"])
	if err != nil {
		httperror.BadRequest(err.Error(), err, nil).Render(w)
		return
	}
	account, err := resolveAccount(subject, fields["account"])
	if err != nil {
		httperror.BadRequest(err.Error(), err, nil).Render(w)
		return
	}

	result, err := h.Engine.InitiateDepositInteractive(r.Context(), anchor.DepositRequest{
		Account:   account,
		AssetCode: fields["asset_code"],
		Amount:    amount,
		Memo:      fields["memo"],
		MemoType:  fields["memo_type"],
	})
	if err != nil {
		renderTransferError(w, err)
		return
	}

	httpjson.Render(w, SEP24InteractiveResponse{Type: result.Type, ID: result.ID, URL: result.URL}, httpjson.JSON)
}

// PostWithdrawInteractive implements `POST /sep24/transactions/withdraw/interactive`.
func (h SEP24Handler) PostWithdrawInteractive(w http.ResponseWriter, r *http.Request) {
	subject, ok := middleware.SubjectFromContext(r.Context())
	if !ok {
		httperror.Unauthorized("", nil, nil).Render(w)
		return
	}

	fields, err := readRequestFields(r)
	if err != nil {
		httperror.BadRequest(err.Error(), err, nil).Render(w)
		return
	}
	if fields["asset_code"] == "" {
		httperror.BadRequest("asset_code is required", nil, nil).Render(w)
		return
	}
	amount, err := parseOptionalAmount(fields["amount"])
	if err != nil {
		httperror.BadRequest(err.Error(), err, nil).Render(w)
		return
	}
	account, err := resolveAccount(subject, fields["account"])
	if err != nil {
		httperror.BadRequest(err.Error(), err, nil).Render(w)
		return
	}

	result, err := h.Engine.InitiateWithdrawalInteractive(r.Context(), anchor.WithdrawRequest{
		Account:   account,
		AssetCode: fields["asset_code"],
		Amount:    amount,
		Type:      fields["type"],
		Dest:      fields["dest"],
		DestExtra: fields["dest_extra"],
	})
	if err != nil {
		renderTransferError(w, err)
		return
	}

	httpjson.Render(w, SEP24InteractiveResponse{Type: result.Type, ID: result.ID, URL: result.URL}, httpjson.JSON)
}

// SEP24Transaction is the wire shape for a single transfer record returned
// by the transaction lookup and listing routes.
type SEP24Transaction struct {
	ID                    string `json:"id"`
	Kind                  string `json:"kind"`
	Status                string `json:"status"`
	StatusETA             int    `json:"status_eta,omitempty"`
	AssetCode             string `json:"asset_code"`
	Amount                string `json:"amount,omitempty"`
	Dest                  string `json:"dest,omitempty"`
	DestExtra             string `json:"dest_extra,omitempty"`
	StellarTransactionID  string `json:"stellar_transaction_id,omitempty"`
	ExternalTransactionID string `json:"external_transaction_id,omitempty"`
	MoreInfoURL           string `json:"more_info_url,omitempty"`
	Message               string `json:"message,omitempty"`
	StartedAt             string `json:"started_at"`
	UpdatedAt             string `json:"updated_at"`
	CompletedAt           string `json:"completed_at,omitempty"`
}

func toSEP24Transaction(t *data.Transfer) SEP24Transaction {
	out := SEP24Transaction{
		ID:                    t.ID,
		Kind:                  string(t.Kind),
		Status:                string(t.Status),
		AssetCode:             t.AssetCode,
		Dest:                  t.Dest,
		DestExtra:             t.DestExtra,
		StellarTransactionID:  t.OnChainTransactionID,
		ExternalTransactionID: t.ExternalTransactionID,
		MoreInfoURL:           t.MoreInfoURL,
		Message:               t.StatusMessage,
		StartedAt:             t.CreatedAt.Format(time.RFC3339),
		UpdatedAt:             t.UpdatedAt.Format(time.RFC3339),
	}
	if t.Amount != nil {
		out.Amount = strconv.FormatFloat(*t.Amount, 'f', -1, 64)
	}
	if eta, ok := t.StatusETA(); ok {
		out.StatusETA = eta
	}
	if t.CompletedAt != nil {
		out.CompletedAt = t.CompletedAt.Format(time.RFC3339)
	}
	return out
}

// GetTransaction implements `GET /sep24/transaction`.
func (h SEP24Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		t   *data.Transfer
		err error
	)
	switch {
	case q.Get("id") != "":
		t, err = h.Engine.GetByID(r.Context(), q.Get("id"))
	case q.Get("stellar_transaction_id") != "":
		t, err = h.Engine.GetByOnChainID(r.Context(), q.Get("stellar_transaction_id"))
	case q.Get("external_transaction_id") != "":
		t, err = h.Engine.GetByExternalID(r.Context(), q.Get("external_transaction_id"))
	default:
		httperror.BadRequest("one of id, stellar_transaction_id, external_transaction_id is required", nil, nil).Render(w)
		return
	}
	if err != nil {
		renderTransferError(w, err)
		return
	}
	if t == nil {
		httperror.NotFound("", nil, nil).Render(w)
		return
	}

	httpjson.Render(w, struct {
		Transaction SEP24Transaction `json:"transaction"`
	}{Transaction: toSEP24Transaction(t)}, httpjson.JSON)
}

// GetTransactions implements `GET /sep24/transactions`.
func (h SEP24Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	subject, ok := middleware.SubjectFromContext(r.Context())
	if !ok {
		httperror.Unauthorized("", nil, nil).Render(w)
		return
	}

	q := r.URL.Query()
	filters := data.TransferFilters{
		AssetCode: q.Get("asset_code"),
		Kind:      data.TransferKind(q.Get("kind")),
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httperror.BadRequest("limit must be an integer", err, nil).Render(w)
			return
		}
		filters.Limit = n
	}
	if raw := q.Get("no_older_than"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httperror.BadRequest("no_older_than must be RFC3339", err, nil).Render(w)
			return
		}
		filters.NotOlderThan = ts
	}

	transfers, err := h.Engine.ListByAccount(r.Context(), subject, filters)
	if err != nil {
		renderTransferError(w, err)
		return
	}

	out := make([]SEP24Transaction, 0, len(transfers))
	for _, t := range transfers {
		out = append(out, toSEP24Transaction(t))
	}
	httpjson.Render(w, struct {
		Transactions []SEP24Transaction `json:"transactions"`
	}{Transactions: out}, httpjson.JSON)
}

// GetInteractiveRedirect implements `GET /interactive`, unauthenticated: it
// validates the token against the transfer it names and 302s to the
// operator's hosted page, preserving transaction_id and token (§9 "Redirect
// endpoint").
func (h SEP24Handler) GetInteractiveRedirect(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	transactionID := q.Get("transaction_id")
	token := q.Get("token")
	if transactionID == "" || token == "" {
		httperror.BadRequest("transaction_id and token are required", nil, nil).Render(w)
		return
	}

	t, err := h.Engine.GetByID(r.Context(), transactionID)
	if err != nil {
		renderTransferError(w, err)
		return
	}
	if t == nil || t.InteractiveToken == nil || t.InteractiveToken.Value != token {
		httperror.InteractiveTokenInvalid("", nil, nil).Render(w)
		return
	}

	http.Redirect(w, r, h.Engine.InteractiveRedirectTarget(transactionID, token), http.StatusFound)
}

// PostInteractiveComplete implements `POST /interactive/complete`,
// unauthenticated: the operator's hosted page calls back here with the same
// transaction_id/token pair once the customer's input has been collected.
func (h SEP24Handler) PostInteractiveComplete(w http.ResponseWriter, r *http.Request) {
	fields, err := readRequestFields(r)
	if err != nil {
		httperror.BadRequest(err.Error(), err, nil).Render(w)
		return
	}
	transactionID := fields["transaction_id"]
	token := fields["token"]
	if transactionID == "" || token == "" {
		httperror.BadRequest("transaction_id and token are required", nil, nil).Render(w)
		return
	}

	t, err := h.Engine.CompleteInteractive(r.Context(), transactionID, token)
	if err != nil {
		renderTransferError(w, err)
		return
	}

	httpjson.Render(w, struct {
		Success bool   `json:"success"`
		Status  string `json:"status"`
		Message string `json:"message,omitempty"`
	}{Success: true, Status: string(t.Status), Message: t.StatusMessage}, httpjson.JSON)
}

// GetMoreInfo implements `GET /transaction/more_info`, unauthenticated:
// a human-readable status page for the customer to check on their transfer.
func (h SEP24Handler) GetMoreInfo(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		httperror.BadRequest("id is required", nil, nil).Render(w)
		return
	}

	t, err := h.Engine.GetByID(r.Context(), id)
	if err != nil {
		renderTransferError(w, err)
		return
	}
	if t == nil {
		httperror.NotFound("", nil, nil).Render(w)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if html, ok := h.Engine.RenderMoreInfo(*t); ok {
		_, _ = w.Write([]byte(html))
		return
	}
	fmt.Fprintf(w, "<html><body><h1>Transfer %s</h1><p>Status: %s</p><p>Kind: %s</p></body></html>", t.ID, t.Status, t.Kind)
}
