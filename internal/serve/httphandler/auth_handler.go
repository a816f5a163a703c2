package httphandler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/stellar/go-stellar-sdk/strkey"
	"github.com/stellar/go-stellar-sdk/support/render/httpjson"

	"github.com/stellar-anchor-service/anchor/internal/anchor"
	"github.com/stellar-anchor-service/anchor/internal/serve/httperror"
	"github.com/stellar-anchor-service/anchor/internal/utils"
)

// AuthHandler implements the §6.1 authentication routes on top of an
// anchor.AuthIssuer (§4.2).
type AuthHandler struct {
	Issuer *anchor.AuthIssuer
}

// ChallengeResponse is the GET /auth response shape.
type ChallengeResponse struct {
	Transaction       string `json:"transaction"`
	NetworkPassphrase string `json:"network_passphrase"`
}

// TokenResponse is the POST /auth response shape.
type TokenResponse struct {
	Token string `json:"token"`
}

// GetChallenge implements `GET /auth?account=<G...>`.
func (h AuthHandler) GetChallenge(w http.ResponseWriter, r *http.Request) {
	account := r.URL.Query().Get("account")
	if account == "" {
		httperror.BadRequest("account is required", nil, nil).Render(w)
		return
	}
	if !strkey.IsValidEd25519PublicKey(account) {
		httperror.BadRequest("account must be a valid Stellar public key", nil, nil).Render(w)
		return
	}

	envelope, passphrase, err := h.Issuer.CreateChallenge(r.Context(), account)
	if err != nil {
		renderAuthError(w, err)
		return
	}

	httpjson.Render(w, ChallengeResponse{
		Transaction:       envelope,
		NetworkPassphrase: passphrase,
	}, httpjson.JSON)
}

type postChallengeRequest struct {
	Transaction string `json:"transaction"`
}

// PostChallenge implements `POST /auth`, accepting either a JSON or
// form-urlencoded body carrying the signed envelope.
func (h AuthHandler) PostChallenge(w http.ResponseWriter, r *http.Request) {
	var envelope string

	if utils.HasContentType(r, "application/json") {
		var req postChallengeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httperror.BadRequest("invalid JSON body", err, nil).Render(w)
			return
		}
		envelope = req.Transaction
	} else {
		if err := r.ParseForm(); err != nil {
			httperror.BadRequest("invalid form body", err, nil).Render(w)
			return
		}
		envelope = r.FormValue("transaction")
	}

	if envelope == "" {
		httperror.BadRequest("transaction is required", nil, nil).Render(w)
		return
	}

	token, _, err := h.Issuer.VerifyChallenge(r.Context(), envelope)
	if err != nil {
		renderAuthError(w, err)
		return
	}

	httpjson.Render(w, TokenResponse{Token: token}, httpjson.JSON)
}

// renderAuthError maps the §4.2 "Failure semantics" onto the error envelope:
// insufficient signature weight is 401, everything else from the auth
// issuer is a 400 invalid_challenge.
func renderAuthError(w http.ResponseWriter, err error) {
	if errors.Is(err, anchor.ErrSignatureInsufficient) {
		httperror.Unauthorized(err.Error(), err, nil).Render(w)
		return
	}
	httperror.InvalidChallenge(err.Error(), err, nil).Render(w)
}
