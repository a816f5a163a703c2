package httphandler

import (
	"errors"
	"net/http"

	"github.com/stellar/go-stellar-sdk/strkey"

	"github.com/stellar-anchor-service/anchor/internal/anchor"
	"github.com/stellar-anchor-service/anchor/internal/serve/httperror"
)

// resolveAccount implements §4.5's account/subject rule: a supplied account
// field must be a well-formed Stellar address or the request is rejected,
// but the token subject always wins when both are present.
func resolveAccount(subject, suppliedAccount string) (string, error) {
	if suppliedAccount != "" && !strkey.IsValidEd25519PublicKey(suppliedAccount) {
		return "", errors.New("account must be a valid Stellar public key")
	}
	return subject, nil
}

// renderTransferError maps the transfer engine's sentinel errors (§4.3
// "Failure semantics") onto the wire error envelope (§7). Anything
// unrecognized (a hook's opaque error) is wrapped as a 400 with its message
// preserved, per §9 "Hook errors".
func renderTransferError(w http.ResponseWriter, err error) {
	var valErr *anchor.ValidationError
	if errors.As(err, &valErr) {
		httperror.BadRequest(valErr.Message, valErr, nil).Render(w)
		return
	}

	switch {
	case errors.Is(err, anchor.ErrTransferNotFound):
		httperror.NotFound(err.Error(), err, nil).Render(w)
	case errors.Is(err, anchor.ErrInteractiveTokenUsed):
		httperror.InteractiveTokenInvalid(err.Error(), err, nil).Render(w)
	default:
		httperror.BadRequest(err.Error(), err, nil).Render(w)
	}
}
