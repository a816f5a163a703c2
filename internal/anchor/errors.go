// Package anchor implements the SEP-10 authentication and SEP-6/SEP-24
// transfer engines on top of the storage port in internal/store.
package anchor

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the auth and transfer engines. HTTP handlers
// translate these into the wire error envelope (internal/serve/httperror);
// the engine itself never imports net/http.
var (
	ErrAssetNotSupported     = errors.New("asset is not supported")
	ErrOperationDisabled     = errors.New("operation is disabled for this asset")
	ErrAmountOutOfRange      = errors.New("amount is outside the asset's configured min/max")
	ErrMissingRequiredField  = errors.New("a required field is missing")
	ErrDestRequired          = errors.New("withdrawal requires an explicit destination")

	ErrChallengeInvalid      = errors.New("challenge transaction failed verification")
	ErrSignatureInsufficient = errors.New("signatures do not meet the account's medium threshold")
	ErrNonceInvalid          = errors.New("nonce is missing, already used, or unrecognized")

	ErrTransferNotFound      = errors.New("transfer not found")
	ErrInteractiveTokenUsed  = errors.New("interactive token is invalid, consumed, or expired")
)

// ValidationError pairs a fixed sentinel (for errors.Is matching in HTTP
// handlers) with a request-specific message, so callers don't have to parse
// the sentinel's generic text back out of a wrapped string.
type ValidationError struct {
	Sentinel error
	Message  string
}

func (e *ValidationError) Error() string { return e.Message }
func (e *ValidationError) Unwrap() error { return e.Sentinel }

func assetNotSupportedError(code string) error {
	return &ValidationError{Sentinel: ErrAssetNotSupported, Message: fmt.Sprintf("Asset %s not supported by anchor", code)}
}

func operationDisabledError(op, code string) error {
	return &ValidationError{Sentinel: ErrOperationDisabled, Message: fmt.Sprintf("%s is disabled for asset %s", op, code)}
}

func amountOutOfRangeError(code string, min, max *float64) error {
	msg := fmt.Sprintf("amount is outside the configured range for %s", code)
	if min != nil && max != nil {
		msg = fmt.Sprintf("amount must be between %v and %v for %s", *min, *max, code)
	}
	return &ValidationError{Sentinel: ErrAmountOutOfRange, Message: msg}
}

func missingFieldError(field string) error {
	return &ValidationError{Sentinel: ErrMissingRequiredField, Message: fmt.Sprintf("%s is required", field)}
}

func destRequiredError() error {
	return &ValidationError{Sentinel: ErrDestRequired, Message: "dest is required for a withdrawal"}
}
