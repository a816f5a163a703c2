package httperror

// Code is the short, machine-parseable error kind carried alongside the
// HTTP status in every error envelope. It is a parallel channel: the HTTP
// status tells a generic client whether to retry, the code tells a
// SEP-aware client exactly what went wrong.
const (
	CodeBadRequest   = "bad_request"
	CodeUnauthorized = "unauthorized"
	CodeForbidden    = "forbidden"
	CodeNotFound     = "not_found"
	CodeConflict     = "conflict"
	CodeInternal     = "error"

	// CodeInvalidChallenge covers every SEP-10 verification failure that
	// stems from a malformed or expired challenge envelope: wrong domain,
	// wrong network, expired timebounds, missing operator signature, or a
	// nonce that is missing, expired, or already consumed.
	CodeInvalidChallenge = "invalid_challenge"

	// CodeInteractiveTokenInvalid covers an interactive completion call
	// whose token does not match, is expired, or was already consumed.
	CodeInteractiveTokenInvalid = "interactive_token_invalid"

	// CodeTransitionInvalid is reserved for transfer state-machine
	// violations surfaced as 409s when an operator drives an illegal
	// transition explicitly (rare; update_status never rejects, but
	// hooks may choose to raise this).
	CodeTransitionInvalid = "transition_invalid"
)
