package monitor

type MetricTag string

const (
	HTTPRequestDurationTag MetricTag = "requests_duration_seconds"

	// SEP-10 outcomes.
	AuthChallengeIssuedCounterTag MetricTag = "auth_challenge_issued_counter"
	AuthVerifiedCounterTag        MetricTag = "auth_verified_counter"
	AuthRejectedCounterTag        MetricTag = "auth_rejected_counter"

	// Transfer lifecycle.
	TransferInitiatedCounterTag          MetricTag = "transfer_initiated_counter"
	TransferStatusTransitionCounterTag   MetricTag = "transfer_status_transition_counter"
	InteractiveCompletionCounterTag      MetricTag = "interactive_completion_counter"
)

func (m MetricTag) ListAll() []MetricTag {
	return []MetricTag{
		HTTPRequestDurationTag,
		AuthChallengeIssuedCounterTag,
		AuthVerifiedCounterTag,
		AuthRejectedCounterTag,
		TransferInitiatedCounterTag,
		TransferStatusTransitionCounterTag,
		InteractiveCompletionCounterTag,
	}
}
