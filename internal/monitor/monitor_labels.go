package monitor

// HTTPRequestLabels carries the dimensions recorded for every HTTP request
// observed by MetricsRequestHandler.
type HTTPRequestLabels struct {
	Status string
	Route  string
	Method string
}

// AuthLabels carries the dimensions recorded for a SEP-10 challenge outcome.
type AuthLabels struct {
	ClientDomain string
}

func (a AuthLabels) ToMap() map[string]string {
	return map[string]string{"client_domain": a.ClientDomain}
}

// TransferLabels carries the dimensions recorded for a transfer lifecycle
// event.
type TransferLabels struct {
	Kind      string
	AssetCode string
	Status    string
}

func (t TransferLabels) ToMap() map[string]string {
	return map[string]string{
		"kind":       t.Kind,
		"asset_code": t.AssetCode,
		"status":     t.Status,
	}
}
