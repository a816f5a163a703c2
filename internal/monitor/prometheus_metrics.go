package monitor

import "github.com/prometheus/client_golang/prometheus"

const namespace = "anchor"

var SummaryVecMetrics = map[MetricTag]*prometheus.SummaryVec{
	HTTPRequestDurationTag: prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: namespace, Subsystem: "http", Name: string(HTTPRequestDurationTag),
		Help: "HTTP request durations, sliding window = 10m",
	},
		[]string{"status", "route", "method"},
	),
}

var CounterVecMetrics = map[MetricTag]*prometheus.CounterVec{
	AuthChallengeIssuedCounterTag: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "auth", Name: string(AuthChallengeIssuedCounterTag),
		Help: "Count of SEP-10 challenge transactions issued",
	}, []string{"client_domain"}),
	AuthVerifiedCounterTag: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "auth", Name: string(AuthVerifiedCounterTag),
		Help: "Count of SEP-10 challenges verified successfully",
	}, []string{"client_domain"}),
	AuthRejectedCounterTag: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "auth", Name: string(AuthRejectedCounterTag),
		Help: "Count of SEP-10 challenges rejected",
	}, []string{"client_domain"}),
	TransferInitiatedCounterTag: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "transfer", Name: string(TransferInitiatedCounterTag),
		Help: "Count of transfers initiated",
	}, []string{"kind", "asset_code", "status"}),
	TransferStatusTransitionCounterTag: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "transfer", Name: string(TransferStatusTransitionCounterTag),
		Help: "Count of transfer status transitions",
	}, []string{"kind", "asset_code", "status"}),
	InteractiveCompletionCounterTag: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "transfer", Name: string(InteractiveCompletionCounterTag),
		Help: "Count of interactive flows completed",
	}, []string{"kind", "asset_code", "status"}),
}
