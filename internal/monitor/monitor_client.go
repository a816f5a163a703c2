package monitor

import (
	"net/http"
	"time"
)

//go:generate mockery --name=MonitorClient --case=underscore --structname=MockMonitorClient --output=mocks --outpkg=mocks
type MonitorClient interface {
	GetMetricHTTPHandler() http.Handler
	GetMetricType() MetricType
	MonitorHTTPRequestDuration(duration time.Duration, labels HTTPRequestLabels)
	MonitorCounters(tag MetricTag, labels map[string]string)
}
