package monitor

import (
	"fmt"
	"strings"
)

type MetricType string

const (
	MetricTypePrometheus MetricType = "PROMETHEUS"
)

func ParseMetricType(metricTypeStr string) (MetricType, error) {
	mType := MetricType(strings.ToUpper(metricTypeStr))

	switch mType {
	case MetricTypePrometheus:
		return mType, nil
	default:
		return "", fmt.Errorf("invalid metric type %q", mType)
	}
}

type MetricOptions struct {
	MetricType MetricType
}

func GetClient(opts MetricOptions) (MonitorClient, error) {
	switch opts.MetricType {
	case MetricTypePrometheus:
		return NewPrometheusClient()
	default:
		return nil, fmt.Errorf("unknown metric type: %q", opts.MetricType)
	}
}
