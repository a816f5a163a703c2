package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ParseMetricType(t *testing.T) {
	mt, err := ParseMetricType("prometheus")
	require.NoError(t, err)
	assert.Equal(t, MetricTypePrometheus, mt)

	_, err = ParseMetricType("datadog")
	assert.Error(t, err)
}

func Test_GetClient_unknownType(t *testing.T) {
	_, err := GetClient(MetricOptions{MetricType: "UNKNOWN"})
	assert.Error(t, err)
}

func Test_GetClient_prometheus(t *testing.T) {
	client, err := GetClient(MetricOptions{MetricType: MetricTypePrometheus})
	require.NoError(t, err)
	assert.Equal(t, MetricTypePrometheus, client.GetMetricType())
}
