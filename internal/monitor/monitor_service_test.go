package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_MonitorService_Start(t *testing.T) {
	svc := &MonitorService{}

	_, err := svc.GetMetricType()
	assert.Error(t, err, "uninitialized service should error")

	err = svc.Start(MetricOptions{MetricType: MetricTypePrometheus})
	require.NoError(t, err)

	mt, err := svc.GetMetricType()
	require.NoError(t, err)
	assert.Equal(t, MetricTypePrometheus, mt)

	err = svc.Start(MetricOptions{MetricType: MetricTypePrometheus})
	assert.Error(t, err, "starting twice should error")
}

func Test_MonitorService_MonitorHTTPRequestDuration_beforeStartErrors(t *testing.T) {
	svc := &MonitorService{}
	err := svc.MonitorHTTPRequestDuration(0, HTTPRequestLabels{})
	assert.Error(t, err)
}
