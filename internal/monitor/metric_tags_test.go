package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_MetricTag_ListAllIncludesHTTPRequestDuration(t *testing.T) {
	var tag MetricTag
	assert.Contains(t, tag.ListAll(), HTTPRequestDurationTag)
	assert.Contains(t, tag.ListAll(), TransferInitiatedCounterTag)
}

func Test_TransferLabels_ToMap(t *testing.T) {
	labels := TransferLabels{Kind: "deposit", AssetCode: "USDC", Status: "completed"}
	assert.Equal(t, map[string]string{
		"kind":       "deposit",
		"asset_code": "USDC",
		"status":     "completed",
	}, labels.ToMap())
}
