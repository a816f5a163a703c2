package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Asset_IsNative(t *testing.T) {
	assert.True(t, Asset{Code: "XLM"}.IsNative())
	assert.True(t, Asset{Code: "native"}.IsNative())
	assert.False(t, Asset{Code: "USDC"}.IsNative())
}

func Test_AssetSet_GetIsCaseInsensitive(t *testing.T) {
	set := NewAssetSet([]Asset{{Code: "USDC"}})

	a, ok := set.Get("usdc")
	assert.True(t, ok)
	assert.Equal(t, "USDC", a.Code)

	_, ok = set.Get("EURC")
	assert.False(t, ok)
}

func Test_AssetSet_AllPreservesInsertionOrder(t *testing.T) {
	set := NewAssetSet([]Asset{{Code: "USDC"}, {Code: "XLM"}, {Code: "EURC"}})

	codes := make([]string, 0, set.Len())
	for _, a := range set.All() {
		codes = append(codes, a.Code)
	}
	assert.Equal(t, []string{"USDC", "XLM", "EURC"}, codes)
}

func Test_AssetSet_DuplicateCodeOverwritesButKeepsOrderPosition(t *testing.T) {
	set := NewAssetSet([]Asset{
		{Code: "USDC", DisplayName: "first"},
		{Code: "usdc", DisplayName: "second"},
	})

	assert.Equal(t, 1, set.Len())
	a, ok := set.Get("USDC")
	assert.True(t, ok)
	assert.Equal(t, "second", a.DisplayName)
}
