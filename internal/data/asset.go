package data

import "strings"

// AssetStatus is the lifecycle status of a configured asset.
type AssetStatus string

const (
	AssetStatusLive    AssetStatus = "live"
	AssetStatusTest    AssetStatus = "test"
	AssetStatusDead    AssetStatus = "dead"
	AssetStatusPrivate AssetStatus = "private"
)

// RequiredField describes one entry in an operation's required-field
// catalogue, as surfaced in SEP-6/SEP-24 info responses.
type RequiredField struct {
	Description string   `json:"description,omitempty"`
	Optional    bool     `json:"optional,omitempty"`
	Choices     []string `json:"choices,omitempty"`
}

// OperationProfile carries the capability limits for either the deposit or
// the withdraw side of an asset.
type OperationProfile struct {
	Enabled        bool                     `json:"enabled"`
	MinAmount      *float64                 `json:"min_amount,omitempty"`
	MaxAmount      *float64                 `json:"max_amount,omitempty"`
	FeeFixed       *float64                 `json:"fee_fixed,omitempty"`
	FeePercent     *float64                 `json:"fee_percent,omitempty"`
	RequiredFields map[string]RequiredField `json:"required_fields,omitempty"`
}

// Asset is the capability record for one supported asset, keyed by code.
// Loaded from the operator's assets configuration file (§6.3).
type Asset struct {
	Code        string `json:"code"`
	Issuer      string `json:"issuer,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Description string `json:"description,omitempty"`
	// DisplayDecimals defaults to 7, matching Stellar's native precision.
	DisplayDecimals int              `json:"display_decimals,omitempty"`
	Status          AssetStatus      `json:"status,omitempty"`
	Deposit         OperationProfile `json:"deposit"`
	Withdraw        OperationProfile `json:"withdraw"`
}

// IsNative reports whether the asset denotes the chain's native token.
func (a Asset) IsNative() bool {
	code := strings.ToUpper(a.Code)
	return code == "XLM" || code == "NATIVE"
}

// AssetSet is the configured, case-insensitive lookup table of assets used by
// both the discovery publisher and the transfer engine.
type AssetSet struct {
	byCode map[string]Asset
	order  []string
}

// NewAssetSet builds a lookup indexed by the upper-cased asset code. The
// insertion order is preserved for deterministic discovery-document
// rendering.
func NewAssetSet(assets []Asset) AssetSet {
	set := AssetSet{byCode: make(map[string]Asset, len(assets))}
	for _, a := range assets {
		key := strings.ToUpper(a.Code)
		if _, exists := set.byCode[key]; !exists {
			set.order = append(set.order, key)
		}
		set.byCode[key] = a
	}
	return set
}

// Get performs a case-insensitive lookup by asset code.
func (s AssetSet) Get(code string) (Asset, bool) {
	a, ok := s.byCode[strings.ToUpper(code)]
	return a, ok
}

// All returns the assets in configuration order.
func (s AssetSet) All() []Asset {
	out := make([]Asset, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.byCode[key])
	}
	return out
}

func (s AssetSet) Len() int {
	return len(s.order)
}
