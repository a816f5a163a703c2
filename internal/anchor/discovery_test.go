package anchor

import (
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stellar-anchor-service/anchor/internal/data"
)

func testAssets() data.AssetSet {
	return data.NewAssetSet([]data.Asset{
		{
			Code:            "USDC",
			Issuer:          "GBBD47IF6LWK7P7MDEVSCWR7DPUWV3NY3DTQEVFL4NAT4AQH3ZLLFLK5",
			DisplayName:     "USD Coin",
			DisplayDecimals: 2,
			Deposit:         data.OperationProfile{Enabled: true},
			Withdraw:        data.OperationProfile{Enabled: true},
		},
		{
			Code:     "XLM",
			Deposit:  data.OperationProfile{Enabled: true},
			Withdraw: data.OperationProfile{Enabled: true},
		},
	})
}

func TestPublisherRender_MountToggling(t *testing.T) {
	cfg := PublisherConfig{
		Domain:            "anchor.example.com",
		SigningPublicKey:  "GA2HGBJIJKI6O4XEM7CZWY5PS6GKSXL6D34ERAJYQSPYA6X6AQTFALG4",
		NetworkPassphrase: "Test SDF Network ; September 2015",
		Assets:            testAssets(),
		Mounts:            MountSet{SEP10: true},
	}
	pub := NewPublisher(cfg)

	doc := string(pub.Render())
	assert.Contains(t, doc, "WEB_AUTH_ENDPOINT=")
	assert.NotContains(t, doc, "TRANSFER_SERVER_SEP0024")
	assert.NotContains(t, doc, "TRANSFER_SERVER=")

	pub.SetMounts(MountSet{SEP10: true, SEP24: true})
	doc = string(pub.Render())
	assert.Contains(t, doc, "WEB_AUTH_ENDPOINT=")
	assert.Contains(t, doc, "TRANSFER_SERVER_SEP0024=")
	assert.NotContains(t, doc, "TRANSFER_SERVER=\"")
}

func TestPublisherRender_CacheInvalidation(t *testing.T) {
	pub := NewPublisher(PublisherConfig{
		Domain:            "anchor.example.com",
		SigningPublicKey:  "GA2HGBJIJKI6O4XEM7CZWY5PS6GKSXL6D34ERAJYQSPYA6X6AQTFALG4",
		NetworkPassphrase: "Test SDF Network ; September 2015",
		Assets:            testAssets(),
	})

	first := pub.Render()
	second := pub.Render()
	assert.Same(t, &first[0], &second[0], "cached rendering must be reused")

	pub.Invalidate()
	third := pub.Render()
	assert.Equal(t, first, third)
}

func TestPublisherRender_NativeNormalization(t *testing.T) {
	pub := NewPublisher(PublisherConfig{
		Domain:            "anchor.example.com",
		SigningPublicKey:  "GA2HGBJIJKI6O4XEM7CZWY5PS6GKSXL6D34ERAJYQSPYA6X6AQTFALG4",
		NetworkPassphrase: "Test SDF Network ; September 2015",
		Assets:            testAssets(),
	})

	doc := string(pub.Render())
	assert.Contains(t, doc, `code="native"`)
	assert.NotContains(t, doc, `code="XLM"`)
}

func TestPublisherRender_AssetStatusDerivation(t *testing.T) {
	assets := data.NewAssetSet([]data.Asset{
		{Code: "LIVE", Status: data.AssetStatusLive},
		{Code: "DEAD", Status: data.AssetStatusDead},
		{Code: "DFLT"},
	})

	pub := NewPublisher(PublisherConfig{
		Domain:            "anchor.example.com",
		SigningPublicKey:  "GA2HGBJIJKI6O4XEM7CZWY5PS6GKSXL6D34ERAJYQSPYA6X6AQTFALG4",
		NetworkPassphrase: "Test SDF Network ; September 2015",
		Assets:            assets,
		IsProduction:      false,
	})

	doc := string(pub.Render())
	assert.Contains(t, doc, `status="live"`)
	assert.Contains(t, doc, `status="test"`) // DFLT default, non-production
	assert.Contains(t, doc, "code=\"DEAD\"\ndisplay_decimals=7") // DEAD keeps its section; only the status line is omitted
}

func TestPublisherRender_RoundTripsThroughStandardParser(t *testing.T) {
	pub := NewPublisher(PublisherConfig{
		Domain:            "anchor.example.com",
		SigningPublicKey:  "GA2HGBJIJKI6O4XEM7CZWY5PS6GKSXL6D34ERAJYQSPYA6X6AQTFALG4",
		NetworkPassphrase: "Test SDF Network ; September 2015",
		Documentation: &DocumentationBlock{
			OrgName: "Example Anchor",
			OrgURL:  "https://anchor.example.com",
		},
		Assets: testAssets(),
		Mounts: MountSet{SEP10: true, SEP24: true, SEP6: true},
	})

	doc := pub.Render()

	var parsed struct {
		SigningKey        string `toml:"SIGNING_KEY"`
		NetworkPassphrase string `toml:"NETWORK_PASSPHRASE"`
		WebAuthEndpoint   string `toml:"WEB_AUTH_ENDPOINT"`
		TransferSep24     string `toml:"TRANSFER_SERVER_SEP0024"`
		TransferServer    string `toml:"TRANSFER_SERVER"`
		Documentation     struct {
			OrgName string `toml:"ORG_NAME"`
			OrgURL  string `toml:"ORG_URL"`
		} `toml:"DOCUMENTATION"`
		Currencies []struct {
			Code string `toml:"code"`
		} `toml:"CURRENCIES"`
	}

	_, err := toml.Decode(string(doc), &parsed)
	require.NoError(t, err)

	assert.Equal(t, "GA2HGBJIJKI6O4XEM7CZWY5PS6GKSXL6D34ERAJYQSPYA6X6AQTFALG4", parsed.SigningKey)
	assert.Equal(t, "Test SDF Network ; September 2015", parsed.NetworkPassphrase)
	assert.NotEmpty(t, parsed.WebAuthEndpoint)
	assert.NotEmpty(t, parsed.TransferSep24)
	assert.NotEmpty(t, parsed.TransferServer)
	assert.Equal(t, "Example Anchor", parsed.Documentation.OrgName)
	require.Len(t, parsed.Currencies, 2)
	assert.Equal(t, "USDC", parsed.Currencies[0].Code)
	assert.Equal(t, "native", parsed.Currencies[1].Code)
}
