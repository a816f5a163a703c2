package anchor

import (
	"fmt"
	"strings"
	"sync"

	"github.com/stellar-anchor-service/anchor/internal/data"
	"github.com/stellar-anchor-service/anchor/internal/urlutil"
)

// DocumentationBlock is the optional SEP-1 [DOCUMENTATION] table (§4.1).
// Each field is emitted under its upper-snake-case key (OrgName as ORG_NAME).
type DocumentationBlock struct {
	OrgName            string
	OrgURL             string
	OrgDescription     string
	OrgLogo            string
	OrgPhysicalAddress string
	OrgOfficialEmail   string
	OrgSupportEmail    string
}

// MountSet records which of the three auth-gated SEPs are currently mounted,
// per §4.1's "conditionally emitted in fixed order" rule.
type MountSet struct {
	SEP10 bool
	SEP24 bool
	SEP6  bool
}

// PublisherConfig is the constructor-injected collaborator set for
// Publisher.
type PublisherConfig struct {
	Domain            string
	SigningPublicKey  string
	NetworkPassphrase string
	IsProduction      bool
	Documentation     *DocumentationBlock
	Assets            data.AssetSet
	Mounts            MountSet
}

// Publisher implements the §4.1 discovery publisher: a single cached
// rendering of the SEP-1 document, invalidated only on explicit mount-set
// or config change.
type Publisher struct {
	mu     sync.Mutex
	cfg    PublisherConfig
	cached []byte
}

// NewPublisher constructs a Publisher. The first Render call performs the
// initial render; cfg is not validated here (the caller validates the
// config surface once at startup, §6.3).
func NewPublisher(cfg PublisherConfig) *Publisher {
	return &Publisher{cfg: cfg}
}

// Invalidate clears the cached rendering, forcing the next Render call to
// regenerate the document. Callers invoke this after mutating the mount set
// or documentation/asset configuration (§9 "Discovery cache").
func (p *Publisher) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cached = nil
}

// SetMounts replaces the mounted-module set and invalidates the cache.
func (p *Publisher) SetMounts(m MountSet) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg.Mounts = m
	p.cached = nil
}

// Render returns the SEP-1 document body, rendering and caching it on first
// call (§4.1 "Caching").
func (p *Publisher) Render() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != nil {
		return p.cached
	}

	var b strings.Builder
	p.writeGeneralInformation(&b)
	p.writeDocumentation(&b)
	p.writeCurrencies(&b)

	p.cached = []byte(strings.TrimSpace(b.String()) + "\n")
	return p.cached
}

// tomlString emits s as a double-quoted TOML basic string, escaping the
// five characters that cannot appear unescaped (§4.1 "String encoding").
func tomlString(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`"`, `\"`,
		"\n", `\n`,
		"\r", `\r`,
		"\t", `\t`,
	)
	return `"` + r.Replace(s) + `"`
}

func (p *Publisher) writeGeneralInformation(b *strings.Builder) {
	fmt.Fprintf(b, "SIGNING_KEY=%s\n", tomlString(p.cfg.SigningPublicKey))
	fmt.Fprintf(b, "NETWORK_PASSPHRASE=%s\n", tomlString(p.cfg.NetworkPassphrase))

	if p.cfg.Mounts.SEP10 {
		fmt.Fprintf(b, "WEB_AUTH_ENDPOINT=%s\n", tomlString(urlutil.Endpoint(p.cfg.Domain, "/auth")))
	}
	if p.cfg.Mounts.SEP24 {
		fmt.Fprintf(b, "TRANSFER_SERVER_SEP0024=%s\n", tomlString(urlutil.Endpoint(p.cfg.Domain, "/sep24")))
	}
	if p.cfg.Mounts.SEP6 {
		fmt.Fprintf(b, "TRANSFER_SERVER=%s\n", tomlString(urlutil.Endpoint(p.cfg.Domain, "/sep6")))
	}
	b.WriteString("\n")
}

func (p *Publisher) writeDocumentation(b *strings.Builder) {
	d := p.cfg.Documentation
	if d == nil {
		return
	}

	b.WriteString("[DOCUMENTATION]\n")
	writeOptionalField(b, "ORG_NAME", d.OrgName)
	writeOptionalField(b, "ORG_URL", d.OrgURL)
	writeOptionalField(b, "ORG_DESCRIPTION", d.OrgDescription)
	writeOptionalField(b, "ORG_LOGO", d.OrgLogo)
	writeOptionalField(b, "ORG_PHYSICAL_ADDRESS", d.OrgPhysicalAddress)
	writeOptionalField(b, "ORG_OFFICIAL_EMAIL", d.OrgOfficialEmail)
	writeOptionalField(b, "ORG_SUPPORT_EMAIL", d.OrgSupportEmail)
	b.WriteString("\n")
}

func writeOptionalField(b *strings.Builder, key, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "%s=%s\n", key, tomlString(value))
}

// assetStatusFor derives the §4.1 "Status derivation per asset" rule:
// explicit live/test pass through; dead/private emit no status line (the
// asset's section is still written); anything else defaults on network.
func (p *Publisher) assetStatusFor(a data.Asset) (data.AssetStatus, bool) {
	switch a.Status {
	case data.AssetStatusLive, data.AssetStatusTest:
		return a.Status, true
	case data.AssetStatusDead, data.AssetStatusPrivate:
		return "", false
	default:
		if p.cfg.IsProduction {
			return data.AssetStatusLive, true
		}
		return data.AssetStatusTest, true
	}
}

func (p *Publisher) writeCurrencies(b *strings.Builder) {
	for _, a := range p.cfg.Assets.All() {
		b.WriteString("[[CURRENCIES]]\n")

		code := a.Code
		isNative := a.IsNative()
		if isNative {
			code = "native"
		}
		fmt.Fprintf(b, "code=%s\n", tomlString(code))

		if !isNative && a.Issuer != "" {
			fmt.Fprintf(b, "issuer=%s\n", tomlString(a.Issuer))
		}

		if status, ok := p.assetStatusFor(a); ok {
			fmt.Fprintf(b, "status=%s\n", tomlString(string(status)))
		}

		decimals := a.DisplayDecimals
		if decimals == 0 {
			decimals = 7
		}
		fmt.Fprintf(b, "display_decimals=%d\n", decimals)

		if a.DisplayName != "" {
			fmt.Fprintf(b, "name=%s\n", tomlString(a.DisplayName))
		}
		if a.Description != "" {
			fmt.Fprintf(b, "desc=%s\n", tomlString(a.Description))
		}
		if isNative {
			fmt.Fprintf(b, "is_asset_anchored=%t\n", false)
			fmt.Fprintf(b, "anchor_asset_type=%s\n", tomlString("crypto"))
		}

		b.WriteString("\n")
	}
}
