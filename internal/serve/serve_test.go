package serve

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stellar/go-stellar-sdk/clients/horizonclient"
	"github.com/stellar/go-stellar-sdk/keypair"
	"github.com/stellar/go-stellar-sdk/network"
	"github.com/stellar/go-stellar-sdk/protocols/horizon"
	"github.com/stellar/go-stellar-sdk/support/render/problem"
	"github.com/stellar/go-stellar-sdk/txnbuild"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stellar-anchor-service/anchor/internal/anchor"
	"github.com/stellar-anchor-service/anchor/internal/data"
	"github.com/stellar-anchor-service/anchor/internal/monitor"
)

const testJWTSecret = "01234567890123456789012345678901"

// testServeOptions wires a ServeOptions the way cmd/serve.go does, swapping
// in a mock Horizon client so VerifyChallenge's signer lookup doesn't reach
// the network (the test accounts are never funded, so every lookup 404s).
func testServeOptions(t *testing.T, horizonClient horizonclient.ClientInterface) ServeOptions {
	t.Helper()

	monitorService := &monitor.MockMonitorService{}
	monitorService.On("MonitorHTTPRequestDuration", mock.Anything, mock.Anything).Return(nil)

	opts := ServeOptions{
		Environment:        "test",
		Port:               8000,
		Domain:             "anchor.example.com",
		HorizonURL:         "https://horizon-testnet.stellar.org",
		NetworkPassphrase:  network.TestNetworkPassphrase,
		SigningKey:         keypair.MustRandom(),
		JWTSecret:          testJWTSecret,
		CorsAllowedOrigins: []string{"*"},
		InteractiveBaseURL: "https://interactive.example.com/flow",
		Assets: data.NewAssetSet([]data.Asset{
			{
				Code:     "USDC",
				Issuer:   keypair.MustRandom().Address(),
				Deposit:  data.OperationProfile{Enabled: true},
				Withdraw: data.OperationProfile{Enabled: true},
			},
		}),
		MonitorService: monitorService,
	}

	require.NoError(t, opts.Validate())
	require.NoError(t, opts.SetupDependencies())

	if horizonClient != nil {
		opts.horizonClient = horizonClient
		opts.authIssuer = anchor.NewAuthIssuer(anchor.AuthConfig{
			Domain:            opts.Domain,
			NetworkPassphrase: opts.NetworkPassphrase,
			SigningKey:        opts.SigningKey,
			HorizonClient:     horizonClient,
			NonceStore:        opts.nonceStore,
			JWT:               opts.jwtManager,
		})
	}
	return opts
}

// unfundedAccountHorizonClient reports every account lookup as not found,
// matching an address that has never been funded on the test network: the
// auth issuer falls back to a master-key-only signer set.
func unfundedAccountHorizonClient() *horizonclient.MockClient {
	mockClient := &horizonclient.MockClient{}
	mockClient.On("AccountDetail", mock.AnythingOfType("horizonclient.AccountRequest")).
		Return(horizon.Account{}, &horizonclient.Error{
			Problem: problem.P{Status: http.StatusNotFound, Title: "Resource Missing"},
		})
	return mockClient
}

func signChallenge(t *testing.T, envelopeXDR, networkPassphrase string, signers ...*keypair.Full) string {
	t.Helper()
	generic, err := txnbuild.TransactionFromXDR(envelopeXDR)
	require.NoError(t, err)
	tx, ok := generic.Transaction()
	require.True(t, ok)

	signed, err := tx.Sign(networkPassphrase, signers...)
	require.NoError(t, err)
	encoded, err := signed.Base64()
	require.NoError(t, err)
	return encoded
}

// bearerToken drives the full SEP-10 challenge/verify round trip and
// returns the resulting bearer token for use by later requests.
func bearerToken(t *testing.T, mux http.Handler, clientKP *keypair.Full, networkPassphrase string) string {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/auth?account="+clientKP.Address(), nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var challenge struct {
		Transaction       string `json:"transaction"`
		NetworkPassphrase string `json:"network_passphrase"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &challenge))

	signedEnvelope := signChallenge(t, challenge.Transaction, networkPassphrase, clientKP)

	form := url.Values{"transaction": {signedEnvelope}}
	postReq := httptest.NewRequest(http.MethodPost, "/auth", strings.NewReader(form.Encode()))
	postReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	postRec := httptest.NewRecorder()
	mux.ServeHTTP(postRec, postReq)
	require.Equal(t, http.StatusOK, postRec.Code, postRec.Body.String())

	var tokenResp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(postRec.Body.Bytes(), &tokenResp))
	require.NotEmpty(t, tokenResp.Token)
	return tokenResp.Token
}

func TestHealth(t *testing.T) {
	opts := testServeOptions(t, nil)
	mux := handleHTTP(opts)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"pass"`)
}

func TestDiscoveryDocument_ReflectsMountedSeps(t *testing.T) {
	opts := testServeOptions(t, nil)
	mux := handleHTTP(opts)

	req := httptest.NewRequest(http.MethodGet, "/.well-known/stellar.toml", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	body := rec.Body.String()
	assert.Contains(t, body, "WEB_AUTH_ENDPOINT=")
	assert.Contains(t, body, "TRANSFER_SERVER_SEP0024=")
	assert.Contains(t, body, "TRANSFER_SERVER=")
}

func TestAuthFlow_ChallengeVerifyReplay(t *testing.T) {
	clientKP := keypair.MustRandom()
	opts := testServeOptions(t, unfundedAccountHorizonClient())
	mux := handleHTTP(opts)

	req := httptest.NewRequest(http.MethodGet, "/auth?account="+clientKP.Address(), nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var challenge struct {
		Transaction       string `json:"transaction"`
		NetworkPassphrase string `json:"network_passphrase"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &challenge))
	assert.Equal(t, opts.NetworkPassphrase, challenge.NetworkPassphrase)

	signedEnvelope := signChallenge(t, challenge.Transaction, opts.NetworkPassphrase, clientKP)

	post := func() *httptest.ResponseRecorder {
		form := url.Values{"transaction": {signedEnvelope}}
		postReq := httptest.NewRequest(http.MethodPost, "/auth", strings.NewReader(form.Encode()))
		postReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		postRec := httptest.NewRecorder()
		mux.ServeHTTP(postRec, postReq)
		return postRec
	}

	first := post()
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())

	replay := post()
	assert.Equal(t, http.StatusBadRequest, replay.Code)
	assert.Contains(t, replay.Body.String(), "invalid_challenge")
}

func TestAuthFlow_MissingAccount(t *testing.T) {
	opts := testServeOptions(t, nil)
	mux := handleHTTP(opts)

	req := httptest.NewRequest(http.MethodGet, "/auth", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSEP24DepositInteractive_HappyPathThroughRedirectAndComplete(t *testing.T) {
	clientKP := keypair.MustRandom()
	opts := testServeOptions(t, unfundedAccountHorizonClient())
	mux := handleHTTP(opts)

	token := bearerToken(t, mux, clientKP, opts.NetworkPassphrase)

	form := url.Values{"asset_code": {"USDC"}, "amount": {"100"}}
	depositReq := httptest.NewRequest(http.MethodPost, "/sep24/transactions/deposit/interactive", strings.NewReader(form.Encode()))
	depositReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	depositReq.Header.Set("Authorization", "Bearer "+token)
	depositRec := httptest.NewRecorder()
	mux.ServeHTTP(depositRec, depositReq)
	require.Equal(t, http.StatusOK, depositRec.Code, depositRec.Body.String())

	var interactive struct {
		Type string `json:"type"`
		ID   string `json:"id"`
		URL  string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(depositRec.Body.Bytes(), &interactive))
	assert.Equal(t, "interactive_customer_info_needed", interactive.Type)
	assert.NotEmpty(t, interactive.ID)

	ownURL, err := url.Parse(interactive.URL)
	require.NoError(t, err)
	assert.Equal(t, "/interactive", ownURL.Path)

	redirectReq := httptest.NewRequest(http.MethodGet, interactive.URL, nil)
	redirectRec := httptest.NewRecorder()
	mux.ServeHTTP(redirectRec, redirectReq)
	require.Equal(t, http.StatusFound, redirectRec.Code)

	location, err := url.Parse(redirectRec.Header().Get("Location"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(redirectRec.Header().Get("Location"), opts.InteractiveBaseURL))
	assert.Equal(t, interactive.ID, location.Query().Get("transaction_id"))
	assert.Equal(t, ownURL.Query().Get("token"), location.Query().Get("token"))

	completeForm := url.Values{
		"transaction_id": {location.Query().Get("transaction_id")},
		"token":          {location.Query().Get("token")},
	}
	completeReq := httptest.NewRequest(http.MethodPost, "/interactive/complete", strings.NewReader(completeForm.Encode()))
	completeReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	completeRec := httptest.NewRecorder()
	mux.ServeHTTP(completeRec, completeReq)
	require.Equal(t, http.StatusOK, completeRec.Code, completeRec.Body.String())

	var completeResp struct {
		Success bool   `json:"success"`
		Status  string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(completeRec.Body.Bytes(), &completeResp))
	assert.True(t, completeResp.Success)
	assert.NotEqual(t, "incomplete", completeResp.Status)

	// A second /interactive/complete with the same token is consume-or-fail.
	secondReq := httptest.NewRequest(http.MethodPost, "/interactive/complete", strings.NewReader(completeForm.Encode()))
	secondReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	secondRec := httptest.NewRecorder()
	mux.ServeHTTP(secondRec, secondReq)
	assert.Equal(t, http.StatusBadRequest, secondRec.Code)

	txReq := httptest.NewRequest(http.MethodGet, "/sep24/transaction?id="+interactive.ID, nil)
	txReq.Header.Set("Authorization", "Bearer "+token)
	txRec := httptest.NewRecorder()
	mux.ServeHTTP(txRec, txReq)
	require.Equal(t, http.StatusOK, txRec.Code)
	assert.Contains(t, txRec.Body.String(), `"transaction":`)

	listReq := httptest.NewRequest(http.MethodGet, "/sep24/transactions?asset_code=USDC", nil)
	listReq.Header.Set("Authorization", "Bearer "+token)
	listRec := httptest.NewRecorder()
	mux.ServeHTTP(listRec, listReq)
	require.Equal(t, http.StatusOK, listRec.Code)

	var listResp struct {
		Transactions []struct{ ID string } `json:"transactions"`
	}
	require.NoError(t, json.Unmarshal(listRec.Body.Bytes(), &listResp))
	require.Len(t, listResp.Transactions, 1)
	assert.Equal(t, interactive.ID, listResp.Transactions[0].ID)

	moreInfoReq := httptest.NewRequest(http.MethodGet, "/transaction/more_info?id="+interactive.ID, nil)
	moreInfoRec := httptest.NewRecorder()
	mux.ServeHTTP(moreInfoRec, moreInfoReq)
	assert.Equal(t, http.StatusOK, moreInfoRec.Code)
	assert.Contains(t, moreInfoRec.Header().Get("Content-Type"), "text/html")
}

func TestSEP24DepositInteractive_RejectsUnsupportedAsset(t *testing.T) {
	clientKP := keypair.MustRandom()
	opts := testServeOptions(t, unfundedAccountHorizonClient())
	mux := handleHTTP(opts)

	token := bearerToken(t, mux, clientKP, opts.NetworkPassphrase)

	form := url.Values{"asset_code": {"NOTREAL"}}
	req := httptest.NewRequest(http.MethodPost, "/sep24/transactions/deposit/interactive", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSEP24Transactions_RequiresBearerToken(t *testing.T) {
	opts := testServeOptions(t, nil)
	mux := handleHTTP(opts)

	req := httptest.NewRequest(http.MethodGet, "/sep24/transactions", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSEP24DepositInteractive_RejectsMalformedAccountField(t *testing.T) {
	clientKP := keypair.MustRandom()
	opts := testServeOptions(t, unfundedAccountHorizonClient())
	mux := handleHTTP(opts)

	token := bearerToken(t, mux, clientKP, opts.NetworkPassphrase)

	form := url.Values{"asset_code": {"USDC"}, "account": {"not-a-stellar-address"}}
	req := httptest.NewRequest(http.MethodPost, "/sep24/transactions/deposit/interactive", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSEP6DepositAndWithdraw_HappyPath(t *testing.T) {
	clientKP := keypair.MustRandom()
	opts := testServeOptions(t, unfundedAccountHorizonClient())
	mux := handleHTTP(opts)

	token := bearerToken(t, mux, clientKP, opts.NetworkPassphrase)

	depositReq := httptest.NewRequest(http.MethodGet, "/sep6/deposit?asset_code=USDC&amount=50", nil)
	depositReq.Header.Set("Authorization", "Bearer "+token)
	depositRec := httptest.NewRecorder()
	mux.ServeHTTP(depositRec, depositReq)
	require.Equal(t, http.StatusOK, depositRec.Code, depositRec.Body.String())

	var depositResp struct {
		ID  string `json:"id"`
		How string `json:"how"`
	}
	require.NoError(t, json.Unmarshal(depositRec.Body.Bytes(), &depositResp))
	assert.NotEmpty(t, depositResp.ID)
	assert.Contains(t, depositResp.How, opts.SigningKey.Address())

	withdrawReq := httptest.NewRequest(http.MethodGet, "/sep6/withdraw?asset_code=USDC&type=bank_account&dest=DE1234567890", nil)
	withdrawReq.Header.Set("Authorization", "Bearer "+token)
	withdrawRec := httptest.NewRecorder()
	mux.ServeHTTP(withdrawRec, withdrawReq)
	require.Equal(t, http.StatusOK, withdrawRec.Code, withdrawRec.Body.String())

	var withdrawResp struct {
		ID        string `json:"id"`
		AccountID string `json:"account_id"`
	}
	require.NoError(t, json.Unmarshal(withdrawRec.Body.Bytes(), &withdrawResp))
	assert.NotEmpty(t, withdrawResp.ID)
	assert.Equal(t, opts.SigningKey.Address(), withdrawResp.AccountID)
}

func TestSEP6Withdraw_RequiresDest(t *testing.T) {
	clientKP := keypair.MustRandom()
	opts := testServeOptions(t, unfundedAccountHorizonClient())
	mux := handleHTTP(opts)

	token := bearerToken(t, mux, clientKP, opts.NetworkPassphrase)

	req := httptest.NewRequest(http.MethodGet, "/sep6/withdraw?asset_code=USDC&type=bank_account", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSEP6Info_MarksAuthenticationRequired(t *testing.T) {
	opts := testServeOptions(t, nil)
	mux := handleHTTP(opts)

	req := httptest.NewRequest(http.MethodGet, "/sep6/info", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"authentication_required":true`)
}
