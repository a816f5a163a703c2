package anchor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/stellar/go-stellar-sdk/clients/horizonclient"
	"github.com/stellar/go-stellar-sdk/keypair"
	"github.com/stellar/go-stellar-sdk/protocols/horizon"
	"github.com/stellar/go-stellar-sdk/support/log"
	"github.com/stellar/go-stellar-sdk/txnbuild"

	"github.com/stellar-anchor-service/anchor/internal/monitor"
	"github.com/stellar-anchor-service/anchor/internal/store"
)

const (
	challengeNonceOctets = 48
	challengeTTL         = 5 * time.Minute
	challengeBaseFee     = int64(txnbuild.MinBaseFee)
	webAuthDomainOpName  = "web_auth_domain"

	// horizonLookupTimeout bounds the signer-set lookup in VerifyChallenge
	// (§5 "Timeouts": suggested 5s).
	horizonLookupTimeout = 5 * time.Second
	horizonLookupRetries = 3
)

// AuthConfig is the constructor-injected collaborator set for AuthIssuer.
type AuthConfig struct {
	Domain            string
	NetworkPassphrase string
	SigningKey        *keypair.Full
	HorizonClient     horizonclient.ClientInterface
	NonceStore        store.NonceStore
	JWT               *JWTManager
	MonitorService    monitor.MonitorServiceInterface
}

// AuthIssuer implements the SEP-10 "Auth issuer" operations of §4.2:
// challenge creation and verification.
type AuthIssuer struct {
	cfg AuthConfig
}

// NewAuthIssuer constructs an AuthIssuer. All cfg fields are required; the
// caller validates them once at startup (§6.3), not on every request.
func NewAuthIssuer(cfg AuthConfig) *AuthIssuer {
	return &AuthIssuer{cfg: cfg}
}

// CreateChallenge implements §4.2 Operation A. account must be a
// well-formed Stellar public key; the nonce is registered before the
// signed envelope is returned, so a verify call can never race ahead of
// its own nonce's existence.
func (a *AuthIssuer) CreateChallenge(ctx context.Context, account string) (envelopeXDR, networkPassphrase string, err error) {
	if _, err := keypair.ParseAddress(account); err != nil {
		return "", "", fmt.Errorf("%w: invalid account address", ErrChallengeInvalid)
	}

	nonce, err := randomHex(challengeNonceOctets)
	if err != nil {
		return "", "", err
	}

	now := time.Now().UTC()
	serverAccount := a.cfg.SigningKey.Address()

	tx, err := txnbuild.NewTransaction(txnbuild.TransactionParams{
		SourceAccount:        &txnbuild.SimpleAccount{AccountID: serverAccount, Sequence: 0},
		IncrementSequenceNum: false,
		BaseFee:              challengeBaseFee,
		Operations: []txnbuild.Operation{
			&txnbuild.ManageData{
				SourceAccount: account,
				Name:          a.cfg.Domain + " auth",
				Value:         []byte(nonce),
			},
			&txnbuild.ManageData{
				SourceAccount: serverAccount,
				Name:          webAuthDomainOpName,
				Value:         []byte(a.cfg.Domain),
			},
		},
		Preconditions: txnbuild.Preconditions{
			TimeBounds: txnbuild.NewTimebounds(now.Unix(), now.Add(challengeTTL).Unix()),
		},
	})
	if err != nil {
		return "", "", fmt.Errorf("building challenge transaction: %w", err)
	}

	signedTx, err := tx.Sign(a.cfg.NetworkPassphrase, a.cfg.SigningKey)
	if err != nil {
		return "", "", fmt.Errorf("signing challenge transaction: %w", err)
	}

	if err := a.cfg.NonceStore.Add(ctx, nonce); err != nil {
		return "", "", fmt.Errorf("registering nonce: %w", err)
	}

	xdr, err := signedTx.Base64()
	if err != nil {
		return "", "", fmt.Errorf("encoding challenge transaction: %w", err)
	}

	a.monitorCounter(monitor.AuthChallengeIssuedCounterTag, monitor.AuthLabels{ClientDomain: a.cfg.Domain})
	return xdr, a.cfg.NetworkPassphrase, nil
}

// monitorCounter increments tag if a monitor service is configured, logging
// rather than failing the caller on a monitoring error: metrics emission
// never blocks a SEP-10 outcome.
func (a *AuthIssuer) monitorCounter(tag monitor.MetricTag, labels monitor.AuthLabels) {
	if a.cfg.MonitorService == nil {
		return
	}
	if err := a.cfg.MonitorService.MonitorCounters(tag, labels.ToMap()); err != nil {
		log.Errorf("monitoring %s: %v", tag, err)
	}
}

// VerifyChallenge implements §4.2 Operation B.
func (a *AuthIssuer) VerifyChallenge(ctx context.Context, envelopeXDR string) (token, account string, err error) {
	signed, clientAccount, err := a.verifyChallenge(ctx, envelopeXDR)
	if err != nil {
		a.monitorCounter(monitor.AuthRejectedCounterTag, monitor.AuthLabels{ClientDomain: a.cfg.Domain})
		return "", "", err
	}
	a.monitorCounter(monitor.AuthVerifiedCounterTag, monitor.AuthLabels{ClientDomain: a.cfg.Domain})
	return signed, clientAccount, nil
}

func (a *AuthIssuer) verifyChallenge(ctx context.Context, envelopeXDR string) (token, account string, err error) {
	genericTx, err := txnbuild.TransactionFromXDR(envelopeXDR)
	if err != nil {
		return "", "", fmt.Errorf("%w: parsing envelope", ErrChallengeInvalid)
	}
	tx, ok := genericTx.Transaction()
	if !ok {
		return "", "", fmt.Errorf("%w: challenge must not be a fee-bump transaction", ErrChallengeInvalid)
	}

	if tx.SourceAccount().AccountID != a.cfg.SigningKey.Address() {
		return "", "", fmt.Errorf("%w: source account is not the operator signing key", ErrChallengeInvalid)
	}

	ops := tx.Operations()
	if len(ops) < 2 {
		return "", "", fmt.Errorf("%w: challenge must carry at least two operations", ErrChallengeInvalid)
	}

	nonceOp, ok := ops[0].(*txnbuild.ManageData)
	if !ok || nonceOp.Name != a.cfg.Domain+" auth" || len(nonceOp.Value) == 0 {
		return "", "", fmt.Errorf("%w: first operation is not the expected nonce manage_data", ErrChallengeInvalid)
	}
	clientAccount := nonceOp.SourceAccount
	if clientAccount == "" {
		return "", "", fmt.Errorf("%w: nonce operation missing client source account", ErrChallengeInvalid)
	}

	domainOp, ok := ops[1].(*txnbuild.ManageData)
	if !ok || domainOp.Name != webAuthDomainOpName || !bytes.Equal(domainOp.Value, []byte(a.cfg.Domain)) {
		return "", "", fmt.Errorf("%w: web_auth_domain operation missing or mismatched", ErrChallengeInvalid)
	}

	now := time.Now().UTC()
	tb := tx.Timebounds()
	if now.Unix() < tb.MinTime || now.Unix() > tb.MaxTime {
		return "", "", fmt.Errorf("%w: challenge timebounds expired", ErrChallengeInvalid)
	}

	if err := a.verifySignatures(ctx, tx, clientAccount); err != nil {
		return "", "", err
	}

	nonce := string(nonceOp.Value)
	consumed, err := a.cfg.NonceStore.Consume(ctx, nonce)
	if err != nil {
		return "", "", fmt.Errorf("consuming nonce: %w", err)
	}
	if !consumed {
		return "", "", fmt.Errorf("%w: nonce missing, expired, or already consumed", ErrNonceInvalid)
	}

	signed, err := a.cfg.JWT.Issue(a.cfg.Domain, clientAccount)
	if err != nil {
		return "", "", fmt.Errorf("issuing bearer token: %w", err)
	}
	return signed, clientAccount, nil
}

// verifySignatures checks that the envelope carries the operator's
// signature plus client signatures whose summed weight reaches the
// account's medium threshold (§4.2 step 3). An unknown account (Horizon
// 404) falls back to a master-key-only signer set with threshold 0.
func (a *AuthIssuer) verifySignatures(ctx context.Context, tx *txnbuild.Transaction, clientAccount string) error {
	hash, err := tx.Hash(a.cfg.NetworkPassphrase)
	if err != nil {
		return fmt.Errorf("%w: hashing transaction", ErrChallengeInvalid)
	}

	sigs := tx.Signatures()
	if len(sigs) == 0 {
		return fmt.Errorf("%w: challenge is unsigned", ErrChallengeInvalid)
	}

	serverKP, err := keypair.ParseAddress(a.cfg.SigningKey.Address())
	if err != nil {
		return fmt.Errorf("%w: invalid operator signing key", ErrChallengeInvalid)
	}

	type weightedSigner struct {
		kp     keypair.KP
		weight int32
	}

	signers := []weightedSigner{}
	threshold := int32(0)

	account, err := a.fetchAccount(ctx, clientAccount)
	if err != nil {
		var hErr *horizonclient.Error
		if errors.As(err, &hErr) && hErr.Problem.Status == 404 {
			kp, parseErr := keypair.ParseAddress(clientAccount)
			if parseErr != nil {
				return fmt.Errorf("%w: invalid client account address", ErrChallengeInvalid)
			}
			signers = append(signers, weightedSigner{kp: kp, weight: 1})
			threshold = 0
		} else {
			return fmt.Errorf("%w: signer lookup failed: %v", ErrChallengeInvalid, err)
		}
	} else {
		threshold = account.Thresholds.MedThreshold
		for _, s := range account.Signers {
			kp, parseErr := keypair.ParseAddress(s.Key)
			if parseErr != nil {
				continue
			}
			signers = append(signers, weightedSigner{kp: kp, weight: s.Weight})
		}
	}

	serverSigned := false
	var totalWeight int32
	usedHints := map[[4]byte]bool{}

	for _, sig := range sigs {
		var hint [4]byte
		copy(hint[:], sig.Hint[:])
		if usedHints[hint] {
			return fmt.Errorf("%w: duplicate signature", ErrChallengeInvalid)
		}
		usedHints[hint] = true

		if serverKP.Verify(hash[:], sig.Signature) == nil {
			serverSigned = true
			continue
		}

		matched := false
		for _, signer := range signers {
			if signer.kp.Verify(hash[:], sig.Signature) == nil {
				totalWeight += signer.weight
				matched = true
				break
			}
		}
		if !matched {
			return fmt.Errorf("%w: unrecognized signature", ErrChallengeInvalid)
		}
	}

	if !serverSigned {
		return fmt.Errorf("%w: missing operator signature", ErrChallengeInvalid)
	}
	if totalWeight < threshold || (threshold == 0 && totalWeight == 0) {
		return fmt.Errorf("%w: signature weight %d below threshold %d", ErrSignatureInsufficient, totalWeight, threshold)
	}
	return nil
}

// fetchAccount wraps the Horizon lookup in a bounded, cancellable retry so
// a slow or flapping Horizon cannot stall verification indefinitely (§5
// "Timeouts").
func (a *AuthIssuer) fetchAccount(ctx context.Context, accountID string) (*horizon.Account, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, horizonLookupTimeout)
	defer cancel()

	var account horizon.Account
	err := retry.Do(
		func() error {
			acc, err := a.cfg.HorizonClient.AccountDetail(horizonclient.AccountRequest{AccountID: accountID})
			if err != nil {
				var hErr *horizonclient.Error
				if errors.As(err, &hErr) && hErr.Problem.Status == 404 {
					return retry.Unrecoverable(err)
				}
				return err
			}
			account = acc
			return nil
		},
		retry.Context(lookupCtx),
		retry.Attempts(horizonLookupRetries),
		retry.DelayType(retry.BackOffDelay),
	)
	if err != nil {
		return nil, err
	}
	return &account, nil
}
