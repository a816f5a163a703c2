package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stellar/go-stellar-sdk/keypair"
	"github.com/stellar/go-stellar-sdk/strkey"
	"github.com/stellar/go-stellar-sdk/support/config"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/stellar-anchor-service/anchor/internal/data"
	"github.com/stellar-anchor-service/anchor/internal/monitor"
	"github.com/stellar-anchor-service/anchor/internal/utils"
)

// SetConfigOptionLogLevel parses the --log-level flag into a logrus.Level.
func SetConfigOptionLogLevel(co *config.ConfigOption) error {
	logLevelStr := viper.GetString(co.Name)
	logLevel, err := logrus.ParseLevel(logLevelStr)
	if err != nil {
		return fmt.Errorf("couldn't parse log level: %w", err)
	}

	key, ok := co.ConfigKey.(*logrus.Level)
	if !ok {
		return fmt.Errorf("configKey has an invalid type %T", co.ConfigKey)
	}
	*key = logLevel
	log.DefaultLogger.SetLevel(*key)
	return nil
}

// SetConfigOptionNetworkType parses the --network flag into the resolved
// network passphrase, per §6.3's `{public, testnet, futurenet, standalone,
// mainnet}` alias set (`public`/`mainnet` both select the production
// passphrase).
func SetConfigOptionNetworkType(co *config.ConfigOption) error {
	name := viper.GetString(co.Name)
	passphrase, err := utils.ResolveNetworkPassphrase(name)
	if err != nil {
		return err
	}
	*(co.ConfigKey.(*string)) = passphrase
	return nil
}

// SetConfigOptionStellarSecretKey validates --secret-key as a well-formed
// Stellar secret seed (§6.3 "secret_key (valid Stellar secret)").
func SetConfigOptionStellarSecretKey(co *config.ConfigOption) error {
	secret := viper.GetString(co.Name)
	if !strkey.IsValidEd25519SecretSeed(secret) {
		return fmt.Errorf("invalid Stellar secret key")
	}
	kp, err := keypair.ParseFull(secret)
	if err != nil {
		return fmt.Errorf("parsing secret key: %w", err)
	}
	*(co.ConfigKey.(**keypair.Full)) = kp
	return nil
}

// SetConfigOptionJWTSecret enforces the §3 "at least 32 octets" bound on the
// bearer-token signing secret (tested by §8's 31-vs-32-octet boundary).
func SetConfigOptionJWTSecret(co *config.ConfigOption) error {
	secret := viper.GetString(co.Name)
	if len(secret) < 32 {
		return fmt.Errorf("jwt secret must be at least 32 octets, got %d", len(secret))
	}
	*(co.ConfigKey.(*string)) = secret
	return nil
}

// SetCorsAllowedOrigins splits a comma-separated list of allowed origins.
func SetCorsAllowedOrigins(co *config.ConfigOption) error {
	raw := viper.GetString(co.Name)
	if raw == "" {
		return fmt.Errorf("cors allowed origins cannot be empty")
	}

	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	*(co.ConfigKey.(*[]string)) = origins
	return nil
}

// SetConfigOptionMetricType parses the --metrics-type flag.
func SetConfigOptionMetricType(co *config.ConfigOption) error {
	metricType := viper.GetString(co.Name)
	parsed, err := monitor.ParseMetricType(metricType)
	if err != nil {
		return fmt.Errorf("couldn't parse metric type: %w", err)
	}
	*(co.ConfigKey.(*monitor.MetricType)) = parsed
	return nil
}

// SetConfigOptionAssetsFile loads the §6.3 "assets map, non-empty" from a
// JSON file path into an AssetSet.
func SetConfigOptionAssetsFile(co *config.ConfigOption) error {
	path := viper.GetString(co.Name)
	if path == "" {
		return fmt.Errorf("assets config file path cannot be empty")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading assets config file: %w", err)
	}

	var assets []data.Asset
	if err := json.Unmarshal(raw, &assets); err != nil {
		return fmt.Errorf("parsing assets config file: %w", err)
	}
	if len(assets) == 0 {
		return fmt.Errorf("assets config file must declare at least one asset")
	}

	*(co.ConfigKey.(*data.AssetSet)) = data.NewAssetSet(assets)
	return nil
}
