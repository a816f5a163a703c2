package cmd

import (
	"go/types"

	"github.com/spf13/cobra"
	"github.com/stellar/go-stellar-sdk/support/config"
	"github.com/stellar/go-stellar-sdk/support/log"

	cmdUtils "github.com/stellar-anchor-service/anchor/cmd/utils"
	"github.com/stellar-anchor-service/anchor/internal/anchor"
	"github.com/stellar-anchor-service/anchor/internal/data"
	"github.com/stellar-anchor-service/anchor/internal/monitor"
	"github.com/stellar-anchor-service/anchor/internal/serve"
)

type ServeCommand struct{}

type ServerServiceInterface interface {
	StartServe(opts serve.ServeOptions, httpServer serve.HTTPServerInterface)
	StartMetricsServe(opts serve.MetricsServeOptions, httpServer serve.HTTPServerInterface)
}

type ServerService struct{}

var _ ServerServiceInterface = (*ServerService)(nil)

func (s *ServerService) StartServe(opts serve.ServeOptions, httpServer serve.HTTPServerInterface) {
	if err := serve.Serve(opts, httpServer); err != nil {
		log.Fatalf("Error starting server: %s", err.Error())
	}
}

func (s *ServerService) StartMetricsServe(opts serve.MetricsServeOptions, httpServer serve.HTTPServerInterface) {
	if err := serve.MetricsServe(opts, httpServer); err != nil {
		log.Fatalf("Error starting metrics server: %s", err.Error())
	}
}

// documentationOptions collects the optional §4.1 [DOCUMENTATION] fields
// from flags before they are assembled into an anchor.DocumentationBlock.
type documentationOptions struct {
	orgName            string
	orgURL             string
	orgDescription     string
	orgLogo            string
	orgPhysicalAddress string
	orgOfficialEmail   string
	orgSupportEmail    string
}

func (c *ServeCommand) Command(serverService ServerServiceInterface, monitorService monitor.MonitorServiceInterface) *cobra.Command {
	serveOpts := serve.ServeOptions{}
	metricsServeOpts := serve.MetricsServeOptions{}
	docOpts := documentationOptions{}

	configOpts := config.ConfigOptions{
		{
			Name:        "port",
			Usage:       "Port where the server will be listening on",
			OptType:     types.Int,
			ConfigKey:   &serveOpts.Port,
			FlagDefault: 8000,
			Required:    true,
		},
		{
			Name:      "domain",
			Usage:     `The domain this anchor is hosted on. Example: "anchor.example.com".`,
			OptType:   types.String,
			ConfigKey: &serveOpts.Domain,
			Required:  true,
		},
		{
			Name:           "network",
			Usage:          "The Stellar network this anchor operates on. Options: public, testnet, futurenet, standalone, mainnet.",
			OptType:        types.String,
			FlagDefault:    "testnet",
			CustomSetValue: cmdUtils.SetConfigOptionNetworkType,
			ConfigKey:      &serveOpts.NetworkPassphrase,
			Required:       true,
		},
		{
			Name:        "horizon-url",
			Usage:       "The Horizon instance used to validate client signatures and resolve accounts.",
			OptType:     types.String,
			FlagDefault: "https://horizon-testnet.stellar.org",
			ConfigKey:   &serveOpts.HorizonURL,
			Required:    true,
		},
		{
			Name:           "secret-key",
			Usage:          "The secret key of the Stellar account that signs SEP-10 challenges and stellar.toml SIGNING_KEY.",
			OptType:        types.String,
			CustomSetValue: cmdUtils.SetConfigOptionStellarSecretKey,
			ConfigKey:      &serveOpts.SigningKey,
			Required:       true,
		},
		{
			Name:           "jwt-secret",
			Usage:          "The secret used to sign bearer tokens issued after SEP-10 verification. Must be at least 32 octets.",
			OptType:        types.String,
			CustomSetValue: cmdUtils.SetConfigOptionJWTSecret,
			ConfigKey:      &serveOpts.JWTSecret,
			Required:       true,
		},
		{
			Name:           "cors-allowed-origins",
			Usage:          `CORS origins allowed to access the endpoints, separated by ","`,
			OptType:        types.String,
			CustomSetValue: cmdUtils.SetCorsAllowedOrigins,
			ConfigKey:      &serveOpts.CorsAllowedOrigins,
			Required:       true,
		},
		{
			Name:      "interactive-base-url",
			Usage:     "The operator-hosted URL the /interactive redirect forwards wallets to.",
			OptType:   types.String,
			ConfigKey: &serveOpts.InteractiveBaseURL,
			Required:  true,
		},
		{
			Name:           "assets-config-path",
			Usage:          "Path to a JSON file describing the supported asset set.",
			OptType:        types.String,
			CustomSetValue: cmdUtils.SetConfigOptionAssetsFile,
			ConfigKey:      &serveOpts.Assets,
			Required:       true,
		},
		{
			Name:      "org-name",
			Usage:     "Organization name published in the SEP-1 [DOCUMENTATION] table.",
			OptType:   types.String,
			ConfigKey: &docOpts.orgName,
			Required:  false,
		},
		{
			Name:      "org-url",
			Usage:     "Organization URL published in the SEP-1 [DOCUMENTATION] table.",
			OptType:   types.String,
			ConfigKey: &docOpts.orgURL,
			Required:  false,
		},
		{
			Name:      "org-description",
			Usage:     "Organization description published in the SEP-1 [DOCUMENTATION] table.",
			OptType:   types.String,
			ConfigKey: &docOpts.orgDescription,
			Required:  false,
		},
		{
			Name:      "org-logo",
			Usage:     "Organization logo URL published in the SEP-1 [DOCUMENTATION] table.",
			OptType:   types.String,
			ConfigKey: &docOpts.orgLogo,
			Required:  false,
		},
		{
			Name:      "org-physical-address",
			Usage:     "Organization physical address published in the SEP-1 [DOCUMENTATION] table.",
			OptType:   types.String,
			ConfigKey: &docOpts.orgPhysicalAddress,
			Required:  false,
		},
		{
			Name:      "org-official-email",
			Usage:     "Organization official email published in the SEP-1 [DOCUMENTATION] table.",
			OptType:   types.String,
			ConfigKey: &docOpts.orgOfficialEmail,
			Required:  false,
		},
		{
			Name:      "org-support-email",
			Usage:     "Organization support email published in the SEP-1 [DOCUMENTATION] table.",
			OptType:   types.String,
			ConfigKey: &docOpts.orgSupportEmail,
			Required:  false,
		},
		{
			Name:           "metrics-type",
			Usage:          `Metric monitor type. Options: "PROMETHEUS"`,
			OptType:        types.String,
			CustomSetValue: cmdUtils.SetConfigOptionMetricType,
			ConfigKey:      &metricsServeOpts.MetricType,
			FlagDefault:    "PROMETHEUS",
			Required:       true,
		},
		{
			Name:        "metrics-port",
			Usage:       "Port where the metrics server will be listening on",
			OptType:     types.Int,
			ConfigKey:   &metricsServeOpts.Port,
			FlagDefault: 8002,
			Required:    true,
		},
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the Stellar Anchor API",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.Parent().PersistentPreRun(cmd.Parent(), args)

			configOpts.Require()
			if err := configOpts.SetValues(); err != nil {
				log.Fatalf("Error setting values of config options: %s", err.Error())
			}

			metricOptions := monitor.MetricOptions{MetricType: metricsServeOpts.MetricType}
			if err := monitorService.Start(metricOptions); err != nil {
				log.Fatalf("Error creating monitor service: %s", err.Error())
			}

			serveOpts.Environment = globalOptions.environment
			serveOpts.GitCommit = globalOptions.gitCommit
			serveOpts.Version = globalOptions.version
			serveOpts.MonitorService = monitorService
			serveOpts.Events = defaultEventLogger()

			if docOpts.orgName != "" {
				serveOpts.Documentation = &anchor.DocumentationBlock{
					OrgName:            docOpts.orgName,
					OrgURL:             docOpts.orgURL,
					OrgDescription:     docOpts.orgDescription,
					OrgLogo:            docOpts.orgLogo,
					OrgPhysicalAddress: docOpts.orgPhysicalAddress,
					OrgOfficialEmail:   docOpts.orgOfficialEmail,
					OrgSupportEmail:    docOpts.orgSupportEmail,
				}
			}

			metricsServeOpts.MonitorService = monitorService
		},
		Run: func(cmd *cobra.Command, args []string) {
			log.Info("Starting Metrics Server...")
			go serverService.StartMetricsServe(metricsServeOpts, &serve.HTTPServer{})

			log.Info("Starting Application Server...")
			serverService.StartServe(serveOpts, &serve.HTTPServer{})
		},
	}

	if err := configOpts.Init(cmd); err != nil {
		log.Fatalf("Error initializing a config option: %s", err.Error())
	}

	return cmd
}

// defaultEventLogger wires a log-only subscriber onto every §4.6 lifecycle
// event, so an operator running without a custom Hooks/Events setup still
// gets a structured record of deposits, withdrawals, and status transitions.
func defaultEventLogger() *anchor.HookRegistry {
	registry := anchor.NewHookRegistry()

	logTransfer := func(event anchor.LifecycleEvent) func(t data.Transfer) {
		return func(t data.Transfer) {
			log.Infof("transfer lifecycle event=%s transfer=%s kind=%s status=%s asset_code=%s",
				event, t.ID, t.Kind, t.Status, t.AssetCode)
		}
	}

	for _, event := range []anchor.LifecycleEvent{
		anchor.EventDepositInitiated,
		anchor.EventWithdrawalInitiated,
		anchor.EventInteractiveCompleted,
		anchor.EventTransferStatusChanged,
	} {
		registry.On(event, logTransfer(event))
	}

	return registry
}
