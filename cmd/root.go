package cmd

import (
	"go/types"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/stellar/go-stellar-sdk/support/config"
	"github.com/stellar/go-stellar-sdk/support/log"

	cmdUtils "github.com/stellar-anchor-service/anchor/cmd/utils"
	"github.com/stellar-anchor-service/anchor/internal/monitor"
)

// globalOptionsType holds the CLI options shared by every subcommand.
type globalOptionsType struct {
	logLevel    logrus.Level
	environment string
	version     string
	gitCommit   string
}

var globalOptions globalOptionsType

func rootCmd() *cobra.Command {
	configOpts := config.ConfigOptions{
		{
			Name:           "log-level",
			Usage:          `The log level used in this project. Options: "TRACE", "DEBUG", "INFO", "WARN", "ERROR", "FATAL", or "PANIC".`,
			OptType:        types.String,
			FlagDefault:    "INFO",
			ConfigKey:      &globalOptions.logLevel,
			CustomSetValue: cmdUtils.SetConfigOptionLogLevel,
			Required:       true,
		},
		{
			Name:        "environment",
			Usage:       `The environment where the application is running. Example: "development", "staging", "production".`,
			OptType:     types.String,
			FlagDefault: "development",
			ConfigKey:   &globalOptions.environment,
			Required:    true,
		},
	}

	rootCmd := &cobra.Command{
		Use:     "anchor",
		Short:   "Stellar Anchor Service",
		Long:    "A Stellar anchor service implementing SEP-1 discovery, SEP-10 web authentication, SEP-24 hosted transfers, and SEP-6 programmatic transfers.",
		Version: globalOptions.version,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			configOpts.Require()
			if err := configOpts.SetValues(); err != nil {
				log.Fatalf("Error setting values of config options: %s", err.Error())
			}
			log.Info("Version: ", globalOptions.version)
			log.Info("GitCommit: ", globalOptions.gitCommit)
		},
		Run: func(cmd *cobra.Command, args []string) {
			if err := cmd.Help(); err != nil {
				log.Fatalf("Error calling help command: %s", err.Error())
			}
		},
	}

	if err := configOpts.Init(rootCmd); err != nil {
		log.Fatalf("Error initializing a config option: %s", err.Error())
	}

	return rootCmd
}

// SetupCLI sets up the CLI and returns the root command with the subcommands
// attached.
func SetupCLI(version, gitCommit string) *cobra.Command {
	globalOptions.version = version
	globalOptions.gitCommit = gitCommit
	root := rootCmd()

	root.AddCommand((&ServeCommand{}).Command(&ServerService{}, &monitor.MonitorService{}))

	return root
}
