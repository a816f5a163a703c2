package main

import (
	"github.com/sirupsen/logrus"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/stellar-anchor-service/anchor/cmd"
)

// Version is the official version of this application. Whenever it's
// changed here, it also needs to be updated wherever release artifacts are
// tagged.
const Version = "0.1.0"

// GitCommit is populated at build time by
// go build -ldflags "-X main.GitCommit=$GIT_COMMIT"
var GitCommit string

func main() {
	log.DefaultLogger = log.New()
	log.DefaultLogger.SetLevel(logrus.InfoLevel)

	rootCmd := cmd.SetupCLI(Version, GitCommit)
	if err := rootCmd.Execute(); err != nil {
		log.Ctx(rootCmd.Context()).Fatalf("error executing: %s", err.Error())
	}
}
