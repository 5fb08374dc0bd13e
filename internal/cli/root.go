package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openbotauth/openbotauth-go/internal/version"
)

var rootCmd = &cobra.Command{
	Use:               "botauth",
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	Short:             "OpenBotAuth client CLI",
	Long:              `Client CLI for the OpenBotAuth verifier service - describe a signed request and check whether it verifies`,
}

func Execute() {
	v := version.Get()
	rootCmd.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
