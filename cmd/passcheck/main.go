// Passcheck - password hygiene evaluator
//
// Usage:
//
//	passcheck serve [--config passcheck.yaml] [--address :5000]
//	passcheck version
//
// Configuration is read from defaults, passcheck.yaml, PASSCHECK_*
// environment variables and flags, in that order.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

var version = "dev" // set by the linker

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// Cobra has already printed the error.
		os.Exit(1)
	}
}

// newRootCmd builds a fresh command tree so tests can run it in isolation.
func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "passcheck",
		Short: "Passcheck scores password hygiene over HTTP.",
		Long: `Passcheck runs a fixed battery of checks against a password and
returns a 0-100 risk score, a strength band and remediation advice.

Passwords are never logged or stored.`,
		SilenceUsage:  true,
		SilenceErrors: false,
		Version:       version,
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is passcheck.yaml in the user config dir, /etc/passcheck or .)")

	cmd.AddCommand(newServeCmd(&cfgFile))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "passcheck %s (%s, %s/%s)\n", version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
