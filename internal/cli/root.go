// Package cli implements the kafkautomation command tree.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// Execute runs the root command; errors exit non-zero after cobra has
// printed them.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "kafkautomation",
		Short:        "Governed Kafka resource provisioning from per-domain declarations",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to kafkautomation.toml (default: XDG config dirs)")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	cmd.AddCommand(
		aggregateCmd(opts),
		validateCmd(opts),
		planCmd(opts),
		applyCmd(opts),
		emitCmd(),
		lockCmd(opts),
	)
	return cmd
}

func envFlag(c *cobra.Command, env *string) {
	c.Flags().StringVarP(env, "env", "e", "", "target environment (required)")
	_ = c.MarkFlagRequired("env")
}
