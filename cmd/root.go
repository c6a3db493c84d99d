package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	auditcmd "github.com/cfornesa/ethics-risk-audit-assistant/cmd/audit"
	"github.com/cfornesa/ethics-risk-audit-assistant/cmd/serve"
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/conf"
)

// RootCommand creates and returns the root command.
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ethicsaudit",
		Short: "Ethics and risk audit assistant",
		Long: "Audits content items against a fixed ethics rubric using an LLM, " +
			"flags high-risk results for human review, and serves the results " +
			"over a JSON API.",
	}

	setupFlags(rootCmd, settings)

	rootCmd.AddCommand(
		serve.Command(settings),
		auditcmd.Command(settings),
	)

	return rootCmd
}

// setupFlags configures the global flags for the root command.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		cobra.CheckErr(err)
	}
}
