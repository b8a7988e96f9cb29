package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Check a service configuration file before deploying it",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the service configuration file",
	Long: `Loads the configuration file, applies defaults and environment overrides and
checks every section, including the signing secret, route rules and gateway routes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := f.LoadConfig()
		if err != nil {
			log.Error().Err(err).Msg("Configuration is invalid.")
			return BeQuietError{}
		}
		log.Info().
			Str("directory", cfg.Directory.Type).
			Str("revocation", cfg.Revocation.Backend).
			Str("refresh", cfg.Refresh.Backend).
			Int("rules", len(cfg.Authz.Rules)).
			Int("routes", len(cfg.Gateway.Routes)).
			Msg("Configuration is valid.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configValidateCmd)
	f.bindConfigFlag(configValidateCmd.Flags())
}
