package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/classhub/trustgate/internal/buildinfo"
	"github.com/classhub/trustgate/internal/logging"
)

// global flags
var (
	userConfig string
	f          = NewFactory()
)

const (
	ServerAddrKey  = "addr"
	ConfigPathKey  = "config"
	TokenSecretKey = "token_secret"
	TokenKey       = "token"

	EnvPrefix = "TRUSTGATE"
)

var rootCmd = &cobra.Command{
	Use:   "trustgate",
	Short: "Access token issuer and edge gateway",
	Long: `trustgate issues and verifies the access tokens of the platform.
It runs the token issuer service, the edge gateway in front of downstream
services, and offers client commands for sessions, roles and audits.`,
	Version: buildinfo.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		envFiles, envErr := loadDotEnv()
		configPath, configErr := initConfig()
		logging.Init(nil)
		if envErr != nil {
			return envErr
		}
		if configErr != nil { // handle error after logging is initialized
			return configErr
		}
		for _, file := range envFiles {
			log.Debug().Msgf("loaded environment from %s", file)
		}
		if configPath != "" {
			log.Debug().Msgf("using user config file: %s", configPath)
		}
		return nil
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		var quiet BeQuietError
		if !errors.As(err, &quiet) {
			log.Error().Err(err).Msg("execution failed")
		}
		os.Exit(1)
	}
}

func init() {
	// setup pre-flag logger
	logging.InitDefault()

	rootCmd.PersistentFlags().StringVar(&userConfig, "user-config", "",
		"User configuration file for default values (default is $HOME/.trustgate.yaml)")

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	_ = viper.BindPFlag(logging.LevelKey, rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.PersistentFlags().String("log-format", logging.FormatConsole, "Log format (console, json)")
	_ = viper.BindPFlag(logging.FormatKey, rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.PersistentFlags().Bool("no-color", false, "Disable color output")
	_ = viper.BindPFlag(logging.NoColorKey, rootCmd.PersistentFlags().Lookup("no-color"))

	rootCmd.PersistentFlags().StringVar(&f.RemoteAddr, "server", "", "Address of the remote trustgate server")
	_ = viper.BindPFlag(ServerAddrKey, rootCmd.PersistentFlags().Lookup("server"))

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))

	viper.AutomaticEnv()

	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
}

// loadDotEnv reads .env from the working directory if it exists.
// Variables already set in the environment win.
func loadDotEnv() ([]string, error) {
	const file = ".env"
	if _, err := os.Stat(file); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err := godotenv.Load(file); err != nil {
		return nil, fmt.Errorf("loading %s: %w", file, err)
	}
	return []string{file}, nil
}

func initConfig() (string, error) {
	// reads in config file and ENV variables if set.
	if userConfig != "" {
		viper.SetConfigFile(userConfig)
	} else {
		// search order: current dir, $HOME, XDG config
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}

		config, err := os.UserConfigDir()
		if err == nil {
			viper.AddConfigPath(config + "/trustgate")
		}

		viper.SetConfigType("yaml")
		viper.SetConfigName(".trustgate")
	}

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		var notFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &notFoundError) {
			return "", err
		}
	} else {
		return viper.ConfigFileUsed(), nil
	}

	return "", nil
}
