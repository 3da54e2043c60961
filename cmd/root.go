package cmd

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gitlab.com/kuberbook/settlement_api/config"
	"gitlab.com/kuberbook/settlement_api/logger"
)

var (
	// LogLevel flag, LOG_LEVEL in the environment
	LogLevel = "info"
	// LogFormat flag, LOG_FORMAT in the environment
	LogFormat = "json"
	cfgFile   string
)

var rootCmd = &cobra.Command{
	Use:   "settlement_api",
	Short: "Party hierarchy and daily settlement engine",
	Long: `Maintains the reseller hierarchy, its rate contracts and wallets, and reduces the
transaction and wager logs into daily account and global settlement snapshots.`,
}

func init() {
	// set log level
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	initLoggingEnv()
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./.config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&LogLevel, "log-level", "", LogLevel, "logging level to show (options: debug|info|warn|error|fatal|panic, default: info)")
	rootCmd.PersistentFlags().StringVarP(&LogFormat, "log-format", "", LogFormat, "log format to generate (Options: json|pretty, default: json)")
}

func initConfig() {
	config.OpenConfig(cfgFile)
	logger.Setup(LogFormat, LogLevel)
}

func initLoggingEnv() {
	if v, ok := os.LookupEnv("LOG_LEVEL"); ok && v != "" {
		LogLevel = v
	}
	if v, ok := os.LookupEnv("LOG_FORMAT"); ok && v != "" {
		LogFormat = v
	}
}

// Execute the commands
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("Command failed")
	}
}
