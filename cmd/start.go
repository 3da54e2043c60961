package cmd

import (
	"github.com/rs/zerolog/log"

	"gitlab.com/kuberbook/settlement_api/cmd/commands"
	"gitlab.com/kuberbook/settlement_api/config"
	"gitlab.com/kuberbook/settlement_api/server"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(startCmd)
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the api and the daily settlement schedule",
	Long:  `Run the pending migrations, serve the hierarchy api and trigger the settlement batch on the configured crons`,
	Run: func(cmd *cobra.Command, args []string) {
		// load server configuration from server
		log.Debug().Msg("Loading server configuration")
		if viper.ConfigFileUsed() != "" {
			log.Debug().Str("section", "init").Str("path", viper.ConfigFileUsed()).Msg("Configuration file loaded")
		}
		cfg := config.LoadConfig(viper.GetViper())
		// Running migrations
		log.Debug().Msg("Running migrations")
		commands.Migrate(cfg)

		// start a new server
		log.Debug().Str("section", "init").Msg("Starting new server instance")
		srv := server.NewServer(cfg)
		// listen for new messages
		log.Info().Str("section", "init").Msg("Listening for incoming requests")
		srv.Listen()
	},
}
