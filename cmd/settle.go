package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/encoding/json"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gitlab.com/kuberbook/settlement_api/config"
	"gitlab.com/kuberbook/settlement_api/model"
	"gitlab.com/kuberbook/settlement_api/server"
)

var (
	settleDay  string
	settleStep string
	fromDay    string
	toDay      string
)

func init() {
	settleCmd.Flags().StringVar(&settleDay, "day", "", "day to settle as YYYY-MM-DD (default: today in the settlement timezone)")
	settleCmd.Flags().StringVar(&settleStep, "step", "", "run a single step: timing_reset|guess_clear|result_clear|global_snapshot|account_snapshots|display_sync")
	backfillCmd.Flags().StringVar(&fromDay, "from", "", "first day to settle as YYYY-MM-DD")
	backfillCmd.Flags().StringVar(&toDay, "to", "", "last day to settle as YYYY-MM-DD")
	_ = backfillCmd.MarkFlagRequired("from")
	_ = backfillCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(settleCmd)
	rootCmd.AddCommand(backfillCmd)
}

var settleCmd = &cobra.Command{
	Use:   "settle",
	Short: "Run the settlement batch of one day, or one of its steps",
	Run: func(cmd *cobra.Command, args []string) {
		app := bootstrap()
		defer app.Close()
		ctx, cancel := signalContext()
		defer cancel()

		day := app.Scheduler.Today()
		if settleDay != "" {
			var err error
			if day, err = app.Scheduler.ParseDay(settleDay); err != nil {
				log.Fatal().Err(err).Str("section", "settle").Msg("Invalid day")
			}
		}

		if settleStep != "" {
			step := model.StepName(settleStep)
			if !step.IsValid() {
				log.Fatal().Str("section", "settle").Str("step", settleStep).Msg("Unknown settlement step")
			}
			outcome, err := app.Scheduler.RunStep(ctx, step, day)
			if err != nil {
				log.Error().Err(err).Str("section", "settle").Str("step", settleStep).Msg("Settlement step not executed")
				exit(app, 1)
			}
			printJSON(outcome)
			if !outcome.Succeeded() {
				exit(app, 1)
			}
			return
		}

		run, err := app.Scheduler.Run(ctx, day)
		if err != nil {
			log.Fatal().Err(err).Str("section", "settle").Msg("Settlement run not executed")
		}
		printJSON(run)
		if run.State != model.RunStateCompleted {
			exit(app, 1)
		}
	},
}

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Settle every day of a range in calendar order",
	Run: func(cmd *cobra.Command, args []string) {
		app := bootstrap()
		defer app.Close()
		ctx, cancel := signalContext()
		defer cancel()

		from, err := app.Scheduler.ParseDay(fromDay)
		if err != nil {
			log.Fatal().Err(err).Str("section", "backfill").Msg("Invalid from day")
		}
		to, err := app.Scheduler.ParseDay(toDay)
		if err != nil {
			log.Fatal().Err(err).Str("section", "backfill").Msg("Invalid to day")
		}

		started := time.Now()
		runs, err := app.Scheduler.Backfill(ctx, from, to)
		printJSON(runs)
		if err != nil {
			log.Fatal().Err(err).Str("section", "backfill").Int("settled", len(runs)).Msg("Backfill stopped")
		}
		failed := 0
		for _, run := range runs {
			if run.State != model.RunStateCompleted {
				failed++
			}
		}
		log.Info().Str("section", "backfill").Int("days", len(runs)).Int("partial_failures", failed).Dur("took", time.Since(started)).Msg("Backfill finished")
		if failed > 0 {
			exit(app, 1)
		}
	},
}

func bootstrap() *server.App {
	cfg := config.LoadConfig(viper.GetViper())
	if !cfg.SharedDayLock() {
		log.Warn().Str("section", "init").Msg("Day lock is in-process only, a running server is not excluded")
	}
	app, err := server.Bootstrap(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("section", "init").Msg("Unable to init settlement engine")
	}
	return app
}

// signalContext is cancelled on SIGINT or SIGTERM, a running step stops at its next attempt
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// exit closes the app before leaving with code, deferred calls would be skipped
func exit(app *server.App, code int) {
	app.Close()
	os.Exit(code)
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Error().Err(err).Msg("Unable to print result")
	}
}
