// Package settlement runs the daily settlement batch: a fixed sequence of idempotent steps
// over market metadata and the ledger, tolerant to the failure of any single step.
package settlement

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"gitlab.com/kuberbook/settlement_api/config"
	"gitlab.com/kuberbook/settlement_api/lib/daylock"
	"gitlab.com/kuberbook/settlement_api/model"
	"gitlab.com/kuberbook/settlement_api/monitor"
	"gitlab.com/kuberbook/settlement_api/queries"
)

// Clock is the time source of the scheduler
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// Aggregator produces and stores the ledger snapshots of a day
type Aggregator interface {
	ComputeGlobalSnapshot(ctx context.Context, day time.Time) (*model.GlobalSnapshot, error)
	ComputeAccountSnapshots(ctx context.Context, day time.Time) ([]model.AccountSnapshot, error)
}

// Options control timezone and retries
type Options struct {
	Location    *time.Location
	Attempts    int
	RetryDelay  time.Duration
	CallTimeout time.Duration
	// DailyResetCategories are the market categories whose numbers are cleared every day
	DailyResetCategories []string
}

// OptionsFromConfig reads the settlement section
func OptionsFromConfig(cfg config.SettlementConfig) (Options, error) {
	loc, err := cfg.Location()
	if err != nil {
		return Options{}, err
	}
	return Options{
		Location:             loc,
		Attempts:             cfg.Attempts,
		RetryDelay:           cfg.RetryDelay,
		CallTimeout:          cfg.CallTimeout,
		DailyResetCategories: cfg.DailyResetCategories,
	}, nil
}

// Scheduler executes settlement runs
type Scheduler struct {
	clock   Clock
	markets queries.MarketStore
	runs    queries.RunStore
	ledger  Aggregator
	locker  daylock.Locker
	opts    Options
	resets  map[string]bool
}

// New creates a scheduler with the given ports
func New(clock Clock, markets queries.MarketStore, runs queries.RunStore, ledger Aggregator, locker daylock.Locker, opts Options) *Scheduler {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}
	resets := make(map[string]bool, len(opts.DailyResetCategories))
	for _, category := range opts.DailyResetCategories {
		resets[category] = true
	}
	return &Scheduler{
		clock:   clock,
		markets: markets,
		runs:    runs,
		ledger:  ledger,
		locker:  locker,
		opts:    opts,
		resets:  resets,
	}
}

// Today is the current calendar day in the settlement timezone
func (s *Scheduler) Today() time.Time {
	return s.startOfDay(s.clock.Now())
}

func (s *Scheduler) startOfDay(t time.Time) time.Time {
	t = t.In(s.opts.Location)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.opts.Location)
}

func (s *Scheduler) dayKey(day time.Time) string {
	return day.In(s.opts.Location).Format(model.DayFormat)
}

// ParseDay reads a YYYY-MM-DD day in the settlement timezone
func (s *Scheduler) ParseDay(day string) (time.Time, error) {
	t, err := time.ParseInLocation(model.DayFormat, day, s.opts.Location)
	if err != nil {
		return time.Time{}, model.NewValidationError("day must be formatted as YYYY-MM-DD", "day")
	}
	return t, nil
}

// RunToday runs the batch of the current day, used by the cron trigger
func (s *Scheduler) RunToday(ctx context.Context) {
	if _, err := s.Run(ctx, s.Today()); err != nil {
		log.Error().Err(err).Str("section", "settlement").Str("method", "RunToday").Msg("Settlement run not executed")
	}
}

// Run executes every step for day in order. Steps 4 and 5 settle the day before.
// A failed step is recorded and the run moves on; only the lock or a cancelled context stop it.
func (s *Scheduler) Run(ctx context.Context, day time.Time) (*model.SettlementRunView, error) {
	day = s.startOfDay(day)
	dayKey := s.dayKey(day)
	logger := log.With().Str("section", "settlement").Str("method", "Run").Str("day", dayKey).Logger()

	release, err := s.locker.Acquire(ctx, dayKey)
	if err != nil {
		logger.Warn().Err(err).Msg("Unable to acquire day lock")
		return nil, err
	}
	defer release()

	started := s.clock.Now()
	run := model.NewSettlementRun(dayKey, started)
	s.saveRun(ctx, run)
	run.State = model.RunStateRunning
	s.saveRun(ctx, run)
	logger.Info().Msg("Settlement run started")

	outcomes := make([]model.StepOutcome, 0, len(model.Steps))
	for _, step := range model.Steps {
		outcomes = append(outcomes, s.runStep(ctx, step, day))
	}

	run.State = model.RunStateCompleted
	for _, outcome := range outcomes {
		if !outcome.Succeeded() {
			run.State = model.RunStatePartialFailure
		}
	}
	finished := s.clock.Now()
	run.FinishedAt = &finished
	if err := run.SetOutcomes(outcomes); err != nil {
		logger.Error().Err(err).Msg("Unable to encode step outcomes")
	}
	s.saveRun(ctx, run)

	monitor.SettlementRunDuration.WithLabelValues(run.State.String()).Set(finished.Sub(started).Seconds())
	logger.Info().
		Str("state", run.State.String()).
		Strs("failed_steps", run.FailedSteps).
		Dur("duration", finished.Sub(started)).
		Msg("Settlement run finished")
	return &model.SettlementRunView{SettlementRun: run, Steps: outcomes}, nil
}

func (s *Scheduler) saveRun(ctx context.Context, run *model.SettlementRun) {
	if err := s.runs.SaveRun(ctx, run); err != nil {
		log.Error().Err(err).Str("section", "settlement").Str("day", run.Day).Str("state", run.State.String()).Msg("Unable to save settlement run")
	}
}

// GetRun returns the stored run of a day with its decoded step outcomes
func (s *Scheduler) GetRun(ctx context.Context, day string) (*model.SettlementRunView, error) {
	run, err := s.runs.GetRun(ctx, day)
	if err != nil {
		return nil, err
	}
	outcomes, err := run.GetOutcomes()
	if err != nil {
		return nil, model.NewInternalError(err, "unable to decode step outcomes")
	}
	return &model.SettlementRunView{SettlementRun: run, Steps: outcomes}, nil
}

// Backfill runs every day from..to inclusive, strictly in calendar order
func (s *Scheduler) Backfill(ctx context.Context, from, to time.Time) ([]*model.SettlementRunView, error) {
	from, to = s.startOfDay(from), s.startOfDay(to)
	if to.Before(from) {
		return nil, model.NewValidationError("from must not be after to", "from", "to")
	}
	views := []*model.SettlementRunView{}
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return views, err
		}
		view, err := s.Run(ctx, day)
		if err != nil {
			return views, err
		}
		views = append(views, view)
	}
	return views, nil
}
