package settlement

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"gitlab.com/kuberbook/settlement_api/model"
	"gitlab.com/kuberbook/settlement_api/monitor"
)

type stepFunc func(ctx context.Context, day time.Time) (int64, error)

func (s *Scheduler) stepFunc(step model.StepName) stepFunc {
	switch step {
	case model.StepTimingReset:
		return s.resetTimings
	case model.StepGuessClear:
		return s.clearGuesses
	case model.StepResultClear:
		return s.clearResults
	case model.StepGlobalSnapshot:
		return s.globalSnapshot
	case model.StepAccountSnapshots:
		return s.accountSnapshots
	case model.StepDisplaySync:
		return s.syncDisplay
	}
	return nil
}

// RunStep executes one step for day on its own. It holds the day lock like Run, so it fails with
// daylock.ErrRunInProgress while any other run or step of that day is executing.
func (s *Scheduler) RunStep(ctx context.Context, step model.StepName, day time.Time) (model.StepOutcome, error) {
	day = s.startOfDay(day)
	release, err := s.locker.Acquire(ctx, s.dayKey(day))
	if err != nil {
		log.Warn().Err(err).Str("section", "settlement").Str("step", step.String()).Str("day", s.dayKey(day)).Msg("Unable to acquire day lock")
		return model.StepOutcome{}, err
	}
	defer release()
	return s.runStep(ctx, step, day), nil
}

// runStep executes one step with bounded retries, the caller holds the day lock
func (s *Scheduler) runStep(ctx context.Context, step model.StepName, day time.Time) model.StepOutcome {
	outcome := model.StepOutcome{
		Step:      step,
		Day:       s.dayKey(day),
		StartedAt: s.clock.Now(),
	}
	logger := log.With().Str("section", "settlement").Str("step", step.String()).Str("day", outcome.Day).Logger()

	fn := s.stepFunc(step)
	if fn == nil {
		outcome.Status = model.StepStatusFailed
		outcome.Error = "unknown step"
		outcome.FinishedAt = s.clock.Now()
		return outcome
	}

	var err error
	for attempt := 1; attempt <= s.opts.Attempts; attempt++ {
		outcome.Attempts = attempt
		monitor.SettlementStepAttempts.WithLabelValues(step.String()).Inc()
		outcome.Affected, err = s.attempt(ctx, fn, day)
		if err == nil {
			break
		}
		logger.Warn().Err(err).Int("attempt", attempt).Int("attempts", s.opts.Attempts).Msg("Settlement step attempt failed")
		if attempt < s.opts.Attempts && !s.wait(ctx) {
			break
		}
	}

	outcome.FinishedAt = s.clock.Now()
	if err != nil {
		outcome.Status = model.StepStatusFailed
		outcome.Error = err.Error()
		outcome.Affected = 0
		logger.Error().Err(err).Int("attempts", outcome.Attempts).Msg("Settlement step failed")
	} else {
		outcome.Status = model.StepStatusSucceeded
		logger.Info().Int64("affected", outcome.Affected).Int("attempts", outcome.Attempts).Msg("Settlement step succeeded")
	}
	monitor.SettlementSteps.WithLabelValues(step.String(), string(outcome.Status)).Inc()
	return outcome
}

// attempt bounds a single try of the step by the call timeout
func (s *Scheduler) attempt(ctx context.Context, fn stepFunc, day time.Time) (int64, error) {
	if s.opts.CallTimeout <= 0 {
		return fn(ctx, day)
	}
	callCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
	defer cancel()
	return fn(callCtx, day)
}

// wait sleeps the retry delay, false when ctx ends first
func (s *Scheduler) wait(ctx context.Context) bool {
	if s.opts.RetryDelay <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(s.opts.RetryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// RunTimingReset copies the weekday timing template of day into the markets
func (s *Scheduler) RunTimingReset(ctx context.Context, day time.Time) (model.StepOutcome, error) {
	return s.RunStep(ctx, model.StepTimingReset, day)
}

// RunGuessClear clears best guess numbers left from an earlier cycle
func (s *Scheduler) RunGuessClear(ctx context.Context, day time.Time) (model.StepOutcome, error) {
	return s.RunStep(ctx, model.StepGuessClear, day)
}

// RunResultClear clears the numbers of markets that reset every day
func (s *Scheduler) RunResultClear(ctx context.Context, day time.Time) (model.StepOutcome, error) {
	return s.RunStep(ctx, model.StepResultClear, day)
}

// RunGlobalSnapshot stores the global wallet snapshot of the day before day
func (s *Scheduler) RunGlobalSnapshot(ctx context.Context, day time.Time) (model.StepOutcome, error) {
	return s.RunStep(ctx, model.StepGlobalSnapshot, day)
}

// RunAccountSnapshots stores the account snapshots of the day before day
func (s *Scheduler) RunAccountSnapshots(ctx context.Context, day time.Time) (model.StepOutcome, error) {
	return s.RunStep(ctx, model.StepAccountSnapshots, day)
}

// RunDisplaySync copies the latest results into the last known result fields
func (s *Scheduler) RunDisplaySync(ctx context.Context, day time.Time) (model.StepOutcome, error) {
	return s.RunStep(ctx, model.StepDisplaySync, day)
}

func (s *Scheduler) resetTimings(ctx context.Context, day time.Time) (int64, error) {
	dayKey := s.dayKey(day)
	timings, err := s.markets.ListTimings(ctx, int(day.In(s.opts.Location).Weekday()))
	if err != nil {
		return 0, err
	}
	byMarket := make(map[string]model.MarketTiming, len(timings))
	for _, timing := range timings {
		byMarket[timing.MarketID] = timing
	}
	markets, err := s.markets.ListMarkets(ctx)
	if err != nil {
		return 0, err
	}

	var affected int64
	for _, market := range markets {
		fields := map[string]interface{}{}
		if timing, ok := byMarket[market.ID]; ok {
			setIfChanged(fields, "is_active", market.IsActive, timing.IsActive)
			setIfChanged(fields, "open_time", market.OpenTime, timing.OpenTime)
			setIfChanged(fields, "close_time", market.CloseTime, timing.CloseTime)
		} else {
			// no template for this weekday, the market stays closed
			setIfChanged(fields, "is_active", market.IsActive, false)
		}
		setIfChanged(fields, "timing_date", market.TimingDate, dayKey)
		if len(fields) == 0 {
			continue
		}
		if err := s.markets.UpdateMarket(ctx, market.ID, fields); err != nil {
			return affected, err
		}
		affected++
	}
	return affected, nil
}

func (s *Scheduler) clearGuesses(ctx context.Context, day time.Time) (int64, error) {
	dayKey := s.dayKey(day)
	markets, err := s.markets.ListMarkets(ctx)
	if err != nil {
		return 0, err
	}
	var affected int64
	for _, market := range markets {
		if market.GuessDate == nil || *market.GuessDate >= dayKey {
			continue
		}
		fields := map[string]interface{}{}
		clearIfSet(fields, "guess_open", market.GuessOpen)
		clearIfSet(fields, "guess_close", market.GuessClose)
		clearIfSet(fields, "guess_date", market.GuessDate)
		if err := s.markets.UpdateMarket(ctx, market.ID, fields); err != nil {
			return affected, err
		}
		affected++
	}
	return affected, nil
}

func (s *Scheduler) clearResults(ctx context.Context, day time.Time) (int64, error) {
	if len(s.resets) == 0 {
		return 0, nil
	}
	markets, err := s.markets.ListMarkets(ctx)
	if err != nil {
		return 0, err
	}
	var affected int64
	for _, market := range markets {
		if !s.resets[market.Category] {
			continue
		}
		fields := map[string]interface{}{}
		clearIfSet(fields, "open_number", market.OpenNumber)
		clearIfSet(fields, "close_number", market.CloseNumber)
		clearIfSet(fields, "result_number", market.ResultNumber)
		if len(fields) == 0 {
			continue
		}
		if err := s.markets.UpdateMarket(ctx, market.ID, fields); err != nil {
			return affected, err
		}
		affected++
	}
	return affected, nil
}

func (s *Scheduler) globalSnapshot(ctx context.Context, day time.Time) (int64, error) {
	if _, err := s.ledger.ComputeGlobalSnapshot(ctx, day.AddDate(0, 0, -1)); err != nil {
		return 0, err
	}
	return 1, nil
}

func (s *Scheduler) accountSnapshots(ctx context.Context, day time.Time) (int64, error) {
	snapshots, err := s.ledger.ComputeAccountSnapshots(ctx, day.AddDate(0, 0, -1))
	if err != nil {
		return 0, err
	}
	return int64(len(snapshots)), nil
}

func (s *Scheduler) syncDisplay(ctx context.Context, _ time.Time) (int64, error) {
	results, err := s.markets.LatestResults(ctx)
	if err != nil {
		return 0, err
	}
	latest := make(map[string]model.MarketResult, len(results))
	for _, result := range results {
		latest[result.MarketID] = result
	}
	markets, err := s.markets.ListMarkets(ctx)
	if err != nil {
		return 0, err
	}
	var affected int64
	for _, market := range markets {
		result, ok := latest[market.ID]
		if !ok {
			continue
		}
		resultDate := result.ResultDate
		fields := map[string]interface{}{}
		setStringIfChanged(fields, "last_open_number", market.LastOpenNumber, result.OpenNumber)
		setStringIfChanged(fields, "last_close_number", market.LastCloseNumber, result.CloseNumber)
		setStringIfChanged(fields, "last_result_number", market.LastResultNumber, result.ResultNumber)
		setStringIfChanged(fields, "last_result_date", market.LastResultDate, &resultDate)
		if len(fields) == 0 {
			continue
		}
		if err := s.markets.UpdateMarket(ctx, market.ID, fields); err != nil {
			return affected, err
		}
		affected++
	}
	return affected, nil
}

func setIfChanged(fields map[string]interface{}, column string, current, desired interface{}) {
	if current != desired {
		fields[column] = desired
	}
}

func clearIfSet(fields map[string]interface{}, column string, current *string) {
	if current != nil {
		fields[column] = nil
	}
}

func setStringIfChanged(fields map[string]interface{}, column string, current, desired *string) {
	if current == nil && desired == nil {
		return
	}
	if current != nil && desired != nil && *current == *desired {
		return
	}
	if desired == nil {
		fields[column] = nil
		return
	}
	fields[column] = *desired
}
