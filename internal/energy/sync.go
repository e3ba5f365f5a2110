package energy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Outcome is the result of reconciling a single date.
type Outcome string

const (
	OutcomeSaved   Outcome = "saved"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// DateResult records what happened to one date during reconciliation.
type DateResult struct {
	Date               time.Time
	Outcome            Outcome
	AverageTemperature *float64 // set when Outcome is OutcomeSaved
	Err                error    // set when Outcome is OutcomeFailed
}

// SyncReport summarizes one reconciliation pass.
type SyncReport struct {
	PassID     string
	StartedAt  time.Time
	FinishedAt time.Time

	// Err is set when the candidate dates could not be loaded; no date was processed.
	Err error

	// Results are ordered by date.
	Results []DateResult
}

// Aborted reports whether the pass stopped before processing any date.
func (r SyncReport) Aborted() bool {
	return r.Err != nil
}

// Count returns the number of results with the given outcome.
func (r SyncReport) Count(o Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// Reconciler backfills weather data for dates that have prices but no weather.
type Reconciler struct {
	prices   PriceStore
	weather  WeatherStore
	provider TemperatureProvider
	workers  int
	log      *zap.Logger
}

// NewReconciler creates a new Reconciler. workers bounds the number of dates
// processed concurrently; values below 1 mean sequential processing.
func NewReconciler(prices PriceStore, weather WeatherStore, provider TemperatureProvider, workers int, log *zap.Logger) *Reconciler {
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{
		prices:   prices,
		weather:  weather,
		provider: provider,
		workers:  workers,
		log:      log.Named("reconciler"),
	}
}

// SyncWeatherData runs one reconciliation pass. It never fails: problems are
// logged and reported in the returned SyncReport.
func (r *Reconciler) SyncWeatherData(ctx context.Context) (report SyncReport) {
	report = SyncReport{
		PassID:    uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	log := r.log.With(zap.String("pass_id", report.PassID))

	defer func() {
		if p := recover(); p != nil {
			report.Err = fmt.Errorf("reconciliation panicked: %v", p)
			log.Error("weather sync aborted", zap.Any("panic", p))
		}
		report.FinishedAt = time.Now().UTC()
	}()

	dates, err := r.prices.FindDatesWithoutWeather(ctx)
	if err != nil {
		report.Err = fmt.Errorf("%w: find dates without weather: %v", ErrStore, err)
		log.Error("weather sync aborted", zap.Error(report.Err))
		return report
	}

	if len(dates) == 0 {
		log.Debug("no dates missing weather data")
		return report
	}

	log.Info("weather sync started", zap.Int("dates", len(dates)), zap.Int("workers", r.workers))

	report.Results = make([]DateResult, len(dates))

	var wg sync.WaitGroup
	sem := make(chan struct{}, r.workers)
	for i, d := range dates {
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			report.Results[i] = r.syncDate(ctx, d, log)
		}()
	}
	wg.Wait()

	log.Info("weather sync completed",
		zap.Int("saved", report.Count(OutcomeSaved)),
		zap.Int("skipped", report.Count(OutcomeSkipped)),
		zap.Int("failed", report.Count(OutcomeFailed)),
	)
	return report
}

// SyncDate fetches and stores the weather of a single date, whether or not a
// weather row already exists for it.
func (r *Reconciler) SyncDate(ctx context.Context, date time.Time) DateResult {
	return r.syncDate(ctx, date, r.log)
}

func (r *Reconciler) syncDate(ctx context.Context, date time.Time, log *zap.Logger) (res DateResult) {
	date = DateOf(date)
	res.Date = date
	log = log.With(zap.String("date", FormatDate(date)))

	// A panicking collaborator must not take the remaining dates down with it.
	defer func() {
		if p := recover(); p != nil {
			res = DateResult{Date: date, Outcome: OutcomeFailed, Err: fmt.Errorf("panic: %v", p)}
			log.Error("weather sync failed", zap.Any("panic", p))
		}
	}()

	fail := func(err error) DateResult {
		log.Error("weather sync failed", zap.Error(err))
		return DateResult{Date: date, Outcome: OutcomeFailed, Err: err}
	}

	hours, err := r.prices.FindRecordedHours(ctx, date)
	if err != nil {
		return fail(fmt.Errorf("%w: find recorded hours: %v", ErrStore, err))
	}

	avg, err := r.provider.FetchAverageTemperature(ctx, date, hours)
	if err != nil {
		return fail(fmt.Errorf("fetch average temperature: %w", err))
	}
	if avg == nil {
		log.Debug("no weather data available", zap.Ints("hours", hours))
		return DateResult{Date: date, Outcome: OutcomeSkipped}
	}

	if err := r.weather.Upsert(ctx, WeatherRecord{Date: date, AverageTemperature: avg}); err != nil {
		return fail(fmt.Errorf("%w: save weather: %v", ErrStore, err))
	}

	log.Debug("saved weather data", zap.Float64("average_temperature", *avg), zap.Int("hours", len(hours)))
	return DateResult{Date: date, Outcome: OutcomeSaved, AverageTemperature: avg}
}
