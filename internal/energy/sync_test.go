package energy

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReconcilerFixture(workers int, prices ...PriceRecord) (*Reconciler, *fakePriceStore, *fakeWeatherStore, *fakeProvider) {
	ws := newFakeWeatherStore()
	ps := &fakePriceStore{records: prices, weather: ws}
	prov := &fakeProvider{
		temps:  make(map[string]*float64),
		errs:   make(map[string]error),
		panics: make(map[string]bool),
	}
	return NewReconciler(ps, ws, prov, workers, nil), ps, ws, prov
}

func TestSyncWeatherData_SavesMissingDates(t *testing.T) {
	r, _, ws, prov := newReconcilerFixture(1,
		PriceRecord{RecordedAt: at("2024-01-01T03:00:00Z"), Country: "EE", Price: 1},
		PriceRecord{RecordedAt: at("2024-01-01T07:00:00Z"), Country: "EE", Price: 2},
		PriceRecord{RecordedAt: at("2024-01-02T00:00:00Z"), Country: "EE", Price: 3},
	)
	prov.temps["2024-01-01"] = ptr(-3.5)
	prov.temps["2024-01-02"] = ptr(1.25)

	report := r.SyncWeatherData(context.Background())
	require.False(t, report.Aborted())
	require.Len(t, report.Results, 2)
	assert.Equal(t, 2, report.Count(OutcomeSaved))
	assert.NotEmpty(t, report.PassID)

	assert.Equal(t, []int{3, 7}, prov.hours["2024-01-01"])
	assert.Equal(t, []int{0}, prov.hours["2024-01-02"])

	require.Contains(t, ws.rows, day("2024-01-01"))
	assert.Equal(t, -3.5, *ws.rows[day("2024-01-01")].AverageTemperature)
	assert.Equal(t, 1.25, *ws.rows[day("2024-01-02")].AverageTemperature)
}

func TestSyncWeatherData_IsIdempotent(t *testing.T) {
	r, _, ws, prov := newReconcilerFixture(1,
		PriceRecord{RecordedAt: at("2024-01-01T03:00:00Z"), Country: "EE", Price: 1},
		PriceRecord{RecordedAt: at("2024-01-02T03:00:00Z"), Country: "EE", Price: 1},
	)
	prov.temps["2024-01-01"] = ptr(5)
	prov.temps["2024-01-02"] = ptr(6)

	r.SyncWeatherData(context.Background())
	require.Len(t, prov.calls, 2)
	require.Len(t, ws.rows, 2)

	second := r.SyncWeatherData(context.Background())
	assert.Empty(t, second.Results)
	assert.Len(t, prov.calls, 2, "resolved dates must not be fetched again")
	assert.Len(t, ws.rows, 2)
	assert.Equal(t, 2, ws.upsertCalls)
}

func TestSyncWeatherData_AbsentDataSkipsWithoutWriting(t *testing.T) {
	r, _, ws, prov := newReconcilerFixture(1,
		PriceRecord{RecordedAt: at("2024-01-01T03:00:00Z"), Country: "EE", Price: 1},
		PriceRecord{RecordedAt: at("2024-01-02T03:00:00Z"), Country: "EE", Price: 1},
	)
	prov.temps["2024-01-02"] = ptr(2)

	report := r.SyncWeatherData(context.Background())
	require.Len(t, report.Results, 2)
	assert.Equal(t, OutcomeSkipped, report.Results[0].Outcome)
	assert.NoError(t, report.Results[0].Err)
	assert.Equal(t, OutcomeSaved, report.Results[1].Outcome)

	assert.NotContains(t, ws.rows, day("2024-01-01"))
	assert.Contains(t, ws.rows, day("2024-01-02"))

	// Skipped dates are retried on the next pass.
	again := r.SyncWeatherData(context.Background())
	require.Len(t, again.Results, 1)
	assert.Equal(t, day("2024-01-01"), again.Results[0].Date)
}

func TestSyncWeatherData_ProviderFailureDoesNotAbortPass(t *testing.T) {
	r, _, ws, prov := newReconcilerFixture(1,
		PriceRecord{RecordedAt: at("2024-01-01T03:00:00Z"), Country: "EE", Price: 1},
		PriceRecord{RecordedAt: at("2024-01-02T03:00:00Z"), Country: "EE", Price: 1},
		PriceRecord{RecordedAt: at("2024-01-03T03:00:00Z"), Country: "EE", Price: 1},
	)
	prov.temps["2024-01-01"] = ptr(1)
	prov.errs["2024-01-02"] = errBoom
	prov.temps["2024-01-03"] = ptr(3)

	report := r.SyncWeatherData(context.Background())
	require.Len(t, report.Results, 3)
	assert.Equal(t, OutcomeSaved, report.Results[0].Outcome)
	assert.Equal(t, OutcomeFailed, report.Results[1].Outcome)
	assert.ErrorIs(t, report.Results[1].Err, errBoom)
	assert.Equal(t, OutcomeSaved, report.Results[2].Outcome)

	assert.Contains(t, ws.rows, day("2024-01-01"))
	assert.NotContains(t, ws.rows, day("2024-01-02"))
	assert.Contains(t, ws.rows, day("2024-01-03"))
}

func TestSyncWeatherData_ProviderPanicIsContained(t *testing.T) {
	r, _, ws, prov := newReconcilerFixture(1,
		PriceRecord{RecordedAt: at("2024-01-01T03:00:00Z"), Country: "EE", Price: 1},
		PriceRecord{RecordedAt: at("2024-01-02T03:00:00Z"), Country: "EE", Price: 1},
	)
	prov.temps["2024-01-01"] = ptr(1)
	prov.panics["2024-01-02"] = true

	var report SyncReport
	require.NotPanics(t, func() { report = r.SyncWeatherData(context.Background()) })
	assert.Equal(t, OutcomeFailed, report.Results[1].Outcome)
	assert.Contains(t, ws.rows, day("2024-01-01"))
}

func TestSyncWeatherData_StoreWriteFailureIsPerDate(t *testing.T) {
	r, _, ws, prov := newReconcilerFixture(1,
		PriceRecord{RecordedAt: at("2024-01-01T03:00:00Z"), Country: "EE", Price: 1},
		PriceRecord{RecordedAt: at("2024-01-02T03:00:00Z"), Country: "EE", Price: 1},
	)
	prov.temps["2024-01-01"] = ptr(1)
	prov.temps["2024-01-02"] = ptr(2)
	ws.saveErr = map[string]error{"2024-01-01": errBoom}

	report := r.SyncWeatherData(context.Background())
	require.Len(t, report.Results, 2)
	assert.Equal(t, OutcomeFailed, report.Results[0].Outcome)
	assert.ErrorIs(t, report.Results[0].Err, ErrStore)
	assert.Equal(t, OutcomeSaved, report.Results[1].Outcome)
}

func TestSyncWeatherData_HoursLookupFailureIsPerDate(t *testing.T) {
	r, ps, _, prov := newReconcilerFixture(1,
		PriceRecord{RecordedAt: at("2024-01-01T03:00:00Z"), Country: "EE", Price: 1},
		PriceRecord{RecordedAt: at("2024-01-02T03:00:00Z"), Country: "EE", Price: 1},
	)
	ps.hoursErr = map[string]error{"2024-01-01": errBoom}
	prov.temps["2024-01-02"] = ptr(2)

	report := r.SyncWeatherData(context.Background())
	require.Len(t, report.Results, 2)
	assert.Equal(t, OutcomeFailed, report.Results[0].Outcome)
	assert.NotContains(t, prov.calls, "2024-01-01")
	assert.Equal(t, OutcomeSaved, report.Results[1].Outcome)
}

func TestSyncWeatherData_CandidateListFailureAbortsPass(t *testing.T) {
	r, ps, ws, prov := newReconcilerFixture(1,
		PriceRecord{RecordedAt: at("2024-01-01T03:00:00Z"), Country: "EE", Price: 1},
	)
	ps.datesErr = errBoom

	var report SyncReport
	require.NotPanics(t, func() { report = r.SyncWeatherData(context.Background()) })
	assert.True(t, report.Aborted())
	assert.ErrorIs(t, report.Err, ErrStore)
	assert.Empty(t, report.Results)
	assert.Empty(t, prov.calls)
	assert.Empty(t, ws.rows)
}

func TestSyncWeatherData_PanicWhileListingDatesAbortsPass(t *testing.T) {
	r, ps, _, prov := newReconcilerFixture(1,
		PriceRecord{RecordedAt: at("2024-01-01T03:00:00Z"), Country: "EE", Price: 1},
	)
	ps.datesPanic = true

	var report SyncReport
	require.NotPanics(t, func() { report = r.SyncWeatherData(context.Background()) })
	assert.True(t, report.Aborted())
	assert.NotEmpty(t, report.PassID)
	assert.False(t, report.FinishedAt.IsZero())
	assert.Empty(t, prov.calls)
}

func TestSyncWeatherData_ReportsTiming(t *testing.T) {
	r, _, _, prov := newReconcilerFixture(1,
		PriceRecord{RecordedAt: at("2024-01-01T03:00:00Z"), Country: "EE", Price: 1},
	)
	prov.temps["2024-01-01"] = ptr(2)

	report := r.SyncWeatherData(context.Background())
	assert.False(t, report.StartedAt.IsZero())
	assert.False(t, report.FinishedAt.IsZero())
	assert.False(t, report.FinishedAt.Before(report.StartedAt))

	// A pass with nothing to do is timed as well.
	empty := r.SyncWeatherData(context.Background())
	assert.False(t, empty.FinishedAt.IsZero())
}

func TestSyncWeatherData_WorkerPoolKeepsDateOrder(t *testing.T) {
	var prices []PriceRecord
	for d := 1; d <= 9; d++ {
		ts := day("2024-03-01").AddDate(0, 0, d-1).Add(12 * time.Hour)
		prices = append(prices, PriceRecord{RecordedAt: ts, Country: "EE", Price: float64(d)})
	}
	r, _, ws, prov := newReconcilerFixture(4, prices...)
	for _, p := range prices {
		prov.temps[FormatDate(p.Date())] = ptr(p.Price)
	}

	report := r.SyncWeatherData(context.Background())
	require.Len(t, report.Results, 9)
	for i, res := range report.Results {
		assert.Equal(t, prices[i].Date(), res.Date)
		assert.Equal(t, OutcomeSaved, res.Outcome)
	}
	assert.Len(t, ws.rows, 9)
}

func TestSyncDate_RefreshesExistingRow(t *testing.T) {
	r, _, ws, prov := newReconcilerFixture(1,
		PriceRecord{RecordedAt: at("2024-01-01T10:00:00Z"), Country: "EE", Price: 1},
	)
	ws.rows[day("2024-01-01")] = WeatherRecord{Date: day("2024-01-01"), AverageTemperature: ptr(0)}
	prov.temps["2024-01-01"] = ptr(4.5)

	res := r.SyncDate(context.Background(), at("2024-01-01T18:30:00Z"))
	assert.Equal(t, OutcomeSaved, res.Outcome)
	assert.Equal(t, day("2024-01-01"), res.Date)
	assert.Equal(t, []int{10}, prov.hours["2024-01-01"])
	assert.Equal(t, 4.5, *ws.rows[day("2024-01-01")].AverageTemperature)
}

func TestSyncDate_NoPricesPassesEmptyHours(t *testing.T) {
	r, _, ws, prov := newReconcilerFixture(1)

	res := r.SyncDate(context.Background(), day("2024-05-05"))
	assert.Equal(t, OutcomeSkipped, res.Outcome)
	assert.Empty(t, prov.hours["2024-05-05"])
	assert.Empty(t, ws.rows)
}
