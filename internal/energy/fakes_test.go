package energy

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ---- Fakes for the store and provider interfaces ----

type fakePriceStore struct {
	mu      sync.Mutex
	records []PriceRecord
	weather *fakeWeatherStore

	rangeErr error
	datesErr   error
	datesPanic bool
	hoursErr map[string]error

	rangeCalls int
	datesCalls int
}

func (f *fakePriceStore) FindByRecordedRange(ctx context.Context, from, to time.Time) ([]PriceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rangeCalls++
	if f.rangeErr != nil {
		return nil, f.rangeErr
	}
	var out []PriceRecord
	for _, r := range f.records {
		if !r.RecordedAt.Before(from) && r.RecordedAt.Before(to) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakePriceStore) FindDatesWithoutWeather(ctx context.Context) ([]time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.datesCalls++
	if f.datesPanic {
		panic("dates query exploded")
	}
	if f.datesErr != nil {
		return nil, f.datesErr
	}
	seen := make(map[time.Time]bool)
	var out []time.Time
	for _, r := range f.records {
		d := r.Date()
		if seen[d] || (f.weather != nil && f.weather.has(d)) {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

func (f *fakePriceStore) FindRecordedHours(ctx context.Context, date time.Time) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.hoursErr[FormatDate(date)]; err != nil {
		return nil, err
	}
	seen := make(map[int]bool)
	var hours []int
	for _, r := range f.records {
		if r.Date().Equal(date) && !seen[r.RecordedAt.Hour()] {
			seen[r.RecordedAt.Hour()] = true
			hours = append(hours, r.RecordedAt.Hour())
		}
	}
	sort.Ints(hours)
	return hours, nil
}

func (f *fakePriceStore) UpsertAll(ctx context.Context, records []PriceRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, records...)
	return nil
}

type fakeWeatherStore struct {
	mu       sync.Mutex
	rows     map[time.Time]WeatherRecord
	rangeErr error
	saveErr  map[string]error

	rangeCalls  int
	upsertCalls int
}

func newFakeWeatherStore() *fakeWeatherStore {
	return &fakeWeatherStore{rows: make(map[time.Time]WeatherRecord)}
}

func (f *fakeWeatherStore) has(d time.Time) bool {
	_, ok := f.rows[d]
	return ok
}

func (f *fakeWeatherStore) FindByDateRange(ctx context.Context, from, to time.Time) ([]WeatherRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rangeCalls++
	if f.rangeErr != nil {
		return nil, f.rangeErr
	}
	var out []WeatherRecord
	for d, w := range f.rows {
		if !d.Before(from) && !d.After(to) {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *fakeWeatherStore) Upsert(ctx context.Context, record WeatherRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertCalls++
	if err := f.saveErr[FormatDate(record.Date)]; err != nil {
		return err
	}
	f.rows[record.Date] = record
	return nil
}

type fakeProvider struct {
	mu     sync.Mutex
	temps  map[string]*float64
	errs   map[string]error
	panics map[string]bool
	calls  []string
	hours  map[string][]int
}

func (f *fakeProvider) FetchAverageTemperature(ctx context.Context, date time.Time, hours []int) (*float64, error) {
	key := FormatDate(date)
	f.mu.Lock()
	f.calls = append(f.calls, key)
	if f.hours == nil {
		f.hours = make(map[string][]int)
	}
	f.hours[key] = hours
	f.mu.Unlock()

	if f.panics[key] {
		panic("provider exploded")
	}
	if err := f.errs[key]; err != nil {
		return nil, err
	}
	return f.temps[key], nil
}

func ptr(v float64) *float64 { return &v }

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

func day(s string) time.Time {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

var errBoom = errors.New("boom")
