package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/i474232898/electricity-weather-aggregation/internal/energy"
)

type priceKey struct {
	recordedAt int64 // unix nanoseconds
	country    string
}

// MemoryStore is a concurrency-safe in-memory implementation of both the
// price and the weather store. Nothing survives a restart.
type MemoryStore struct {
	mu sync.RWMutex

	// key: (recorded_at, country), value: price
	prices map[priceKey]float64

	// key: date (unix seconds of midnight UTC)
	weather map[int64]*float64
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		prices:  make(map[priceKey]float64),
		weather: make(map[int64]*float64),
	}
}

// UpsertAll stores records, overwriting prices of existing keys.
func (s *MemoryStore) UpsertAll(_ context.Context, records []energy.PriceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		s.prices[priceKey{recordedAt: r.RecordedAt.UTC().UnixNano(), country: r.Country}] = r.Price
	}
	return nil
}

// FindByRecordedRange returns prices with from <= recorded_at < to.
func (s *MemoryStore) FindByRecordedRange(_ context.Context, from, to time.Time) ([]energy.PriceRecord, error) {
	lo, hi := from.UTC().UnixNano(), to.UTC().UnixNano()

	s.mu.RLock()
	result := make([]energy.PriceRecord, 0)
	for k, price := range s.prices {
		if k.recordedAt >= lo && k.recordedAt < hi {
			result = append(result, energy.PriceRecord{
				RecordedAt: time.Unix(0, k.recordedAt).UTC(),
				Country:    k.country,
				Price:      price,
			})
		}
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if !result[i].RecordedAt.Equal(result[j].RecordedAt) {
			return result[i].RecordedAt.Before(result[j].RecordedAt)
		}
		return result[i].Country < result[j].Country
	})
	return result, nil
}

// FindDatesWithoutWeather returns the distinct price dates that have no weather row, ascending.
func (s *MemoryStore) FindDatesWithoutWeather(_ context.Context) ([]time.Time, error) {
	s.mu.RLock()
	seen := make(map[int64]struct{})
	for k := range s.prices {
		d := energy.DateOf(time.Unix(0, k.recordedAt)).Unix()
		if _, ok := s.weather[d]; ok {
			continue
		}
		seen[d] = struct{}{}
	}
	s.mu.RUnlock()

	dates := make([]time.Time, 0, len(seen))
	for d := range seen {
		dates = append(dates, time.Unix(d, 0).UTC())
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

// FindRecordedHours returns the distinct UTC hours that have prices on date, ascending.
func (s *MemoryStore) FindRecordedHours(_ context.Context, date time.Time) ([]int, error) {
	day := energy.DateOf(date)

	s.mu.RLock()
	seen := make(map[int]struct{})
	for k := range s.prices {
		t := time.Unix(0, k.recordedAt).UTC()
		if energy.DateOf(t).Equal(day) {
			seen[t.Hour()] = struct{}{}
		}
	}
	s.mu.RUnlock()

	hours := make([]int, 0, len(seen))
	for h := range seen {
		hours = append(hours, h)
	}
	sort.Ints(hours)
	return hours, nil
}

// Upsert stores the weather row of a date, replacing any previous one.
func (s *MemoryStore) Upsert(_ context.Context, record energy.WeatherRecord) error {
	var avg *float64
	if record.AverageTemperature != nil {
		v := *record.AverageTemperature
		avg = &v
	}

	s.mu.Lock()
	s.weather[energy.DateOf(record.Date).Unix()] = avg
	s.mu.Unlock()
	return nil
}

// FindByDateRange returns weather rows with from <= date <= to, ascending.
func (s *MemoryStore) FindByDateRange(_ context.Context, from, to time.Time) ([]energy.WeatherRecord, error) {
	lo, hi := energy.DateOf(from).Unix(), energy.DateOf(to).Unix()

	s.mu.RLock()
	result := make([]energy.WeatherRecord, 0)
	for d, avg := range s.weather {
		if d < lo || d > hi {
			continue
		}
		rec := energy.WeatherRecord{Date: time.Unix(d, 0).UTC()}
		if avg != nil {
			v := *avg
			rec.AverageTemperature = &v
		}
		result = append(result, rec)
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
