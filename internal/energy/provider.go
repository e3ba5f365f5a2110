package energy

import (
	"context"
	"time"
)

// PriceStore is the contract the price persistence layer must satisfy.
type PriceStore interface {
	// FindByRecordedRange returns records with from <= RecordedAt < to, ordered by RecordedAt.
	FindByRecordedRange(ctx context.Context, from, to time.Time) ([]PriceRecord, error)
	// FindDatesWithoutWeather returns the distinct UTC dates that have prices but no weather row.
	FindDatesWithoutWeather(ctx context.Context) ([]time.Time, error)
	// FindRecordedHours returns the distinct UTC hours (0-23) with prices on date, ascending.
	FindRecordedHours(ctx context.Context, date time.Time) ([]int, error)
	// UpsertAll inserts records, overwriting the price of existing (RecordedAt, Country) keys.
	UpsertAll(ctx context.Context, records []PriceRecord) error
}

// WeatherStore is the contract the weather persistence layer must satisfy.
type WeatherStore interface {
	// FindByDateRange returns records with from <= Date <= to.
	FindByDateRange(ctx context.Context, from, to time.Time) ([]WeatherRecord, error)
	// Upsert writes the record, replacing any existing row for the same date.
	Upsert(ctx context.Context, record WeatherRecord) error
}

// TemperatureProvider returns the average temperature of date restricted to
// the given hours, or nil when no data is available.
type TemperatureProvider interface {
	FetchAverageTemperature(ctx context.Context, date time.Time, hours []int) (*float64, error)
}
