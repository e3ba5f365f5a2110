package weather

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnavailable is returned when a source cannot be reached, rejects the
	// request, or its circuit breaker is open.
	ErrUnavailable = errors.New("weather provider unavailable")

	// ErrMalformed is returned when a source answers with a body that cannot be decoded.
	ErrMalformed = errors.New("weather provider response malformed")
)

// HourlySeries holds hourly temperatures of one UTC day, indexed by hour.
// Missing observations are nil.
type HourlySeries []*float64

// Source abstracts a historical weather data source (e.g. Open-Meteo, WeatherAPI).
type Source interface {
	Name() string
	FetchHourly(ctx context.Context, date time.Time) (HourlySeries, error)
}
