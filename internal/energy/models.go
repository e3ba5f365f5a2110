package energy

import (
	"time"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// PriceRecord is a single electricity price observation.
// At most one record exists per (RecordedAt, Country).
type PriceRecord struct {
	RecordedAt time.Time // always UTC
	Country    string
	Price      float64
}

// Date returns the UTC calendar date the record belongs to.
func (p PriceRecord) Date() time.Time {
	return DateOf(p.RecordedAt)
}

// WeatherRecord holds the average temperature for one calendar date.
type WeatherRecord struct {
	Date               time.Time // midnight UTC
	AverageTemperature *float64
}

// DailyAggregate joins a date's average price and average temperature.
// Either side may be nil, never both.
type DailyAggregate struct {
	Date                    time.Time
	AverageElectricityPrice *float64
	AverageTemperature      *float64
}

// DateOf truncates t to midnight of its UTC calendar date.
func DateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string as a UTC calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// FormatDate renders a calendar date as YYYY-MM-DD.
func FormatDate(d time.Time) string {
	return d.UTC().Format(DateLayout)
}
