package energy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Aggregator joins price and weather series into daily aggregates.
type Aggregator struct {
	prices  PriceStore
	weather WeatherStore
	log     *zap.Logger
}

// NewAggregator creates a new Aggregator.
func NewAggregator(prices PriceStore, weather WeatherStore, log *zap.Logger) *Aggregator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Aggregator{
		prices:  prices,
		weather: weather,
		log:     log.Named("aggregator"),
	}
}

// GetAggregatedData returns one DailyAggregate per date in [start, end] that
// has a price average, a temperature, or both. Results are in ascending date
// order with values rounded to one decimal place.
func (a *Aggregator) GetAggregatedData(ctx context.Context, start, end time.Time) ([]DailyAggregate, error) {
	if start.IsZero() || end.IsZero() {
		return nil, fmt.Errorf("%w: start and end dates are required", ErrInvalidRange)
	}
	start, end = DateOf(start), DateOf(end)
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end %s is before start %s", ErrInvalidRange, FormatDate(end), FormatDate(start))
	}

	var (
		wg         sync.WaitGroup
		prices     []PriceRecord
		weather    []WeatherRecord
		priceErr   error
		weatherErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		prices, priceErr = a.prices.FindByRecordedRange(ctx, start, end.AddDate(0, 0, 1))
	}()
	go func() {
		defer wg.Done()
		weather, weatherErr = a.weather.FindByDateRange(ctx, start, end)
	}()
	wg.Wait()

	if priceErr != nil {
		return nil, fmt.Errorf("%w: load prices: %v", ErrStore, priceErr)
	}
	if weatherErr != nil {
		return nil, fmt.Errorf("%w: load weather: %v", ErrStore, weatherErr)
	}

	if len(prices) == 0 && len(weather) == 0 {
		return []DailyAggregate{}, nil
	}

	priceByDate := averagePricesByDate(prices)

	tempByDate := make(map[time.Time]*float64, len(weather))
	for _, w := range weather {
		tempByDate[DateOf(w.Date)] = w.AverageTemperature
	}

	result := make([]DailyAggregate, 0, len(priceByDate))
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		price := priceByDate[d]
		temp := tempByDate[d]
		if price == nil && temp == nil {
			continue
		}
		result = append(result, DailyAggregate{
			Date:                    d,
			AverageElectricityPrice: roundOneDecimal(price),
			AverageTemperature:      roundOneDecimal(temp),
		})
	}

	a.log.Debug("aggregated daily data",
		zap.String("start", FormatDate(start)),
		zap.String("end", FormatDate(end)),
		zap.Int("prices", len(prices)),
		zap.Int("weather", len(weather)),
		zap.Int("days", len(result)),
	)

	return result, nil
}

// averagePricesByDate groups records by the UTC date of RecordedAt and
// returns the arithmetic mean of each group.
func averagePricesByDate(records []PriceRecord) map[time.Time]*float64 {
	type acc struct {
		sum   float64
		count int
	}

	groups := make(map[time.Time]*acc)
	for _, r := range records {
		d := r.Date()
		g, ok := groups[d]
		if !ok {
			g = &acc{}
			groups[d] = g
		}
		g.sum += r.Price
		g.count++
	}

	out := make(map[time.Time]*float64, len(groups))
	for d, g := range groups {
		avg := g.sum / float64(g.count)
		out[d] = &avg
	}
	return out
}

// roundOneDecimal rounds half away from zero on the shortest decimal
// representation of v. nil stays nil.
func roundOneDecimal(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r, _ := decimal.NewFromFloat(*v).Round(1).Float64()
	return &r
}
