package weather

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Client computes daily average temperatures from one or more hourly sources.
// Sources are tried in order; the first one with data for the requested
// hours wins.
type Client struct {
	sources []Source
	log     *zap.Logger
}

// NewClient creates a new Client.
func NewClient(sources []Source, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		sources: sources,
		log:     log.Named("weather"),
	}
}

// FetchAverageTemperature returns the average temperature of date over the
// given UTC hours, or nil when every source that answered had no data for
// them. An error is returned only when no source answered. An empty hours
// slice returns nil without contacting any source.
func (c *Client) FetchAverageTemperature(ctx context.Context, date time.Time, hours []int) (*float64, error) {
	if len(hours) == 0 {
		return nil, nil
	}
	if len(c.sources) == 0 {
		return nil, fmt.Errorf("%w: no weather sources configured", ErrUnavailable)
	}

	day := date.UTC().Format("2006-01-02")

	var (
		errs     []error
		answered bool
	)
	for _, src := range c.sources {
		series, err := src.FetchHourly(ctx, date)
		if err != nil {
			// Log and continue; a later source may still answer.
			c.log.Warn("source fetch failed",
				zap.String("source", src.Name()),
				zap.String("date", day),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
			continue
		}
		answered = true

		avg := AverageForHours(series, hours)
		c.log.Debug("fetched hourly temperatures",
			zap.String("source", src.Name()),
			zap.String("date", day),
			zap.Int("series_len", len(series)),
			zap.Bool("has_average", avg != nil),
		)
		if avg != nil {
			return avg, nil
		}
	}

	// At least one source answered, just without data for these hours.
	if answered {
		return nil, nil
	}
	return nil, errors.Join(errs...)
}
