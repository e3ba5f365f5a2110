package energy

import "errors"

var (
	// ErrInvalidRange is returned when a date range is missing a bound or ends before it starts.
	ErrInvalidRange = errors.New("invalid date range")

	// ErrStore wraps read/write failures of the price and weather stores.
	ErrStore = errors.New("store failure")

	// ErrUnsupportedCountry is returned for country codes without a registered price series.
	ErrUnsupportedCountry = errors.New("unsupported country")
)
