package ingest

import (
	"io"

	"github.com/i474232898/electricity-weather-aggregation/internal/energy"
)

// Parser reads price data from a source and returns records.
type Parser interface {
	Parse(r io.Reader) ([]energy.PriceRecord, error)
}
