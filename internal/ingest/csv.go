package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/i474232898/electricity-weather-aggregation/internal/energy"
)

// TimestampColumn holds the UTC unix timestamp of each row.
const TimestampColumn = "Ajatempel (UTC)"

// ErrMalformedRow is returned when a row cannot be converted into a price record.
var ErrMalformedRow = errors.New("malformed csv row")

// NordPoolParser parses the semicolon separated Nord Pool price exports
// (ISO-8859-1, decimal comma) for a single country.
type NordPoolParser struct {
	Country energy.Country
}

// NewNordPoolParser creates a parser for the given country.
func NewNordPoolParser(country energy.Country) *NordPoolParser {
	return &NordPoolParser{Country: country}
}

// Parse reads all rows. Blank lines and rows with a blank first field are
// skipped, as are rows without a price. Any other unparseable row fails the
// whole parse.
func (p *NordPoolParser) Parse(r io.Reader) ([]energy.PriceRecord, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	data, err := decode(raw)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return []energy.PriceRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	tsIdx, priceIdx := -1, -1
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		switch name {
		case TimestampColumn:
			tsIdx = i
		case p.Country.PriceColumn():
			priceIdx = i
		}
	}
	if tsIdx < 0 {
		return nil, fmt.Errorf("%w: missing column %q", ErrMalformedRow, TimestampColumn)
	}
	if priceIdx < 0 {
		return nil, fmt.Errorf("%w: missing column %q", ErrMalformedRow, p.Country.PriceColumn())
	}

	records := []energy.PriceRecord{}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedRow, err)
		}
		line, _ := cr.FieldPos(0)

		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		if tsIdx >= len(row) || priceIdx >= len(row) {
			return nil, fmt.Errorf("%w: line %d: expected at least %d fields, got %d",
				ErrMalformedRow, line, max(tsIdx, priceIdx)+1, len(row))
		}

		ts, err := strconv.ParseInt(strings.TrimSpace(row[tsIdx]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: invalid timestamp %q", ErrMalformedRow, line, row[tsIdx])
		}

		price, ok, err := ParseDecimal(row[priceIdx])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedRow, line, err)
		}
		if !ok {
			continue
		}

		records = append(records, energy.PriceRecord{
			RecordedAt: time.Unix(ts, 0).UTC(),
			Country:    p.Country.Code(),
			Price:      price,
		})
	}

	return records, nil
}

// ParseDecimal parses numbers written with either a decimal comma or point.
// A blank value reports ok == false.
func ParseDecimal(s string) (v float64, ok bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false, nil
	}
	v, err = strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid number format: %q", s)
	}
	return v, true, nil
}

// decode converts ISO-8859-1 input to UTF-8. Input that is already valid
// UTF-8 is returned unchanged.
func decode(raw []byte) ([]byte, error) {
	if utf8.Valid(raw) {
		return raw, nil
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, fmt.Errorf("decode csv: %w", err)
	}
	return out, nil
}
