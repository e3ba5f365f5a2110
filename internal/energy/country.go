package energy

import (
	"fmt"
	"sort"
	"strings"
)

// Country identifies a price series. Each country knows the column its
// prices are published under in the Nord Pool exports.
type Country interface {
	Code() string
	PriceColumn() string
}

type biddingZone struct {
	code   string
	column string
}

func (b biddingZone) Code() string        { return b.code }
func (b biddingZone) PriceColumn() string { return b.column }

var (
	Estonia   Country = biddingZone{code: "EE", column: "NPS Eesti"}
	Latvia    Country = biddingZone{code: "LV", column: "NPS Läti"}
	Lithuania Country = biddingZone{code: "LT", column: "NPS Leedu"}
	Finland   Country = biddingZone{code: "FI", column: "NPS Soome"}
)

var countries = map[string]Country{
	Estonia.Code():   Estonia,
	Latvia.Code():    Latvia,
	Lithuania.Code(): Lithuania,
	Finland.Code():   Finland,
}

// LookupCountry resolves a two-letter code (case-insensitive).
func LookupCountry(code string) (Country, error) {
	c, ok := countries[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCountry, code)
	}
	return c, nil
}

// CountryCodes lists the supported codes in sorted order.
func CountryCodes() []string {
	codes := make([]string, 0, len(countries))
	for code := range countries {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
