package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/electricity-weather-aggregation/internal/weather"
)

const openMeteoArchiveURL = "https://archive-api.open-meteo.com/v1/archive"

// OpenMeteoProvider implements the weather.Source interface for the Open-Meteo historical archive.
type OpenMeteoProvider struct {
	name      string
	baseURL   string
	latitude  float64
	longitude float64
	httpCfg   HTTPClientConfig
	circuit   *gobreaker.CircuitBreaker
}

// NewOpenMeteoProvider creates a provider for the given coordinates.
// Open-Meteo does not require an API key.
func NewOpenMeteoProvider(client *http.Client, latitude, longitude float64) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:      "openmeteo",
		baseURL:   openMeteoArchiveURL,
		latitude:  latitude,
		longitude: longitude,
		httpCfg:   defaultHTTPConfig(client),
		circuit:   newCircuitBreaker("openmeteo"),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

// FetchHourly returns the hourly 2m temperatures of date in UTC.
func (p *OpenMeteoProvider) FetchHourly(ctx context.Context, date time.Time) (weather.HourlySeries, error) {
	day := date.UTC().Format("2006-01-02")

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", strconv.FormatFloat(p.latitude, 'f', -1, 64))
		values.Set("longitude", strconv.FormatFloat(p.longitude, 'f', -1, 64))
		values.Set("start_date", day)
		values.Set("end_date", day)
		values.Set("hourly", "temperature_2m")
		values.Set("timezone", "UTC")

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Hourly *struct {
			Time          []string   `json:"time"`
			Temperature2m []*float64 `json:"temperature_2m"`
		} `json:"hourly"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", weather.ErrMalformed, err)
	}

	// A response without an hourly block means the archive has nothing for this day.
	if payload.Hourly == nil {
		return nil, nil
	}

	return weather.HourlySeries(payload.Hourly.Temperature2m), nil
}
