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

// WeatherAPIProvider implements the weather.Source interface for the WeatherAPI.com history endpoint.
type WeatherAPIProvider struct {
	name      string
	apiKey    string
	baseURL   string
	latitude  float64
	longitude float64
	httpCfg   HTTPClientConfig
	circuit   *gobreaker.CircuitBreaker
}

func NewWeatherAPIProvider(client *http.Client, apiKey string, latitude, longitude float64) *WeatherAPIProvider {
	return &WeatherAPIProvider{
		name:      "weatherapi",
		apiKey:    apiKey,
		baseURL:   "https://api.weatherapi.com/v1/history.json",
		latitude:  latitude,
		longitude: longitude,
		httpCfg:   defaultHTTPConfig(client),
		circuit:   newCircuitBreaker("weatherapi"),
	}
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

func (p *WeatherAPIProvider) FetchHourly(ctx context.Context, date time.Time) (weather.HourlySeries, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("%w: weatherapi api key is not configured", weather.ErrUnavailable)
	}

	day := date.UTC().Format("2006-01-02")

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("key", p.apiKey)
		// WeatherAPI uses "q" for location; it accepts "lat,lon".
		values.Set("q", strconv.FormatFloat(p.latitude, 'f', -1, 64)+","+strconv.FormatFloat(p.longitude, 'f', -1, 64))
		values.Set("dt", day)

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Forecast struct {
			ForecastDay []struct {
				Hour []struct {
					TimeEpoch int64    `json:"time_epoch"`
					TempC     *float64 `json:"temp_c"`
				} `json:"hour"`
			} `json:"forecastday"`
		} `json:"forecast"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", weather.ErrMalformed, err)
	}

	if len(payload.Forecast.ForecastDay) == 0 {
		return nil, nil
	}

	// Place each observation at its UTC hour; the location's local day may
	// not line up with the UTC day.
	series := make(weather.HourlySeries, 24)
	for _, h := range payload.Forecast.ForecastDay[0].Hour {
		ts := time.Unix(h.TimeEpoch, 0).UTC()
		if ts.Format("2006-01-02") != day {
			continue
		}
		series[ts.Hour()] = h.TempC
	}

	return series, nil
}
