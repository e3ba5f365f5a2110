package httpapi

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/i474232898/electricity-weather-aggregation/internal/energy"
	"github.com/i474232898/electricity-weather-aggregation/internal/ingest"
)

var validate = validator.New()

// Aggregator produces the daily price and temperature join.
type Aggregator interface {
	GetAggregatedData(ctx context.Context, start, end time.Time) ([]energy.DailyAggregate, error)
}

// Reconciler fetches missing weather data.
type Reconciler interface {
	SyncWeatherData(ctx context.Context) energy.SyncReport
	SyncDate(ctx context.Context, date time.Time) energy.DateResult
}

// PriceWriter persists uploaded prices.
type PriceWriter interface {
	UpsertAll(ctx context.Context, records []energy.PriceRecord) error
}

// Pinger reports whether the backing database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies groups what the handlers need.
type Dependencies struct {
	Aggregator     Aggregator
	Reconciler     Reconciler
	Prices         PriceWriter
	Health         Pinger
	DefaultCountry energy.Country
	// NewParser builds the upload parser for a country. Defaults to the Nord Pool CSV format.
	NewParser func(energy.Country) ingest.Parser
	Log       *zap.Logger
}

// ErrorHandler renders every error as {"error": true, "message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	// Centralized error response
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Dependencies) {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.DefaultCountry == nil {
		deps.DefaultCountry = energy.Estonia
	}
	if deps.NewParser == nil {
		deps.NewParser = func(c energy.Country) ingest.Parser { return ingest.NewNordPoolParser(c) }
	}
	h := &handlers{deps: deps, log: deps.Log.Named("http")}

	app.Get("/health", h.health)

	v1 := app.Group("/api/v1")
	v1.Get("/aggregated-data", h.aggregatedData)
	v1.Post("/electricity-prices/upload", h.uploadPrices)
	v1.Post("/weather/fetch/:date", h.fetchWeather)
	v1.Post("/weather/sync", h.syncWeather)
}

type handlers struct {
	deps Dependencies
	log  *zap.Logger
}

func (h *handlers) health(c *fiber.Ctx) error {
	if h.deps.Health != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := h.deps.Health.Ping(ctx); err != nil {
			h.log.Warn("health check failed", zap.Error(err))
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "unavailable",
			})
		}
	}
	return c.JSON(fiber.Map{
		"status":  "ok",
		"service": "electricity-weather-aggregation",
	})
}

// aggregatedQuery holds query parameters for the aggregated data endpoint.
type aggregatedQuery struct {
	StartDateUtc string `query:"startDateUtc" validate:"required,datetime=2006-01-02"`
	EndDateUtc   string `query:"endDateUtc" validate:"required,datetime=2006-01-02"`
}

func (h *handlers) aggregatedData(c *fiber.Ctx) error {
	var q aggregatedQuery
	if err := c.QueryParser(&q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "startDateUtc and endDateUtc must be dates in YYYY-MM-DD format")
	}

	start, err := energy.ParseDate(q.StartDateUtc)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	end, err := energy.ParseDate(q.EndDateUtc)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	data, err := h.deps.Aggregator.GetAggregatedData(c.UserContext(), start, end)
	if err != nil {
		if errors.Is(err, energy.ErrInvalidRange) {
			return fiber.NewError(fiber.StatusBadRequest, "endDateUtc must not be before startDateUtc")
		}
		h.log.Error("aggregation failed", zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "failed to aggregate data")
	}

	resp := make([]dailyAggregateResponse, 0, len(data))
	for _, d := range data {
		resp = append(resp, newDailyAggregateResponse(d))
	}
	return c.JSON(resp)
}

func (h *handlers) uploadPrices(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "file is required")
	}
	if file.Size == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "file is empty")
	}
	if !strings.EqualFold(filepath.Ext(file.Filename), ".csv") {
		return fiber.NewError(fiber.StatusBadRequest, "file must be a CSV file")
	}

	country := h.deps.DefaultCountry
	if code := c.FormValue("country", c.Query("country")); code != "" {
		country, err = energy.LookupCountry(code)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest,
				fmt.Sprintf("%v; supported: %s", err, strings.Join(energy.CountryCodes(), ", ")))
		}
	}

	f, err := file.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "failed to read uploaded file")
	}
	defer f.Close()

	records, err := h.deps.NewParser(country).Parse(f)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if err := h.deps.Prices.UpsertAll(c.UserContext(), records); err != nil {
		h.log.Error("storing prices failed", zap.Error(err), zap.String("file", file.Filename))
		return fiber.NewError(fiber.StatusInternalServerError, "failed to store prices")
	}

	h.log.Info("prices uploaded",
		zap.String("file", file.Filename),
		zap.String("country", country.Code()),
		zap.Int("records", len(records)),
	)
	return c.JSON(uploadResponse{
		Message: "CSV file processed successfully",
		Country: country.Code(),
		Records: len(records),
	})
}

func (h *handlers) fetchWeather(c *fiber.Ctx) error {
	raw := c.Params("date")
	if err := validate.Var(raw, "required,datetime=2006-01-02"); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "date must be in YYYY-MM-DD format")
	}
	date, err := energy.ParseDate(raw)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	res := h.deps.Reconciler.SyncDate(c.UserContext(), date)
	if res.Outcome == energy.OutcomeFailed {
		return fiber.NewError(fiber.StatusBadGateway, fmt.Sprintf("error fetching weather data: %v", res.Err))
	}
	return c.JSON(newDateResultResponse(res))
}

func (h *handlers) syncWeather(c *fiber.Ctx) error {
	report := h.deps.Reconciler.SyncWeatherData(c.UserContext())
	if report.Aborted() {
		return fiber.NewError(fiber.StatusInternalServerError, fmt.Sprintf("weather sync aborted: %v", report.Err))
	}
	return c.JSON(newSyncReportResponse(report))
}
