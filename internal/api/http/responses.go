package httpapi

import (
	"time"

	"github.com/i474232898/electricity-weather-aggregation/internal/energy"
)

type dailyAggregateResponse struct {
	Date                    string   `json:"date"`
	AverageElectricityPrice *float64 `json:"averageElectricityPrice"`
	AverageTemperature      *float64 `json:"averageTemperature"`
}

func newDailyAggregateResponse(d energy.DailyAggregate) dailyAggregateResponse {
	return dailyAggregateResponse{
		Date:                    energy.FormatDate(d.Date),
		AverageElectricityPrice: d.AverageElectricityPrice,
		AverageTemperature:      d.AverageTemperature,
	}
}

type uploadResponse struct {
	Message string `json:"message"`
	Country string `json:"country"`
	Records int    `json:"records"`
}

type dateResultResponse struct {
	Date               string   `json:"date"`
	Outcome            string   `json:"outcome"`
	AverageTemperature *float64 `json:"averageTemperature,omitempty"`
	Error              string   `json:"error,omitempty"`
}

func newDateResultResponse(r energy.DateResult) dateResultResponse {
	resp := dateResultResponse{
		Date:               energy.FormatDate(r.Date),
		Outcome:            string(r.Outcome),
		AverageTemperature: r.AverageTemperature,
	}
	if r.Err != nil {
		resp.Error = r.Err.Error()
	}
	return resp
}

type syncReportResponse struct {
	PassID     string               `json:"passId"`
	StartedAt  time.Time            `json:"startedAt"`
	FinishedAt time.Time            `json:"finishedAt"`
	Saved      int                  `json:"saved"`
	Skipped    int                  `json:"skipped"`
	Failed     int                  `json:"failed"`
	Results    []dateResultResponse `json:"results"`
}

func newSyncReportResponse(r energy.SyncReport) syncReportResponse {
	resp := syncReportResponse{
		PassID:     r.PassID,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Saved:      r.Count(energy.OutcomeSaved),
		Skipped:    r.Count(energy.OutcomeSkipped),
		Failed:     r.Count(energy.OutcomeFailed),
		Results:    make([]dateResultResponse, 0, len(r.Results)),
	}
	for _, res := range r.Results {
		resp.Results = append(resp.Results, newDateResultResponse(res))
	}
	return resp
}
