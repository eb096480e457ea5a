// Package analytics hands order aggregates to the external demand analysis
// and forecasting scripts and normalizes what they return.
package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"canteen/internal/models"
	"canteen/internal/orders"
)

const (
	demandScript   = "order_analysis.py"
	forecastScript = "demand_prediction.py"
)

var ErrNoData = errors.New("no order data available for analysis")

// UpstreamError reports a failed or malformed script run.
type UpstreamError struct {
	Script string
	Err    error
}

func (e UpstreamError) Error() string {
	return fmt.Sprintf("analytics %s: %v", e.Script, e.Err)
}

func (e UpstreamError) Unwrap() error {
	return e.Err
}

// Source provides the aggregates the scripts consume.
type Source interface {
	ItemDemand(ctx context.Context) ([]models.ItemDemand, error)
	DailyOrderCounts(ctx context.Context) ([]models.DailyOrderCount, error)
}

// DemandReport passes the script's categories through untouched and adds
// totals computed here.
type DemandReport struct {
	HighDemand   json.RawMessage   `json:"high_demand"`
	LowDemand    json.RawMessage   `json:"low_demand"`
	MediumDemand json.RawMessage   `json:"medium_demand,omitempty"`
	TotalOrders  int               `json:"total_orders"`
	MostOrdered  models.ItemDemand `json:"most_ordered"`
	LeastOrdered models.ItemDemand `json:"least_ordered"`
}

type Service struct {
	source Source
	runner Runner
	logger *zap.Logger
}

func NewService(source Source, runner Runner, logger *zap.Logger) *Service {
	return &Service{source: source, runner: runner, logger: logger.Named("analytics")}
}

// AnalyzeDemand is admin-only; other actors get orders.ErrForbidden before
// any aggregate is read.
func (s *Service) AnalyzeDemand(ctx context.Context, actor models.Identity) (DemandReport, error) {
	if !actor.IsAdmin() {
		return DemandReport{}, orders.ErrForbidden
	}
	demand, err := s.source.ItemDemand(ctx)
	if err != nil {
		return DemandReport{}, err
	}
	if len(demand) == 0 {
		return DemandReport{}, ErrNoData
	}

	var out struct {
		HighDemand   json.RawMessage `json:"high_demand"`
		LowDemand    json.RawMessage `json:"low_demand"`
		MediumDemand json.RawMessage `json:"medium_demand"`
		Error        string          `json:"error"`
	}
	if err := s.run(ctx, demandScript, demand, &out); err != nil {
		return DemandReport{}, err
	}
	if out.Error != "" {
		return DemandReport{}, UpstreamError{Script: demandScript, Err: errors.New(out.Error)}
	}

	report := DemandReport{
		HighDemand:   out.HighDemand,
		LowDemand:    out.LowDemand,
		MediumDemand: out.MediumDemand,
		MostOrdered:  demand[0],
		LeastOrdered: demand[0],
	}
	for _, d := range demand {
		report.TotalOrders += d.OrderCount
		if d.OrderCount > report.MostOrdered.OrderCount {
			report.MostOrdered = d
		}
		if d.OrderCount < report.LeastOrdered.OrderCount {
			report.LeastOrdered = d
		}
	}
	return report, nil
}

func (s *Service) PredictDemand(ctx context.Context, actor models.Identity) ([]models.Forecast, error) {
	if !actor.IsAdmin() {
		return nil, orders.ErrForbidden
	}
	counts, err := s.source.DailyOrderCounts(ctx)
	if err != nil {
		return nil, err
	}
	if len(counts) == 0 {
		return nil, ErrNoData
	}

	var raw json.RawMessage
	if err := s.run(ctx, forecastScript, counts, &raw); err != nil {
		return nil, err
	}

	var failure struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &failure) == nil && failure.Error != "" {
		return nil, UpstreamError{Script: forecastScript, Err: errors.New(failure.Error)}
	}

	var forecasts []models.Forecast
	if err := json.Unmarshal(raw, &forecasts); err != nil {
		return nil, UpstreamError{Script: forecastScript, Err: err}
	}
	return NormalizeForecasts(forecasts), nil
}

// NormalizeForecasts clamps negative lower bounds to zero.
func NormalizeForecasts(forecasts []models.Forecast) []models.Forecast {
	out := make([]models.Forecast, len(forecasts))
	for i, f := range forecasts {
		f.LowerBound = math.Max(0, f.LowerBound)
		out[i] = f
	}
	return out
}

func (s *Service) run(ctx context.Context, script string, input, output any) error {
	payload, err := json.Marshal(input)
	if err != nil {
		return err
	}
	result, err := s.runner.Run(ctx, script, payload)
	if err != nil {
		s.logger.Error("analytics script failed", zap.String("script", script), zap.Error(err))
		return UpstreamError{Script: script, Err: err}
	}
	if err := json.Unmarshal(result, output); err != nil {
		s.logger.Error("analytics script returned invalid json", zap.String("script", script), zap.Error(err))
		return UpstreamError{Script: script, Err: err}
	}
	return nil
}
