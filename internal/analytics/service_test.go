package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"canteen/internal/models"
	"canteen/internal/orders"
)

var admin = models.Identity{UserID: primitive.NewObjectID(), Role: models.RoleAdmin}

type fakeSource struct {
	demand []models.ItemDemand
	daily  []models.DailyOrderCount
}

func (f fakeSource) ItemDemand(context.Context) ([]models.ItemDemand, error) { return f.demand, nil }
func (f fakeSource) DailyOrderCounts(context.Context) ([]models.DailyOrderCount, error) {
	return f.daily, nil
}

type fakeRunner struct {
	output []byte
	err    error
	script string
	input  []byte
}

func (f *fakeRunner) Run(_ context.Context, script string, input []byte) ([]byte, error) {
	f.script = script
	f.input = input
	return f.output, f.err
}

func TestPredictDemandClampsLowerBound(t *testing.T) {
	runner := &fakeRunner{output: []byte(`[
		{"date":"2026-05-01","predicted_orders":3.5,"lower_bound":-1.2,"upper_bound":7},
		{"date":"2026-05-02","predicted_orders":4,"lower_bound":2,"upper_bound":6}
	]`)}
	svc := NewService(fakeSource{daily: []models.DailyOrderCount{{Date: "2026-04-30", OrderCount: 3}}}, runner, zap.NewNop())

	forecasts, err := svc.PredictDemand(context.Background(), admin)
	if err != nil {
		t.Fatalf("PredictDemand: %v", err)
	}
	if runner.script != forecastScript {
		t.Fatalf("expected %s, got %s", forecastScript, runner.script)
	}
	var sent []models.DailyOrderCount
	if err := json.Unmarshal(runner.input, &sent); err != nil || len(sent) != 1 || sent[0].OrderCount != 3 {
		t.Fatalf("unexpected script input %s", runner.input)
	}
	if forecasts[0].LowerBound != 0 || forecasts[1].LowerBound != 2 {
		t.Fatalf("unexpected lower bounds %+v", forecasts)
	}
	if forecasts[0].UpperBound != 7 || forecasts[0].PredictedOrders != 3.5 {
		t.Fatalf("other fields must pass through, got %+v", forecasts[0])
	}
}

func TestAnalyzeDemandAddsTotals(t *testing.T) {
	runner := &fakeRunner{output: []byte(`{"high_demand":[{"item":"Samosa","order_count":9}],"low_demand":[{"item":"Tea","order_count":1}]}`)}
	demand := []models.ItemDemand{{Item: "Samosa", OrderCount: 9}, {Item: "Dosa", OrderCount: 4}, {Item: "Tea", OrderCount: 1}}
	svc := NewService(fakeSource{demand: demand}, runner, zap.NewNop())

	report, err := svc.AnalyzeDemand(context.Background(), admin)
	if err != nil {
		t.Fatalf("AnalyzeDemand: %v", err)
	}
	if report.TotalOrders != 14 || report.MostOrdered.Item != "Samosa" || report.LeastOrdered.Item != "Tea" {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(report.HighDemand) == 0 || len(report.LowDemand) == 0 {
		t.Fatal("expected script categories to pass through")
	}
}

func TestAnalyticsErrors(t *testing.T) {
	svc := NewService(fakeSource{}, &fakeRunner{}, zap.NewNop())
	if _, err := svc.PredictDemand(context.Background(), admin); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}

	source := fakeSource{daily: []models.DailyOrderCount{{Date: "2026-05-01", OrderCount: 1}}}
	tests := map[string]*fakeRunner{
		"script failure": {err: errors.New("exit status 1")},
		"script error":   {output: []byte(`{"error":"Missing or invalid date column in input data"}`)},
		"invalid json":   {output: []byte(`not json`)},
	}
	for name, runner := range tests {
		t.Run(name, func(t *testing.T) {
			svc := NewService(source, runner, zap.NewNop())
			_, err := svc.PredictDemand(context.Background(), admin)
			var upstream UpstreamError
			if !errors.As(err, &upstream) {
				t.Fatalf("expected UpstreamError, got %v", err)
			}
		})
	}
}

func TestAnalyticsRequiresAdmin(t *testing.T) {
	runner := &fakeRunner{output: []byte(`[]`)}
	source := fakeSource{
		demand: []models.ItemDemand{{Item: "Samosa", OrderCount: 2}},
		daily:  []models.DailyOrderCount{{Date: "2026-05-01", OrderCount: 2}},
	}
	svc := NewService(source, runner, zap.NewNop())
	user := models.Identity{UserID: primitive.NewObjectID(), Role: models.RoleUser}

	if _, err := svc.AnalyzeDemand(context.Background(), user); !errors.Is(err, orders.ErrForbidden) {
		t.Fatalf("expected ErrForbidden from AnalyzeDemand, got %v", err)
	}
	if _, err := svc.PredictDemand(context.Background(), user); !errors.Is(err, orders.ErrForbidden) {
		t.Fatalf("expected ErrForbidden from PredictDemand, got %v", err)
	}
	if _, err := svc.PredictDemand(context.Background(), models.Identity{}); !errors.Is(err, orders.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for an anonymous actor, got %v", err)
	}
	if runner.script != "" {
		t.Fatalf("script %s ran for a non-admin actor", runner.script)
	}
}
