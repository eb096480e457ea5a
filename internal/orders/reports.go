package orders

import (
	"sort"

	"github.com/shopspring/decimal"

	"canteen/internal/models"
	"canteen/internal/money"
)

const dayLayout = "2006-01-02"

type StatusCount struct {
	Status models.OrderStatus `json:"status"`
	Count  int                `json:"count"`
}

type DailyRevenue struct {
	Date    string  `json:"date"`
	Revenue float64 `json:"revenue"`
	Orders  int     `json:"orders"`
}

// CountByStatus buckets orders by status, listing every lifecycle status in
// order even when its count is zero.
func CountByStatus(orders []models.Order) []StatusCount {
	counts := make(map[models.OrderStatus]int)
	for _, o := range orders {
		counts[o.Status]++
	}
	out := make([]StatusCount, 0, len(models.OrderStatuses()))
	for _, s := range models.OrderStatuses() {
		out = append(out, StatusCount{Status: s, Count: counts[s]})
	}
	return out
}

// RevenueByDay sums order totals per UTC creation day, oldest day first.
func RevenueByDay(orders []models.Order) []DailyRevenue {
	revenue := make(map[string]decimal.Decimal)
	count := make(map[string]int)
	for _, o := range orders {
		day := o.CreatedAt.UTC().Format(dayLayout)
		revenue[day] = revenue[day].Add(decimal.NewFromFloat(o.TotalAmount))
		count[day]++
	}

	out := make([]DailyRevenue, 0, len(revenue))
	for day, sum := range revenue {
		out = append(out, DailyRevenue{Date: day, Revenue: money.Float(sum), Orders: count[day]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// DemandByItem counts, per item name, how many orders contained it.
func DemandByItem(orders []models.Order) []models.ItemDemand {
	counts := make(map[string]int)
	for _, o := range orders {
		for _, line := range o.Lines {
			counts[line.Name]++
		}
	}
	out := make([]models.ItemDemand, 0, len(counts))
	for item, n := range counts {
		out = append(out, models.ItemDemand{Item: item, OrderCount: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Item < out[j].Item })
	return out
}

// OrdersByDay counts orders per UTC creation day, oldest day first.
func OrdersByDay(orders []models.Order) []models.DailyOrderCount {
	counts := make(map[string]int)
	for _, o := range orders {
		counts[o.CreatedAt.UTC().Format(dayLayout)]++
	}
	out := make([]models.DailyOrderCount, 0, len(counts))
	for day, n := range counts {
		out = append(out, models.DailyOrderCount{Date: day, OrderCount: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
