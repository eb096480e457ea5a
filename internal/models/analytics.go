package models

// ItemDemand is the number of orders that contained a menu item.
type ItemDemand struct {
	Item       string `bson:"item" json:"item"`
	OrderCount int    `bson:"order_count" json:"order_count"`
}

// DailyOrderCount is the number of orders created on a calendar day
// (YYYY-MM-DD, UTC).
type DailyOrderCount struct {
	Date       string `bson:"date" json:"date"`
	OrderCount int    `bson:"order_count" json:"order_count"`
}

// Forecast is one day of predicted demand.
type Forecast struct {
	Date            string  `json:"date"`
	PredictedOrders float64 `json:"predicted_orders"`
	LowerBound      float64 `json:"lower_bound"`
	UpperBound      float64 `json:"upper_bound"`
}
