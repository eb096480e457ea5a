// Package money keeps price arithmetic out of float64.
package money

import (
	"github.com/shopspring/decimal"

	"canteen/internal/models"
)

// LineTotal returns price × quantity.
func LineTotal(price float64, quantity int) decimal.Decimal {
	return decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(quantity)))
}

// Total sums the line totals of lines.
func Total(lines []models.CartLine) float64 {
	sum := decimal.Zero
	for _, line := range lines {
		sum = sum.Add(LineTotal(line.UnitPrice, line.Quantity))
	}
	return Float(sum)
}

// Equal compares two amounts at cent precision.
func Equal(a, b float64) bool {
	return decimal.NewFromFloat(a).Round(2).Equal(decimal.NewFromFloat(b).Round(2))
}

// Float rounds to cents and converts back for JSON and BSON documents.
func Float(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
