package mongostore

import (
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func parseDecimal128(value primitive.Decimal128) (float64, error) {
	d, err := decimal.NewFromString(value.String())
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}
