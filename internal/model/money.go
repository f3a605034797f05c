package model

import "github.com/shopspring/decimal"

// PriceTolerance задаёт допустимое расхождение цены маршрута и цены из запроса.
var PriceTolerance = decimal.RequireFromString("0.01")

var hundred = decimal.NewFromInt(100)

// AmountToCents переводит сумму в основных единицах в копейки с округлением до целого.
func AmountToCents(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(hundred).Round(0).IntPart()
}

// CentsToAmount переводит копейки в основные единицы.
func CentsToAmount(cents int64) float64 {
	return decimal.New(cents, -2).InexactFloat64()
}

// PricesMatch сообщает, совпадают ли цены с точностью до PriceTolerance.
func PricesMatch(quoted float64, routeCents int64) bool {
	diff := decimal.NewFromFloat(quoted).Sub(decimal.New(routeCents, -2)).Abs()
	return diff.LessThanOrEqual(PriceTolerance)
}
