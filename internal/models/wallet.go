package models

import "github.com/shopspring/decimal"

// TokenValue - количество инструмента в рабочем кошельке ликвидатора
type TokenValue struct {
	Instrument string          `json:"instrument"`
	Quantity   decimal.Decimal `json:"quantity"`
}

// WalletQuantity возвращает количество инструмента в наборе балансов кошелька
// (ноль, если инструмента нет)
func WalletQuantity(balances []TokenValue, instrument string) decimal.Decimal {
	for _, b := range balances {
		if b.Instrument == instrument {
			return b.Quantity
		}
	}
	return decimal.Zero
}
