package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// BalanceTarget - целевой уровень владения инструментом в рабочем кошельке
//
// Либо абсолютное количество ("USDC:1000"), либо доля от полной стоимости
// портфеля ("SOL:20%"). Сделка не выставляется, пока стоимость отклонения
// не превысит action threshold - защита от торговли "пылью".
type BalanceTarget struct {
	Instrument   string          `json:"instrument"`
	Amount       decimal.Decimal `json:"amount"`     // абсолютное количество (если !IsPercentage)
	Percentage   decimal.Decimal `json:"percentage"` // доля 0..1 (если IsPercentage)
	IsPercentage bool            `json:"is_percentage"`
}

// String возвращает представление цели в конфигурационном формате
func (t BalanceTarget) String() string {
	if t.IsPercentage {
		return fmt.Sprintf("%s:%s%%", t.Instrument, t.Percentage.Mul(decimal.NewFromInt(100)))
	}
	return fmt.Sprintf("%s:%s", t.Instrument, t.Amount)
}

// ParseBalanceTargets разбирает список целей из конфигурационной строки
//
// Формат: "SOL:20%,USDC:1000,BTC:5%" - инструмент и абсолютное количество
// либо процент от стоимости портфеля. Пустая строка - пустой список
// (балансировка выключена, подставляется no-op вариант).
func ParseBalanceTargets(raw string) ([]BalanceTarget, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	targets := make([]BalanceTarget, 0, len(parts))
	seen := make(map[string]bool, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		fields := strings.SplitN(part, ":", 2)
		if len(fields) != 2 {
			return nil, fmt.Errorf("invalid balance target %q: expected INSTRUMENT:VALUE", part)
		}

		instrument := strings.ToUpper(strings.TrimSpace(fields[0]))
		value := strings.TrimSpace(fields[1])
		if instrument == "" || value == "" {
			return nil, fmt.Errorf("invalid balance target %q: empty instrument or value", part)
		}
		if seen[instrument] {
			return nil, fmt.Errorf("duplicate balance target for %s", instrument)
		}
		seen[instrument] = true

		target := BalanceTarget{Instrument: instrument}

		if strings.HasSuffix(value, "%") {
			pct, err := decimal.NewFromString(strings.TrimSuffix(value, "%"))
			if err != nil {
				return nil, fmt.Errorf("invalid percentage in target %q: %w", part, err)
			}
			if pct.Sign() < 0 || pct.GreaterThan(decimal.NewFromInt(100)) {
				return nil, fmt.Errorf("percentage in target %q must be within 0-100", part)
			}
			target.IsPercentage = true
			target.Percentage = pct.Div(decimal.NewFromInt(100))
		} else {
			amount, err := decimal.NewFromString(value)
			if err != nil {
				return nil, fmt.Errorf("invalid amount in target %q: %w", part, err)
			}
			if amount.Sign() < 0 {
				return nil, fmt.Errorf("amount in target %q cannot be negative", part)
			}
			target.Amount = amount
		}

		targets = append(targets, target)
	}

	return targets, nil
}
