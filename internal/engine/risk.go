package engine

import (
	"github.com/shopspring/decimal"

	"liquidator/internal/models"
)

// Classification - результат оценки риска одного аккаунта
type Classification struct {
	Bucket models.RiskBucket

	// CollateralRatio = стоимость активов / стоимость пассивов.
	// Ноль, если Bucket == Unknown или пассивов нет.
	CollateralRatio decimal.Decimal

	// AssetsValue / LiabilitiesValue - стоимости сторон в котируемой валюте
	AssetsValue      decimal.Decimal
	LiabilitiesValue decimal.Decimal
}

// NetValue возвращает нетто-стоимость аккаунта (активы минус пассивы)
func (c Classification) NetValue() decimal.Decimal {
	return c.AssetsValue.Sub(c.LiabilitiesValue)
}

// Classify - чистая функция оценки риска аккаунта
//
// Контракт: Ripe только когда цены покрывают КАЖДЫЙ ненулевой баланс
// аккаунта и посчитанный коэффициент пробил порог. Отсутствие цены хотя
// бы по одному задействованному инструменту даёт Unknown - на устаревших
// или неполных данных ликвидация запрещена (корректность важнее полноты).
//
// Побочных эффектов нет; InFlight здесь не выдаётся - этот маркер
// принадлежит процессору, а не классификатору.
func Classify(account *models.AccountSnapshot, prices *models.PriceSnapshot, ripeThreshold decimal.Decimal) Classification {
	if account == nil || prices == nil {
		return Classification{Bucket: models.RiskUnknown}
	}

	assets := decimal.Zero
	liabilities := decimal.Zero

	for _, balance := range account.Balances {
		if balance.IsZero() {
			continue
		}

		price, ok := prices.Lookup(balance.Instrument)
		if !ok {
			// Цена по задействованному инструменту неизвестна - весь
			// аккаунт неоценим. Ни в коем случае не подставляем ноль.
			return Classification{Bucket: models.RiskUnknown}
		}

		assets = assets.Add(balance.Deposited.Mul(price))
		liabilities = liabilities.Add(balance.Borrowed.Mul(price))
	}

	result := Classification{
		AssetsValue:      assets,
		LiabilitiesValue: liabilities,
	}

	// Без займов ликвидировать нечего
	if liabilities.Sign() <= 0 {
		result.Bucket = models.RiskHealthy
		return result
	}

	result.CollateralRatio = assets.Div(liabilities)

	if result.CollateralRatio.LessThan(ripeThreshold) {
		result.Bucket = models.RiskRipe
	} else {
		result.Bucket = models.RiskHealthy
	}

	return result
}

// Worthwhile проверяет, стоит ли ликвидация усилий
//
// Прогрессивный фильтр поверх Ripe: аккаунт должен быть "над водой"
// (активы покрывают пассивы - иначе ликвидатору нечего забрать) и его
// нетто-стоимость должна превышать настроенный минимум.
func Worthwhile(c Classification, minNetValue decimal.Decimal) bool {
	if c.Bucket != models.RiskRipe {
		return false
	}
	net := c.NetValue()
	return net.Sign() > 0 && net.GreaterThanOrEqual(minNetValue)
}
