package chain

import (
	"context"

	"github.com/shopspring/decimal"

	"liquidator/internal/models"
)

// Стороны сделки
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// Reader определяет контракт считывателя цепочки
//
// Внешний коллаборатор: разбор бинарных layout'ов аккаунтов и конкретные
// формулы протокола остаются за реализацией. Ядро оборачивает вызовы
// в retry-политику с настраиваемой последовательностью пауз.
type Reader interface {
	// FetchAccounts возвращает полный список маржинальных аккаунтов протокола
	FetchAccounts(ctx context.Context) ([]*models.AccountSnapshot, error)

	// FetchPrices возвращает текущий набор цен с маркером свежести.
	// Частичный набор легален - недоступный оракул означает "неизвестно".
	FetchPrices(ctx context.Context) (*models.PriceSnapshot, error)

	// FetchWallet возвращает текущие балансы рабочего кошелька ликвидатора
	FetchWallet(ctx context.Context) ([]models.TokenValue, error)
}

// Executor определяет контракт исполнения сделок и ликвидаций
type Executor interface {
	// ExecuteTrade выставляет рыночный ордер с допустимым проскальзыванием.
	// Возвращает идентификатор транзакции; детали исполнения ядру непрозрачны.
	ExecuteTrade(ctx context.Context, instrument, side string, quantity, price, slippage decimal.Decimal) (string, error)

	// SubmitLiquidation отправляет ликвидационную инструкцию для аккаунта.
	// Ожидаемые on-chain отказы возвращаются как ошибки, проходящие
	// IsExpectedFailure - это исходы, а не сбои.
	SubmitLiquidation(ctx context.Context, account string) (string, error)
}
