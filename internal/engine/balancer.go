package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"liquidator/internal/chain"
	"liquidator/internal/models"
)

// WalletBalancer приводит рабочий кошелёк к целевым уровням владения
//
// Закрытый набор вариантов: Null (цели не настроены или dry-run) и Live.
// Вызовы балансировщика сериализует процессор: две конкурентные
// корректировки одного инструмента перелетели бы цель.
type WalletBalancer interface {
	Name() string
	Rebalance(ctx context.Context, wallet []models.TokenValue, prices *models.PriceSnapshot) error
}

// NullWalletBalancer - no-op вариант
type NullWalletBalancer struct {
	log *zap.Logger
}

// NewNullWalletBalancer создает no-op балансировщик
func NewNullWalletBalancer(log *zap.Logger) *NullWalletBalancer {
	return &NullWalletBalancer{log: log.Named("null_balancer")}
}

func (b *NullWalletBalancer) Name() string {
	return "null"
}

func (b *NullWalletBalancer) Rebalance(ctx context.Context, wallet []models.TokenValue, prices *models.PriceSnapshot) error {
	b.log.Debug("dry-run: skipping wallet rebalance")
	return nil
}

// LiveWalletBalancer выставляет корректирующие сделки через executor
type LiveWalletBalancer struct {
	log      *zap.Logger
	executor chain.Executor
	notifier EventPublisher

	targets []models.BalanceTarget

	// actionThreshold - доля от полной стоимости кошелька, ниже которой
	// отклонение игнорируется (защита от торговли "пылью")
	actionThreshold decimal.Decimal

	// adjustmentFactor - допустимое проскальзывание выставляемой сделки
	adjustmentFactor decimal.Decimal
}

// NewLiveWalletBalancer создает боевой балансировщик
func NewLiveWalletBalancer(
	executor chain.Executor,
	notifier EventPublisher,
	targets []models.BalanceTarget,
	actionThreshold, adjustmentFactor decimal.Decimal,
	log *zap.Logger,
) *LiveWalletBalancer {
	return &LiveWalletBalancer{
		log:              log.Named("live_balancer"),
		executor:         executor,
		notifier:         notifier,
		targets:          targets,
		actionThreshold:  actionThreshold,
		adjustmentFactor: adjustmentFactor,
	}
}

func (b *LiveWalletBalancer) Name() string {
	return "live"
}

// Rebalance обрабатывает ВЕСЬ список целей, а не первый найденный дисбаланс
//
// Сделки по целям независимы: отказ по одной не блокирует остальные,
// ошибки собираются и возвращаются одним значением.
func (b *LiveWalletBalancer) Rebalance(ctx context.Context, wallet []models.TokenValue, prices *models.PriceSnapshot) error {
	totalValue := walletValue(wallet, prices)
	if totalValue.Sign() <= 0 {
		b.log.Warn("wallet value is zero or unpriceable, skipping rebalance")
		return nil
	}

	var errs []error

	for _, target := range b.targets {
		if err := b.rebalanceTarget(ctx, target, wallet, prices, totalValue); err != nil {
			b.log.Error("rebalance target failed",
				zap.String("instrument", target.Instrument),
				zap.Error(err),
			)
			b.publishRebalanceError(target, err)
			errs = append(errs, fmt.Errorf("target %s: %w", target.Instrument, err))
		}
	}

	return errors.Join(errs...)
}

// rebalanceTarget обрабатывает одну цель
func (b *LiveWalletBalancer) rebalanceTarget(
	ctx context.Context,
	target models.BalanceTarget,
	wallet []models.TokenValue,
	prices *models.PriceSnapshot,
	totalValue decimal.Decimal,
) error {
	price, ok := prices.Lookup(target.Instrument)
	if !ok || price.Sign() <= 0 {
		// Без цены отклонение не посчитать - пропускаем цель на этом проходе
		b.log.Warn("no price for balance target, skipping",
			zap.String("instrument", target.Instrument))
		return nil
	}

	current := models.WalletQuantity(wallet, target.Instrument)

	// Процентные цели резолвятся против полной стоимости портфеля
	desired := target.Amount
	if target.IsPercentage {
		desired = target.Percentage.Mul(totalValue).Div(price)
	}

	delta := desired.Sub(current)
	deltaValue := delta.Abs().Mul(price)

	// Отклонение ниже порога оставляем нетронутым на этом проходе
	if deltaValue.LessThan(b.actionThreshold.Mul(totalValue)) {
		b.log.Debug("imbalance below action threshold",
			zap.String("instrument", target.Instrument),
			zap.String("delta_value", deltaValue.String()),
		)
		return nil
	}

	side := chain.SideBuy
	if delta.Sign() < 0 {
		side = chain.SideSell
	}
	quantity := delta.Abs()

	signature, err := b.executor.ExecuteTrade(ctx, target.Instrument, side, quantity, price, b.adjustmentFactor)
	if err != nil {
		return err
	}

	b.log.Info("rebalance trade executed",
		zap.String("instrument", target.Instrument),
		zap.String("side", side),
		zap.String("quantity", quantity.String()),
		zap.String("tx_signature", signature),
	)

	if b.notifier != nil {
		b.notifier.Publish(&models.Event{
			Type:     models.EventTypeRebalance,
			Severity: models.SeverityInfo,
			Message:  fmt.Sprintf("rebalanced %s: %s %s", target.Instrument, side, quantity),
			Meta: map[string]interface{}{
				"instrument":   target.Instrument,
				"side":         side,
				"quantity":     quantity.String(),
				"tx_signature": signature,
			},
		})
	}

	return nil
}

func (b *LiveWalletBalancer) publishRebalanceError(target models.BalanceTarget, err error) {
	if b.notifier == nil {
		return
	}
	b.notifier.Publish(&models.Event{
		Type:     models.EventTypeError,
		Severity: models.SeverityError,
		Message:  fmt.Sprintf("rebalance failed for %s", target.Instrument),
		Meta: map[string]interface{}{
			"instrument": target.Instrument,
			"error":      err.Error(),
		},
	})
}

// walletValue считает полную стоимость кошелька по текущим ценам.
// Инструменты без цены в сумму не входят.
func walletValue(wallet []models.TokenValue, prices *models.PriceSnapshot) decimal.Decimal {
	total := decimal.Zero
	for _, balance := range wallet {
		if price, ok := prices.Lookup(balance.Instrument); ok {
			total = total.Add(balance.Quantity.Mul(price))
		}
	}
	return total
}
