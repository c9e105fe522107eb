package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"liquidator/internal/chain"
	"liquidator/internal/models"
)

func liveBalancer(executor chain.Executor, targets []models.BalanceTarget) *LiveWalletBalancer {
	return NewLiveWalletBalancer(executor, nil, targets, dec("0.01"), dec("0.005"), zap.NewNop())
}

// TestLiveBalancer_BelowThresholdNoTrade: отклонение меньше порога действия
// не порождает сделку
func TestLiveBalancer_BelowThresholdNoTrade(t *testing.T) {
	executor := chain.NewSimExecutor()
	b := liveBalancer(executor, []models.BalanceTarget{
		{Instrument: "USDC", Amount: dec("1001")},
	})

	wallet := []models.TokenValue{{Instrument: "USDC", Quantity: dec("1000")}}
	prices := pricesOf(map[string]string{"USDC": "1"})

	require.NoError(t, b.Rebalance(context.Background(), wallet, prices))
	assert.Empty(t, executor.Trades(), "1/1000 deviation is below the 1% threshold")
}

// TestLiveBalancer_BuyAndSell: дефицит покупается, избыток продаётся
func TestLiveBalancer_BuyAndSell(t *testing.T) {
	executor := chain.NewSimExecutor()
	b := liveBalancer(executor, []models.BalanceTarget{
		{Instrument: "SOL", Amount: dec("10")},
		{Instrument: "USDC", Amount: dec("500")},
	})

	wallet := []models.TokenValue{
		{Instrument: "SOL", Quantity: dec("4")},
		{Instrument: "USDC", Quantity: dec("900")},
	}
	prices := pricesOf(map[string]string{"SOL": "100", "USDC": "1"})

	require.NoError(t, b.Rebalance(context.Background(), wallet, prices))

	trades := executor.Trades()
	require.Len(t, trades, 2)

	assert.Equal(t, "SOL", trades[0].Instrument)
	assert.Equal(t, chain.SideBuy, trades[0].Side)
	assert.True(t, trades[0].Quantity.Equal(dec("6")), "quantity = %s", trades[0].Quantity)

	assert.Equal(t, "USDC", trades[1].Instrument)
	assert.Equal(t, chain.SideSell, trades[1].Side)
	assert.True(t, trades[1].Quantity.Equal(dec("400")), "quantity = %s", trades[1].Quantity)
	assert.True(t, trades[1].Slippage.Equal(dec("0.005")))
}

// TestLiveBalancer_PercentageTarget: процентная цель резолвится против
// полной стоимости кошелька
func TestLiveBalancer_PercentageTarget(t *testing.T) {
	executor := chain.NewSimExecutor()
	b := liveBalancer(executor, []models.BalanceTarget{
		{Instrument: "SOL", Percentage: dec("0.2"), IsPercentage: true},
	})

	// Полная стоимость: 2*100 + 800 = 1000; цель 20% = 200 = 2 SOL
	wallet := []models.TokenValue{
		{Instrument: "SOL", Quantity: dec("2")},
		{Instrument: "USDC", Quantity: dec("800")},
	}
	prices := pricesOf(map[string]string{"SOL": "100", "USDC": "1"})

	require.NoError(t, b.Rebalance(context.Background(), wallet, prices))
	assert.Empty(t, executor.Trades(), "wallet already at 20% SOL")

	// Кошелёк сместился: 4 SOL = 400 из 1200, цель 20% = 2.4 SOL
	wallet[0].Quantity = dec("4")
	require.NoError(t, b.Rebalance(context.Background(), wallet, prices))
	trades := executor.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, chain.SideSell, trades[0].Side)
	assert.True(t, trades[0].Quantity.Equal(dec("1.6")), "quantity = %s", trades[0].Quantity)
}

// TestLiveBalancer_MissingPriceSkipsTarget: цель без цены пропускается
// без ошибки, остальные цели обрабатываются
func TestLiveBalancer_MissingPriceSkipsTarget(t *testing.T) {
	executor := chain.NewSimExecutor()
	b := liveBalancer(executor, []models.BalanceTarget{
		{Instrument: "BONK", Amount: dec("1000000")},
		{Instrument: "SOL", Amount: dec("5")},
	})

	wallet := []models.TokenValue{{Instrument: "USDC", Quantity: dec("1000")}}
	prices := pricesOf(map[string]string{"SOL": "100", "USDC": "1"})

	require.NoError(t, b.Rebalance(context.Background(), wallet, prices))
	trades := executor.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, "SOL", trades[0].Instrument)
}

// TestLiveBalancer_FailureIsolation: отказ по одной цели не блокирует
// остальные, ошибки собираются в одно значение
func TestLiveBalancer_FailureIsolation(t *testing.T) {
	executor := chain.NewSimExecutor()
	executor.TradeErr = errors.New("order rejected")
	b := liveBalancer(executor, []models.BalanceTarget{
		{Instrument: "SOL", Amount: dec("10")},
		{Instrument: "USDC", Amount: dec("500")},
	})

	wallet := []models.TokenValue{
		{Instrument: "SOL", Quantity: dec("1")},
		{Instrument: "USDC", Quantity: dec("900")},
	}
	prices := pricesOf(map[string]string{"SOL": "100", "USDC": "1"})

	err := b.Rebalance(context.Background(), wallet, prices)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SOL")
	assert.Contains(t, err.Error(), "USDC")
}

// TestLiveBalancer_EmptyWalletNoop: пустой или неоценимый кошелёк
// пропускается без сделок
func TestLiveBalancer_EmptyWalletNoop(t *testing.T) {
	executor := chain.NewSimExecutor()
	b := liveBalancer(executor, []models.BalanceTarget{
		{Instrument: "SOL", Amount: dec("10")},
	})

	prices := pricesOf(map[string]string{"SOL": "100"})
	require.NoError(t, b.Rebalance(context.Background(), nil, prices))
	assert.Empty(t, executor.Trades())
}

// TestNullBalancer_Noop: null-вариант не трогает исполнителя
func TestNullBalancer_Noop(t *testing.T) {
	b := NewNullWalletBalancer(zap.NewNop())
	wallet := []models.TokenValue{{Instrument: "SOL", Quantity: dec("1")}}
	require.NoError(t, b.Rebalance(context.Background(), wallet, pricesOf(map[string]string{"SOL": "1"})))
	assert.Equal(t, "null", b.Name())
}
