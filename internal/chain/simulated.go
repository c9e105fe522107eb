package chain

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"liquidator/internal/models"
)

// SimReader - in-memory считыватель для dry-run режима и тестов
//
// Отдаёт то, что в него положили через Set*. Потокобезопасен: опросы
// аккаунтов и цен идут из независимых периодических задач.
type SimReader struct {
	mu       sync.RWMutex
	accounts []*models.AccountSnapshot
	prices   *models.PriceSnapshot
	wallet   []models.TokenValue

	// Ошибки для имитации отказов фетча (nil = успех)
	accountsErr error
	pricesErr   error
	walletErr   error
}

// NewSimReader создает пустой симулированный считыватель
func NewSimReader() *SimReader {
	return &SimReader{
		prices: &models.PriceSnapshot{Prices: map[string]decimal.Decimal{}},
	}
}

// SetAccounts подменяет текущий набор аккаунтов
func (r *SimReader) SetAccounts(accounts []*models.AccountSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts = accounts
}

// SetPrices подменяет текущий снимок цен
func (r *SimReader) SetPrices(prices *models.PriceSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prices = prices
}

// SetWallet подменяет балансы кошелька
func (r *SimReader) SetWallet(wallet []models.TokenValue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wallet = wallet
}

// SetAccountsError включает/выключает имитацию отказа фетча аккаунтов
func (r *SimReader) SetAccountsError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accountsErr = err
}

// SetPricesError включает/выключает имитацию отказа фетча цен
func (r *SimReader) SetPricesError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pricesErr = err
}

// FetchAccounts возвращает копию набора аккаунтов
func (r *SimReader) FetchAccounts(ctx context.Context) ([]*models.AccountSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.accountsErr != nil {
		return nil, r.accountsErr
	}
	out := make([]*models.AccountSnapshot, len(r.accounts))
	copy(out, r.accounts)
	return out, nil
}

// FetchPrices возвращает текущий снимок цен
func (r *SimReader) FetchPrices(ctx context.Context) (*models.PriceSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.pricesErr != nil {
		return nil, r.pricesErr
	}
	return r.prices, nil
}

// FetchWallet возвращает копию балансов кошелька
func (r *SimReader) FetchWallet(ctx context.Context) ([]models.TokenValue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.walletErr != nil {
		return nil, r.walletErr
	}
	out := make([]models.TokenValue, len(r.wallet))
	copy(out, r.wallet)
	return out, nil
}

// TradeRecord - запись о сделке, проведённой через симулированный executor
type TradeRecord struct {
	Instrument string
	Side       string
	Quantity   decimal.Decimal
	Price      decimal.Decimal
	Slippage   decimal.Decimal
}

// SimExecutor - in-memory исполнитель для dry-run режима и тестов
//
// Записывает все вызовы; тесты проверяют, что в dry-run конфигурации
// сюда не приходит ни одного вызова.
type SimExecutor struct {
	mu           sync.Mutex
	trades       []TradeRecord
	liquidations []string
	seq          int64

	// TradeErr/LiquidationErr позволяют имитировать отказы
	TradeErr       error
	LiquidationErr error
}

// NewSimExecutor создает пустой симулированный исполнитель
func NewSimExecutor() *SimExecutor {
	return &SimExecutor{}
}

// ExecuteTrade записывает сделку и возвращает синтетическую подпись
func (e *SimExecutor) ExecuteTrade(ctx context.Context, instrument, side string, quantity, price, slippage decimal.Decimal) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.TradeErr != nil {
		return "", e.TradeErr
	}
	e.trades = append(e.trades, TradeRecord{
		Instrument: instrument,
		Side:       side,
		Quantity:   quantity,
		Price:      price,
		Slippage:   slippage,
	})
	return fmt.Sprintf("sim-trade-%d", atomic.AddInt64(&e.seq, 1)), nil
}

// SubmitLiquidation записывает ликвидацию и возвращает синтетическую подпись
func (e *SimExecutor) SubmitLiquidation(ctx context.Context, account string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.LiquidationErr != nil {
		return "", e.LiquidationErr
	}
	e.liquidations = append(e.liquidations, account)
	return fmt.Sprintf("sim-liq-%d", atomic.AddInt64(&e.seq, 1)), nil
}

// Trades возвращает копию записанных сделок
func (e *SimExecutor) Trades() []TradeRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]TradeRecord, len(e.trades))
	copy(out, e.trades)
	return out
}

// Liquidations возвращает копию записанных ликвидаций
func (e *SimExecutor) Liquidations() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.liquidations))
	copy(out, e.liquidations)
	return out
}
