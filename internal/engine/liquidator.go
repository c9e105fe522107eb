package engine

import (
	"context"

	"go.uber.org/zap"

	"liquidator/internal/chain"
	"liquidator/internal/models"
)

// Outcome - результат одной попытки ликвидации
//
// Ожидаемые on-chain отказы (нет ликвидности, аккаунт устарел) - это
// исходы со Succeeded=false, а не ошибки: ошибка возвращается только
// при неожиданном сбое.
type Outcome struct {
	Succeeded   bool
	TxSignature string
	Reason      string // причина отказа для Succeeded=false
}

// AccountLiquidator - стратегия ликвидации одного спелого аккаунта
//
// Закрытый набор вариантов (Null/Live), выбираемый один раз на старте
// из конфигурации. Гарантию "не более одной попытки на InFlight-окно"
// обеспечивает процессор, а не стратегия.
type AccountLiquidator interface {
	Name() string
	Liquidate(ctx context.Context, account *models.AccountSnapshot) (Outcome, error)
}

// NullAccountLiquidator - no-op вариант для dry-run режима
//
// Логирует кандидата и ничего не отправляет. Ни одного вызова
// исполнителя сделок из этого варианта не происходит.
type NullAccountLiquidator struct {
	log *zap.Logger
}

// NewNullAccountLiquidator создает no-op ликвидатор
func NewNullAccountLiquidator(log *zap.Logger) *NullAccountLiquidator {
	return &NullAccountLiquidator{log: log.Named("null_liquidator")}
}

func (l *NullAccountLiquidator) Name() string {
	return "null"
}

func (l *NullAccountLiquidator) Liquidate(ctx context.Context, account *models.AccountSnapshot) (Outcome, error) {
	l.log.Info("dry-run: would liquidate account",
		zap.String("account", account.Address),
		zap.String("owner", account.Owner),
	)
	return Outcome{Succeeded: false, Reason: "dry-run liquidator"}, nil
}

// LiveAccountLiquidator отправляет ликвидационную инструкцию через executor
type LiveAccountLiquidator struct {
	log      *zap.Logger
	executor chain.Executor
}

// NewLiveAccountLiquidator создает боевой ликвидатор
func NewLiveAccountLiquidator(executor chain.Executor, log *zap.Logger) *LiveAccountLiquidator {
	return &LiveAccountLiquidator{
		log:      log.Named("live_liquidator"),
		executor: executor,
	}
}

func (l *LiveAccountLiquidator) Name() string {
	return "live"
}

func (l *LiveAccountLiquidator) Liquidate(ctx context.Context, account *models.AccountSnapshot) (Outcome, error) {
	signature, err := l.executor.SubmitLiquidation(ctx, account.Address)
	if err != nil {
		// Ожидаемый on-chain отказ - исход, не сбой
		if chain.IsExpectedFailure(err) {
			l.log.Info("liquidation rejected on-chain",
				zap.String("account", account.Address),
				zap.String("reason", err.Error()),
			)
			return Outcome{Succeeded: false, Reason: err.Error()}, nil
		}
		return Outcome{}, err
	}

	l.log.Info("liquidation submitted",
		zap.String("account", account.Address),
		zap.String("tx_signature", signature),
	)
	return Outcome{Succeeded: true, TxSignature: signature}, nil
}
