package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"liquidator/internal/chain"
	"liquidator/internal/models"
	"liquidator/pkg/retry"
)

// Имена фидов для метрик и логов
const (
	FeedAccounts = "accounts"
	FeedPrices   = "prices"
)

// SupervisorConfig - настройки супервизора подписок
type SupervisorConfig struct {
	AccountInterval time.Duration
	PriceInterval   time.Duration

	// RetryPauses - последовательность пауз между повторами одного фетча.
	// N пауз дают N+1 попыток; после исчерпания фетч считается отказом.
	RetryPauses []time.Duration

	// HealthCheckInterval - период проверки свежести данных и состояния
	HealthCheckInterval time.Duration
}

// Supervisor владеет жизненным циклом подписок на фиды
//
// Каждая подписка - тикер-цикл с фетчем прямо в теле цикла: пока фетч
// идёт, пропущенные тики тихо отбрасываются (канал тикера глубины 1),
// медленный апстрим даёт редкие обновления вместо растущей очереди.
//
// При переходе процессора в UNHEALTHY супервизор гасит ОБЕ подписки,
// дожидается их завершения, сбрасывает процессор в STARTING и создаёт
// подписки заново.
type Supervisor struct {
	log    *zap.Logger
	cfg    SupervisorConfig
	reader chain.Reader
	proc   *Processor
	policy retry.Policy
}

// NewSupervisor создает супервизор подписок
func NewSupervisor(cfg SupervisorConfig, reader chain.Reader, proc *Processor, log *zap.Logger) *Supervisor {
	policy := retry.WithPauses(cfg.RetryPauses...)
	policy.RetryIf = retry.NotPermanent
	return &Supervisor{
		log:    log.Named("supervisor"),
		cfg:    cfg,
		reader: reader,
		proc:   proc,
		policy: policy,
	}
}

// Run блокируется до отмены контекста, пересоздавая подписки по мере
// нездоровья процессора
func (s *Supervisor) Run(ctx context.Context) {
	healthInterval := s.cfg.HealthCheckInterval
	if healthInterval <= 0 {
		healthInterval = time.Second
	}

	for {
		if ctx.Err() != nil {
			return
		}

		subCtx, cancel := context.WithCancel(ctx)
		var wg sync.WaitGroup

		wg.Add(2)
		go func() {
			defer wg.Done()
			s.pollAccounts(subCtx)
		}()
		go func() {
			defer wg.Done()
			s.pollPrices(subCtx)
		}()

		s.log.Info("feed subscriptions started",
			zap.Duration("account_interval", s.cfg.AccountInterval),
			zap.Duration("price_interval", s.cfg.PriceInterval),
		)

		// Сторожевой цикл: ждём либо отмены, либо нездоровья
		ticker := time.NewTicker(healthInterval)
	watch:
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				cancel()
				wg.Wait()
				return
			case now := <-ticker.C:
				s.proc.CheckFreshness(now)
				if s.proc.State() == models.StateUnhealthy {
					break watch
				}
			}
		}
		ticker.Stop()

		// Полный цикл пересоздания: гасим обе подписки, ждём их,
		// сбрасываем процессор и заходим на новый круг
		s.log.Warn("processor unhealthy, recreating feed subscriptions")
		cancel()
		wg.Wait()
		s.proc.Reset()
		resubscribeTotal.Inc()
	}
}

// pollAccounts - подписка на фид аккаунтов
func (s *Supervisor) pollAccounts(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.AccountInterval)
	defer ticker.Stop()

	// Первый фетч сразу, не дожидаясь первого тика
	s.fetchAccounts(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.fetchAccounts(ctx)
		}
	}
}

func (s *Supervisor) fetchAccounts(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	snapshots, err := retry.DoWithResult(ctx, func() ([]*models.AccountSnapshot, error) {
		return s.reader.FetchAccounts(ctx)
	}, s.policy)
	if err != nil {
		if ctx.Err() == nil {
			s.proc.RecordFeedFailure(FeedAccounts, err)
		}
		return
	}
	s.proc.UpdateAccounts(ctx, snapshots)
}

// pollPrices - подписка на фид цен
func (s *Supervisor) pollPrices(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PriceInterval)
	defer ticker.Stop()

	s.fetchPrices(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.fetchPrices(ctx)
		}
	}
}

func (s *Supervisor) fetchPrices(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	snapshot, err := retry.DoWithResult(ctx, func() (*models.PriceSnapshot, error) {
		return s.reader.FetchPrices(ctx)
	}, s.policy)
	if err != nil {
		if ctx.Err() == nil {
			s.proc.RecordFeedFailure(FeedPrices, err)
		}
		return
	}
	s.proc.UpdatePrices(ctx, snapshot)
}
