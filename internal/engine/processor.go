package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"liquidator/internal/chain"
	"liquidator/internal/models"
)

// EventPublisher - контракт публикации событий движка в каналы уведомлений
//
// Интерфейс объявлен на стороне потребителя, чтобы движок не зависел
// от пакета service. Publish не блокирует вызывающего.
type EventPublisher interface {
	Publish(event *models.Event)
}

// ProcessorConfig - настройки процессора ликвидаций
type ProcessorConfig struct {
	// RipeThreshold - порог коэффициента обеспеченности, ниже которого
	// аккаунт считается спелым для ликвидации
	RipeThreshold decimal.Decimal

	// WorthwhileThreshold - минимальная нетто-стоимость аккаунта,
	// оправдывающая попытку ликвидации
	WorthwhileThreshold decimal.Decimal

	// MaxConsecutiveFailures - сколько подряд идущих отказов фетча
	// переводят процессор в UNHEALTHY
	MaxConsecutiveFailures int

	// StaleAccountsAfter / StalePricesAfter - предельный возраст данных,
	// после которого процессор считается нездоровым даже без явных отказов
	StaleAccountsAfter time.Duration
	StalePricesAfter   time.Duration
}

// Processor - ядро движка: хранит последние снимки, оценивает риск,
// диспатчит ликвидации и отслеживает собственное здоровье
//
// Состояния: STARTING -> HEALTHY <-> UNHEALTHY. Из UNHEALTHY процессор
// сам не выходит - супервизор пересоздаёт подписки и вызывает Reset.
type Processor struct {
	log *zap.Logger
	cfg ProcessorConfig

	liquidator AccountLiquidator
	balancer   WalletBalancer
	reader     chain.Reader
	notifier   EventPublisher

	mu       sync.Mutex
	state    string
	accounts map[string]*models.AccountSnapshot
	prices   *models.PriceSnapshot

	// inFlight - адреса аккаунтов с неразрешённой попыткой ликвидации.
	// Пока адрес здесь, повторная отправка запрещена.
	inFlight map[string]struct{}

	// buckets - результат последнего прохода оценки, для API и метрик
	buckets map[string]models.RiskBucket

	consecutiveFailures int
	lastAccountsAt      time.Time
	lastPricesAt        time.Time

	// balancerMu сериализует прогоны балансировщика: конкурентные
	// корректировки одного инструмента перелетели бы цель
	balancerMu sync.Mutex

	// wg отслеживает незавершённые диспатчи (для тестов и shutdown)
	wg sync.WaitGroup
}

// NewProcessor создает процессор в состоянии STARTING
func NewProcessor(
	cfg ProcessorConfig,
	liquidator AccountLiquidator,
	balancer WalletBalancer,
	reader chain.Reader,
	notifier EventPublisher,
	log *zap.Logger,
) *Processor {
	p := &Processor{
		log:        log.Named("processor"),
		cfg:        cfg,
		liquidator: liquidator,
		balancer:   balancer,
		reader:     reader,
		notifier:   notifier,
		state:      models.StateStarting,
		accounts:   make(map[string]*models.AccountSnapshot),
		inFlight:   make(map[string]struct{}),
		buckets:    make(map[string]models.RiskBucket),
	}
	setProcessorStateMetric(p.state)
	return p
}

// State возвращает текущее состояние процессора
func (p *Processor) State() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Wait блокируется до завершения всех незавершённых диспатчей
func (p *Processor) Wait() {
	p.wg.Wait()
}

// UpdateAccounts принимает свежий полный снимок аккаунтов
//
// Замена оптовая: аккаунты, отсутствующие в новом снимке, выпадают из
// отслеживания вместе со своими InFlight-маркерами. После замены прогоняется
// оценка риска и кандидаты диспатчатся асинхронно, уже без удержания мьютекса.
func (p *Processor) UpdateAccounts(ctx context.Context, snapshots []*models.AccountSnapshot) {
	p.mu.Lock()

	fresh := make(map[string]*models.AccountSnapshot, len(snapshots))
	for _, snap := range snapshots {
		if snap == nil || snap.Address == "" {
			continue
		}
		fresh[snap.Address] = snap
	}

	// InFlight-маркер живёт только пока аккаунт существует в снимке
	for address := range p.inFlight {
		if _, ok := fresh[address]; !ok {
			delete(p.inFlight, address)
		}
	}

	p.accounts = fresh
	p.lastAccountsAt = time.Now()
	accountsTracked.Set(float64(len(fresh)))

	becameHealthy := p.recordSuccessLocked()
	candidates := p.evaluateLocked()
	p.mu.Unlock()

	if becameHealthy {
		p.publishStateChange(models.StateHealthy, "first feed data received")
	}

	for _, account := range candidates {
		p.wg.Add(1)
		go p.dispatch(ctx, account)
	}
}

// UpdatePrices принимает свежий снимок цен
//
// Страж монотонности: снимок не новее текущего молча отбрасывается,
// цены никогда не откатываются назад.
func (p *Processor) UpdatePrices(ctx context.Context, snapshot *models.PriceSnapshot) {
	if snapshot == nil {
		return
	}

	p.mu.Lock()

	if p.prices != nil && !snapshot.NewerThan(p.prices) {
		p.mu.Unlock()
		priceUpdatesDiscarded.Inc()
		p.log.Debug("discarding stale price snapshot",
			zap.Uint64("slot", snapshot.Slot),
			zap.Time("timestamp", snapshot.Timestamp),
		)
		return
	}

	p.prices = snapshot
	p.lastPricesAt = time.Now()

	becameHealthy := p.recordSuccessLocked()
	candidates := p.evaluateLocked()
	p.mu.Unlock()

	if becameHealthy {
		p.publishStateChange(models.StateHealthy, "first feed data received")
	}

	for _, account := range candidates {
		p.wg.Add(1)
		go p.dispatch(ctx, account)
	}
}

// evaluateLocked классифицирует все аккаунты и отбирает кандидатов на диспатч.
// Вызывается строго под p.mu; InFlight-маркеры выставляются здесь же,
// до отпускания мьютекса, чтобы два прохода не отобрали один аккаунт.
func (p *Processor) evaluateLocked() []*models.AccountSnapshot {
	if p.prices == nil {
		return nil
	}

	buckets := make(map[string]models.RiskBucket, len(p.accounts))
	counts := map[models.RiskBucket]int{
		models.RiskHealthy:  0,
		models.RiskRipe:     0,
		models.RiskInFlight: 0,
		models.RiskUnknown:  0,
	}

	var candidates []*models.AccountSnapshot

	for address, account := range p.accounts {
		if _, busy := p.inFlight[address]; busy {
			buckets[address] = models.RiskInFlight
			counts[models.RiskInFlight]++
			continue
		}

		c := Classify(account, p.prices, p.cfg.RipeThreshold)
		buckets[address] = c.Bucket
		counts[c.Bucket]++

		if c.Bucket == models.RiskRipe && Worthwhile(c, p.cfg.WorthwhileThreshold) {
			p.inFlight[address] = struct{}{}
			buckets[address] = models.RiskInFlight
			counts[models.RiskRipe]--
			counts[models.RiskInFlight]++
			candidates = append(candidates, account)
		}
	}

	p.buckets = buckets
	for bucket, n := range counts {
		riskBucketAccounts.WithLabelValues(string(bucket)).Set(float64(n))
	}

	return candidates
}

// dispatch выполняет одну попытку ликвидации
//
// InFlight-маркер снимается по завершении НЕЗАВИСИМО от исхода: и успех,
// и отказ, и ошибка разрешают окно. Событие публикуется ровно один раз.
func (p *Processor) dispatch(ctx context.Context, account *models.AccountSnapshot) {
	defer p.wg.Done()

	start := time.Now()
	outcome, err := p.liquidator.Liquidate(ctx, account)
	liquidationDuration.Observe(time.Since(start).Seconds())

	record := models.LiquidationEvent{
		Account:   account.Address,
		Owner:     account.Owner,
		Timestamp: time.Now(),
	}

	switch {
	case err != nil:
		liquidationAttempts.WithLabelValues("error").Inc()
		p.log.Error("liquidation attempt failed",
			zap.String("account", account.Address),
			zap.Error(err),
		)
		record.Error = err.Error()
	case outcome.Succeeded:
		liquidationAttempts.WithLabelValues("succeeded").Inc()
		record.Succeeded = true
		record.TxSignature = outcome.TxSignature
	default:
		liquidationAttempts.WithLabelValues("rejected").Inc()
		record.Error = outcome.Reason
	}

	if p.notifier != nil {
		p.notifier.Publish(record.ToEvent())
	}

	p.mu.Lock()
	delete(p.inFlight, account.Address)
	prices := p.prices
	p.mu.Unlock()

	// После успешной ликвидации кошелёк получил залог - выравниваем его
	if record.Succeeded {
		p.rebalance(ctx, prices)
	}
}

// rebalance перечитывает кошелёк и прогоняет балансировщик
func (p *Processor) rebalance(ctx context.Context, prices *models.PriceSnapshot) {
	if prices == nil {
		return
	}

	p.balancerMu.Lock()
	defer p.balancerMu.Unlock()

	wallet, err := p.reader.FetchWallet(ctx)
	if err != nil {
		rebalanceTrades.WithLabelValues("error").Inc()
		p.log.Error("wallet fetch for rebalance failed", zap.Error(err))
		if p.notifier != nil {
			p.notifier.Publish(&models.Event{
				Type:     models.EventTypeError,
				Severity: models.SeverityError,
				Message:  "wallet fetch for rebalance failed",
				Meta:     map[string]interface{}{"error": err.Error()},
			})
		}
		return
	}

	if err := p.balancer.Rebalance(ctx, wallet, prices); err != nil {
		rebalanceTrades.WithLabelValues("error").Inc()
		return
	}
	rebalanceTrades.WithLabelValues("ok").Inc()
}

// RecordFeedFailure учитывает отказ фетча фида
//
// Подряд идущие отказы сверх лимита переводят процессор в UNHEALTHY.
// Счётчик общий для обоих фидов: нездоровье - свойство процессора,
// а не отдельной подписки.
func (p *Processor) RecordFeedFailure(feed string, err error) {
	feedFetchFailures.WithLabelValues(feed).Inc()

	p.mu.Lock()
	p.consecutiveFailures++
	failures := p.consecutiveFailures
	transitioned := false
	if failures >= p.cfg.MaxConsecutiveFailures && p.state != models.StateUnhealthy {
		transitioned = p.transitionLocked(models.StateUnhealthy)
	}
	p.mu.Unlock()

	p.log.Warn("feed fetch failed",
		zap.String("feed", feed),
		zap.Int("consecutive_failures", failures),
		zap.Error(err),
	)

	if transitioned {
		p.publishStateChange(models.StateUnhealthy,
			fmt.Sprintf("%d consecutive feed failures, last: %s", failures, feed))
	}
}

// recordSuccessLocked сбрасывает счётчик отказов и выводит процессор
// в HEALTHY из STARTING. Вызывается под p.mu; возвращает true,
// если переход состоялся (публикация события - на вызывающем).
func (p *Processor) recordSuccessLocked() bool {
	p.consecutiveFailures = 0
	if p.state == models.StateStarting {
		return p.transitionLocked(models.StateHealthy)
	}
	return false
}

// CheckFreshness переводит процессор в UNHEALTHY, если данные устарели
// сверх настроенного лимита. Вызывается супервизором по тикеру.
func (p *Processor) CheckFreshness(now time.Time) {
	p.mu.Lock()

	if p.state != models.StateHealthy {
		p.mu.Unlock()
		return
	}

	var reason string
	if p.cfg.StaleAccountsAfter > 0 && now.Sub(p.lastAccountsAt) > p.cfg.StaleAccountsAfter {
		reason = fmt.Sprintf("accounts data stale for %s", now.Sub(p.lastAccountsAt).Round(time.Second))
	} else if p.cfg.StalePricesAfter > 0 && now.Sub(p.lastPricesAt) > p.cfg.StalePricesAfter {
		reason = fmt.Sprintf("price data stale for %s", now.Sub(p.lastPricesAt).Round(time.Second))
	}

	if reason == "" {
		p.mu.Unlock()
		return
	}

	transitioned := p.transitionLocked(models.StateUnhealthy)
	p.mu.Unlock()

	if transitioned {
		p.publishStateChange(models.StateUnhealthy, reason)
	}
}

// Reset возвращает процессор в STARTING после пересоздания подписок
//
// Снимки и InFlight-маркеры сбрасываются: новые подписки принесут
// полный свежий снимок, а неразрешённые попытки уже разрешились on-chain
// независимо от нашего учёта.
func (p *Processor) Reset() {
	p.mu.Lock()
	transitioned := p.transitionLocked(models.StateStarting)
	if transitioned {
		p.accounts = make(map[string]*models.AccountSnapshot)
		p.prices = nil
		p.inFlight = make(map[string]struct{})
		p.buckets = make(map[string]models.RiskBucket)
		p.consecutiveFailures = 0
	}
	p.mu.Unlock()

	if transitioned {
		p.publishStateChange(models.StateStarting, "feed subscriptions recreated")
	}
}

// transitionLocked выполняет переход состояния, если он допустим.
// Вызывается под p.mu.
func (p *Processor) transitionLocked(to string) bool {
	if !CanTransition(p.state, to) {
		p.log.Warn("invalid state transition rejected",
			zap.String("from", p.state),
			zap.String("to", to),
		)
		return false
	}
	from := p.state
	p.state = to
	setProcessorStateMetric(to)
	p.log.Info("processor state changed",
		zap.String("from", from),
		zap.String("to", to),
	)
	return true
}

func (p *Processor) publishStateChange(to, reason string) {
	if p.notifier == nil {
		return
	}
	severity := models.SeverityInfo
	if to == models.StateUnhealthy {
		severity = models.SeverityError
	}
	p.notifier.Publish(&models.Event{
		Type:     models.EventTypeStateChange,
		Severity: severity,
		Message:  fmt.Sprintf("processor state changed to %s: %s", to, reason),
		Meta:     map[string]interface{}{"state": to, "reason": reason},
	})
}

// Status - снимок состояния процессора для API
type Status struct {
	State               string    `json:"state"`
	StateDescription    string    `json:"state_description"`
	AccountsTracked     int       `json:"accounts_tracked"`
	InFlight            int       `json:"in_flight"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastAccountsAt      time.Time `json:"last_accounts_at"`
	LastPricesAt        time.Time `json:"last_prices_at"`
	PricesSlot          uint64    `json:"prices_slot"`
	Liquidator          string    `json:"liquidator"`
	Balancer            string    `json:"balancer"`
}

// Status возвращает сводку для API статуса
func (p *Processor) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Status{
		State:               p.state,
		StateDescription:    StateInfo(p.state),
		AccountsTracked:     len(p.accounts),
		InFlight:            len(p.inFlight),
		ConsecutiveFailures: p.consecutiveFailures,
		LastAccountsAt:      p.lastAccountsAt,
		LastPricesAt:        p.lastPricesAt,
		Liquidator:          p.liquidator.Name(),
		Balancer:            p.balancer.Name(),
	}
	if p.prices != nil {
		s.PricesSlot = p.prices.Slot
	}
	return s
}

// AccountView - аккаунт с его текущей категорией риска для API
type AccountView struct {
	Address     string            `json:"address"`
	Owner       string            `json:"owner"`
	Bucket      models.RiskBucket `json:"bucket"`
	HealthRatio string            `json:"health_ratio"`
	Slot        uint64            `json:"slot"`
	FetchedAt   time.Time         `json:"fetched_at"`
}

// Accounts возвращает отслеживаемые аккаунты с категориями последнего прохода
func (p *Processor) Accounts() []AccountView {
	p.mu.Lock()
	defer p.mu.Unlock()

	views := make([]AccountView, 0, len(p.accounts))
	for address, account := range p.accounts {
		bucket, ok := p.buckets[address]
		if !ok {
			bucket = models.RiskUnknown
		}
		views = append(views, AccountView{
			Address:     address,
			Owner:       account.Owner,
			Bucket:      bucket,
			HealthRatio: account.HealthRatio.String(),
			Slot:        account.Slot,
			FetchedAt:   account.FetchedAt,
		})
	}
	return views
}
