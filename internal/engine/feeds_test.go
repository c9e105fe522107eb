package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"liquidator/internal/chain"
	"liquidator/internal/models"
)

func supervisorFixture(reader chain.Reader) (*Supervisor, *Processor) {
	cfg := ProcessorConfig{
		RipeThreshold:          dec("1.05"),
		WorthwhileThreshold:    dec("0"),
		MaxConsecutiveFailures: 2,
		StaleAccountsAfter:     time.Minute,
		StalePricesAfter:       time.Minute,
	}
	proc := NewProcessor(cfg, &fakeLiquidator{}, NewNullWalletBalancer(zap.NewNop()), reader, &fakePublisher{}, zap.NewNop())
	sup := NewSupervisor(SupervisorConfig{
		AccountInterval:     5 * time.Millisecond,
		PriceInterval:       5 * time.Millisecond,
		RetryPauses:         nil, // одна попытка, без повторов
		HealthCheckInterval: 5 * time.Millisecond,
	}, reader, proc, zap.NewNop())
	return sup, proc
}

// TestSupervisor_BecomesHealthyOnData: после первых успешных фетчей
// процессор выходит в HEALTHY
func TestSupervisor_BecomesHealthyOnData(t *testing.T) {
	reader := chain.NewSimReader()
	reader.SetPrices(pricesOf(map[string]string{"SOL": "1"}))
	sup, proc := supervisorFixture(reader)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return proc.State() == models.StateHealthy },
		time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("supervisor did not stop on context cancel")
	}
	proc.Wait()
}

// TestSupervisor_ResubscribesOnUnhealthy: подряд идущие отказы фетча
// ведут к пересозданию подписок и восстановлению
func TestSupervisor_ResubscribesOnUnhealthy(t *testing.T) {
	reader := chain.NewSimReader()
	reader.SetPrices(pricesOf(map[string]string{"SOL": "1"}))
	sup, proc := supervisorFixture(reader)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return proc.State() == models.StateHealthy },
		time.Second, 5*time.Millisecond, "must become healthy first")

	// Оба фида начинают падать
	feedErr := errors.New("rpc connection refused")
	reader.SetAccountsError(feedErr)
	reader.SetPricesError(feedErr)

	require.Eventually(t, func() bool { return proc.State() != models.StateHealthy },
		2*time.Second, 5*time.Millisecond, "consecutive failures must degrade the processor")

	// Фиды восстановились: супервизор пересоздаёт подписки,
	// процессор проходит через STARTING обратно в HEALTHY
	reader.SetAccountsError(nil)
	reader.SetPricesError(nil)

	require.Eventually(t, func() bool { return proc.State() == models.StateHealthy },
		2*time.Second, 5*time.Millisecond, "must recover after resubscription")

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("supervisor did not stop on context cancel")
	}
	proc.Wait()
}

// TestSupervisor_DispatchesThroughFeeds: полный путь от фида до ликвидатора
func TestSupervisor_DispatchesThroughFeeds(t *testing.T) {
	reader := chain.NewSimReader()
	reader.SetPrices(pricesOf(map[string]string{"SOL": "1"}))
	reader.SetAccounts([]*models.AccountSnapshot{ripeAccount("acc-feed")})

	cfg := ProcessorConfig{
		RipeThreshold:          dec("1.05"),
		WorthwhileThreshold:    dec("0"),
		MaxConsecutiveFailures: 2,
	}
	liq := &fakeLiquidator{outcome: Outcome{Succeeded: false, Reason: "dry-run"}}
	proc := NewProcessor(cfg, liq, NewNullWalletBalancer(zap.NewNop()), reader, &fakePublisher{}, zap.NewNop())
	sup := NewSupervisor(SupervisorConfig{
		AccountInterval:     5 * time.Millisecond,
		PriceInterval:       5 * time.Millisecond,
		HealthCheckInterval: 5 * time.Millisecond,
	}, reader, proc, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return liq.callCount() >= 1 },
		time.Second, 5*time.Millisecond, "ripe account must reach the liquidator")

	cancel()
	<-done
	proc.Wait()
	assert.Equal(t, "acc-feed", liq.calls[0])
}
