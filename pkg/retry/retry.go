package retry

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Policy - политика повторов с явной последовательностью пауз
//
// Операция выполняется максимум len(Pauses)+1 раз: первая попытка сразу,
// затем пауза Pauses[i] перед попыткой i+2. Явная последовательность вместо
// формулы backoff: бюджет ожидания одного тика виден в конфигурации целиком,
// и супервизор знает, что тик не растянется дольше суммы пауз.
type Policy struct {
	// Pauses - паузы между попытками. Пустой срез = одна попытка без повторов.
	Pauses []time.Duration

	// RetryIf - фильтр ошибок: возвращает false, если ошибку повторять нельзя.
	// nil = повторять все ошибки.
	RetryIf func(error) bool

	// OnRetry - callback перед каждым повтором (для логирования)
	OnRetry func(attempt int, err error, pause time.Duration)
}

// WithPauses создает политику с указанной последовательностью пауз
func WithPauses(pauses ...time.Duration) Policy {
	return Policy{Pauses: pauses}
}

// DefaultPolicy - политика по умолчанию для опросов цепочки
//
// 4 попытки с паузами 1s, 2s, 5s
func DefaultPolicy() Policy {
	return WithPauses(1*time.Second, 2*time.Second, 5*time.Second)
}

// attempts возвращает максимальное количество попыток
func (p Policy) attempts() int {
	return len(p.Pauses) + 1
}

// Do выполняет операцию с повторными попытками
//
// Возвращает nil при первом успехе, иначе - последнюю ошибку после
// исчерпания всех попыток. Паузы прерываются отменой контекста.
func Do(ctx context.Context, operation func() error, p Policy) error {
	_, err := DoWithResult(ctx, func() (struct{}, error) {
		return struct{}{}, operation()
	}, p)
	return err
}

// DoWithResult выполняет операцию с результатом и повторными попытками
//
//	snaps, err := retry.DoWithResult(ctx, func() ([]*models.AccountSnapshot, error) {
//	    return reader.FetchAccounts(ctx)
//	}, policy)
func DoWithResult[T any](ctx context.Context, operation func() (T, error), p Policy) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt < p.attempts(); attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return zero, lastErr
			}
			return zero, err
		}

		result, err := operation()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if p.RetryIf != nil && !p.RetryIf(err) {
			return zero, err
		}

		// Последняя попытка - не ждём
		if attempt >= len(p.Pauses) {
			break
		}

		pause := p.Pauses[attempt]
		if p.OnRetry != nil {
			p.OnRetry(attempt+1, err, pause)
		}

		select {
		case <-time.After(pause):
		case <-ctx.Done():
			return zero, lastErr
		}
	}

	return zero, lastErr
}

// ============================================================
// Wrapper errors
// ============================================================

// PermanentError оборачивает ошибку, которую не нужно повторять
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent помечает ошибку как неповторяемую
//
//	if badConfig {
//	    return retry.Permanent(errors.New("invalid program id"))
//	}
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// NotPermanent - готовый RetryIf: повторяет всё, кроме PermanentError
// и ошибок контекста (cancel, timeout)
func NotPermanent(err error) bool {
	var perm *PermanentError
	if errors.As(err, &perm) {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// ParsePauses разбирает последовательность пауз из конфигурационной строки
//
// Формат: "1s,2s,5s". Пустая строка - без повторов.
func ParsePauses(raw string) ([]time.Duration, error) {
	var pauses []time.Duration
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := time.ParseDuration(part)
		if err != nil {
			return nil, err
		}
		if d < 0 {
			return nil, errors.New("pause cannot be negative")
		}
		pauses = append(pauses, d)
	}
	return pauses, nil
}
