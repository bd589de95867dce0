package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// Config конфигурация повторных попыток
//
// Экспоненциальный backoff с jitter:
// delay = min(InitialDelay * Multiplier^attempt, MaxDelay) ± jitter
type Config struct {
	// MaxAttempts - максимальное количество попыток (включая первую), минимум 1
	MaxAttempts int

	// InitialDelay - задержка перед второй попыткой
	InitialDelay time.Duration

	// MaxDelay - верхняя граница задержки
	MaxDelay time.Duration

	// Multiplier - множитель роста задержки
	Multiplier float64

	// JitterFactor - доля случайной вариации задержки (0.0 - 1.0)
	JitterFactor float64

	// RetryIf решает, повторять ли ошибку. nil = IsRetryable
	RetryIf func(error) bool

	// OnRetry вызывается перед каждой повторной попыткой
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultConfig - 4 попытки: 100ms, 200ms, 400ms (+ jitter)
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  4,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

// PersistenceConfig для записи в БД после того, как ордер уже принят биржей.
// Ордер существует на бирже, поэтому пытаемся дольше.
func PersistenceConfig() Config {
	return Config{
		MaxAttempts:  6,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.2,
		RetryIf:      RetryIfNotContext,
	}
}

// normalize устанавливает значения по умолчанию
func (c *Config) normalize() {
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 1
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = 100 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 30 * time.Second
	}
	if c.Multiplier <= 0 {
		c.Multiplier = 2.0
	}
	if c.JitterFactor < 0 {
		c.JitterFactor = 0
	}
	if c.JitterFactor > 1 {
		c.JitterFactor = 1
	}
	if c.RetryIf == nil {
		c.RetryIf = IsRetryable
	}
}

// delay вычисляет задержку после попытки с номером attempt (с нуля)
func (c *Config) delay(attempt int) time.Duration {
	d := float64(c.InitialDelay) * math.Pow(c.Multiplier, float64(attempt))
	if d > float64(c.MaxDelay) {
		d = float64(c.MaxDelay)
	}
	if c.JitterFactor > 0 {
		d += d * c.JitterFactor * (rand.Float64()*2 - 1)
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// Do выполняет операцию, повторяя её при ошибке.
// Возвращает nil при успехе, иначе последнюю ошибку.
//
//	err := retry.Do(ctx, func() error {
//	    return store.CreateTrade(ctx, trade)
//	}, retry.PersistenceConfig())
func Do(ctx context.Context, operation func() error, cfg Config) error {
	_, err := DoWithResult(ctx, func() (struct{}, error) {
		return struct{}{}, operation()
	}, cfg)
	return err
}

// DoWithResult - Do для операций, возвращающих значение
func DoWithResult[T any](ctx context.Context, operation func() (T, error), cfg Config) (T, error) {
	cfg.normalize()

	var zero T
	var lastErr error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
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

		if !cfg.RetryIf(err) || attempt == cfg.MaxAttempts-1 {
			break
		}

		d := cfg.delay(attempt)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, err, d)
		}

		timer := time.NewTimer(d)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		}
	}

	return zero, unwrapPermanent(lastErr)
}

// ============================================================
// Классификация ошибок
// ============================================================

// IsRetryable возвращает false для Permanent и ошибок контекста
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var perm *PermanentError
	if errors.As(err, &perm) {
		return false
	}
	return RetryIfNotContext(err)
}

// RetryIfNotContext не повторяет отмену и таймаут контекста
func RetryIfNotContext(err error) bool {
	var perm *PermanentError
	if errors.As(err, &perm) {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// PermanentError помечает ошибку, которую не нужно повторять
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent оборачивает ошибку в PermanentError
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

func unwrapPermanent(err error) error {
	var perm *PermanentError
	if errors.As(err, &perm) {
		return perm.Err
	}
	return err
}
