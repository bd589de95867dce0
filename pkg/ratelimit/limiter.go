package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter - token bucket для запросов к REST API биржи поверх rate.Limiter
//
// Ведро наполняется со скоростью rate токенов/сек до ёмкости burst,
// каждый запрос забирает один токен.
//
//	limiter := NewRateLimiter(10, 20) // 10 req/sec, burst 20
//	err := limiter.Wait(ctx)
type RateLimiter struct {
	limiter *rate.Limiter
	now     func() time.Time
}

// NewRateLimiter создаёт limiter. rate <= 0 означает 10 req/sec, burst по умолчанию 2x rate.
func NewRateLimiter(perSecond, burst float64) *RateLimiter {
	if perSecond <= 0 {
		perSecond = 10
	}
	if burst <= 0 {
		burst = perSecond * 2
	}
	if burst < perSecond {
		burst = perSecond
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(perSecond), int(math.Ceil(burst))),
		now:     time.Now,
	}
}

// Limit возвращает скорость в токенах/сек
func (rl *RateLimiter) Limit() float64 {
	return float64(rl.limiter.Limit())
}

// Burst возвращает ёмкость ведра
func (rl *RateLimiter) Burst() int {
	return rl.limiter.Burst()
}

// Wait блокирует до получения токена или отмены контекста.
// Если дедлайн наступит раньше токена, ошибка возвращается сразу.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	return rl.limiter.Wait(ctx)
}

// Allow забирает токен без ожидания, false если токенов нет
func (rl *RateLimiter) Allow() bool {
	return rl.limiter.AllowN(rl.now(), 1)
}

// Tokens возвращает текущее количество токенов
func (rl *RateLimiter) Tokens() float64 {
	return rl.limiter.TokensAt(rl.now())
}

// ============================================================
// MultiLimiter - отдельные лимиты для категорий эндпоинтов
// ============================================================

// MultiLimiter хранит limiter на категорию запросов (market, account, order)
type MultiLimiter struct {
	limiters map[string]*RateLimiter
	mu       sync.RWMutex
}

func NewMultiLimiter() *MultiLimiter {
	return &MultiLimiter{limiters: make(map[string]*RateLimiter)}
}

// Add регистрирует limiter для категории
func (ml *MultiLimiter) Add(category string, perSecond, burst float64) {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	ml.limiters[category] = NewRateLimiter(perSecond, burst)
}

// Wait ждёт токен категории; неизвестная категория не ограничена
func (ml *MultiLimiter) Wait(ctx context.Context, category string) error {
	ml.mu.RLock()
	limiter, ok := ml.limiters[category]
	ml.mu.RUnlock()

	if !ok {
		return nil
	}
	return limiter.Wait(ctx)
}
