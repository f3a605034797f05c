// Package ratelimit реализует ограничение частоты запросов скользящим окном.
package ratelimit

import (
	"sync"
	"time"
)

// maxTrackedKeys: число ключей, после которого удаляются ключи с истёкшим окном.
const maxTrackedKeys = 1000

// Limiter считает запросы каждого клиента в скользящем окне.
type Limiter struct {
	mu          sync.Mutex
	windows     map[string][]time.Time
	maxRequests int
	window      time.Duration
	now         func() time.Time
}

// Option настраивает Limiter.
type Option func(*Limiter)

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// New создаёт ограничитель на maxRequests запросов за window.
func New(maxRequests int, window time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		windows:     make(map[string][]time.Time),
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow регистрирует запрос клиента key и сообщает, укладывается ли он в лимит.
// Отклонённый запрос в окно не записывается.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	valid := l.filter(key, now)

	allowed := len(valid) < l.maxRequests
	if allowed {
		valid = append(valid, now)
	}
	l.windows[key] = valid

	if len(l.windows) > maxTrackedKeys {
		l.cleanup(now)
	}

	return allowed
}

// RetryAfter возвращает время до освобождения места в окне клиента key.
func (l *Limiter) RetryAfter(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	valid := l.filter(key, now)
	if len(valid) < l.maxRequests || len(valid) == 0 {
		return 0
	}

	return valid[0].Add(l.window).Sub(now)
}

// Len возвращает число отслеживаемых ключей.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

func (l *Limiter) filter(key string, now time.Time) []time.Time {
	times := l.windows[key]
	cutoff := now.Add(-l.window)

	i := 0
	for i < len(times) && !times[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return times
	}
	return append(times[:0:0], times[i:]...)
}

func (l *Limiter) cleanup(now time.Time) {
	cutoff := now.Add(-l.window)
	for key, times := range l.windows {
		if len(times) == 0 || !times[len(times)-1].After(cutoff) {
			delete(l.windows, key)
		}
	}
}
