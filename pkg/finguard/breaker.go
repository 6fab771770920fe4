package finguard

import (
	"sync"
	"time"
)

// circuitBreaker tracks failures per upstream service. After failThreshold
// failures inside failWindow the service is skipped until the cooldown ends.
type circuitBreaker struct {
	failThreshold int
	failWindow    time.Duration
	cooldown      time.Duration
	now           func() time.Time

	mu     sync.Mutex
	states map[string]*serviceState
}

type serviceState struct {
	failCount     int
	firstFailAt   time.Time
	cooldownUntil time.Time
}

func newCircuitBreaker(threshold int, window, cooldown time.Duration) *circuitBreaker {
	return &circuitBreaker{
		failThreshold: defaultInt(threshold, 3),
		failWindow:    defaultDuration(window, 60*time.Second),
		cooldown:      defaultDuration(cooldown, 120*time.Second),
		now:           time.Now,
		states:        map[string]*serviceState{},
	}
}

func (b *circuitBreaker) available(service string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	state, ok := b.states[service]
	if !ok {
		return true
	}
	return b.now().After(state.cooldownUntil)
}

func (b *circuitBreaker) recordFailure(service string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	state := b.states[service]
	if state == nil {
		state = &serviceState{firstFailAt: now}
		b.states[service] = state
	}
	if now.Sub(state.firstFailAt) > b.failWindow {
		state.failCount = 0
		state.firstFailAt = now
	}
	state.failCount++
	if state.failCount >= b.failThreshold {
		state.cooldownUntil = now.Add(b.cooldown)
	}
}

func (b *circuitBreaker) recordSuccess(service string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.states, service)
}

// ttlCache is a small read-mostly cache keyed by symbol.
type ttlCache[V any] struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]ttlEntry[V]
}

type ttlEntry[V any] struct {
	value V
	ts    time.Time
}

func newTTLCache[V any](ttl time.Duration) *ttlCache[V] {
	return &ttlCache[V]{
		ttl:     ttl,
		now:     time.Now,
		entries: map[string]ttlEntry[V]{},
	}
}

func (c *ttlCache[V]) get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	if !ok || c.now().Sub(entry.ts) > c.ttl {
		var zero V
		return zero, false
	}
	return entry.value, true
}

func (c *ttlCache[V]) set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = ttlEntry[V]{value: value, ts: c.now()}
}

func defaultDuration(v time.Duration, fallback time.Duration) time.Duration {
	if v <= 0 {
		return fallback
	}
	return v
}

func defaultInt(v int, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
