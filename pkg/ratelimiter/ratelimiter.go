package ratelimiter

import (
	"strings"
	"sync"
	"time"
)

// Policy bounds the attempts allowed for one namespace within a sliding window
type Policy struct {
	MaxAttempts int
	Window      time.Duration
}

// Decision is the outcome of one Allow call
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// RateLimiter is an in-memory sliding window limiter keyed by namespace and key.
//
// Example:
//
//	rl := ratelimiter.NewRateLimiter(time.Minute)
//	rl.SetPolicy("send_test", 5, 10*time.Minute)
//
//	if d := rl.Allow("send_test", templateID); !d.Allowed {
//	    w.Header().Set("Retry-After", strconv.Itoa(int(d.RetryAfter.Seconds())))
//	}
type RateLimiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	policies map[string]Policy
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter starts a limiter that drops idle keys every cleanupInterval.
// A zero interval disables the sweeper.
func NewRateLimiter(cleanupInterval time.Duration) *RateLimiter {
	rl := &RateLimiter{
		attempts: make(map[string][]time.Time),
		policies: make(map[string]Policy),
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go rl.sweep(cleanupInterval)
	}
	return rl
}

// SetPolicy configures the limit for namespace
func (rl *RateLimiter) SetPolicy(namespace string, maxAttempts int, window time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.policies[namespace] = Policy{MaxAttempts: maxAttempts, Window: window}
}

// Allow records an attempt for key when the namespace policy permits it.
// Namespaces without a policy are denied.
func (rl *RateLimiter) Allow(namespace, key string) Decision {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	policy, ok := rl.policies[namespace]
	if !ok || policy.MaxAttempts <= 0 {
		return Decision{}
	}

	now := rl.now()
	id := namespace + ":" + key
	valid := prune(rl.attempts[id], now.Add(-policy.Window))

	if len(valid) >= policy.MaxAttempts {
		rl.attempts[id] = valid
		return Decision{RetryAfter: valid[0].Add(policy.Window).Sub(now)}
	}

	valid = append(valid, now)
	rl.attempts[id] = valid
	return Decision{Allowed: true, Remaining: policy.MaxAttempts - len(valid)}
}

// Reset forgets every attempt recorded for key
func (rl *RateLimiter) Reset(namespace, key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.attempts, namespace+":"+key)
}

// Stop ends the sweeper. Safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// prune keeps the attempts newer than cutoff; attempts are in insertion order
func prune(attempts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(attempts) && !attempts[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return attempts
	}
	return append([]time.Time(nil), attempts[i:]...)
}

func (rl *RateLimiter) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.evictIdle()
		case <-rl.stop:
			return
		}
	}
}

func (rl *RateLimiter) evictIdle() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for id, attempts := range rl.attempts {
		namespace, _, _ := strings.Cut(id, ":")
		policy, ok := rl.policies[namespace]
		if !ok {
			delete(rl.attempts, id)
			continue
		}
		if len(prune(attempts, now.Add(-policy.Window))) == 0 {
			delete(rl.attempts, id)
		}
	}
}
