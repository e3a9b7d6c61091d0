package server

import (
	"sync"
	"time"
)

// JobRateLimiter restricts how many print jobs a single client may submit
// per minute. It keeps a sliding window of submission times per client.
type JobRateLimiter struct {
	mu        sync.Mutex
	attempts  map[string][]time.Time
	maxPerMin int
	now       func() time.Time
}

// NewJobRateLimiter creates a limiter allowing maxPerMinute jobs per client.
func NewJobRateLimiter(maxPerMinute int) *JobRateLimiter {
	return &JobRateLimiter{
		attempts:  make(map[string][]time.Time),
		maxPerMin: maxPerMinute,
		now:       time.Now,
	}
}

// Allow records a submission and reports whether it is within the limit.
// Rejected submissions are not recorded.
func (rl *JobRateLimiter) Allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	recent := rl.window(client, now)
	if len(recent) >= rl.maxPerMin {
		rl.attempts[client] = recent
		return false
	}

	rl.attempts[client] = append(recent, now)
	return true
}

// Prune forgets clients with no submissions in the last minute.
func (rl *JobRateLimiter) Prune() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for client := range rl.attempts {
		if recent := rl.window(client, now); len(recent) == 0 {
			delete(rl.attempts, client)
		} else {
			rl.attempts[client] = recent
		}
	}
}

func (rl *JobRateLimiter) window(client string, now time.Time) []time.Time {
	cutoff := now.Add(-time.Minute)
	recent := make([]time.Time, 0, rl.maxPerMin)
	for _, t := range rl.attempts[client] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	return recent
}
