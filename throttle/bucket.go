package throttle

import (
	"sync"
	"time"
)

// Bucket is a token bucket for one caller
type Bucket struct {
	mu        sync.Mutex // protects tokens and lastCheck
	tokens    int
	lastCheck time.Time
	conf      *BucketConf
}

// refill must run under mu
func (b *Bucket) refill(now time.Time) {
	elapsed := now.Sub(b.lastCheck)
	if elapsed < b.conf.Period {
		return
	}
	times := int(elapsed / b.conf.Period)
	b.tokens = min(b.tokens+times*b.conf.Increment, b.conf.Burst)
	b.lastCheck = b.lastCheck.Add(time.Duration(times) * b.conf.Period)
}

func (b *Bucket) Allow(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill(now)
	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

func (b *Bucket) idleSince() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastCheck
}

// BucketConf is the "throttle" section of .core.json. Burst 0 = throttling off.
type BucketConf struct {
	Burst     int           `json:"burst"`     // maximum number of tokens in the bucket
	Increment int           `json:"increment"` // how many tokens to add each period
	Period    time.Duration `json:"period"`    // how often to add Increment. nanoseconds in JSON
	// TrustProxy keys buckets by X-Forwarded-For / X-Real-IP. Only behind a proxy that sets them.
	TrustProxy bool `json:"trust_proxy"`
}

func (c *BucketConf) Enabled() bool {
	return c.Burst > 0 && c.Increment > 0 && c.Period > 0
}
