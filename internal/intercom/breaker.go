package intercom

import (
	"sync"
	"time"
)

// redialBreaker 在连续重连失败时进入降级冷却，避免对 authority 的拨号风暴。
type redialBreaker struct {
	threshold int
	cooldown  time.Duration

	mu         sync.Mutex
	degraded   bool
	failures   int
	lastChange time.Time
}

func newRedialBreaker(threshold int, cooldown time.Duration) *redialBreaker {
	return &redialBreaker{
		threshold:  threshold,
		cooldown:   cooldown,
		lastChange: time.Now(),
	}
}

// allow 判断当前是否允许发起一次拨号。降级期间仅在冷却结束后放行。
func (rb *redialBreaker) allow() bool {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	if !rb.degraded {
		return true
	}
	if time.Since(rb.lastChange) > rb.cooldown {
		rb.degraded = false
		rb.failures = 0
		rb.lastChange = time.Now()
		return true
	}
	return false
}

func (rb *redialBreaker) success() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.failures = 0
	if rb.degraded {
		rb.degraded = false
		rb.lastChange = time.Now()
	}
}

func (rb *redialBreaker) failure() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.failures++
	if rb.failures >= rb.threshold && !rb.degraded {
		rb.degraded = true
		rb.lastChange = time.Now()
	}
}
