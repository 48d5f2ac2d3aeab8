package intercom

import (
	"math/rand"
	"sync"
	"time"
)

// reconnectBackoff 为断线重连计算指数退避等待时间，带抖动避免惊群。
type reconnectBackoff struct {
	cfg BackoffConfig

	mu       sync.Mutex
	attempts int
	rnd      *rand.Rand
}

func newReconnectBackoff(cfg BackoffConfig) *reconnectBackoff {
	return &reconnectBackoff{
		cfg: cfg,
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// next 返回下一次重连前的等待时长，并累加失败计数。
func (b *reconnectBackoff) next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	delay := b.cfg.Initial
	for i := 0; i < b.attempts && delay < b.cfg.Max; i++ {
		delay *= 2
	}
	if delay > b.cfg.Max || delay <= 0 {
		delay = b.cfg.Max
	}
	if b.attempts < 16 {
		b.attempts++
	}
	if b.cfg.Jitter > 0 {
		span := time.Duration(float64(delay) * b.cfg.Jitter)
		if span > 0 {
			delay += time.Duration(b.rnd.Int63n(int64(2*span)+1)) - span
		}
	}
	if delay < b.cfg.Initial {
		delay = b.cfg.Initial
	}
	return delay
}

// reset 在连接恢复后清除失败历史。
func (b *reconnectBackoff) reset() {
	b.mu.Lock()
	b.attempts = 0
	b.mu.Unlock()
}
