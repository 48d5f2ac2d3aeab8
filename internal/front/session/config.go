package session

import (
	"log/slog"
	"time"

	"github.com/LeastAuthority/thanos-wallet/internal/front/confirm"
)

// Config 控制会话行为。
type Config struct {
	// DecisionRate/DecisionBurst 限制决定提交频率，防止 UI 重试风暴。
	DecisionRate  float64
	DecisionBurst int
	// MinFailureDelay 是决定失败后最少等待多久才向 UI 暴露错误，
	// 避免瞬间失败造成闪烁。
	MinFailureDelay time.Duration
	// StateRefetchTimeout 限制通知触发的后台状态重拉。
	StateRefetchTimeout time.Duration

	Confirm confirm.Config
	Logger  *slog.Logger
	Metrics *Metrics
}

func (c Config) normalize() Config {
	if c.DecisionRate <= 0 {
		c.DecisionRate = 5
	}
	if c.DecisionBurst <= 0 {
		c.DecisionBurst = 2
	}
	if c.MinFailureDelay <= 0 {
		c.MinFailureDelay = 250 * time.Millisecond
	}
	if c.StateRefetchTimeout <= 0 {
		c.StateRefetchTimeout = 5 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}
