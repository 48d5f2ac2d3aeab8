// Package intercom 实现前台与 authority 之间的双工 channel：
// 单次往返的 request/reply 加上带外推送通知。
package intercom

import (
	"context"
	"errors"

	"github.com/LeastAuthority/thanos-wallet/internal/front/proto"
)

// ErrClosed 表示 channel 已被显式关闭。
var ErrClosed = errors.New("intercom channel closed")

// Channel 是会话层依赖的最小传输契约。
// 通知可能重复或丢失，订阅方必须按 id 幂等处理。
type Channel interface {
	// Request 发送一条请求并挂起直到回复到达或 ctx 取消。
	Request(ctx context.Context, req proto.Request) (proto.Response, error)
	// Subscribe 注册带外通知处理器，返回取消订阅函数。
	Subscribe(handler func(proto.Notification)) (unsubscribe func())
}
