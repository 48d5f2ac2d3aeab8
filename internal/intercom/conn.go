package intercom

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mdlayher/vsock"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/LeastAuthority/thanos-wallet/internal/front/proto"
	"github.com/LeastAuthority/thanos-wallet/pkg/walleterr"
)

// frameKind 区分一帧的角色。
type frameKind string

const (
	frameRequest      frameKind = "req"
	frameResponse     frameKind = "res"
	frameError        frameKind = "err"
	frameNotification frameKind = "note"
)

// frame 是连接上的最小传输单元，按行分隔的 JSON。
// ID 仅用于 request/reply 关联，通知帧不携带。
type frame struct {
	ID   string          `json:"id,omitempty"`
	Kind frameKind       `json:"kind"`
	Body json.RawMessage `json:"body,omitempty"`
}

// authorityFault 是 err 帧的内容，authority 领域错误原样透传。
type authorityFault struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// Dialer 允许自定义 vsock/unix/tcp 拨号逻辑。
type Dialer func(ctx context.Context, endpoint string) (net.Conn, error)

// Option 允许自定义 Conn 行为。
type Option func(*Conn)

// WithDialer 自定义拨号器。
func WithDialer(d Dialer) Option {
	return func(c *Conn) { c.dialer = d }
}

// WithLogger 注入 slog Logger。
func WithLogger(l *slog.Logger) Option {
	return func(c *Conn) { c.logger = l }
}

// WithRegisterer 指定 Prometheus 注册器。
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Conn) { c.metrics = NewMetrics(reg) }
}

type pendingReply struct {
	frame frame
	err   error
}

// Conn 在单条长连接上实现 Channel，断线后自动重连。
// 重连期间在途请求以 CHANNEL_CLOSED 失败，由调用方决定是否重发。
type Conn struct {
	cfg     Config
	dialer  Dialer
	logger  *slog.Logger
	metrics *Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	backoff *reconnectBackoff
	breaker *redialBreaker

	stateMu sync.Mutex
	current net.Conn

	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]chan pendingReply

	subMu  sync.Mutex
	subSeq int
	subs   map[int]func(proto.Notification)
}

// Dial 建立初始连接并启动读循环。初始拨号失败直接返回错误。
func Dial(cfg Config, opts ...Option) (*Conn, error) {
	normalized := cfg.normalize()
	if normalized.Endpoint == "" {
		return nil, errors.New("endpoint is required")
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Conn{
		cfg:     normalized,
		dialer:  defaultDialer,
		logger:  slog.Default(),
		ctx:     ctx,
		cancel:  cancel,
		backoff: newReconnectBackoff(normalized.Backoff),
		breaker: newRedialBreaker(normalized.BreakerThreshold, normalized.BreakerCooldown),
		pending: make(map[string]chan pendingReply),
		subs:    make(map[int]func(proto.Notification)),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.dialer == nil {
		c.dialer = defaultDialer
	}
	if c.metrics == nil {
		c.metrics = NewMetrics(nil)
	}

	dialCtx, dialCancel := context.WithTimeout(ctx, normalized.DialTimeout)
	conn, err := c.dialer(dialCtx, normalized.Endpoint)
	dialCancel()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("dial authority %s: %w", normalized.Endpoint, err)
	}
	c.setCurrent(conn)
	c.wg.Add(1)
	go c.readLoop(conn)
	return c, nil
}

// Close 断开连接并使所有在途请求失败。
func (c *Conn) Close() error {
	c.cancel()
	c.stateMu.Lock()
	conn := c.current
	c.current = nil
	c.stateMu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
	c.failPending(ErrClosed)
	c.wg.Wait()
	return nil
}

// Request 实现 Channel。回复按包络 id 关联，与通知到达顺序无关。
func (c *Conn) Request(ctx context.Context, req proto.Request) (proto.Response, error) {
	if req == nil {
		return nil, walleterr.New(walleterr.CodeInvalidArgument, "nil request")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && c.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.RequestTimeout)
		defer cancel()
	}

	body, err := proto.EncodeMessage(req)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.CodeInvalidArgument, "encode request", err)
	}

	id := uuid.NewString()
	replyCh := make(chan pendingReply, 1)
	c.pendingMu.Lock()
	c.pending[id] = replyCh
	c.pendingMu.Unlock()
	c.metrics.addInflight(1)
	start := time.Now()
	defer c.metrics.addInflight(-1)

	msgType := string(req.MessageType())
	if err := c.send(frame{ID: id, Kind: frameRequest, Body: body}); err != nil {
		c.dropPending(id)
		c.metrics.observeRequest(msgType, "send_error", latencyMs(start))
		return nil, err
	}

	select {
	case <-ctx.Done():
		c.dropPending(id)
		c.metrics.observeRequest(msgType, "cancelled", latencyMs(start))
		return nil, ctx.Err()
	case <-c.ctx.Done():
		c.dropPending(id)
		c.metrics.observeRequest(msgType, "closed", latencyMs(start))
		return nil, walleterr.Wrap(walleterr.CodeChannelClosed, "channel closed", ErrClosed)
	case reply := <-replyCh:
		if reply.err != nil {
			c.metrics.observeRequest(msgType, "disconnected", latencyMs(start))
			return nil, reply.err
		}
		resp, err := c.interpretReply(req, reply.frame)
		outcome := "ok"
		if err != nil {
			outcome = "error"
			if werr, ok := walleterr.FromError(err); ok {
				outcome = strings.ToLower(string(werr.Code))
			}
		}
		c.metrics.observeRequest(msgType, outcome, latencyMs(start))
		return resp, err
	}
}

// Subscribe 实现 Channel。处理器在读循环 goroutine 上同步调用，不应阻塞。
func (c *Conn) Subscribe(handler func(proto.Notification)) func() {
	c.subMu.Lock()
	c.subSeq++
	id := c.subSeq
	c.subs[id] = handler
	c.subMu.Unlock()
	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

func (c *Conn) interpretReply(req proto.Request, f frame) (proto.Response, error) {
	switch f.Kind {
	case frameError:
		var fault authorityFault
		if err := json.Unmarshal(f.Body, &fault); err != nil {
			return nil, walleterr.Wrap(walleterr.CodeProtocolViolation, "malformed error frame", err)
		}
		// 确认结果是协议的一部分，单独成码；其余领域错误原样透传。
		switch fault.Code {
		case "CONFIRMATION_DECLINED":
			return nil, walleterr.New(walleterr.CodeDeclined, fault.Message)
		case "CONFIRMATION_EXPIRED":
			return nil, walleterr.New(walleterr.CodeExpired, fault.Message)
		}
		msg := fault.Message
		if fault.Code != "" {
			msg = fault.Code + ": " + fault.Message
		}
		return nil, walleterr.New(walleterr.CodeAuthority, msg)
	case frameResponse:
		msg, err := proto.DecodeMessage(f.Body)
		if err != nil {
			return nil, walleterr.Wrap(walleterr.CodeProtocolViolation, "undecodable response", err)
		}
		resp, ok := msg.(proto.Response)
		if !ok || msg.MessageType() != req.ResponseType() {
			return nil, walleterr.Newf(walleterr.CodeProtocolViolation,
				"response type %s does not match request %s", msg.MessageType(), req.MessageType())
		}
		return resp, nil
	default:
		return nil, walleterr.Newf(walleterr.CodeProtocolViolation, "unexpected frame kind %q", f.Kind)
	}
}

func (c *Conn) send(f frame) error {
	c.stateMu.Lock()
	conn := c.current
	c.stateMu.Unlock()
	if conn == nil {
		return walleterr.New(walleterr.CodeChannelClosed, "not connected")
	}
	data, err := json.Marshal(f)
	if err != nil {
		return walleterr.Wrap(walleterr.CodeInvalidArgument, "encode frame", err)
	}
	data = append(data, '\n')

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.cfg.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	}
	if _, err := conn.Write(data); err != nil {
		return walleterr.Wrap(walleterr.CodeChannelClosed, "write frame", err)
	}
	return nil
}

func (c *Conn) readLoop(conn net.Conn) {
	defer c.wg.Done()
	for {
		dec := json.NewDecoder(conn)
		for {
			var f frame
			if err := dec.Decode(&f); err != nil {
				if c.ctx.Err() != nil {
					return
				}
				c.logger.Warn("authority connection lost", slog.Any("err", err))
				c.failPending(walleterr.Wrap(walleterr.CodeChannelClosed, "connection lost", err))
				break
			}
			c.dispatch(f)
		}
		conn = c.reconnect()
		if conn == nil {
			return
		}
	}
}

func (c *Conn) dispatch(f frame) {
	switch f.Kind {
	case frameResponse, frameError:
		c.pendingMu.Lock()
		replyCh, ok := c.pending[f.ID]
		if ok {
			delete(c.pending, f.ID)
		}
		c.pendingMu.Unlock()
		if !ok {
			// 迟到的回复：请求方已放弃等待。
			return
		}
		replyCh <- pendingReply{frame: f}
	case frameNotification:
		msg, err := proto.DecodeMessage(f.Body)
		if err != nil {
			c.logger.Warn("undecodable notification dropped", slog.Any("err", err))
			return
		}
		note, ok := msg.(proto.Notification)
		if !ok {
			c.logger.Warn("non-notification on note frame", slog.String("type", string(msg.MessageType())))
			return
		}
		c.metrics.incNotification(string(note.MessageType()))
		for _, handler := range c.snapshotSubscribers() {
			c.invokeSubscriber(handler, note)
		}
	}
}

// invokeSubscriber 隔离单个订阅方的 panic，避免拖垮读循环。
func (c *Conn) invokeSubscriber(handler func(proto.Notification), note proto.Notification) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("notification handler panicked", slog.Any("panic", r))
		}
	}()
	handler(note)
}

func (c *Conn) snapshotSubscribers() []func(proto.Notification) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	handlers := make([]func(proto.Notification), 0, len(c.subs))
	for _, h := range c.subs {
		handlers = append(handlers, h)
	}
	return handlers
}

// reconnect 以退避+熔断节奏重建连接，成功返回新连接，Conn 关闭时返回 nil。
func (c *Conn) reconnect() net.Conn {
	c.stateMu.Lock()
	if old := c.current; old != nil {
		_ = old.Close()
		c.current = nil
	}
	c.stateMu.Unlock()

	for {
		if c.ctx.Err() != nil {
			return nil
		}
		if !c.breaker.allow() {
			select {
			case <-time.After(c.cfg.BreakerCooldown):
			case <-c.ctx.Done():
				return nil
			}
			continue
		}
		c.metrics.incReconnect()
		dialCtx, cancel := context.WithTimeout(c.ctx, c.cfg.DialTimeout)
		conn, err := c.dialer(dialCtx, c.cfg.Endpoint)
		cancel()
		if err == nil {
			c.breaker.success()
			c.backoff.reset()
			c.setCurrent(conn)
			c.logger.Info("authority connection restored", slog.String("endpoint", c.cfg.Endpoint))
			return conn
		}
		c.breaker.failure()
		delay := c.backoff.next()
		c.logger.Warn("redial failed", slog.Any("err", err), slog.Duration("retry_in", delay))
		select {
		case <-time.After(delay):
		case <-c.ctx.Done():
			return nil
		}
	}
}

func (c *Conn) setCurrent(conn net.Conn) {
	c.stateMu.Lock()
	c.current = conn
	c.stateMu.Unlock()
}

func (c *Conn) dropPending(id string) {
	c.pendingMu.Lock()
	delete(c.pending, id)
	c.pendingMu.Unlock()
}

func (c *Conn) failPending(err error) {
	c.pendingMu.Lock()
	for id, replyCh := range c.pending {
		delete(c.pending, id)
		replyCh <- pendingReply{err: err}
	}
	c.pendingMu.Unlock()
}

func latencyMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}

// defaultDialer 按 endpoint 前缀选择 vsock/unix/tcp。
func defaultDialer(ctx context.Context, endpoint string) (net.Conn, error) {
	switch {
	case strings.HasPrefix(endpoint, "unix://"):
		return (&net.Dialer{}).DialContext(ctx, "unix", strings.TrimPrefix(endpoint, "unix://"))
	case strings.HasPrefix(endpoint, "unix:"):
		return (&net.Dialer{}).DialContext(ctx, "unix", strings.TrimPrefix(endpoint, "unix:"))
	case strings.HasPrefix(endpoint, "vsock://"):
		return dialVsock(ctx, strings.TrimPrefix(endpoint, "vsock://"))
	case strings.HasPrefix(endpoint, "vsock:"):
		return dialVsock(ctx, strings.TrimPrefix(endpoint, "vsock:"))
	default:
		return (&net.Dialer{}).DialContext(ctx, "tcp", endpoint)
	}
}

func dialVsock(ctx context.Context, target string) (net.Conn, error) {
	parts := strings.Split(target, ":")
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid vsock endpoint: %s", target)
	}
	cid, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid vsock cid: %w", err)
	}
	port, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid vsock port: %w", err)
	}
	return dialBlocking(ctx, func() (net.Conn, error) {
		return vsock.Dial(uint32(cid), uint32(port), nil)
	})
}

// dialBlocking 给不支持 ctx 的拨号函数套上取消语义。
// ctx 先到时迟到建立的连接无人接管，必须回收，否则每次超时泄漏一个 socket。
func dialBlocking(ctx context.Context, dial func() (net.Conn, error)) (net.Conn, error) {
	type dialResult struct {
		conn net.Conn
		err  error
	}
	resultCh := make(chan dialResult, 1)
	go func() {
		conn, dialErr := dial()
		resultCh <- dialResult{conn: conn, err: dialErr}
	}()
	select {
	case <-ctx.Done():
		go func() {
			if res := <-resultCh; res.conn != nil {
				_ = res.conn.Close()
			}
		}()
		return nil, ctx.Err()
	case res := <-resultCh:
		return res.conn, res.err
	}
}
