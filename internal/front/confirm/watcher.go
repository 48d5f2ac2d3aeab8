// Package confirm 实现确认握手的前台状态机：
// 跟踪唯一的在途关联 id，把 authority 推送匹配到本地等待者。
package confirm

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/LeastAuthority/thanos-wallet/internal/front/proto"
)

// ErrSlotBusy 表示已有确认在途，槽位被占用。
var ErrSlotBusy = errors.New("confirmation slot busy")

// PendingConfirmation 是当前等待用户决定的确认内容。
type PendingConfirmation struct {
	ID      string
	Payload proto.ConfirmationPayload
}

// Config 控制 Watcher 行为。
type Config struct {
	// QueueSize 为通知队列容量，溢出的通知按协议允许直接丢弃。
	QueueSize int
	// ExpiredMemory 为"最近过期 id"的记忆容量，保障过期优先于迟到的提示。
	ExpiredMemory int
	Logger        *slog.Logger
	Metrics       *Metrics
}

func (c Config) normalize() Config {
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
	if c.ExpiredMemory <= 0 {
		c.ExpiredMemory = 32
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Watcher 是单 worker 的确认状态机，通知按到达顺序串行处理。
// 每个会话至多跟踪一个关联 id；外来/重复/迟到的通知不改变状态。
type Watcher struct {
	cfg     Config
	logger  *slog.Logger
	metrics *Metrics

	queue  chan proto.Notification
	stopCh chan struct{}
	wg     sync.WaitGroup

	mu         sync.Mutex
	state      State
	trackedID  string
	pending    *PendingConfirmation
	expiryCh   map[string][]chan struct{}
	expiredLog []string
	expiredSet map[string]struct{}
}

// NewWatcher 创建状态机并启动处理 worker。
func NewWatcher(cfg Config) *Watcher {
	normalized := cfg.normalize()
	w := &Watcher{
		cfg:        normalized,
		logger:     normalized.Logger,
		metrics:    normalized.Metrics,
		queue:      make(chan proto.Notification, normalized.QueueSize),
		stopCh:     make(chan struct{}),
		state:      StateIdle,
		expiryCh:   make(map[string][]chan struct{}),
		expiredSet: make(map[string]struct{}),
	}
	if w.metrics == nil {
		w.metrics = NewMetrics(nil)
	}
	w.wg.Add(1)
	go w.loop()
	return w
}

// Close 停止 worker。
func (w *Watcher) Close() {
	close(w.stopCh)
	w.wg.Wait()
}

// Notify 入队一条通知，队列满时丢弃（推送本身不保证送达）。
func (w *Watcher) Notify(n proto.Notification) {
	select {
	case w.queue <- n:
	default:
		w.metrics.incQueueDrop()
	}
}

// Track 占用跟踪槽位。必须在发出对应请求之前调用（write-before-send），
// 以免通知抢在请求回复之前到达时无法识别。
func (w *Watcher) Track(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if id == "" {
		return errors.New("operation id is required")
	}
	if w.trackedID != "" && w.trackedID != id {
		return ErrSlotBusy
	}
	w.trackedID = id
	w.state = StateTracking
	return nil
}

// Release 在请求解析（成功/拒绝/出错）后释放槽位。
// 只有当前跟踪的 id 才会被释放，过期的调用是无害的。
func (w *Watcher) Release(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.trackedID != id {
		return
	}
	w.clearLocked()
}

// Reset 无条件回到 Idle，用于 UI 放弃流程时解除槽位占用。
// 在途的底层请求不受影响，留待其独立解析。
func (w *Watcher) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.clearLocked()
}

// Pending 返回当前等待用户决定的确认内容。
func (w *Watcher) Pending() (PendingConfirmation, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending == nil {
		return PendingConfirmation{}, false
	}
	return *w.pending, true
}

// State 返回当前状态。
func (w *Watcher) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// TrackedID 返回当前跟踪的关联 id，空串表示空闲。
func (w *Watcher) TrackedID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.trackedID
}

// WatchExpiry 返回一个在指定 id 过期时关闭的通道。
// 若该 id 已经过期，返回的通道是已关闭的。
func (w *Watcher) WatchExpiry(id string) <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	ch := make(chan struct{})
	if _, expired := w.expiredSet[id]; expired {
		close(ch)
		return ch
	}
	w.expiryCh[id] = append(w.expiryCh[id], ch)
	return ch
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.stopCh:
			return
		case n := <-w.queue:
			w.handle(n)
		}
	}
}

func (w *Watcher) handle(n proto.Notification) {
	switch note := n.(type) {
	case *proto.ConfirmationRequested:
		w.handleRequested(note)
	case *proto.ConfirmationExpired:
		w.handleExpired(note)
	default:
		// 其他通知种类（如状态更新）由会话层自行订阅。
	}
}

func (w *Watcher) handleRequested(note *proto.ConfirmationRequested) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, expired := w.expiredSet[note.ID]; expired {
		// 过期优先：迟到的提示不得复活已关闭的确认窗口。
		w.metrics.incDuplicate()
		return
	}
	if note.ID != w.trackedID {
		w.metrics.incForeign()
		w.logger.Debug("foreign confirmation dropped", slog.String("op_id", note.ID))
		return
	}
	if w.pending != nil {
		w.metrics.incDuplicate()
		return
	}
	w.pending = &PendingConfirmation{ID: note.ID, Payload: note.Payload.Payload}
	w.state = StateAwaitingDecision
	w.metrics.incSurfaced()
	w.logger.Info("confirmation surfaced", slog.String("op_id", note.ID))
}

func (w *Watcher) handleExpired(note *proto.ConfirmationExpired) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rememberExpiredLocked(note.ID)
	for _, ch := range w.expiryCh[note.ID] {
		close(ch)
	}
	delete(w.expiryCh, note.ID)
	if note.ID != w.trackedID {
		return
	}
	w.metrics.incExpired()
	w.logger.Info("confirmation expired", slog.String("op_id", note.ID))
	w.clearLocked()
}

func (w *Watcher) rememberExpiredLocked(id string) {
	if _, ok := w.expiredSet[id]; ok {
		return
	}
	w.expiredSet[id] = struct{}{}
	w.expiredLog = append(w.expiredLog, id)
	if len(w.expiredLog) > w.cfg.ExpiredMemory {
		oldest := w.expiredLog[0]
		w.expiredLog = w.expiredLog[1:]
		delete(w.expiredSet, oldest)
	}
}

func (w *Watcher) clearLocked() {
	// 槽位解析后该 id 不会再过期，丢弃（不关闭）遗留的 watch 通道，
	// 否则每次正常解析都会在 map 里泄漏一个条目。
	if w.trackedID != "" {
		delete(w.expiryCh, w.trackedID)
	}
	w.trackedID = ""
	w.pending = nil
	w.state = StateIdle
	w.metrics.clearPending()
}
