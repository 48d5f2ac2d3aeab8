// Package session 是前台的会话 facade：把类型化的钱包操作
// 映射到 intercom 通道上的请求往返，维护状态缓存，并为
// 敏感操作套上确认门控。
package session

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/time/rate"

	"github.com/LeastAuthority/thanos-wallet/internal/front/confirm"
	"github.com/LeastAuthority/thanos-wallet/internal/front/proto"
	"github.com/LeastAuthority/thanos-wallet/internal/intercom"
	"github.com/LeastAuthority/thanos-wallet/pkg/walleterr"
)

// Session 是单实例会话。所有方法并发安全。
type Session struct {
	cfg     Config
	ch      intercom.Channel
	watcher *confirm.Watcher
	logger  *slog.Logger
	metrics *Metrics
	limiter *rate.Limiter

	// gateMu 串行化确认门控操作：单槽状态机一次只跟踪一个 id。
	gateMu sync.Mutex

	stateMu sync.Mutex
	state   *proto.WalletState
	dirty   bool
	// stateGen 在每次更新通知时递增，淘汰通知之前发起的拉取结果。
	stateGen uint64

	unsubscribe func()
	closeOnce   sync.Once
}

// New 创建会话并订阅通道通知。调用方负责 Close。
func New(ch intercom.Channel, cfg Config) *Session {
	cfg = cfg.normalize()
	s := &Session{
		cfg:     cfg,
		ch:      ch,
		watcher: confirm.NewWatcher(cfg.Confirm),
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		limiter: rate.NewLimiter(rate.Limit(cfg.DecisionRate), cfg.DecisionBurst),
	}
	s.unsubscribe = ch.Subscribe(s.onNotification)
	return s
}

// Close 取消订阅并停止确认状态机。不关闭底层通道。
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
		s.watcher.Close()
	})
}

func (s *Session) onNotification(n proto.Notification) {
	s.watcher.Notify(n)
	if _, ok := n.(*proto.StateUpdated); ok {
		s.markDirty()
		go s.refetchState()
	}
}

// roundTrip 做一次请求往返并把响应收窄到期望类型。
// 通道层已校验判别式，这里再收窄一次以覆盖测试替身等非 Conn 实现。
func roundTrip[T proto.Response](ctx context.Context, ch intercom.Channel, req proto.Request) (T, error) {
	var zero T
	resp, err := ch.Request(ctx, req)
	if err != nil {
		return zero, err
	}
	typed, ok := resp.(T)
	if !ok {
		return zero, walleterr.Newf(walleterr.CodeProtocolViolation,
			"unexpected response %s to %s", resp.MessageType(), req.MessageType())
	}
	return typed, nil
}

// Unlock 用口令解锁钱包。
func (s *Session) Unlock(ctx context.Context, password string) error {
	_, err := roundTrip[*proto.UnlockResponse](ctx, s.ch, &proto.UnlockRequest{Password: password})
	return err
}

// Lock 锁定钱包。
func (s *Session) Lock(ctx context.Context) error {
	_, err := roundTrip[*proto.LockResponse](ctx, s.ch, &proto.LockRequest{})
	return err
}

// RegisterWallet 以口令注册新钱包，mnemonic 为空时由 authority 生成。
func (s *Session) RegisterWallet(ctx context.Context, password, mnemonic string) error {
	if password == "" {
		return walleterr.New(walleterr.CodeInvalidArgument, "password required")
	}
	_, err := roundTrip[*proto.NewWalletResponse](ctx, s.ch,
		&proto.NewWalletRequest{Password: password, Mnemonic: mnemonic})
	return err
}

// CreateAccount 从钱包种子派生新账户。
func (s *Session) CreateAccount(ctx context.Context, name string) error {
	_, err := roundTrip[*proto.CreateAccountResponse](ctx, s.ch,
		&proto.CreateAccountRequest{Name: name})
	return err
}

// RemoveAccount 删除账户，口令错误由 authority 拒绝。
func (s *Session) RemoveAccount(ctx context.Context, pkh, password string) error {
	if pkh == "" {
		return walleterr.New(walleterr.CodeInvalidArgument, "pkh required")
	}
	_, err := roundTrip[*proto.RemoveAccountResponse](ctx, s.ch,
		&proto.RemoveAccountRequest{PublicKeyHash: pkh, Password: password})
	return err
}

// EditAccountName 修改账户显示名。
func (s *Session) EditAccountName(ctx context.Context, pkh, name string) error {
	if pkh == "" {
		return walleterr.New(walleterr.CodeInvalidArgument, "pkh required")
	}
	_, err := roundTrip[*proto.EditAccountResponse](ctx, s.ch,
		&proto.EditAccountRequest{PublicKeyHash: pkh, Name: name})
	return err
}

// ImportAccount 导入裸私钥账户。
func (s *Session) ImportAccount(ctx context.Context, privateKey, encPassword string) error {
	if privateKey == "" {
		return walleterr.New(walleterr.CodeInvalidArgument, "private key required")
	}
	_, err := roundTrip[*proto.ImportAccountResponse](ctx, s.ch,
		&proto.ImportAccountRequest{PrivateKey: privateKey, EncPassword: encPassword})
	return err
}

// ImportMnemonicAccount 由助记词派生并导入账户。
func (s *Session) ImportMnemonicAccount(ctx context.Context, mnemonic, password, derivationPath string) error {
	if mnemonic == "" {
		return walleterr.New(walleterr.CodeInvalidArgument, "mnemonic required")
	}
	_, err := roundTrip[*proto.ImportMnemonicAccountResponse](ctx, s.ch,
		&proto.ImportMnemonicAccountRequest{
			Mnemonic:       mnemonic,
			Password:       password,
			DerivationPath: derivationPath,
		})
	return err
}

// ImportFundraiserAccount 导入 fundraiser 账户。
func (s *Session) ImportFundraiserAccount(ctx context.Context, email, password, mnemonic string) error {
	if email == "" || mnemonic == "" {
		return walleterr.New(walleterr.CodeInvalidArgument, "email and mnemonic required")
	}
	_, err := roundTrip[*proto.ImportFundraiserAccountResponse](ctx, s.ch,
		&proto.ImportFundraiserAccountRequest{Email: email, Password: password, Mnemonic: mnemonic})
	return err
}

// UpdateSettings 应用部分设置更新。
func (s *Session) UpdateSettings(ctx context.Context, patch proto.SettingsPatch) error {
	_, err := roundTrip[*proto.UpdateSettingsResponse](ctx, s.ch,
		&proto.UpdateSettingsRequest{Settings: patch})
	return err
}

// RevealPrivateKey 读取账户私钥明文。结果不缓存。
func (s *Session) RevealPrivateKey(ctx context.Context, pkh, password string) (string, error) {
	if pkh == "" {
		return "", walleterr.New(walleterr.CodeInvalidArgument, "pkh required")
	}
	resp, err := roundTrip[*proto.RevealPrivateKeyResponse](ctx, s.ch,
		&proto.RevealPrivateKeyRequest{PublicKeyHash: pkh, Password: password})
	if err != nil {
		return "", err
	}
	return resp.PrivateKey, nil
}

// RevealMnemonic 读取钱包助记词明文。结果不缓存。
func (s *Session) RevealMnemonic(ctx context.Context, password string) (string, error) {
	resp, err := roundTrip[*proto.RevealMnemonicResponse](ctx, s.ch,
		&proto.RevealMnemonicRequest{Password: password})
	if err != nil {
		return "", err
	}
	return resp.Mnemonic, nil
}

// GetPublicKey 查询账户公钥。
func (s *Session) GetPublicKey(ctx context.Context, pkh string) (string, error) {
	if pkh == "" {
		return "", walleterr.New(walleterr.CodeInvalidArgument, "pkh required")
	}
	resp, err := roundTrip[*proto.RevealPublicKeyResponse](ctx, s.ch,
		&proto.RevealPublicKeyRequest{PublicKeyHash: pkh})
	if err != nil {
		return "", err
	}
	return resp.PublicKey, nil
}

// GetDAppPayload 按外部关联 id 拉取待确认的 dApp 请求描述。
func (s *Session) GetDAppPayload(ctx context.Context, id string) (proto.ConfirmationPayload, error) {
	if id == "" {
		return nil, walleterr.New(walleterr.CodeInvalidArgument, "confirmation id required")
	}
	resp, err := roundTrip[*proto.DAppGetPayloadResponse](ctx, s.ch,
		&proto.DAppGetPayloadRequest{ID: id})
	if err != nil {
		return nil, err
	}
	return resp.Payload.Payload, nil
}

// PendingConfirmation 返回当前等待用户决定的确认内容。
func (s *Session) PendingConfirmation() (confirm.PendingConfirmation, bool) {
	return s.watcher.Pending()
}

// ConfirmState 返回确认状态机的当前状态，供展示层使用。
func (s *Session) ConfirmState() confirm.State {
	return s.watcher.State()
}

// Abandon 无条件复位确认槽，解除所有等待。钱包锁定或 UI 重载时调用。
func (s *Session) Abandon() {
	s.watcher.Reset()
}
