package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/LeastAuthority/thanos-wallet/internal/front/opid"
	"github.com/LeastAuthority/thanos-wallet/internal/front/proto"
	"github.com/LeastAuthority/thanos-wallet/pkg/walleterr"
)

// SendOperations 发送操作批次。请求全程受确认门控：authority 在
// 用户批准前不回复，过期通知会让调用以 CONFIRMATION_EXPIRED 失败。
func (s *Session) SendOperations(ctx context.Context, sourcePKH, networkRPC string, ops []json.RawMessage) (*proto.OperationsResponse, error) {
	if sourcePKH == "" {
		return nil, walleterr.New(walleterr.CodeInvalidArgument, "source pkh required")
	}
	if len(ops) == 0 {
		return nil, walleterr.New(walleterr.CodeInvalidArgument, "no operations to send")
	}
	resp, err := s.confirmedRequest(ctx, "operations", func(id string) proto.Request {
		return &proto.OperationsRequest{
			ID:            id,
			SourcePKH:     sourcePKH,
			NetworkRPC:    networkRPC,
			RawOperations: ops,
		}
	})
	if err != nil {
		return nil, err
	}
	typed, ok := resp.(*proto.OperationsResponse)
	if !ok {
		return nil, walleterr.Newf(walleterr.CodeProtocolViolation,
			"unexpected response %s to operations request", resp.MessageType())
	}
	return typed, nil
}

// Sign 请求对任意字节串签名，同样受确认门控。
func (s *Session) Sign(ctx context.Context, sourcePKH, payload, watermark string) (*proto.SignatureResult, error) {
	if sourcePKH == "" {
		return nil, walleterr.New(walleterr.CodeInvalidArgument, "source pkh required")
	}
	if payload == "" {
		return nil, walleterr.New(walleterr.CodeInvalidArgument, "empty signing payload")
	}
	resp, err := s.confirmedRequest(ctx, "sign", func(id string) proto.Request {
		return &proto.SignRequest{
			ID:        id,
			SourcePKH: sourcePKH,
			Bytes:     payload,
			Watermark: watermark,
		}
	})
	if err != nil {
		return nil, err
	}
	typed, ok := resp.(*proto.SignResponse)
	if !ok {
		return nil, walleterr.Newf(walleterr.CodeProtocolViolation,
			"unexpected response %s to sign request", resp.MessageType())
	}
	return &typed.Result, nil
}

// confirmedRequest 执行一次确认门控往返：生成关联 id，先在状态机
// 占槽再发送，然后在回复、过期、取消三者间竞争。
// gateMu 保证并发的门控调用串行执行而不是相互失败。
func (s *Session) confirmedRequest(ctx context.Context, opType string, build func(id string) proto.Request) (proto.Response, error) {
	s.gateMu.Lock()
	defer s.gateMu.Unlock()

	id := opid.New()
	if err := s.watcher.Track(id); err != nil {
		return nil, walleterr.Wrap(walleterr.CodeInvalidArgument, "confirmation slot", err)
	}
	defer s.watcher.Release(id)
	expired := s.watcher.WatchExpiry(id)

	type reply struct {
		resp proto.Response
		err  error
	}
	replies := make(chan reply, 1)
	go func() {
		resp, err := s.ch.Request(ctx, build(id))
		replies <- reply{resp, err}
	}()

	select {
	case r := <-replies:
		if r.err != nil {
			s.metrics.observeGated(opType, gatedOutcome(r.err))
			return nil, r.err
		}
		s.metrics.observeGated(opType, "ok")
		return r.resp, nil
	case <-expired:
		s.metrics.observeGated(opType, "expired")
		return nil, walleterr.New(walleterr.CodeExpired, "confirmation window expired")
	case <-ctx.Done():
		s.metrics.observeGated(opType, "canceled")
		return nil, ctx.Err()
	}
}

func gatedOutcome(err error) string {
	switch {
	case walleterr.IsDeclined(err):
		return "declined"
	case walleterr.IsExpired(err):
		return "expired"
	default:
		return "error"
	}
}

// ConfirmOperation 提交本地会话发起操作的用户决定。
func (s *Session) ConfirmOperation(ctx context.Context, id string, confirmed bool) error {
	if id == "" {
		return walleterr.New(walleterr.CodeInvalidArgument, "confirmation id required")
	}
	s.metrics.observeDecision("local", confirmed)
	return s.submitDecision(ctx, func(ctx context.Context) error {
		_, err := roundTrip[*proto.ConfirmationResponse](ctx, s.ch,
			&proto.ConfirmationRequest{ID: id, Confirmed: confirmed})
		return err
	})
}

// ConfirmDAppPermission 提交 dApp 连接授权决定。批准时 authority
// 需要选中账户的完整公钥，先解析公钥再转发决定。
func (s *Session) ConfirmDAppPermission(ctx context.Context, id string, confirmed bool, pkh string) error {
	if id == "" {
		return walleterr.New(walleterr.CodeInvalidArgument, "confirmation id required")
	}
	var publicKey string
	if confirmed {
		if pkh == "" {
			return walleterr.New(walleterr.CodeInvalidArgument, "account pkh required to approve")
		}
		pk, err := s.GetPublicKey(ctx, pkh)
		if err != nil {
			return err
		}
		publicKey = pk
	}
	s.metrics.observeDecision("dapp_permission", confirmed)
	return s.submitDecision(ctx, func(ctx context.Context) error {
		_, err := roundTrip[*proto.DAppPermConfirmationResponse](ctx, s.ch,
			&proto.DAppPermConfirmationRequest{
				ID:            id,
				Confirmed:     confirmed,
				PublicKeyHash: pkh,
				PublicKey:     publicKey,
			})
		return err
	})
}

// ConfirmDAppOperation 提交 dApp 操作批次的确认决定。
func (s *Session) ConfirmDAppOperation(ctx context.Context, id string, confirmed bool) error {
	if id == "" {
		return walleterr.New(walleterr.CodeInvalidArgument, "confirmation id required")
	}
	s.metrics.observeDecision("dapp_operations", confirmed)
	return s.submitDecision(ctx, func(ctx context.Context) error {
		_, err := roundTrip[*proto.DAppOpsConfirmationResponse](ctx, s.ch,
			&proto.DAppOpsConfirmationRequest{ID: id, Confirmed: confirmed})
		return err
	})
}

// submitDecision 套用决定提交纪律：限流防止重试风暴，失败时
// 至少等待 MinFailureDelay 再把错误交还给 UI。
func (s *Session) submitDecision(ctx context.Context, send func(ctx context.Context) error) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	start := time.Now()
	err := send(ctx)
	if err != nil {
		s.holdFailure(ctx, start)
	}
	return err
}

func (s *Session) holdFailure(ctx context.Context, start time.Time) {
	remaining := s.cfg.MinFailureDelay - time.Since(start)
	if remaining <= 0 {
		return
	}
	t := time.NewTimer(remaining)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
