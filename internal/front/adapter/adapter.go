// Package adapter 把会话 facade 适配到 chainops 的能力契约，
// 供交易构建库以普通钱包/签名方的姿态使用前台会话。
package adapter

import (
	"context"
	"encoding/hex"
	"encoding/json"

	"github.com/LeastAuthority/thanos-wallet/internal/front/session"
	"github.com/LeastAuthority/thanos-wallet/pkg/chainops"
	"github.com/LeastAuthority/thanos-wallet/pkg/walleterr"
)

// Provider 以某个账户身份实现 chainops.WalletProvider。
// 发送路径委托给会话的确认门控往返。
type Provider struct {
	sess       *session.Session
	pkh        string
	networkRPC string
	// OnSend 在批次成功上链后回调，用于 UI 刷新等副作用。可为 nil。
	OnSend func(opHash string, results []json.RawMessage)
}

// NewProvider 创建绑定到 pkh 的提供方。
func NewProvider(sess *session.Session, pkh, networkRPC string) *Provider {
	return &Provider{sess: sess, pkh: pkh, networkRPC: networkRPC}
}

// PKH 返回绑定账户的公钥哈希。
func (p *Provider) PKH(ctx context.Context) (string, error) {
	return p.pkh, nil
}

// PrepareTransfer 归一化转账参数。
func (p *Provider) PrepareTransfer(params chainops.TransferParams) (chainops.OperationParams, error) {
	return chainops.NormalizeTransfer(params)
}

// PrepareOriginate 归一化合约部署参数。
func (p *Provider) PrepareOriginate(params chainops.OriginateParams) (chainops.OperationParams, error) {
	return chainops.NormalizeOriginate(params)
}

// PrepareDelegate 归一化委托参数。
func (p *Provider) PrepareDelegate(params chainops.DelegateParams) (chainops.OperationParams, error) {
	return chainops.NormalizeDelegate(params)
}

// SendOperations 走确认门控通道发送操作批次。
func (p *Provider) SendOperations(ctx context.Context, params []chainops.OperationParams) (chainops.SendResult, error) {
	raw := make([]json.RawMessage, 0, len(params))
	for _, op := range params {
		b, err := json.Marshal(op)
		if err != nil {
			return chainops.SendResult{}, walleterr.Wrap(walleterr.CodeInvalidArgument, "encode operation", err)
		}
		raw = append(raw, b)
	}
	resp, err := p.sess.SendOperations(ctx, p.pkh, p.networkRPC, raw)
	if err != nil {
		return chainops.SendResult{}, err
	}
	if p.OnSend != nil {
		p.OnSend(resp.OpHash, resp.OpResults)
	}
	return chainops.SendResult{OpHash: resp.OpHash, Results: resp.OpResults}, nil
}

// Signer 以某个账户身份实现 chainops.Signer。
type Signer struct {
	sess *session.Session
	pkh  string
}

// NewSigner 创建绑定到 pkh 的签名方。
func NewSigner(sess *session.Session, pkh string) *Signer {
	return &Signer{sess: sess, pkh: pkh}
}

// PKH 返回签名身份的公钥哈希。
func (s *Signer) PKH(ctx context.Context) (string, error) {
	return s.pkh, nil
}

// PublicKey 向 authority 解析完整公钥。
func (s *Signer) PublicKey(ctx context.Context) (string, error) {
	return s.sess.GetPublicKey(ctx, s.pkh)
}

// SecretKey 永远失败：私钥材料不离开 authority 边界。
func (s *Signer) SecretKey(ctx context.Context) (string, error) {
	return "", walleterr.New(walleterr.CodeSecretUnavailable, "secret key never leaves the authority")
}

// Sign 走确认门控通道签名。payload 和 watermark 以 hex 上送。
func (s *Signer) Sign(ctx context.Context, payload, watermark []byte) (chainops.SignResult, error) {
	if len(payload) == 0 {
		return chainops.SignResult{}, walleterr.New(walleterr.CodeInvalidArgument, "empty signing payload")
	}
	result, err := s.sess.Sign(ctx, s.pkh,
		hex.EncodeToString(payload), hex.EncodeToString(watermark))
	if err != nil {
		return chainops.SignResult{}, err
	}
	return chainops.SignResult{
		Bytes:       result.Bytes,
		Sig:         result.Sig,
		PrefixedSig: result.PrefixedSig,
		SignedBytes: result.SignedBytes,
	}, nil
}
