// Package chainops 定义交易构建库所消费的能力契约：
// 钱包提供方（组装并发送操作批次）与签名方（对任意字节串签名）。
// 本包只做纯参数归一化，不涉及网络与确认流程。
package chainops

import (
	"context"
	"encoding/json"
)

// OpKind 标识链上操作种类。
type OpKind string

const (
	OpKindTransaction OpKind = "transaction"
	OpKindOrigination OpKind = "origination"
	OpKindDelegation  OpKind = "delegation"
)

// OperationParams 是归一化后的单个操作参数。
type OperationParams struct {
	Kind         OpKind          `json:"kind"`
	Destination  string          `json:"destination,omitempty"`
	AmountMutez  int64           `json:"amount,omitempty"`
	FeeMutez     int64           `json:"fee,omitempty"`
	GasLimit     int64           `json:"gasLimit,omitempty"`
	StorageLimit int64           `json:"storageLimit,omitempty"`
	Delegate     string          `json:"delegate,omitempty"`
	BalanceMutez int64           `json:"balance,omitempty"`
	Code         json.RawMessage `json:"code,omitempty"`
	Storage      json.RawMessage `json:"storage,omitempty"`
	Parameters   json.RawMessage `json:"parameters,omitempty"`
}

// SendResult 是操作批次上链后的结果。
type SendResult struct {
	OpHash  string
	Results []json.RawMessage
}

// SignResult 是签名操作的完整产物。
type SignResult struct {
	Bytes       string
	Sig         string
	PrefixedSig string
	SignedBytes string
}

// WalletProvider 是交易构建库期望的钱包能力。
// Prepare* 为纯变换；SendOperations 是唯一的敏感路径。
type WalletProvider interface {
	// PKH 返回当前账户的公钥哈希。
	PKH(ctx context.Context) (string, error)
	PrepareTransfer(params TransferParams) (OperationParams, error)
	PrepareOriginate(params OriginateParams) (OperationParams, error)
	PrepareDelegate(params DelegateParams) (OperationParams, error)
	// SendOperations 发送操作批次并等待上链结果。
	SendOperations(ctx context.Context, params []OperationParams) (SendResult, error)
}

// Signer 是交易构建库期望的签名能力。
type Signer interface {
	// PKH 返回签名身份的公钥哈希。
	PKH(ctx context.Context) (string, error)
	// PublicKey 返回完整公钥，公钥不属于敏感信息。
	PublicKey(ctx context.Context) (string, error)
	// SecretKey 对远程签名方必须永远失败：私钥材料不离开 authority 边界。
	SecretKey(ctx context.Context) (string, error)
	// Sign 对字节串签名，watermark 为可选前缀。
	Sign(ctx context.Context, payload []byte, watermark []byte) (SignResult, error)
}
