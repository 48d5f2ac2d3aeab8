package proto

import (
	"encoding/json"
	"fmt"
)

// PayloadKind 区分确认内容的种类，集合封闭。
type PayloadKind string

const (
	// PayloadKindConnect 表示 dApp 连接授权请求。
	PayloadKindConnect PayloadKind = "connect"
	// PayloadKindOperations 表示链上操作批次确认请求。
	PayloadKindOperations PayloadKind = "confirm_operations"
)

// ConfirmationPayload 是确认内容的封闭和类型，消费方必须穷举匹配。
type ConfirmationPayload interface {
	Kind() PayloadKind
}

// AppMetadata 描述发起连接的 dApp。
type AppMetadata struct {
	Name    string `json:"name"`
	IconURL string `json:"iconUrl,omitempty"`
}

// ConnectPayload 是 dApp 连接授权请求的内容。
type ConnectPayload struct {
	Origin  string      `json:"origin"`
	AppMeta AppMetadata `json:"appMeta"`
}

func (*ConnectPayload) Kind() PayloadKind { return PayloadKindConnect }

// OperationsPayload 是操作批次确认请求的内容。
type OperationsPayload struct {
	SourcePKH     string            `json:"sourcePkh"`
	NetworkRPC    string            `json:"networkRpc"`
	RawOperations []json.RawMessage `json:"opParams"`
}

func (*OperationsPayload) Kind() PayloadKind { return PayloadKindOperations }

// ConfirmationPayloadBox 让和类型可以直接嵌入 JSON 报文。
// 编码时附加 kind 判别值，解码遇到未知 kind 直接报错而不是静默丢弃。
type ConfirmationPayloadBox struct {
	Payload ConfirmationPayload
}

type payloadEnvelope struct {
	Kind    PayloadKind     `json:"kind"`
	Content json.RawMessage `json:"content"`
}

// MarshalJSON 实现 json.Marshaler。
func (b ConfirmationPayloadBox) MarshalJSON() ([]byte, error) {
	if b.Payload == nil {
		return []byte("null"), nil
	}
	content, err := json.Marshal(b.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", b.Payload.Kind(), err)
	}
	return json.Marshal(payloadEnvelope{Kind: b.Payload.Kind(), Content: content})
}

// UnmarshalJSON 实现 json.Unmarshaler。
func (b *ConfirmationPayloadBox) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		b.Payload = nil
		return nil
	}
	var env payloadEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("unmarshal payload envelope: %w", err)
	}
	switch env.Kind {
	case PayloadKindConnect:
		payload := &ConnectPayload{}
		if err := json.Unmarshal(env.Content, payload); err != nil {
			return fmt.Errorf("unmarshal connect payload: %w", err)
		}
		b.Payload = payload
	case PayloadKindOperations:
		payload := &OperationsPayload{}
		if err := json.Unmarshal(env.Content, payload); err != nil {
			return fmt.Errorf("unmarshal operations payload: %w", err)
		}
		b.Payload = payload
	default:
		return fmt.Errorf("unknown confirmation payload kind %q", env.Kind)
	}
	return nil
}
