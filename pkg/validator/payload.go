package validator

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// PayloadEncoding 描述待签名字节串的外部编码。
type PayloadEncoding string

const (
	PayloadEncodingHex    PayloadEncoding = "hex"
	PayloadEncodingBase64 PayloadEncoding = "base64"
)

// NormalizeEncoding 将用户输入转换为内部常量，空值默认 hex。
func NormalizeEncoding(raw string) (PayloadEncoding, error) {
	switch strings.ToLower(raw) {
	case "", string(PayloadEncodingHex):
		return PayloadEncodingHex, nil
	case string(PayloadEncodingBase64):
		return PayloadEncodingBase64, nil
	default:
		return "", fmt.Errorf("unsupported encoding %q", raw)
	}
}

var errEmptyPayload = errors.New("payload must not be empty")

// DecodePayload 将字符串解码为待签名字节串并拒绝空输入。
func DecodePayload(payload string, enc PayloadEncoding) ([]byte, error) {
	if payload == "" {
		return nil, errEmptyPayload
	}
	switch enc {
	case PayloadEncodingHex:
		decoded, err := hex.DecodeString(strings.TrimPrefix(payload, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid hex payload: %w", err)
		}
		return decoded, nil
	case PayloadEncodingBase64:
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 payload: %w", err)
		}
		return decoded, nil
	default:
		return nil, fmt.Errorf("unknown encoding %q", enc)
	}
}
