// Package opid 为确认握手生成不可猜测的关联令牌。
package opid

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// tokenBytes 为令牌熵长度，16 字节保证碰撞概率可忽略。
const tokenBytes = 16

// New 生成一个全新的 URL-safe 关联令牌，令牌不会复用。
func New() string {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		// 系统熵源不可用属于环境级故障，与 uuid.New 的处理方式一致。
		panic(fmt.Sprintf("opid: entropy source unavailable: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
