package utils

import (
	"github.com/google/uuid"
)

// NewSessionID 生成会话ID
func NewSessionID() string {
	return uuid.NewString()
}

// NewRequestID 生成 RPC 请求ID
func NewRequestID() string {
	return uuid.NewString()
}
