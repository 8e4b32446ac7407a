package utils

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
)

// BytesMD5 计算字节数组MD5
func BytesMD5(data []byte) string {
	hash := md5.New()
	hash.Write(data)
	return hex.EncodeToString(hash.Sum(nil))
}

// JSONMD5 计算值的 JSON 编码的MD5
func JSONMD5(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return BytesMD5(data), nil
}
