package service

import (
	"crypto/rand"
	"encoding/base64"
	"io"
)

const accessTokenBytes = 32

// GenerateAccessToken 生成 URL 安全的访问令牌（32 字节随机数，43 个字符）
func GenerateAccessToken() (string, error) {
	return generateAccessToken(rand.Reader)
}

func generateAccessToken(source io.Reader) (string, error) {
	buf := make([]byte, accessTokenBytes)
	if _, err := io.ReadFull(source, buf); err != nil {
		return "", upstreamError("generate access token", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
