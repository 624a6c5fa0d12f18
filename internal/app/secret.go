package app

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
)

const secretFileName = "jwt_secret.key"

// loadOrGenerateSecretKey 令牌签名密钥：配置优先，其次读取 dir 下的密钥文件，都没有时生成并保存
func loadOrGenerateSecretKey(configured, dir string) ([]byte, error) {
	if configured != "" {
		h := sha256.Sum256([]byte(configured))
		return h[:], nil
	}

	keyFile := filepath.Join(dir, secretFileName)
	if data, err := os.ReadFile(keyFile); err == nil && len(data) >= 32 {
		h := sha256.Sum256(data)
		return h[:], nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Warn("failed to create secret directory", "dir", dir, "error", err)
	}

	newKey := make([]byte, 32)
	if _, err := rand.Read(newKey); err != nil {
		return nil, fmt.Errorf("generate secret key: %w", err)
	}

	if err := os.WriteFile(keyFile, newKey, 0o600); err != nil {
		// 密钥无法保存时重启后已签发的令牌全部失效
		log.Warn("failed to save jwt secret key", "file", keyFile, "error", err)
	} else {
		log.Info("generated new jwt secret key", "file", keyFile)
	}

	h := sha256.Sum256(newKey)
	return h[:], nil
}
