package chatkit

import (
	"errors"
	"strings"

	"github.com/zhouzirui/z-chatkit/backend/internal/config"
)

// ErrMissingAPIKey 表示服务端未配置 OPENAI_API_KEY。
var ErrMissingAPIKey = errors.New("missing OPENAI_API_KEY environment variable")

// resolveCredentials 返回规范化后的密钥与会话端点，缺失时给出明确错误。
func resolveCredentials(cfg config.ChatKitConfig) (string, string, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return "", "", ErrMissingAPIKey
	}

	base := strings.TrimSpace(cfg.APIBase)
	if base == "" {
		base = config.DefaultAPIBase
	}
	cfg.APIBase = base

	return key, cfg.SessionsURL(), nil
}
