package ui

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Store 向 HTTP 处理器提供只读的界面配置
type Store interface {
	Config() Config
	Theme(scheme ColorScheme) Theme
}

// MemoryStore 基于内存的 Store 实现，配置在创建时固定
type MemoryStore struct {
	cfg Config
}

// NewMemoryStore 创建保存 cfg 副本的内存存储
func NewMemoryStore(cfg Config) *MemoryStore {
	cfg.StarterPrompts = append([]StarterPrompt(nil), cfg.StarterPrompts...)
	return &MemoryStore{cfg: cfg}
}

// Config 返回配置副本
func (s *MemoryStore) Config() Config {
	cfg := s.cfg
	cfg.StarterPrompts = append([]StarterPrompt(nil), s.cfg.StarterPrompts...)
	return cfg
}

// Theme 返回指定配色的主题
func (s *MemoryStore) Theme(scheme ColorScheme) Theme {
	return s.cfg.ThemeFor(scheme)
}

// Load 读取 YAML 配置并覆盖在 Default 之上，路径为空时返回默认配置
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading ui config: %w", err)
	}

	return Parse(data)
}

// Parse 解析 YAML 配置并覆盖在 Default 之上
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing ui config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate 检查组件无法渲染的配置值
func (c Config) Validate() error {
	var errs []error
	for i, p := range c.StarterPrompts {
		if strings.TrimSpace(p.Prompt) == "" {
			errs = append(errs, fmt.Errorf("starter_prompts[%d]: prompt is required", i))
		}
	}
	if c.Theme.Accent.Level < 0 || c.Theme.Accent.Level > 3 {
		errs = append(errs, fmt.Errorf("theme.accent.level must be between 0 and 3, got %d", c.Theme.Accent.Level))
	}
	if c.Theme.GrayHue < 0 || c.Theme.GrayHue > 360 {
		errs = append(errs, fmt.Errorf("theme.gray_hue must be between 0 and 360, got %d", c.Theme.GrayHue))
	}
	return errors.Join(errs...)
}
