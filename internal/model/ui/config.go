package ui

import "strings"

// ColorScheme 组件使用的明暗配色
type ColorScheme string

const (
	Light ColorScheme = "light"
	Dark  ColorScheme = "dark"
)

// ParseColorScheme 解析 "light" 或 "dark"（不区分大小写）
func ParseColorScheme(raw string) (ColorScheme, bool) {
	switch ColorScheme(strings.ToLower(strings.TrimSpace(raw))) {
	case Light:
		return Light, true
	case Dark:
		return Dark, true
	}
	return "", false
}

// StarterPrompt 首条消息前展示的建议问题
type StarterPrompt struct {
	Label  string `json:"label" yaml:"label"`
	Prompt string `json:"prompt" yaml:"prompt"`
	Icon   string `json:"icon,omitempty" yaml:"icon,omitempty"`
}

// Config 暴露给前端的组件界面配置
type Config struct {
	Greeting         string          `json:"greeting" yaml:"greeting"`
	PlaceholderInput string          `json:"placeholderInput" yaml:"placeholder_input"`
	StarterPrompts   []StarterPrompt `json:"starterPrompts" yaml:"starter_prompts"`
	Theme            ThemeSettings   `json:"-" yaml:"theme"`
}

// ThemeSettings 各配色方案的主题参数
type ThemeSettings struct {
	Radius     string         `yaml:"radius"`
	GrayHue    int            `yaml:"gray_hue"`
	GrayTint   int            `yaml:"gray_tint"`
	LightShade int            `yaml:"light_shade"`
	DarkShade  int            `yaml:"dark_shade"`
	Accent     AccentSettings `yaml:"accent"`
}

// AccentSettings 各配色方案的强调色
type AccentSettings struct {
	Light string `yaml:"light"`
	Dark  string `yaml:"dark"`
	Level int    `yaml:"level"`
}

// Theme 交给组件的主题对象
type Theme struct {
	ColorScheme ColorScheme `json:"colorScheme"`
	Color       ThemeColor  `json:"color"`
	Radius      string      `json:"radius"`
}

// ThemeColor 对应组件的颜色选项
type ThemeColor struct {
	Grayscale Grayscale `json:"grayscale"`
	Accent    Accent    `json:"accent"`
}

// Grayscale 对应组件的灰阶选项
type Grayscale struct {
	Hue   int `json:"hue"`
	Tint  int `json:"tint"`
	Shade int `json:"shade"`
}

// Accent 对应组件的强调色选项
type Accent struct {
	Primary string `json:"primary"`
	Level   int    `json:"level"`
}

// ThemeFor 解析指定配色的主题，未知配色按 light 处理
func (c Config) ThemeFor(scheme ColorScheme) Theme {
	if scheme != Dark {
		scheme = Light
	}

	shade := c.Theme.LightShade
	primary := c.Theme.Accent.Light
	if scheme == Dark {
		shade = c.Theme.DarkShade
		primary = c.Theme.Accent.Dark
	}

	return Theme{
		ColorScheme: scheme,
		Color: ThemeColor{
			Grayscale: Grayscale{Hue: c.Theme.GrayHue, Tint: c.Theme.GrayTint, Shade: shade},
			Accent:    Accent{Primary: primary, Level: c.Theme.Accent.Level},
		},
		Radius: c.Theme.Radius,
	}
}

// Default 内置的组件界面配置
func Default() Config {
	return Config{
		Greeting:         "How can I help you today?",
		PlaceholderInput: "Ask anything...",
		StarterPrompts: []StarterPrompt{
			{Label: "What can you do?", Prompt: "What can you do?", Icon: "circle-question"},
		},
		Theme: ThemeSettings{
			Radius:     "round",
			GrayHue:    220,
			GrayTint:   6,
			LightShade: -4,
			DarkShade:  -1,
			Accent: AccentSettings{
				Light: "#0f172a",
				Dark:  "#f1f5f9",
				Level: 1,
			},
		},
	}
}
