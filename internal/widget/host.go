package widget

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/zhouzirui/z-chatkit/backend/internal/model/ui"
)

// ElementName CDN 脚本注册的自定义元素名
const ElementName = "openai-chatkit"

const (
	defaultPollInterval = 100 * time.Millisecond
	defaultTimeout      = 5 * time.Second
)

var (
	// ErrScriptUnavailable 超时仍未检测到自定义元素
	ErrScriptUnavailable = errors.New("chatkit web component is unavailable; verify that the script URL is reachable")
	// ErrNotReady 脚本或凭证尚未就绪时 Render 返回该错误
	ErrNotReady = errors.New("widget not ready")
)

// Registry 查询自定义元素是否已注册，对应浏览器的 customElements
type Registry interface {
	IsDefined(name string) bool
}

// RegistryFunc 将函数适配为 Registry
type RegistryFunc func(name string) bool

func (f RegistryFunc) IsDefined(name string) bool { return f(name) }

// Props 组件的渲染参数
type Props struct {
	InstanceKey  int
	ClientSecret string
	Config       ui.Config
	Theme        ui.Theme
}

// String 输出时隐藏凭证，避免写入日志
func (p Props) String() string {
	return fmt.Sprintf("widget.Props{InstanceKey:%d ClientSecret:[redacted] Theme:%s}", p.InstanceKey, p.Theme.ColorScheme)
}

// Option 宿主配置项
type Option func(*Host)

// WithPollInterval 设置轮询注册表的间隔
func WithPollInterval(d time.Duration) Option {
	return func(h *Host) { h.pollInterval = d }
}

// WithTimeout 设置 WaitReady 的最长等待时间
func WithTimeout(d time.Duration) Option {
	return func(h *Host) { h.timeout = d }
}

// Host 检测组件定义何时可用并负责渲染。
// 自身不做错误恢复，失败一律上报给调用方。
type Host struct {
	mu           sync.Mutex
	registry     Registry
	config       ui.Store
	pollInterval time.Duration
	timeout      time.Duration

	ready  bool
	failed error
	signal chan struct{}
}

// NewHost 创建组件宿主。registry 可为 nil，此时只依赖
// ScriptLoaded/ScriptFailed 事件。
func NewHost(registry Registry, config ui.Store, opts ...Option) *Host {
	h := &Host{
		registry:     registry,
		config:       config,
		pollInterval: defaultPollInterval,
		timeout:      defaultTimeout,
		signal:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ScriptLoaded 记录脚本 load 事件
func (h *Host) ScriptLoaded() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ready || h.failed != nil {
		return
	}
	h.ready = true
	close(h.signal)
}

// ScriptFailed 记录脚本 error 事件
func (h *Host) ScriptFailed(err error) {
	if err == nil {
		err = ErrScriptUnavailable
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ready || h.failed != nil {
		return
	}
	h.failed = err
	close(h.signal)
}

// Ready 报告组件定义是否可用
func (h *Host) Ready() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ready || h.definedLocked()
}

// Retry 清除上次失败，重新开始检测
func (h *Host) Retry() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failed == nil {
		return
	}
	h.failed = nil
	h.signal = make(chan struct{})
}

// WaitReady 阻塞直到脚本加载成功或失败、注册表出现元素、超时或 ctx 结束
func (h *Host) WaitReady(ctx context.Context) error {
	h.mu.Lock()
	if h.ready {
		h.mu.Unlock()
		return nil
	}
	if h.failed != nil {
		err := h.failed
		h.mu.Unlock()
		return err
	}
	if h.definedLocked() {
		h.ready = true
		close(h.signal)
		h.mu.Unlock()
		return nil
	}
	signal := h.signal
	h.mu.Unlock()

	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(h.timeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-signal:
			// 加锁重新检查：Retry 可能已替换 signal
			return h.WaitReady(ctx)
		case <-ticker.C:
			if h.registry != nil && h.registry.IsDefined(ElementName) {
				h.ScriptLoaded()
				return h.WaitReady(ctx)
			}
		case <-deadline.C:
			h.ScriptFailed(ErrScriptUnavailable)
			return h.WaitReady(ctx)
		}
	}
}

// Render 返回组件实例化参数，必须在脚本就绪且取得凭证之后
func (h *Host) Render(instanceKey int, credential string, scheme ui.ColorScheme) (Props, error) {
	if !h.Ready() || credential == "" {
		return Props{}, ErrNotReady
	}

	props := Props{InstanceKey: instanceKey, ClientSecret: credential}
	if h.config != nil {
		props.Config = h.config.Config()
		props.Theme = h.config.Theme(scheme)
	}
	return props, nil
}

func (h *Host) definedLocked() bool {
	return h.failed == nil && h.registry != nil && h.registry.IsDefined(ElementName)
}
