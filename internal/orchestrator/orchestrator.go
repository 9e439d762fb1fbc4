// Package orchestrator 驱动单个嵌入式聊天组件：等待组件脚本就绪，向会话代理
// 申请凭证，交给组件宿主渲染，并处理组件发起的客户端工具调用。
package orchestrator

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/zhouzirui/z-chatkit/backend/internal/client"
	"github.com/zhouzirui/z-chatkit/backend/internal/model/session"
	"github.com/zhouzirui/z-chatkit/backend/internal/model/ui"
	sessionsvc "github.com/zhouzirui/z-chatkit/backend/internal/service/session"
	"github.com/zhouzirui/z-chatkit/backend/internal/widget"
)

// 用户可见的错误提示
const (
	msgScriptUnavailable   = "ChatKit web component is unavailable. Verify that the script URL is reachable."
	msgScriptFailed        = "Failed to load the ChatKit script."
	msgWorkflowPlaceholder = "Set CHATKIT_WORKFLOW_ID in your environment."
	msgSessionFailed       = "Unable to start ChatKit session."
)

// 向组件声明的客户端工具名
const (
	ToolSwitchTheme = "switch_theme"
	ToolRecordFact  = "record_fact"
)

var (
	// ErrStale 结果在 Unmount 或 Reset 之后才返回，已被丢弃
	ErrStale = errors.New("orchestrator: result discarded, instance no longer live")
	// ErrWorkflowNotConfigured 工作流为占位值，未请求会话代理
	ErrWorkflowNotConfigured = errors.New("orchestrator: workflow id is a placeholder")
	// ErrBlocked 存在阻断性错误时 Render 返回该错误
	ErrBlocked = errors.New("orchestrator: widget blocked by error")
)

// SessionFetcher 向会话代理申请凭证
type SessionFetcher interface {
	CreateSession(ctx context.Context, req session.CreateRequest) (*session.CreateResponse, error)
}

// Fact 规范化后的 record_fact 参数
type Fact struct {
	ID   string
	Text string
}

// ToolInvocation 组件发起的客户端工具调用
type ToolInvocation struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params"`
}

// ToolResult 返回给组件的工具执行结果
type ToolResult struct {
	Success bool `json:"success"`
}

// ErrorState 三个相互独立的错误标记，脚本与会话错误各自记录能否重试
type ErrorState struct {
	Script           string
	ScriptRetryable  bool
	Session          string
	SessionRetryable bool
	Integration      string
}

// Blocking 返回阻断组件的错误，脚本错误优先；集成错误从不阻断
func (e ErrorState) Blocking() string {
	if e.Script != "" {
		return e.Script
	}
	return e.Session
}

// Retryable 报告 Blocking 所选错误能否重试
func (e ErrorState) Retryable() bool {
	if e.Script != "" {
		return e.ScriptRetryable
	}
	return e.Session != "" && e.SessionRetryable
}

// Options 编排器配置
type Options struct {
	// WorkflowID 为空时由服务端使用默认工作流
	WorkflowID string
	FileUpload bool
	Scheme     ui.ColorScheme
	OnTheme    func(ui.ColorScheme)
	OnFact     func(Fact)
}

// Orchestrator 持有单个组件实例的凭证与界面错误状态
type Orchestrator struct {
	host    *widget.Host
	fetcher SessionFetcher
	opts    Options

	mu          sync.Mutex
	generation  uint64
	live        bool
	pending     bool
	instanceKey int
	scheme      ui.ColorScheme
	secret      string
	errs        ErrorState
	seenFacts   map[string]struct{}
}

// New 创建绑定到组件宿主与凭证来源的编排器
func New(host *widget.Host, fetcher SessionFetcher, opts Options) *Orchestrator {
	scheme := opts.Scheme
	if _, ok := ui.ParseColorScheme(string(scheme)); !ok {
		scheme = ui.Light
	}
	return &Orchestrator{
		host:      host,
		fetcher:   fetcher,
		opts:      opts,
		scheme:    scheme,
		seenFacts: make(map[string]struct{}),
	}
}

// Mount 标记实例存活，等待组件脚本并申请首个凭证
func (o *Orchestrator) Mount(ctx context.Context) error {
	o.mu.Lock()
	o.live = true
	gen := o.generation
	o.mu.Unlock()

	return o.start(ctx, gen)
}

// Unmount 标记实例失效，进行中的请求结果将被丢弃
func (o *Orchestrator) Unmount() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.live = false
	o.generation++
	o.pending = false
}

// RetryScript 清除脚本错误并重新检测脚本，尚无凭证时随后申请凭证
func (o *Orchestrator) RetryScript(ctx context.Context) error {
	o.mu.Lock()
	gen := o.generation
	o.errs.Script = ""
	o.errs.ScriptRetryable = false
	o.mu.Unlock()

	o.host.Retry()
	return o.start(ctx, gen)
}

// RetrySession 重新发起凭证申请
func (o *Orchestrator) RetrySession(ctx context.Context) error {
	o.mu.Lock()
	gen := o.generation
	o.mu.Unlock()

	return o.requestSession(ctx, gen)
}

// Reset 丢弃当前组件与会话，递增实例键并使用新凭证重新开始。
// 进行中的请求同样失效。
func (o *Orchestrator) Reset(ctx context.Context) error {
	o.mu.Lock()
	o.generation++
	o.instanceKey++
	o.secret = ""
	o.pending = false
	o.errs = ErrorState{}
	o.seenFacts = make(map[string]struct{})
	gen := o.generation
	o.mu.Unlock()

	log.Printf("[orchestrator] reset, instance=%d", o.InstanceKey())
	return o.start(ctx, gen)
}

func (o *Orchestrator) start(ctx context.Context, gen uint64) error {
	if err := o.waitScript(ctx, gen); err != nil {
		return err
	}

	o.mu.Lock()
	haveSecret := o.secret != ""
	o.mu.Unlock()
	if haveSecret {
		return nil
	}
	return o.requestSession(ctx, gen)
}

func (o *Orchestrator) waitScript(ctx context.Context, gen uint64) error {
	err := o.host.WaitReady(ctx)

	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.liveLocked(gen) {
		return ErrStale
	}
	if err == nil {
		o.errs.Script = ""
		o.errs.ScriptRetryable = false
		return nil
	}
	if ctx.Err() != nil {
		return err
	}

	if errors.Is(err, widget.ErrScriptUnavailable) {
		o.errs.Script = msgScriptUnavailable
	} else {
		o.errs.Script = msgScriptFailed
	}
	o.errs.ScriptRetryable = true
	log.Printf("[orchestrator] widget script failed: %v", err)
	return err
}

func (o *Orchestrator) requestSession(ctx context.Context, gen uint64) error {
	o.mu.Lock()
	if !o.liveLocked(gen) {
		o.mu.Unlock()
		return ErrStale
	}
	workflow := strings.TrimSpace(o.opts.WorkflowID)
	if workflow != "" && sessionsvc.IsPlaceholderWorkflow(workflow) {
		o.errs.Session = msgWorkflowPlaceholder
		o.errs.SessionRetryable = false
		o.mu.Unlock()
		return ErrWorkflowNotConfigured
	}
	o.pending = true
	o.mu.Unlock()

	req := session.CreateRequest{WorkflowID: workflow}
	if o.opts.FileUpload {
		req.Configuration = &session.Configuration{FileUpload: &session.Toggle{Enabled: true}}
	}
	resp, err := o.fetcher.CreateSession(ctx, req)

	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.liveLocked(gen) {
		return ErrStale
	}
	o.pending = false

	if err != nil {
		o.errs.Session = sessionMessage(err)
		o.errs.SessionRetryable = true
		log.Printf("[orchestrator] create session failed: %v", err)
		return err
	}
	if resp == nil || resp.ClientSecret == "" {
		o.errs.Session = "Missing client secret in response"
		o.errs.SessionRetryable = true
		return errors.New("orchestrator: missing client secret")
	}

	o.secret = resp.ClientSecret
	o.errs.Session = ""
	o.errs.SessionRetryable = false
	return nil
}

func sessionMessage(err error) string {
	var apiErr *client.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return msgSessionFailed
}

func (o *Orchestrator) liveLocked(gen uint64) bool {
	return o.live && gen == o.generation
}

// HandleTool 执行客户端工具调用，未知工具返回失败
func (o *Orchestrator) HandleTool(inv ToolInvocation) ToolResult {
	switch inv.Name {
	case ToolSwitchTheme:
		return o.switchTheme(inv.Params)
	case ToolRecordFact:
		return o.recordFact(inv.Params)
	default:
		return ToolResult{Success: false}
	}
}

func (o *Orchestrator) switchTheme(params map[string]any) ToolResult {
	raw, _ := params["theme"].(string)
	scheme, ok := ui.ParseColorScheme(raw)
	if !ok {
		return ToolResult{Success: false}
	}

	o.mu.Lock()
	if !o.live {
		o.mu.Unlock()
		return ToolResult{Success: false}
	}
	o.scheme = scheme
	handler := o.opts.OnTheme
	o.mu.Unlock()

	if handler != nil {
		handler(scheme)
	}
	return ToolResult{Success: true}
}

func (o *Orchestrator) recordFact(params map[string]any) ToolResult {
	id, _ := params["fact_id"].(string)
	id = strings.TrimSpace(id)
	if id == "" {
		return ToolResult{Success: false}
	}
	text, _ := params["fact_text"].(string)

	o.mu.Lock()
	if !o.live {
		o.mu.Unlock()
		return ToolResult{Success: false}
	}
	if _, seen := o.seenFacts[id]; seen {
		o.mu.Unlock()
		return ToolResult{Success: true}
	}
	o.seenFacts[id] = struct{}{}
	handler := o.opts.OnFact
	o.mu.Unlock()

	if handler != nil {
		handler(Fact{ID: id, Text: strings.Join(strings.Fields(text), " ")})
	}
	return ToolResult{Success: true}
}

// ThreadChanged 切换会话线程时清空已记录的事实
func (o *Orchestrator) ThreadChanged() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seenFacts = make(map[string]struct{})
}

// ReportIntegrationError 记录非阻断的组件集成错误
func (o *Orchestrator) ReportIntegrationError(msg string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errs.Integration = msg
}

// Render 在脚本就绪、持有凭证且无阻断错误时返回组件渲染参数
func (o *Orchestrator) Render() (widget.Props, error) {
	o.mu.Lock()
	blocking := o.errs.Blocking()
	key, secret, scheme := o.instanceKey, o.secret, o.scheme
	o.mu.Unlock()

	if blocking != "" {
		return widget.Props{}, ErrBlocked
	}
	return o.host.Render(key, secret, scheme)
}

// Errors 返回错误状态快照
func (o *Orchestrator) Errors() ErrorState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.errs
}

// Pending 报告是否有进行中的凭证申请（加载状态）
func (o *Orchestrator) Pending() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.pending
}

// InstanceKey 返回当前实例键，每次 Reset 递增
func (o *Orchestrator) InstanceKey() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.instanceKey
}

// Scheme 返回当前配色方案
func (o *Orchestrator) Scheme() ui.ColorScheme {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.scheme
}
