package page

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/z-chatkit/backend/internal/model/ui"
	"github.com/zhouzirui/z-chatkit/backend/pkg/utils"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Options 描述页面渲染所需的外部参数
type Options struct {
	Title              string
	ScriptURL          string
	SessionEndpoint    string
	WorkflowConfigured bool
	FileUpload         bool
}

// Bootstrap is embedded in the page as JSON for the browser orchestrator.
type Bootstrap struct {
	SessionEndpoint    string              `json:"sessionEndpoint"`
	WorkflowConfigured bool                `json:"workflowConfigured"`
	FileUpload         bool                `json:"fileUpload"`
	UI                 ui.Config           `json:"ui"`
	Themes             map[string]ui.Theme `json:"themes"`
}

type indexData struct {
	Title     string
	ScriptURL string
	Bootstrap Bootstrap
}

// Handler 页面与界面配置的HTTP处理器
type Handler struct {
	store ui.Store
	opts  Options
	tmpl  *template.Template
}

// New 创建页面处理器
func New(store ui.Store, opts Options) (*Handler, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse page templates: %w", err)
	}
	if opts.Title == "" {
		opts.Title = "ChatKit"
	}

	return &Handler{
		store: store,
		opts:  opts,
		tmpl:  tmpl,
	}, nil
}

// RegisterRoutes 注册页面与静态资源路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		// embed 路径在编译期固定，这里不会失败
		panic(err)
	}

	r.Get("/", h.handleIndex)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
}

// RegisterAPIRoutes 注册界面配置接口
func (h *Handler) RegisterAPIRoutes(r chi.Router) {
	r.Get("/ui-config", h.handleUIConfig)
}

// handleIndex 渲染承载聊天组件的页面
func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := indexData{
		Title:     h.opts.Title,
		ScriptURL: h.opts.ScriptURL,
		Bootstrap: h.bootstrap(),
	}

	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, "index.html", data); err != nil {
		log.Printf("[page] render index: %v", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("[page] write index: %v", err)
	}
}

// handleUIConfig 返回界面配置与指定配色方案的主题
func (h *Handler) handleUIConfig(w http.ResponseWriter, r *http.Request) {
	scheme := ui.Light
	if raw := strings.TrimSpace(r.URL.Query().Get("scheme")); raw != "" {
		parsed, ok := ui.ParseColorScheme(raw)
		if !ok {
			utils.RespondError(w, http.StatusBadRequest, "scheme must be light or dark")
			return
		}
		scheme = parsed
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"config": h.store.Config(),
		"theme":  h.store.Theme(scheme),
	})
}

func (h *Handler) bootstrap() Bootstrap {
	return Bootstrap{
		SessionEndpoint:    h.opts.SessionEndpoint,
		WorkflowConfigured: h.opts.WorkflowConfigured,
		FileUpload:         h.opts.FileUpload,
		UI:                 h.store.Config(),
		Themes: map[string]ui.Theme{
			string(ui.Light): h.store.Theme(ui.Light),
			string(ui.Dark):  h.store.Theme(ui.Dark),
		},
	}
}
