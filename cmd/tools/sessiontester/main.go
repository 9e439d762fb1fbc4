package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/zhouzirui/z-chatkit/backend/internal/client"
	"github.com/zhouzirui/z-chatkit/backend/internal/model/session"
	"github.com/zhouzirui/z-chatkit/backend/internal/model/ui"
	"github.com/zhouzirui/z-chatkit/backend/internal/orchestrator"
	"github.com/zhouzirui/z-chatkit/backend/internal/widget"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] 无法加载 .env，改用系统环境变量: %v", err)
	}

	mode := flag.String("mode", "session", "测试模式: session 或 widget")
	baseURL := flag.String("server", "http://localhost:8080", "会话代理服务地址")
	workflow := flag.String("workflow", "", "工作流 ID，留空则使用服务端默认值")
	count := flag.Int("count", 2, "session 模式下的请求次数，用于验证 cookie 复用")
	uiConfigPath := flag.String("ui-config", "", "界面配置 YAML，留空使用默认值")
	fileUpload := flag.Bool("file-upload", false, "请求开启附件上传")
	timeout := flag.Duration("timeout", 30*time.Second, "请求超时时间")

	flag.Parse()

	c, err := client.New(*baseURL)
	if err != nil {
		log.Fatalf("创建客户端失败: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch *mode {
	case "session":
		runSession(ctx, c, *workflow, *fileUpload, *count)
	case "widget":
		runWidget(ctx, c, *workflow, *fileUpload, *uiConfigPath)
	default:
		flag.Usage()
		log.Fatal("请通过 --mode=session 或 --mode=widget 指定测试模式")
	}
}

func runSession(ctx context.Context, c *client.Client, workflow string, fileUpload bool, count int) {
	req := session.CreateRequest{WorkflowID: strings.TrimSpace(workflow)}
	if fileUpload {
		req.Configuration = &session.Configuration{FileUpload: &session.Toggle{Enabled: true}}
	}

	for i := 1; i <= count; i++ {
		resp, err := c.CreateSession(ctx, req)
		if err != nil {
			var apiErr *client.Error
			if errors.As(err, &apiErr) {
				log.Fatalf("第 %d 次会话创建失败: status=%d error=%q details=%s", i, apiErr.Status, apiErr.Message, apiErr.Details)
			}
			log.Fatalf("第 %d 次会话创建失败: %v", i, err)
		}
		log.Printf("第 %d 次会话创建成功: secret=%s expires_after=%s", i, redact(resp.ClientSecret), resp.ExpiresAfter)
		for _, ck := range c.Cookies() {
			log.Printf("  cookie %s=%s", ck.Name, ck.Value)
		}
	}
}

// runWidget drives the orchestrator headlessly: the widget script is treated
// as already loaded and a couple of client tools are invoked.
func runWidget(ctx context.Context, c *client.Client, workflow string, fileUpload bool, uiConfigPath string) {
	cfg, err := ui.Load(uiConfigPath)
	if err != nil {
		log.Fatalf("界面配置加载失败: %v", err)
	}

	host := widget.NewHost(widget.RegistryFunc(func(string) bool { return true }), ui.NewMemoryStore(cfg))
	orch := orchestrator.New(host, c, orchestrator.Options{
		WorkflowID: workflow,
		FileUpload: fileUpload,
		OnTheme:    func(s ui.ColorScheme) { log.Printf("主题切换为 %s", s) },
		OnFact:     func(f orchestrator.Fact) { log.Printf("记录事实 %s: %q", f.ID, f.Text) },
	})
	defer orch.Unmount()

	if err := orch.Mount(ctx); err != nil {
		log.Fatalf("挂载失败: %v (blocking=%q)", err, orch.Errors().Blocking())
	}

	props, err := orch.Render()
	if err != nil {
		log.Fatalf("渲染失败: %v", err)
	}
	log.Printf("组件就绪: %s", props)

	for _, inv := range []orchestrator.ToolInvocation{
		{Name: orchestrator.ToolSwitchTheme, Params: map[string]any{"theme": "dark"}},
		{Name: orchestrator.ToolRecordFact, Params: map[string]any{"fact_id": "demo", "fact_text": "sessiontester  ran"}},
		{Name: orchestrator.ToolRecordFact, Params: map[string]any{"fact_id": "demo", "fact_text": "duplicate"}},
	} {
		log.Printf("工具 %s -> success=%v", inv.Name, orch.HandleTool(inv).Success)
	}
}

func redact(secret string) string {
	return fmt.Sprintf("[redacted, %d bytes]", len(secret))
}
