package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/zhouzirui/z-chatkit/backend/internal/config"
	"github.com/zhouzirui/z-chatkit/backend/internal/handler"
	"github.com/zhouzirui/z-chatkit/backend/internal/handler/page"
	"github.com/zhouzirui/z-chatkit/backend/internal/metrics"
	"github.com/zhouzirui/z-chatkit/backend/internal/model/ui"
	"github.com/zhouzirui/z-chatkit/backend/internal/service/chatkit"
	"github.com/zhouzirui/z-chatkit/backend/internal/service/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addrFlag := flag.String("addr", "", "listen address, overrides PORT")
	uiConfigFlag := flag.String("ui-config", "", "UI configuration YAML, overrides CHATKIT_UI_CONFIG")
	fileUpload := flag.Bool("file-upload", false, "enable attachments in the chat widget")
	flag.Parse()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if *addrFlag != "" {
		addr, err := config.ParseAddr(*addrFlag)
		if err != nil {
			log.Fatalf("invalid --addr: %v", err)
		}
		cfg.Server.Addr = addr
	}
	if *uiConfigFlag != "" {
		cfg.UI.Path = *uiConfigFlag
	}

	uiConfig, err := ui.Load(cfg.UI.Path)
	if err != nil {
		log.Fatalf("failed to load UI configuration: %v", err)
	}
	uiStore := ui.NewMemoryStore(uiConfig)

	brokerMetrics := metrics.NewBroker()
	upstream := chatkit.NewClient(cfg.ChatKit)
	sessions := session.NewService(upstream, cfg.ChatKit.WorkflowID, brokerMetrics)

	if !upstream.Configured() {
		log.Println("OPENAI_API_KEY 未配置，会话创建将返回配置错误")
	}
	if !sessions.Configured() {
		log.Println("CHATKIT_WORKFLOW_ID 未配置或仍为占位值，请求需自带工作流")
	}

	pages, err := page.New(uiStore, page.Options{
		ScriptURL:          cfg.ChatKit.ScriptURL,
		SessionEndpoint:    "/api/create-session",
		WorkflowConfigured: !session.IsPlaceholderWorkflow(cfg.ChatKit.WorkflowID) && cfg.ChatKit.WorkflowID != "",
		FileUpload:         *fileUpload,
	})
	if err != nil {
		log.Fatalf("failed to prepare page handler: %v", err)
	}

	router := handler.NewRouter(handler.Deps{
		Config:   cfg,
		Page:     pages,
		Sessions: sessions,
		Metrics:  brokerMetrics,
	})

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("ChatKit session broker listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
