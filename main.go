package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"firstperson/server"
)

// firstperson 入口：启动 HTTP + WebSocket 服务，每个连接独占一个第一人称场景
func main() {
	var configPath, addr, logFile string
	flag.StringVar(&configPath, "config", "", "path to YAML config file")
	flag.StringVar(&addr, "addr", "", "server listen address, overrides config, e.g. :8080")
	flag.StringVar(&logFile, "log", "", "log file path, overrides config")
	flag.Parse()

	cfg, err := server.LoadConfig(configPath)
	if err != nil {
		panic(err)
	}
	if addr != "" {
		cfg.Addr = addr
	}
	if logFile != "" {
		cfg.Log.File = logFile
	}
	// 使用第三方 zap 日志库写入日志文件（带滚动）
	if err := server.InitLogger(cfg.Log); err != nil {
		panic(err)
	}
	defer server.SyncLogger()

	sm := server.NewSessionManager(cfg)

	srv := &http.Server{Addr: cfg.Addr, Handler: sm.Routes()}

	go func() {
		server.Log.Infof("firstperson listening on %s; default scene %s", cfg.Addr, cfg.DefaultScene)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			server.Log.Fatalf("listen: %v", err)
		}
	}()

	// 优雅退出（Ctrl+C）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	server.Log.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	sm.Shutdown()
}
