package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/gin-gonic/gin"

	"github.com/ccp-p/asr-media-cli/caption-aligner/internal/controller"
	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/models"
	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/utils"
)

var (
	configFile = flag.String("config", "", "配置文件路径")
	envFile    = flag.String("env", ".env", "环境变量文件")
	addr       = flag.String("addr", "", "监听地址，默认使用配置中的 server_addr")
	queueSize  = flag.Int("queue", defaultQueueSize, "最多排队的任务数")
	logLevel   = flag.String("log-level", "info", "日志级别 (debug, info, warn, error)")
)

func main() {
	flag.Parse()

	if err := utils.InitLogger(*logLevel, ""); err != nil {
		color.Red("初始化日志失败: %v", err)
		os.Exit(1)
	}

	config := models.NewDefaultConfig()
	if *configFile != "" {
		if err := config.LoadFromFile(*configFile); err != nil {
			utils.Warn("配置加载失败: %v，将使用默认配置", err)
		}
	}
	config.LoadEnv(*envFile)
	config.ShowProgress = false
	if *addr != "" {
		config.ServerAddr = *addr
	}

	pc, err := controller.NewProcessorController(config)
	if err != nil {
		utils.Fatal("初始化失败: %v", err)
	}
	defer pc.Cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tasks := NewTaskManager(pc, *queueSize)
	tasks.Start(ctx)

	gin.SetMode(gin.ReleaseMode)
	server := NewServer(tasks, pc.ASRSelector)
	httpServer := &http.Server{
		Addr:    config.ServerAddr,
		Handler: server.Router(),
	}

	go func() {
		color.Cyan("服务器启动，监听地址 %s", config.ServerAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Error("服务器启动失败: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	utils.Info("接收到中断信号，正在停止...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		utils.Error("关闭服务器失败: %v", err)
	}
	tasks.Wait()
}
