package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"dymeta/bitable"
	"dymeta/config"
	"dymeta/controller"
	"dymeta/douyin"
	"dymeta/log"
	"dymeta/mdb"
	"dymeta/router"
	"dymeta/service"
	"dymeta/ws"
)

var serve = &cobra.Command{
	Use:   "serve",
	Short: "meta server",
	Long:  "启动元数据补全API服务",
	Run: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()

		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			log.Fatal("config error: %v", err)
		}
		if err := log.New(cfg.LogLevel, cfg.LogFormat); err != nil {
			log.Fatal("log init: %v", err)
		}

		db, err := mdb.InitGorm(cfg)
		if err != nil {
			log.Fatal("db init: %v", err)
		}
		_ = mdb.InitRedis(cfg)

		// 配置了飞书凭据走开放平台，否则用本地表格
		var store bitable.Store
		if cfg.FeishuAppID != "" && cfg.FeishuAppSecret != "" && cfg.FeishuAppToken != "" {
			store = bitable.NewFeishuStore(cfg.FeishuBaseURL, cfg.FeishuAppID, cfg.FeishuAppSecret, cfg.FeishuAppToken)
			log.Info("使用飞书多维表格存储")
		} else {
			store = bitable.NewLocalStore(db)
			log.Info("未配置飞书凭据，使用本地表格存储")
		}

		manager := service.NewRunManager(store, douyin.NewClient(*cfg), true).
			WithPublisher(ws.Progress.Publish)
		if cfg.CacheTTL > 0 {
			manager.WithCache(&service.RedisCache{TTL: time.Duration(cfg.CacheTTL) * time.Second})
		}
		controller.Manager = manager

		// 初始化API服务
		r := router.MetaAPI()
		srv := &http.Server{
			Addr:    cfg.ListenAddr,
			Handler: r,
		}

		go func() {
			log.Info("listening %s", cfg.ListenAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal("listen: %v", err)
			}
		}()

		// Graceful shutdown
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serve)
}
