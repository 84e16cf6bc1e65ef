package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"dymeta/bitable"
	"dymeta/config"
	"dymeta/douyin"
	"dymeta/log"
	"dymeta/mdb"
	"dymeta/service"
)

var (
	batchTable     string
	batchView      string
	batchField     string
	batchOverwrite bool
)

// batch 不起服务直接跑一次批量补全，Ctrl-C在记录边界停下
var batch = &cobra.Command{
	Use:   "batch",
	Short: "对整张表执行一次批量补全",
	Run: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()

		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			log.Fatal("config error: %v", err)
		}
		if err := log.New(cfg.LogLevel, cfg.LogFormat); err != nil {
			log.Fatal("log init: %v", err)
		}

		var store bitable.Store
		if cfg.FeishuAppID != "" && cfg.FeishuAppSecret != "" && cfg.FeishuAppToken != "" {
			store = bitable.NewFeishuStore(cfg.FeishuBaseURL, cfg.FeishuAppID, cfg.FeishuAppSecret, cfg.FeishuAppToken)
		} else {
			db, err := mdb.InitGorm(cfg)
			if err != nil {
				log.Fatal("db init: %v", err)
			}
			store = bitable.NewLocalStore(db)
		}

		enricher := service.NewEnricher(store, douyin.NewClient(*cfg))

		ctx, cancel := context.WithCancel(context.Background())
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-quit
			log.Warn("收到退出信号，将在当前记录处理完后停止")
			cancel()
		}()

		start := time.Now()
		report, err := enricher.RunBatch(ctx, service.BatchOptions{
			RunID:     uuid.New().String(),
			TableID:   batchTable,
			ViewID:    batchView,
			FieldID:   batchField,
			Overwrite: batchOverwrite,
		})
		if err != nil {
			log.Fatal("批量任务失败: %v", err)
		}
		log.Info("共 %d 条，成功 %d，失败 %d，耗时 %s",
			report.Total, report.Succeeded, report.Failed, time.Since(start).Round(time.Second))
		for recordID, reason := range report.ErrorsByRecord {
			log.Warn("记录 %s: %s", recordID, reason)
		}
	},
}

func init() {
	batch.Flags().StringVar(&batchTable, "table", "", "表格ID")
	batch.Flags().StringVar(&batchView, "view", "", "视图ID，留空枚举整表")
	batch.Flags().StringVar(&batchField, "field", "", "视频ID所在列，列ID或列名")
	batch.Flags().BoolVar(&batchOverwrite, "overwrite", false, "覆盖已有值")
	_ = batch.MarkFlagRequired("table")
	_ = batch.MarkFlagRequired("field")
	rootCmd.AddCommand(batch)
}
