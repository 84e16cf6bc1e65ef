package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"dymeta/config"
	"dymeta/douyin"
	"dymeta/log"
	"dymeta/service"
)

// fetch 单个视频的即时查询，不需要数据库
var fetch = &cobra.Command{
	Use:   "fetch <视频ID或链接>",
	Short: "查询单个视频的元数据",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()

		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			log.Fatal("config error: %v", err)
		}
		if err := log.New(cfg.LogLevel, cfg.LogFormat); err != nil {
			log.Fatal("log init: %v", err)
		}

		videoID, err := service.ResolveVideoID(args[0], nil)
		if err != nil {
			log.Fatal("%v", err)
		}

		outcome := douyin.NewClient(*cfg).Fetch(context.Background(), videoID)
		if !outcome.OK() {
			log.Fatal("%s", outcome.Reason)
		}
		buf, _ := json.MarshalIndent(outcome.Info, "", "  ")
		fmt.Fprintln(os.Stdout, string(buf))
	},
}

func init() {
	rootCmd.AddCommand(fetch)
}
