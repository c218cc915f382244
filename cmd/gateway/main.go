// API Gatewayサービスのエントリポイント。
// アクセストークンの検証とリクエストの転送を担当する。
// 外部からアクセス可能な唯一のサービスであり、セキュリティの境界線となる。
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nao1215/apigateway/internal/config"
	"github.com/nao1215/apigateway/internal/gateway"
	"github.com/nao1215/apigateway/pkg/logger"
	"github.com/spf13/cobra"
)

// configFile は設定ファイルのパス。
var configFile string

// rootCmd はゲートウェイを起動するコマンド。
var rootCmd = &cobra.Command{
	Use:   "gateway",
	Short: "API Gateway for the users and events services",
	Long: `gateway forwards client requests to the internal users and events services.

Configuration is read from an optional YAML file (--config) and the
environment (SECRET_KEY, USERS_SERVICE_URL, EVENTS_SERVICE_URL, ...).`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVarP(&configFile, "config", "c", "", "Config file path (YAML)")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run は設定を読み込んでゲートウェイを起動し、シグナルを受けるまで待つ。
func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	server, err := gateway.NewServer(cfg, log)
	if err != nil {
		return fmt.Errorf("Gatewayサーバーの初期化に失敗: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Run(ctx)
}
