package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/apigateway/internal/config"
	"github.com/nao1215/apigateway/pkg/auth"
	"github.com/nao1215/apigateway/pkg/httpclient"
	"github.com/nao1215/apigateway/pkg/middleware"
	"github.com/nao1215/apigateway/pkg/route"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// shutdownTimeout は停止時に処理中のリクエストを待つ上限。
const shutdownTimeout = 10 * time.Second

// Server はAPI Gatewayサービスの HTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port int
	// table はパスから転送先を引くルートテーブル。
	table *route.Table
	// validator はアクセストークンの検証器。
	validator middleware.TokenValidator
	// client はバックエンドへの転送クライアント。
	client *httpclient.Client
	// logger は構造化ロガー。
	logger logrus.FieldLogger
	// metrics は転送のメトリクス。
	metrics *metrics
	// maxUploadBytes はリクエストボディの上限。0は無制限。
	maxUploadBytes int64
}

// NewServer は設定から新しいGatewayサーバーを生成する。
func NewServer(cfg *config.Config, logger logrus.FieldLogger) (*Server, error) {
	table, err := route.NewTable(cfg.Services(), route.DefaultDefinitions)
	if err != nil {
		return nil, fmt.Errorf("ルートテーブルの構築に失敗: %w", err)
	}

	limit, err := middleware.RateLimit(cfg.RateLimit, cfg.RateLimitBurst)
	if err != nil {
		return nil, fmt.Errorf("レート制限の設定に失敗: %w", err)
	}

	router := gin.New()
	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false
	// アクセスログはRecoveryの外側に置き、パニックした要求も記録する
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS(cfg.CORSOrigins))
	router.Use(limit)

	s := &Server{
		router:         router,
		port:           cfg.Port,
		table:          table,
		validator:      auth.NewTokenValidator(cfg.SecretKey),
		client:         httpclient.New(cfg.Timeout()),
		logger:         logger,
		metrics:        newMetrics(),
		maxUploadBytes: cfg.MaxUploadBytes,
	}
	s.setupRoutes()

	return s, nil
}

// Handler はサーバーのHTTPハンドラーを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run はHTTPサーバーを起動し、ctxがキャンセルされるまで処理を続ける。
// キャンセル後は処理中のリクエストの完了を待ってから戻る。
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	for _, r := range s.table.Routes() {
		s.logger.WithFields(logrus.Fields{
			"route":     r.Path,
			"target":    r.TargetURL,
			"protected": r.Protected,
		}).Debug("ルートを登録しました")
	}
	s.logger.WithField("port", s.port).Info("Gatewayサービスを起動します")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTPサーバーの起動に失敗: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Gatewayサービスを停止します")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTPサーバーの停止に失敗: %w", err)
	}
	return nil
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	// ヘルスチェック
	s.router.GET("/v2/api/health/", s.handleHealth())
	// メトリクス
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})))
	// APIドキュメント
	s.router.GET("/openapi.json", s.handleOpenAPI())

	// 認証（トークン発行はユーザーサービスへ転送する）
	s.router.POST("/api/auth/token/", s.handleLogin())

	// 認証必須のユーザーAPI
	accounts := s.router.Group("/api/accounts")
	accounts.Use(middleware.JWTAuth(s.validator))
	{
		accounts.GET("/users/:id/", s.handleGetUser())
		accounts.POST("/user-documents/", s.handleUploadUserDocument())
	}

	// 上記以外はルートテーブルに従って転送する
	s.router.NoRoute(s.handleDispatch())
}
