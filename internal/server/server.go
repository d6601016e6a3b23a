// Package server は、生成パイプラインを HTTP で公開する gin サーバーです。
// フロントエンドからの利用を想定し、CORS を許可した JSON API を提供します。
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/shouni/go-deck-kit/internal/builder"
	"github.com/shouni/go-deck-kit/pkg/analyzer"
	"github.com/shouni/go-deck-kit/pkg/assembler"
	"github.com/shouni/go-deck-kit/pkg/imagegen"
	"github.com/shouni/go-deck-kit/pkg/orchestrator"
	"github.com/shouni/go-deck-kit/pkg/outline"
)

const shutdownTimeout = 10 * time.Second

// Server は API サーバー本体です。1プロセスにつき1つの生成セッションを
// 保持します（オーケストレーターがラン識別子で世代管理します）。
type Server struct {
	addr      string
	orch      *orchestrator.Orchestrator
	synth     *outline.Synthesizer
	acquirer  *imagegen.Acquirer
	analyzer  *analyzer.Analyzer // マルチモーダルキーが無い構成では nil
	assembler *assembler.Assembler
	hasAPIKey bool // いずれかの生成用APIキーが設定済みか
}

// New は AppContext から Server を構築します。
func New(ctx context.Context, appCtx *builder.AppContext) (*Server, error) {
	synth, err := builder.BuildSynthesizer(ctx, appCtx)
	if err != nil {
		return nil, err
	}
	acquirer, err := builder.BuildAcquirer(ctx, appCtx)
	if err != nil {
		return nil, err
	}
	orch, err := builder.BuildOrchestrator(ctx, appCtx)
	if err != nil {
		return nil, err
	}

	az, err := builder.BuildAnalyzer(appCtx)
	if err != nil {
		slog.Warn("テンプレート解析は無効なのだ", "reason", err)
		az = nil
	}

	addr := appCtx.Options.ServerAddr
	if addr == "" {
		addr = ":8080"
	}

	return &Server{
		addr:      addr,
		orch:      orch,
		synth:     synth,
		acquirer:  acquirer,
		analyzer:  az,
		assembler: assembler.New(),
		hasAPIKey: appCtx.Config.OpenAIAPIKey != "" || appCtx.Config.GeminiAPIKey != "",
	}, nil
}

// Router は全ルートを登録した gin エンジンを返します。
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:3000"}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type"}
	router.Use(cors.New(corsConfig))

	// キー未設定の構成は監視側へ 500 で知らせる
	healthHandler := func(c *gin.Context) {
		status := http.StatusOK
		if !s.hasAPIKey {
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{"status": "ok", "hasApiKey": s.hasAPIKey})
	}
	router.GET("/healthz", healthHandler)
	router.HEAD("/healthz", healthHandler)

	api := router.Group("/api")
	api.POST("/outline", s.handleOutline)
	api.POST("/image", s.handleImage)
	api.POST("/generate", s.handleGenerate)
	api.GET("/progress", s.handleProgress)
	api.POST("/slides/:id/image", s.handleRegenerate)
	api.POST("/template/analyze", s.handleAnalyze)
	api.POST("/export", s.handleExport)

	return router
}

// Run はサーバーを起動し、ctx の破棄で猶予付きシャットダウンします。
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("APIサーバーを起動するのだ", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: 起動に失敗しました: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: シャットダウンに失敗しました: %w", err)
	}

	slog.Info("APIサーバーを停止したのだ")
	return nil
}
