package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shouni/go-deck-kit/pkg/assembler"
	"github.com/shouni/go-deck-kit/pkg/domain"
	"github.com/shouni/go-deck-kit/pkg/orchestrator"
	"github.com/shouni/go-deck-kit/pkg/outline"
)

const pptxContentType = "application/vnd.openxmlformats-officedocument.presentationml.presentation"

type outlineRequest struct {
	Topic         string                `json:"topic" binding:"required"`
	PageCount     int                   `json:"pageCount"`
	TemplateStyle *domain.TemplateStyle `json:"templateStyle"`
}

// handleOutline は1回のアウトライン合成だけを実行します。
func (s *Server) handleOutline(c *gin.Context) {
	var req outlineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := s.synth.Synthesize(c.Request.Context(), req.Topic, req.PageCount, req.TemplateStyle)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, resp)
	case errors.Is(err, outline.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}

type imageRequest struct {
	Prompt        string                `json:"prompt" binding:"required"`
	StyleTheme    *domain.StyleTheme    `json:"styleTheme"`
	TemplateStyle *domain.TemplateStyle `json:"templateStyle"`
}

// handleImage はプロンプト1件の画像を生成し、埋め込み済み data URI を返します。
func (s *Server) handleImage(c *gin.Context) {
	var req imageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	url, err := s.acquirer.Acquire(c.Request.Context(), req.Prompt, req.StyleTheme, req.TemplateStyle)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"imageUrl": url})
}

// handleGenerate はフルランを開始します。実行は非同期で、進捗は
// /api/progress で観測します。
func (s *Server) handleGenerate(c *gin.Context) {
	var req outlineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// リクエストの寿命と切り離して最後まで走らせる
	go func() {
		if err := s.orch.Generate(context.Background(), req.Topic, req.PageCount, req.TemplateStyle); err != nil {
			slog.Error("生成ランが失敗したのだ", "topic", req.Topic, "error", err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// handleProgress は現在のラン状態のスナップショットを返します。
func (s *Server) handleProgress(c *gin.Context) {
	snap := s.orch.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"status":   snap.Status,
		"progress": snap.Progress,
		"error":    snap.ErrorMessage,
		"theme":    snap.Theme,
		"slides":   snap.Slides,
	})
}

// handleRegenerate は1枚だけ画像を作り直します。
func (s *Server) handleRegenerate(c *gin.Context) {
	slideID := c.Param("id")

	url, err := s.orch.RegenerateSlide(c.Request.Context(), slideID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"imageUrl": url})
	case errors.Is(err, orchestrator.ErrSlideNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, orchestrator.ErrRegenInFlight), errors.Is(err, orchestrator.ErrRunNotReady):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}

type analyzeRequest struct {
	ImageBase64 string `json:"imageBase64" binding:"required"`
}

// handleAnalyze は参考テンプレート画像からスタイルを抽出します。
// 応答は成否を問わず {success, templateStyle?, error?} の封筒形式です。
func (s *Server) handleAnalyze(c *gin.Context) {
	if s.analyzer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "テンプレート解析は無効です"})
		return
	}

	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	style, err := s.analyzer.Analyze(c.Request.Context(), req.ImageBase64)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "templateStyle": style})
}

type exportRequest struct {
	Title         string                `json:"title" binding:"required"`
	Slides        []*domain.Slide       `json:"slides" binding:"required"`
	TemplateStyle *domain.TemplateStyle `json:"templateStyle"`
}

// handleExport は渡されたスライド列を .pptx にして返します。
// リモートURLはサニタイズされ、埋め込み画像だけが文書に載ります。
func (s *Server) handleExport(c *gin.Context) {
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	slides := domain.SanitizeForExport(req.Slides)
	data, err := s.assembler.Assemble(slides, req.Title, req.TemplateStyle)
	switch {
	case err == nil:
	case errors.Is(err, assembler.ErrNoSlides):
		// スライド0件は入力不備であってサーバー障害ではない
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", req.Title+".pptx"))
	c.Data(http.StatusOK, pptxContentType, data)
}
