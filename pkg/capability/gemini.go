package capability

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/shouni/go-deck-kit/pkg/retry"
	"github.com/shouni/go-gemini-client/gemini"
	"google.golang.org/genai"
)

// Gemini は go-gemini-client を介した Gemini のテキスト・画像ケーパビリティです。
type Gemini struct {
	aiClient   gemini.GenerativeModel
	textModel  string
	imageModel string
}

// NewGemini は Gemini クライアントを初期化してケーパビリティを返します。
func NewGemini(ctx context.Context, apiKey, textModel, imageModel string) (*Gemini, error) {
	const defaultTemperature = float32(0.7)

	aiClient, err := gemini.NewClient(ctx, gemini.Config{
		APIKey:      apiKey,
		Temperature: genai.Ptr(defaultTemperature),
	})
	if err != nil {
		return nil, fmt.Errorf("capability: Geminiクライアントの初期化に失敗しました: %w", err)
	}

	return &Gemini{
		aiClient:   aiClient,
		textModel:  textModel,
		imageModel: imageModel,
	}, nil
}

// GenerateText はプロンプトをテキストモデルに渡し、本文テキストを返します。
func (g *Gemini) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := g.aiClient.GenerateContent(ctx, prompt, g.textModel)
	if err != nil {
		return "", classifyGeminiError(err)
	}
	if resp == nil || resp.Text == "" {
		return "", retry.Classify(retry.KindFatal, fmt.Errorf("capability: 空の応答が返されました"))
	}
	return resp.Text, nil
}

// GenerateImage は画像モデルで背景アートを1枚生成し、
// InlineData をそのまま data URI に変換して返します。
func (g *Gemini) GenerateImage(ctx context.Context, prompt string) (string, error) {
	parts := []*genai.Part{{Text: prompt}}
	opts := gemini.GenerateOptions{AspectRatio: "16:9"}

	resp, err := g.aiClient.GenerateWithParts(ctx, g.imageModel, parts, opts)
	if err != nil {
		return "", classifyGeminiError(err)
	}

	if resp == nil || resp.RawResponse == nil || len(resp.RawResponse.Candidates) == 0 {
		return "", retry.Classify(retry.KindFatal, fmt.Errorf("capability: 応答に候補が含まれていません"))
	}

	for _, part := range resp.RawResponse.Candidates[0].Content.Parts {
		if part.InlineData != nil {
			return fmt.Sprintf("data:%s;base64,%s",
				part.InlineData.MIMEType,
				base64.StdEncoding.EncodeToString(part.InlineData.Data),
			), nil
		}
	}

	return "", retry.Classify(retry.KindFatal, fmt.Errorf("capability: 応答に画像データが含まれていません"))
}

// classifyGeminiError は genai の API エラーをリトライ種別に振り分けます。
// SDK のエラー型を取れない場合はメッセージからの推測にフォールバックします。
func classifyGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			return retry.Classify(retry.KindRateLimited, err)
		case apiErr.Code == http.StatusServiceUnavailable:
			return retry.Classify(retry.KindBusy, err)
		case apiErr.Code >= 400 && apiErr.Code < 500:
			return retry.Classify(retry.KindFatal, err)
		}
		return retry.Classify(retry.KindNetwork, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "resource_exhausted"):
		return retry.Classify(retry.KindRateLimited, err)
	case strings.Contains(msg, "503") || strings.Contains(msg, "unavailable") || strings.Contains(msg, "overloaded"):
		return retry.Classify(retry.KindBusy, err)
	}
	return retry.Classify(retry.KindNetwork, err)
}
