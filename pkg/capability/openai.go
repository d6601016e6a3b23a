package capability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/shouni/go-deck-kit/pkg/retry"
)

// OpenAIConfig は OpenAI 互換エンドポイント（SiliconFlow 等）への接続設定です。
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	TextModel   string
	ImageModel  string
	VisionModel string
	ImageSize   string
	Timeout     time.Duration
}

// OpenAICompat は OpenAI 互換 API に対するテキスト・画像・マルチモーダルの
// 3つの呼び出し窓口をまとめたケーパビリティです。
type OpenAICompat struct {
	client *openai.Client
	cfg    OpenAIConfig
}

// NewOpenAICompat は接続設定を検証してケーパビリティを初期化します。
func NewOpenAICompat(cfg OpenAIConfig) (*OpenAICompat, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("capability: APIキーが設定されていません")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &OpenAICompat{
		client: openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
	}, nil
}

// GenerateText はチャット補完を1回実行し、先頭候補の本文を返します。
func (c *OpenAICompat) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.TextModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.7,
		MaxTokens:   4096,
	})
	if err != nil {
		return "", classifyOpenAIError(err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", retry.Classify(retry.KindFatal, fmt.Errorf("capability: 空の応答が返されました"))
	}

	return resp.Choices[0].Message.Content, nil
}

// GenerateImage は画像を1枚生成し、リモートURLまたは data URI を返します。
// どちらが返るかはエンドポイント次第なので、埋め込み変換は呼び出し側の責務です。
func (c *OpenAICompat) GenerateImage(ctx context.Context, prompt string) (string, error) {
	size := c.cfg.ImageSize
	if size == "" {
		size = "1024x576"
	}

	resp, err := c.client.CreateImage(ctx, openai.ImageRequest{
		Model:  c.cfg.ImageModel,
		Prompt: prompt,
		Size:   size,
		N:      1,
	})
	if err != nil {
		return "", classifyOpenAIError(err)
	}

	if len(resp.Data) == 0 {
		return "", retry.Classify(retry.KindFatal, fmt.Errorf("capability: 応答に画像が含まれていません"))
	}

	if resp.Data[0].URL != "" {
		return resp.Data[0].URL, nil
	}
	if resp.Data[0].B64JSON != "" {
		return "data:image/png;base64," + resp.Data[0].B64JSON, nil
	}

	return "", retry.Classify(retry.KindFatal, fmt.Errorf("capability: 応答に画像が含まれていません"))
}

// AnalyzeImage は base64 画像と抽出プロンプトをマルチモーダルモデルに渡し、
// 生テキスト応答を返します。
func (c *OpenAICompat) AnalyzeImage(ctx context.Context, prompt, imageBase64 string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.VisionModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: "data:image/jpeg;base64," + imageBase64,
						},
					},
					{
						Type: openai.ChatMessagePartTypeText,
						Text: prompt,
					},
				},
			},
		},
		Temperature: 0.3,
		MaxTokens:   1024,
	})
	if err != nil {
		return "", classifyOpenAIError(err)
	}

	if len(resp.Choices) == 0 {
		return "", retry.Classify(retry.KindFatal, fmt.Errorf("capability: 空の応答が返されました"))
	}

	return resp.Choices[0].Message.Content, nil
}

// classifyOpenAIError は API エラーをリトライ種別に振り分けます。
// 429 はレート制限、503 はビジー、その他の 4xx は再試行無意味、残りは一過性扱いです。
func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return retry.Classify(retry.KindRateLimited, err)
		case apiErr.HTTPStatusCode == http.StatusServiceUnavailable:
			return retry.Classify(retry.KindBusy, err)
		case apiErr.HTTPStatusCode >= 400 && apiErr.HTTPStatusCode < 500:
			return retry.Classify(retry.KindFatal, err)
		}
	}
	return retry.Classify(retry.KindNetwork, err)
}
