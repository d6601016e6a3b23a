// Package analyzer は、参考テンプレート画像1枚からビジュアルスタイルを
// 抽出します。マルチモーダルモデルへの1回の呼び出しと、欠損フィールドを
// 既定値で埋める決め打ちのスキーマで構成されます。
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/shouni/go-deck-kit/internal/prompt"
	"github.com/shouni/go-deck-kit/pkg/domain"
	"github.com/shouni/go-deck-kit/pkg/retry"
)

// VisionCapability はマルチモーダル呼び出しへの窓口です。
type VisionCapability interface {
	AnalyzeImage(ctx context.Context, promptText, imageBase64 string) (string, error)
}

// 欠損フィールドに入る既定値。落ち着いたコーポレート寄りの青系です。
var defaultStyle = domain.TemplateStyle{
	PrimaryColor:     "#1E40AF",
	SecondaryColor:   "#60A5FA",
	BackgroundColor:  "light",
	Layout:           "centered",
	TitleStyle:       "bold",
	Mood:             "corporate",
	VisualElements:   "minimalist",
	ImageStylePrompt: "professional corporate style, clean design, subtle gradients",
}

// Analyzer はテンプレート画像の解析器です。
type Analyzer struct {
	vision VisionCapability
	policy retry.Policy
}

// NewAnalyzer は Analyzer を初期化します。
func NewAnalyzer(vision VisionCapability, policy retry.Policy) (*Analyzer, error) {
	if vision == nil {
		return nil, fmt.Errorf("analyzer: VisionCapability is required")
	}
	return &Analyzer{vision: vision, policy: policy}, nil
}

// Analyze は画像からスタイルを抽出します。imageBase64 は data URI でも
// 生の base64 でも受け付けます。モデル呼び出しはリトライポリシーに
// 従いますが、応答のパース失敗はこの解析呼び出しに限って致命的です。
func (a *Analyzer) Analyze(ctx context.Context, imageBase64 string) (*domain.TemplateStyle, error) {
	if strings.TrimSpace(imageBase64) == "" {
		return nil, fmt.Errorf("analyzer: 画像が空です")
	}

	payload := stripDataURI(imageBase64)

	var raw string
	err := a.policy.Do(ctx, func(attempt int) error {
		resp, callErr := a.vision.AnalyzeImage(ctx, prompt.AnalyzePrompt, payload)
		if callErr != nil {
			return callErr
		}
		raw = resp
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("analyzer: スタイル解析に失敗しました: %w", err)
	}

	style, err := parseStyle(raw)
	if err != nil {
		return nil, err
	}

	style.ReferenceImage = payload
	return style, nil
}

var fenceRegex = regexp.MustCompile("(?s)```(?:json)?\\s*(.*\\S)\\s*```")

// parseStyle はモデル応答のJSONを TemplateStyle に展開し、欠損した
// フィールドを既定値で埋めます。
func parseStyle(raw string) (*domain.TemplateStyle, error) {
	text := raw
	if m := fenceRegex.FindStringSubmatch(raw); len(m) > 1 {
		text = m[1]
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("analyzer: 応答にJSONオブジェクトが見つかりません")
	}

	var style domain.TemplateStyle
	if err := json.Unmarshal([]byte(text[start:end+1]), &style); err != nil {
		return nil, fmt.Errorf("analyzer: 応答のパースに失敗しました: %w", err)
	}

	fillDefaults(&style)
	return &style, nil
}

func fillDefaults(s *domain.TemplateStyle) {
	if strings.TrimSpace(s.PrimaryColor) == "" {
		s.PrimaryColor = defaultStyle.PrimaryColor
	}
	if strings.TrimSpace(s.SecondaryColor) == "" {
		s.SecondaryColor = defaultStyle.SecondaryColor
	}
	if strings.TrimSpace(s.BackgroundColor) == "" {
		s.BackgroundColor = defaultStyle.BackgroundColor
	}
	if strings.TrimSpace(s.Layout) == "" {
		s.Layout = defaultStyle.Layout
	}
	if strings.TrimSpace(s.TitleStyle) == "" {
		s.TitleStyle = defaultStyle.TitleStyle
	}
	if strings.TrimSpace(s.Mood) == "" {
		s.Mood = defaultStyle.Mood
	}
	if strings.TrimSpace(s.VisualElements) == "" {
		s.VisualElements = defaultStyle.VisualElements
	}
	if strings.TrimSpace(s.ImageStylePrompt) == "" {
		s.ImageStylePrompt = defaultStyle.ImageStylePrompt
	}
}

// stripDataURI は data URI 形式ならペイロード部分だけを取り出します。
func stripDataURI(s string) string {
	if !strings.HasPrefix(s, "data:") {
		return s
	}
	if _, payload, ok := strings.Cut(s, ","); ok {
		return payload
	}
	return s
}
