// Package outline は、トピック文字列からスライドのテキスト骨子と
// 共有スタイルテーマを合成します。外部のテキスト生成ケーパビリティは
// ページ数を守るとは限らないため、応答は毎回修復してから返します。
package outline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"text/template"

	"github.com/shouni/go-deck-kit/internal/prompt"
	"github.com/shouni/go-deck-kit/pkg/domain"
	"github.com/shouni/go-deck-kit/pkg/retry"
)

// ErrInvalidInput はトピック欠落やページ数範囲外などの入力不備です。
// 再試行せず、そのまま呼び出し元へ返します。
var ErrInvalidInput = errors.New("outline: 入力が不正です")

// TextGenerator はテキスト生成ケーパビリティへの窓口です。
// 失敗は retry.Classify で種別付けして返すことが期待されます。
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Synthesizer はアウトライン合成器です。構築時に渡されたケーパビリティと
// リトライポリシーだけを使い、グローバル設定には触れません。
type Synthesizer struct {
	gen    TextGenerator
	policy retry.Policy
	tmpl   *template.Template
}

// NewSynthesizer は Synthesizer を初期化します。
func NewSynthesizer(gen TextGenerator, policy retry.Policy) (*Synthesizer, error) {
	if gen == nil {
		return nil, fmt.Errorf("outline: TextGenerator is required")
	}

	src, err := prompt.GetPromptByMode(prompt.ModeOutline)
	if err != nil {
		return nil, err
	}
	tmpl, err := template.New(prompt.ModeOutline).Parse(src)
	if err != nil {
		return nil, fmt.Errorf("outline: プロンプトテンプレートの解析に失敗しました: %w", err)
	}

	return &Synthesizer{gen: gen, policy: policy, tmpl: tmpl}, nil
}

// promptData はアウトラインプロンプトに流し込む値です。
type promptData struct {
	Topic         string
	PageCount     int
	LastContent   int
	TemplateStyle *domain.TemplateStyle
}

// Synthesize はトピックから、ちょうど pageCount 件のアウトラインと
// 1つのスタイルテーマを合成します。templateStyle が与えられた場合、
// ビジュアルアイデンティティの決定権はテンプレート側にあります。
func (s *Synthesizer) Synthesize(ctx context.Context, topic string, pageCount int, templateStyle *domain.TemplateStyle) (*domain.OutlineResponse, error) {
	if topic == "" {
		return nil, fmt.Errorf("%w: トピックが空です", ErrInvalidInput)
	}
	if !domain.ValidPageCount(pageCount) {
		return nil, fmt.Errorf("%w: ページ数は %d〜%d で指定してください（指定値: %d）",
			ErrInvalidInput, domain.MinPageCount, domain.MaxPageCount, pageCount)
	}

	finalPrompt, err := s.buildPrompt(topic, pageCount, templateStyle)
	if err != nil {
		return nil, err
	}

	// ビジー(503相当)は線形バックオフ、ネットワーク断は短いスケジュールで
	// 再試行する。スケジュールの実体は retry.Policy 側にあります。
	var raw string
	err = s.policy.Do(ctx, func(attempt int) error {
		slog.Info("アウトライン生成を呼び出すのだ", "topic", topic, "pages", pageCount, "attempt", attempt)
		text, genErr := s.gen.GenerateText(ctx, finalPrompt)
		if genErr != nil {
			slog.Warn("アウトライン呼び出しに失敗したのだ", "attempt", attempt, "error", genErr)
			return genErr
		}
		raw = text
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("outline: アウトライン生成に失敗しました: %w", err)
	}

	// パース失敗は致命扱い。同じプロンプトを再送しても解決しないためです。
	resp, err := Parse(raw)
	if err != nil {
		return nil, err
	}

	resp.Slides = RepairSlideCount(resp.Slides, pageCount)

	if resp.StyleTheme == nil {
		resp.StyleTheme = domain.DefaultStyleTheme()
	}
	if templateStyle != nil {
		alignThemeToTemplate(resp.StyleTheme, templateStyle)
	}

	return resp, nil
}

func (s *Synthesizer) buildPrompt(topic string, pageCount int, templateStyle *domain.TemplateStyle) (string, error) {
	var buf bytes.Buffer
	data := promptData{
		Topic:         topic,
		PageCount:     pageCount,
		LastContent:   pageCount - 1,
		TemplateStyle: templateStyle,
	}
	if err := s.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("outline: プロンプト生成に失敗しました: %w", err)
	}
	return buf.String(), nil
}

// alignThemeToTemplate は、モデルの自由選択よりテンプレートを優先して
// テーマを上書きします。画像プロンプトへの反映はプロンプト側で済んでいるため、
// ここでは下流（パレット決定）が参照するフィールドを揃えます。
func alignThemeToTemplate(theme *domain.StyleTheme, tmpl *domain.TemplateStyle) {
	if tmpl.Mood != "" {
		theme.Mood = tmpl.Mood
	}
	if tmpl.VisualElements != "" {
		theme.Style = tmpl.VisualElements
	}
}
