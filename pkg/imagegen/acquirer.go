// Package imagegen は、スライド1枚分の背景アートを取得するワーカーの
// 実装です。レート制限は同一リクエストの粘り強い再送で、それ以外の
// 失敗は短いバックオフで回復を試み、どうにもならないときだけ
// 二次ケーパビリティへ一度だけフォールバックします。
package imagegen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shouni/go-deck-kit/pkg/domain"
	"github.com/shouni/go-deck-kit/pkg/retry"
)

// ErrGenerationFailed は、再試行とフォールバックを使い切っても
// 1枚の画像を取得できなかったことを示します。この失敗は当該スライド
// だけのもので、兄弟スライドの処理を巻き込んではいけません。
var ErrGenerationFailed = errors.New("imagegen: 画像生成に失敗しました")

// Acquirer は画像取得ワーカーです。どのケーパビリティを使うかは
// 構築時に確定し、実行時の設定読み込みは行いません。
type Acquirer struct {
	primary  Capability
	fallback Capability // nil可。レート制限以外の失敗時に一度だけ使う
	policy   retry.Policy
	embedder *Embedder
}

// NewAcquirer は Acquirer を初期化します。fallback は nil を許容します。
func NewAcquirer(primary, fallback Capability, policy retry.Policy, embedder *Embedder) (*Acquirer, error) {
	if primary == nil {
		return nil, fmt.Errorf("imagegen: primary capability is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("imagegen: embedder is required")
	}
	return &Acquirer{
		primary:  primary,
		fallback: fallback,
		policy:   policy,
		embedder: embedder,
	}, nil
}

// Acquire はプロンプトとテーマから埋め込み済み画像（data URI）を返します。
// 埋め込み変換だけが失敗した場合は空文字を返し、スライドはアート無しで
// 描画されます（リモートURLを返すことは決してありません）。
func (a *Acquirer) Acquire(ctx context.Context, slidePrompt string, theme *domain.StyleTheme, tmpl *domain.TemplateStyle) (string, error) {
	finalPrompt := ComposePrompt(slidePrompt, theme, tmpl)

	result, err := a.generateWithRetry(ctx, a.primary, finalPrompt)
	if err != nil {
		if a.fallback == nil || isRateLimitFailure(err) {
			return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
		}

		// 一次側が完全に落ちたときだけ、二次ケーパビリティを一度試す
		slog.Warn("一次ケーパビリティが失敗したため、二次へフォールバックするのだ", "error", err)
		result, err = a.generateWithRetry(ctx, a.fallback, finalPrompt)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
		}
	}

	embedded, embedErr := a.embedder.Embed(ctx, result)
	if embedErr != nil {
		// 変換失敗はアート無しスライドとして続行する
		slog.Warn("埋め込み変換に失敗したため、アート無しで続行するのだ", "error", embedErr)
		return "", nil
	}

	return embedded, nil
}

func (a *Acquirer) generateWithRetry(ctx context.Context, cap Capability, prompt string) (string, error) {
	var result string
	err := a.policy.Do(ctx, func(attempt int) error {
		url, genErr := cap.GenerateImage(ctx, prompt)
		if genErr != nil {
			slog.Warn("画像生成の試行に失敗したのだ", "attempt", attempt, "error", genErr)
			return genErr
		}
		result = url
		return nil
	})
	return result, err
}

// isRateLimitFailure は、失敗の最終原因がレート制限かどうかを判定します。
// レート制限は「同じリクエストを待って再送する」対象であって、
// フォールバック先に乗り換える理由にはなりません。
func isRateLimitFailure(err error) bool {
	var f *retry.Failure
	if errors.As(err, &f) {
		return f.Kind == retry.KindRateLimited
	}
	return false
}
