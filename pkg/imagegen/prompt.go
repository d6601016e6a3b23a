package imagegen

import (
	"fmt"

	"github.com/shouni/go-deck-kit/pkg/domain"
)

// qualitySuffix は全画像リクエスト共通の品質・アスペクト比指定です。
// 末尾に固定で付くため、同じ入力からは常に同じリクエストが組み上がります。
const qualitySuffix = "No text, no faces, 16:9, high resolution, cinematic lighting."

// ComposePrompt はスライド固有のプロンプトの前にテーマ（またはテンプレート）の
// スタイル記述を決定的に連結します。テンプレートの imagery 記述が最優先、
// 次にテーマの色調とスタイル、どちらも無ければ汎用の品質指定だけになります。
func ComposePrompt(slidePrompt string, theme *domain.StyleTheme, tmpl *domain.TemplateStyle) string {
	var stylePrefix string
	switch {
	case tmpl != nil && tmpl.ImageStylePrompt != "":
		stylePrefix = tmpl.ImageStylePrompt + "."
	case theme != nil:
		stylePrefix = fmt.Sprintf("%s, %s style.", theme.ColorTone, theme.Style)
	default:
		stylePrefix = "high quality, professional style."
	}

	return fmt.Sprintf("%s %s. %s", stylePrefix, slidePrompt, qualitySuffix)
}
