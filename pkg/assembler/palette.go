// Package assembler は、確定済みスライド列を単一の .pptx バイナリへ
// 組み立てます。外部のプレゼンテーションライブラリには依存せず、
// OOXML のパーツを直接 zip に書き出します。
package assembler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shouni/go-deck-kit/pkg/domain"
)

// Palette はスライド1枚分のテキスト配色です。値は6桁の大文字16進。
type Palette struct {
	Title    string
	Subtitle string
	Content  string
	Bullet   string
	PageNum  string
	// Accent は装飾図形（アクセントバー等）の色。空なら描画しない。
	Accent string
}

// 明るい背景用（濃色文字）と暗い背景用（淡色文字）の2系統。
var (
	darkTextPalette = Palette{
		Title:    "1A1A1A",
		Subtitle: "333333",
		Content:  "444444",
		Bullet:   "1A1A1A",
		PageNum:  "666666",
	}
	lightTextPalette = Palette{
		Title:    "FFFFFF",
		Subtitle: "E0E0E0",
		Content:  "DDDDDD",
		Bullet:   "FFFFFF",
		PageNum:  "AAAAAA",
	}
)

var hexPattern = regexp.MustCompile(`^[0-9A-F]{6}$`)

// NormalizeHex は "#1E40AF" / "1e40af" / "#28F" のような入力を
// 正準形（6桁・大文字・#なし）へそろえます。3桁形式は各桁を
// 重ねて6桁へ展開します。
func NormalizeHex(s string) (string, error) {
	h := strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(s), "#"))
	if len(h) == 3 {
		h = fmt.Sprintf("%c%c%c%c%c%c", h[0], h[0], h[1], h[1], h[2], h[2])
	}
	if !hexPattern.MatchString(h) {
		return "", fmt.Errorf("assembler: 不正なカラーコードです: %q", s)
	}
	return h, nil
}

// paletteFor は背景の明暗からテキスト配色を決めます。
// 明るい背景には濃色文字、暗い背景には淡色文字。
func paletteFor(bright bool) Palette {
	if bright {
		return darkTextPalette
	}
	return lightTextPalette
}

// applyTemplate はテンプレート解析結果の色をパレットへ重ねます。
// 装飾図形のアクセント色はデッキ全体でテンプレートの secondary に
// そろえます。文字色は背景画像があるスライドでは可読性を優先して
// 明暗判定のパレットを保ち、画像なしのスライドだけが
// primary/secondary で見出しと箇条書きを差し替えます。
func applyTemplate(pal Palette, tmpl *domain.TemplateStyle, hasImage bool) Palette {
	if tmpl == nil {
		return pal
	}

	if secondary, err := NormalizeHex(tmpl.SecondaryColor); err == nil {
		pal.Accent = secondary
		if !hasImage {
			pal.Bullet = secondary
		}
	}
	if hasImage {
		return pal
	}

	if primary, err := NormalizeHex(tmpl.PrimaryColor); err == nil {
		pal.Title = primary
	}
	return pal
}

// basePalette は画像なしスライドの土台となるパレットです。
// テンプレートが背景を dark と言っていれば淡色文字から始めます。
func basePalette(tmpl *domain.TemplateStyle) Palette {
	if tmpl != nil && strings.EqualFold(tmpl.BackgroundColor, "dark") {
		return lightTextPalette
	}
	return darkTextPalette
}
