package assembler

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shouni/go-deck-kit/pkg/domain"
)

// ErrNoSlides は空のスライド列が渡されたことを示します。
var ErrNoSlides = errors.New("assembler: スライドがありません")

const defaultAuthor = "go-deck-kit"

// Assembler はスライド列から .pptx バイナリを組み立てます。
// 入力スライドには手を加えず、同じ入力からは同じ構造の文書を作ります
// （タイムスタンプを除く）。
type Assembler struct {
	author string
}

// New は Assembler を初期化します。
func New() *Assembler {
	return &Assembler{author: defaultAuthor}
}

// Assemble はスライド列を .pptx として直列化します。templateStyle は
// nil を許容し、存在すれば画像なしスライドの配色に反映されます。
// 1枚の画像の取り込み失敗はそのスライドをアート無しで描画するだけで、
// 文書全体は失敗しません。致命傷になるのは zip/XML の書き込み失敗のみです。
func (a *Assembler) Assemble(slides []*domain.Slide, title string, templateStyle *domain.TemplateStyle) ([]byte, error) {
	if len(slides) == 0 {
		return nil, ErrNoSlides
	}

	builder := newPptxBuilder(title, a.author)
	total := len(slides)

	for _, s := range slides {
		var media *mediaFile
		if domain.IsEmbeddedImage(s.ImageURL) {
			m, err := decodeDataURI(s.ImageURL)
			if err != nil {
				slog.Warn("スライド画像の取り込みに失敗したため、アート無しで描画するのだ",
					"page", s.PageNumber, "error", err)
			} else {
				media = m
			}
		}

		var pal Palette
		if media != nil {
			pal = paletteFor(isBright(media.data))
		} else {
			pal = basePalette(templateStyle)
		}
		pal = applyTemplate(pal, templateStyle, media != nil)

		relID := ""
		if media != nil {
			relID = "rId2"
		}

		builder.addSlide(slidePart{
			shapes: buildSlideShapes(s, total, pal, relID),
			media:  media,
		})
	}

	return builder.Bytes()
}

var mediaExtByMIME = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/gif":  "gif",
}

// decodeDataURI は data URI を生バイトと拡張子に分解します。
// 埋め込み形式以外（リモートURL等）はここへ来る前に弾かれています。
func decodeDataURI(uri string) (*mediaFile, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, fmt.Errorf("assembler: data URI ではありません")
	}

	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, fmt.Errorf("assembler: data URI の区切りがありません")
	}

	mimeType, _, _ := strings.Cut(meta, ";")
	ext, ok := mediaExtByMIME[mimeType]
	if !ok {
		return nil, fmt.Errorf("assembler: 未対応の画像形式です (mime: %s)", mimeType)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("assembler: base64 のデコードに失敗しました: %w", err)
	}

	return &mediaFile{data: data, ext: ext}, nil
}
