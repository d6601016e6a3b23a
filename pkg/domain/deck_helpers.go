package domain

import (
	"strings"

	"github.com/google/uuid"
)

// NewSlides はアウトラインからスライド集合を初期化します。
// ID はプロセス内で一意な uuid、PageNumber は 1..N の連番になります。
// ImageURL は空のまま返し、以降は画像タスクだけが書き込みます。
func NewSlides(outlines []SlideOutline) []*Slide {
	slides := make([]*Slide, len(outlines))
	for i, o := range outlines {
		slides[i] = &Slide{
			ID:           uuid.NewString(),
			PageNumber:   i + 1,
			Title:        o.Title,
			Subtitle:     o.Subtitle,
			Content:      o.Content,
			BulletPoints: o.BulletPoints,
			ImageURL:     "",
			ImagePrompt:  o.ImagePrompt,
		}
	}
	return slides
}

// IsEmbeddedImage は、値がドキュメントに直接埋め込める data URI か
// どうかを返します。リモート URL のままではアセンブラに渡せません。
func IsEmbeddedImage(url string) bool {
	return strings.HasPrefix(url, "data:")
}

// SanitizeForExport は、埋め込み形式でない ImageURL をすべて空にした
// コピーを返します。エクスポート直前の防波堤として使います。
func SanitizeForExport(slides []*Slide) []*Slide {
	out := make([]*Slide, len(slides))
	for i, s := range slides {
		c := *s
		if !IsEmbeddedImage(c.ImageURL) {
			c.ImageURL = ""
		}
		out[i] = &c
	}
	return out
}
