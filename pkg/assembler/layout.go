package assembler

import (
	"fmt"
	"strings"

	"github.com/shouni/go-deck-kit/pkg/domain"
)

// 1枚に描画する箇条書きの上限。アウトラインが多めに返しても
// ここで切り詰めます。
const maxRenderedBullets = 6

const (
	bodyFontFace    = "Microsoft YaHei"
	pageNumFontFace = "Arial"
)

// textOpts はテキストボックス1個分の配置と書式です。座標・寸法はインチ。
type textOpts struct {
	x, y, w, h float64
	sizePts    int
	color      string
	bold       bool
	align      string // "l" / "ctr" / "r"
	anchor     string // "t" / "ctr"
	font       string
	bullets    bool
	spaceAfter int // 段落後スペース（pt）
}

// textBoxXML は背景・枠線なしの透明テキストボックスを生成します。
// lines の各要素が1段落になります。
func textBoxXML(id int, name string, lines []string, o textOpts) string {
	font := o.font
	if font == "" {
		font = bodyFontFace
	}
	anchor := o.anchor
	if anchor == "" {
		anchor = "ctr"
	}

	bold := ""
	if o.bold {
		bold = ` b="1"`
	}

	var paras strings.Builder
	for _, line := range lines {
		var pPr strings.Builder
		fmt.Fprintf(&pPr, `<a:pPr algn="%s">`, o.align)
		if o.spaceAfter > 0 {
			fmt.Fprintf(&pPr, `<a:spcAft><a:spcPts val="%d"/></a:spcAft>`, o.spaceAfter*100)
		}
		if o.bullets {
			pPr.WriteString(`<a:buChar char="&#9679;"/>`)
		} else {
			pPr.WriteString(`<a:buNone/>`)
		}
		pPr.WriteString(`</a:pPr>`)

		fmt.Fprintf(&paras,
			`<a:p>%s<a:r><a:rPr lang="en-US" sz="%d"%s dirty="0"><a:solidFill><a:srgbClr val="%s"/></a:solidFill><a:latin typeface="%s"/></a:rPr><a:t>%s</a:t></a:r></a:p>`,
			pPr.String(), o.sizePts*100, bold, o.color, font, escapeXML(line))
	}

	return fmt.Sprintf(
		`<p:sp><p:nvSpPr><p:cNvPr id="%d" name="%s"/><p:cNvSpPr txBox="1"/><p:nvPr/></p:nvSpPr><p:spPr><a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom><a:noFill/><a:ln><a:noFill/></a:ln></p:spPr><p:txBody><a:bodyPr wrap="square" anchor="%s"><a:normAutofit/></a:bodyPr><a:lstStyle/>%s</p:txBody></p:sp>`,
		id, escapeXML(name), emu(o.x), emu(o.y), emu(o.w), emu(o.h), anchor, paras.String())
}

// pictureXML はキャンバス全面に敷く背景画像です。spTree の先頭に
// 置くことでテキストの背面に回ります。
func pictureXML(id int, relID string) string {
	return fmt.Sprintf(
		`<p:pic><p:nvPicPr><p:cNvPr id="%d" name="Background"/><p:cNvPicPr><a:picLocks noChangeAspect="1"/></p:cNvPicPr><p:nvPr/></p:nvPicPr><p:blipFill><a:blip r:embed="%s"/><a:stretch><a:fillRect/></a:stretch></p:blipFill><p:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%d" cy="%d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr></p:pic>`,
		id, relID, emu(slideWidthInches), emu(slideHeightInches))
}

// accentBarXML はタイトル下の細い装飾バーです。テンプレート由来の
// アクセント色があるときだけ使われます。
func accentBarXML(id int, color string, x, y, w, h float64) string {
	return fmt.Sprintf(
		`<p:sp><p:nvSpPr><p:cNvPr id="%d" name="Accent Bar"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr><p:spPr><a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom><a:solidFill><a:srgbClr val="%s"/></a:solidFill><a:ln><a:noFill/></a:ln></p:spPr><p:txBody><a:bodyPr/><a:lstStyle/><a:p><a:endParaRPr/></a:p></p:txBody></p:sp>`,
		id, emu(x), emu(y), emu(w), emu(h), color)
}

// buildSlideShapes はスライド1枚分の図形列を組み立てます。
// 1枚目と最終枚は中央寄せの大見出しレイアウト、中間は左寄せの
// 本文レイアウトです。
func buildSlideShapes(s *domain.Slide, total int, pal Palette, imageRelID string) []string {
	var shapes []string
	id := 2

	if imageRelID != "" {
		shapes = append(shapes, pictureXML(id, imageRelID))
		id++
	}

	if s.IsBookend(total) {
		shapes = append(shapes, bookendShapes(s, total, pal, &id)...)
	} else {
		shapes = append(shapes, interiorShapes(s, pal, &id)...)
	}

	// ページ番号は右下の控えめな色
	shapes = append(shapes, textBoxXML(id, "Page Number",
		[]string{fmt.Sprintf("%d", s.PageNumber)},
		textOpts{x: 9.0, y: 5.1, w: 0.5, h: 0.4, sizePts: 12, color: pal.PageNum, align: "r", anchor: "t", font: pageNumFontFace}))

	return shapes
}

// bookendShapes は表紙と締めのレイアウトです。概要文は表紙だけに載せます。
func bookendShapes(s *domain.Slide, total int, pal Palette, id *int) []string {
	var shapes []string

	shapes = append(shapes, textBoxXML(*id, "Title",
		[]string{s.Title},
		textOpts{x: 0.5, y: 1.8, w: 9, h: 1.2, sizePts: 44, color: pal.Title, bold: true, align: "ctr"}))
	*id++

	if s.Subtitle != "" {
		shapes = append(shapes, textBoxXML(*id, "Subtitle",
			[]string{s.Subtitle},
			textOpts{x: 0.5, y: 3.0, w: 9, h: 0.8, sizePts: 24, color: pal.Subtitle, align: "ctr"}))
		*id++
	}

	if s.Content != "" && s.PageNumber != total {
		shapes = append(shapes, textBoxXML(*id, "Synopsis",
			[]string{s.Content},
			textOpts{x: 1, y: 4.0, w: 8, h: 1, sizePts: 16, color: pal.Content, align: "ctr", anchor: "t"}))
		*id++
	}

	return shapes
}

// interiorShapes は本文ページのレイアウトです。
func interiorShapes(s *domain.Slide, pal Palette, id *int) []string {
	var shapes []string

	shapes = append(shapes, textBoxXML(*id, "Title",
		[]string{s.Title},
		textOpts{x: 0.5, y: 0.3, w: 9, h: 0.8, sizePts: 32, color: pal.Title, bold: true, align: "l"}))
	*id++

	if pal.Accent != "" {
		shapes = append(shapes, accentBarXML(*id, pal.Accent, 0.5, 1.12, 1.2, 0.06))
		*id++
	}

	contentY := 1.2
	if s.Subtitle != "" {
		shapes = append(shapes, textBoxXML(*id, "Subtitle",
			[]string{s.Subtitle},
			textOpts{x: 0.5, y: 1.0, w: 9, h: 0.5, sizePts: 18, color: pal.Subtitle, align: "l"}))
		*id++
		contentY = 1.6
	}

	shapes = append(shapes, textBoxXML(*id, "Content",
		[]string{s.Content},
		textOpts{x: 0.5, y: contentY, w: 9, h: 1.0, sizePts: 14, color: pal.Content, align: "l", anchor: "t"}))
	*id++

	if len(s.BulletPoints) > 0 {
		bullets := s.BulletPoints
		if len(bullets) > maxRenderedBullets {
			bullets = bullets[:maxRenderedBullets]
		}
		shapes = append(shapes, textBoxXML(*id, "Bullets", bullets,
			textOpts{x: 0.5, y: contentY + 1.1, w: 9, h: 3.0, sizePts: 16, color: pal.Bullet, align: "l", anchor: "t", bullets: true, spaceAfter: 8}))
		*id++
	}

	return shapes
}
