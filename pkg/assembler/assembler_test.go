package assembler

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"io"
	"testing"

	"github.com/shouni/go-deck-kit/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidPNG(t *testing.T, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func pngDataURI(t *testing.T, c color.RGBA) string {
	t.Helper()
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(solidPNG(t, c))
}

func unzipParts(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	parts := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		parts[f.Name] = content
	}
	return parts
}

func TestNormalizeHex(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"シャープ付き6桁", "#1E40AF", "1E40AF", false},
		{"小文字は大文字化", "1e40af", "1E40AF", false},
		{"3桁は各桁を重ねて展開", "#28F", "2288FF", false},
		{"前後の空白は無視", "  #60A5FA ", "60A5FA", false},
		{"桁数違いはエラー", "#12345", "", true},
		{"16進でない文字はエラー", "#GGGGGG", "", true},
		{"空文字はエラー", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeHex(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBrightness(t *testing.T) {
	t.Run("白画像は明るい判定なのだ", func(t *testing.T) {
		assert.True(t, isBright(solidPNG(t, color.RGBA{255, 255, 255, 255})))
	})

	t.Run("黒画像は暗い判定なのだ", func(t *testing.T) {
		assert.False(t, isBright(solidPNG(t, color.RGBA{0, 0, 0, 255})))
	})

	t.Run("壊れたデータは暗い側に倒すのだ", func(t *testing.T) {
		assert.False(t, isBright([]byte("not an image")))
	})

	t.Run("同じ入力には同じ平均輝度を返すのだ", func(t *testing.T) {
		data := solidPNG(t, color.RGBA{120, 130, 110, 255})
		a, err := meanBrightness(data)
		require.NoError(t, err)
		b, err := meanBrightness(data)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})
}

func TestPalette(t *testing.T) {
	t.Run("明るい背景には濃色文字なのだ", func(t *testing.T) {
		assert.Equal(t, "1A1A1A", paletteFor(true).Title)
		assert.Equal(t, "FFFFFF", paletteFor(false).Title)
	})

	t.Run("画像ありのスライドでは文字色を差し替えないのだ", func(t *testing.T) {
		tmpl := &domain.TemplateStyle{PrimaryColor: "#123456", SecondaryColor: "#654321"}
		pal := applyTemplate(paletteFor(true), tmpl, true)
		assert.Equal(t, darkTextPalette.Title, pal.Title)
		assert.Equal(t, darkTextPalette.Bullet, pal.Bullet)
	})

	t.Run("アクセント色は画像の有無によらずテンプレートに従うのだ", func(t *testing.T) {
		tmpl := &domain.TemplateStyle{PrimaryColor: "#123456", SecondaryColor: "#654321"}
		assert.Equal(t, "654321", applyTemplate(paletteFor(true), tmpl, true).Accent)
		assert.Equal(t, "654321", applyTemplate(basePalette(tmpl), tmpl, false).Accent)
	})

	t.Run("画像なしならテンプレートの primary/secondary が反映されるのだ", func(t *testing.T) {
		tmpl := &domain.TemplateStyle{PrimaryColor: "#123456", SecondaryColor: "#654321"}
		pal := applyTemplate(basePalette(tmpl), tmpl, false)
		assert.Equal(t, "123456", pal.Title)
		assert.Equal(t, "654321", pal.Bullet)
		assert.Equal(t, "654321", pal.Accent)
	})

	t.Run("不正なテンプレート色は無視して既定色のままなのだ", func(t *testing.T) {
		tmpl := &domain.TemplateStyle{PrimaryColor: "not-a-color"}
		pal := applyTemplate(basePalette(tmpl), tmpl, false)
		assert.Equal(t, darkTextPalette.Title, pal.Title)
	})

	t.Run("テンプレートが dark 背景なら淡色文字から始めるのだ", func(t *testing.T) {
		tmpl := &domain.TemplateStyle{BackgroundColor: "dark"}
		assert.Equal(t, lightTextPalette, basePalette(tmpl))
	})
}

func TestDecodeDataURI(t *testing.T) {
	t.Run("PNGのdata URIを往復できるのだ", func(t *testing.T) {
		raw := solidPNG(t, color.RGBA{10, 20, 30, 255})
		m, err := decodeDataURI("data:image/png;base64," + base64.StdEncoding.EncodeToString(raw))
		require.NoError(t, err)
		assert.Equal(t, "png", m.ext)
		assert.Equal(t, raw, m.data)
	})

	t.Run("未対応のMIMEは拒否するのだ", func(t *testing.T) {
		_, err := decodeDataURI("data:image/webp;base64,AAAA")
		assert.Error(t, err)
	})

	t.Run("base64でないペイロードは拒否するのだ", func(t *testing.T) {
		_, err := decodeDataURI("data:image/png;base64,@@@@")
		assert.Error(t, err)
	})
}

func TestAssembler_Assemble(t *testing.T) {
	newSlides := func(imageURL string) []*domain.Slide {
		return []*domain.Slide{
			{ID: "a", PageNumber: 1, Title: "AI & Robotics", Subtitle: "2026", Content: "Overview", ImageURL: imageURL},
			{ID: "b", PageNumber: 2, Title: "Market", Content: "Numbers", BulletPoints: []string{"p1", "p2", "p3", "p4", "p5", "p6", "p7", "p8"}},
			{ID: "c", PageNumber: 3, Title: "Summary & Outlook"},
		}
	}

	t.Run("空のスライド列は拒否するのだ", func(t *testing.T) {
		_, err := New().Assemble(nil, "t", nil)
		assert.ErrorIs(t, err, ErrNoSlides)
	})

	t.Run("3枚の文書が必要なパーツをすべて持つのだ", func(t *testing.T) {
		data, err := New().Assemble(newSlides(pngDataURI(t, color.RGBA{255, 255, 255, 255})), "Deck Title", nil)
		require.NoError(t, err)

		parts := unzipParts(t, data)
		for _, name := range []string{
			"[Content_Types].xml",
			"_rels/.rels",
			"ppt/presentation.xml",
			"ppt/_rels/presentation.xml.rels",
			"ppt/slideMasters/slideMaster1.xml",
			"ppt/slideLayouts/slideLayout1.xml",
			"ppt/theme/theme1.xml",
			"ppt/slides/slide1.xml",
			"ppt/slides/slide2.xml",
			"ppt/slides/slide3.xml",
			"ppt/media/image1.png",
			"docProps/core.xml",
			"docProps/app.xml",
		} {
			assert.Contains(t, parts, name, "missing part: %s", name)
		}

		// 16:9 キャンバス
		assert.Contains(t, string(parts["ppt/presentation.xml"]), `<p:sldSz cx="9144000" cy="5143500"/>`)
		// タイトルはXMLエスケープされること
		assert.Contains(t, string(parts["ppt/slides/slide1.xml"]), "AI &amp; Robotics")
		// 白背景画像には濃色タイトル
		assert.Contains(t, string(parts["ppt/slides/slide1.xml"]), `val="1A1A1A"`)
		// 表紙は背景画像を参照すること
		assert.Contains(t, string(parts["ppt/slides/_rels/slide1.xml.rels"]), "../media/image1.png")
	})

	t.Run("箇条書きは6項目で打ち切るのだ", func(t *testing.T) {
		data, err := New().Assemble(newSlides(""), "t", nil)
		require.NoError(t, err)

		slide2 := string(unzipParts(t, data)["ppt/slides/slide2.xml"])
		assert.Contains(t, slide2, "<a:t>p6</a:t>")
		assert.NotContains(t, slide2, "<a:t>p7</a:t>")
	})

	t.Run("画像なしスライドにはテンプレート色が載るのだ", func(t *testing.T) {
		tmpl := &domain.TemplateStyle{PrimaryColor: "#123456", SecondaryColor: "#60A5FA", BackgroundColor: "light"}
		data, err := New().Assemble(newSlides(""), "t", tmpl)
		require.NoError(t, err)

		parts := unzipParts(t, data)
		slide2 := string(parts["ppt/slides/slide2.xml"])
		assert.Contains(t, slide2, `val="123456"`)
		assert.Contains(t, slide2, `name="Accent Bar"`)
	})

	t.Run("画像ありの本文ページにもテンプレートのアクセントが載るのだ", func(t *testing.T) {
		tmpl := &domain.TemplateStyle{PrimaryColor: "#123456", SecondaryColor: "#654321", BackgroundColor: "light"}
		slides := []*domain.Slide{
			{ID: "a", PageNumber: 1, Title: "Cover"},
			{ID: "b", PageNumber: 2, Title: "Body", Content: "text", ImageURL: pngDataURI(t, color.RGBA{255, 255, 255, 255})},
			{ID: "c", PageNumber: 3, Title: "Close"},
		}
		data, err := New().Assemble(slides, "t", tmpl)
		require.NoError(t, err)

		slide2 := string(unzipParts(t, data)["ppt/slides/slide2.xml"])
		assert.Contains(t, slide2, `name="Accent Bar"`)
		assert.Contains(t, slide2, `val="654321"`)
		// 文字色は明暗判定のまま（白画像なので濃色タイトル）
		assert.Contains(t, slide2, `val="1A1A1A"`)
		assert.NotContains(t, slide2, `val="123456"`)
	})

	t.Run("同じ入力からは同じスライドXMLができるのだ", func(t *testing.T) {
		slides := newSlides(pngDataURI(t, color.RGBA{0, 0, 0, 255}))
		first, err := New().Assemble(slides, "t", nil)
		require.NoError(t, err)
		second, err := New().Assemble(slides, "t", nil)
		require.NoError(t, err)

		a := unzipParts(t, first)
		b := unzipParts(t, second)
		for _, name := range []string{"ppt/slides/slide1.xml", "ppt/slides/slide2.xml", "ppt/slides/slide3.xml"} {
			assert.Equal(t, a[name], b[name])
		}
	})

	t.Run("壊れた埋め込み画像はアート無しで描画されるのだ", func(t *testing.T) {
		slides := newSlides("data:image/png;base64,@@bad@@")
		data, err := New().Assemble(slides, "t", nil)
		require.NoError(t, err)

		parts := unzipParts(t, data)
		assert.NotContains(t, parts, "ppt/media/image1.png")
		assert.Contains(t, string(parts["ppt/slides/slide1.xml"]), "AI &amp; Robotics")
	})
}
