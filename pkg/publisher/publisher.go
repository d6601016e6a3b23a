// Package publisher は、完成した .pptx と付随するマニフェストを
// 出力先（ローカルまたは gs://）へ保存します。
package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/shouni/go-deck-kit/pkg/domain"
)

// OutputWriter はデータを外部ストレージに保存するためのインターフェースです。
// remoteio.OutputWriter がそのまま満たします。
type OutputWriter interface {
	Write(ctx context.Context, path string, r io.Reader, mimeType string) error
}

const (
	defaultDeckName     = "deck.pptx"
	defaultManifestName = "deck.json"

	pptxMIMEType     = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	manifestMIMEType = "application/json; charset=utf-8"
)

// Options はパブリッシュ動作を制御する設定項目です。
type Options struct {
	OutputDir string
	// BaseName が空でなければ "<BaseName>.pptx" / "<BaseName>.json" になります。
	BaseName string
}

// PublishResult は保存されたファイルのパスを保持します。
type PublishResult struct {
	DeckPath     string
	ManifestPath string
}

// deckManifest は deck.json の構造です。スライドはエクスポート用に
// サニタイズされたコピーで、リモートURLは含まれません。
type deckManifest struct {
	Title       string          `json:"title"`
	PageCount   int             `json:"pageCount"`
	GeneratedAt time.Time       `json:"generatedAt"`
	Slides      []*domain.Slide `json:"slides"`
}

// DeckPublisher は成果物の永続化を担います。
type DeckPublisher struct {
	writer OutputWriter
}

// NewDeckPublisher は DeckPublisher を初期化します。
func NewDeckPublisher(writer OutputWriter) (*DeckPublisher, error) {
	if writer == nil {
		return nil, fmt.Errorf("publisher: OutputWriter is required")
	}
	return &DeckPublisher{writer: writer}, nil
}

// Publish は .pptx 本体とマニフェストを保存し、保存先を返します。
func (p *DeckPublisher) Publish(ctx context.Context, slides []*domain.Slide, title string, pptxData []byte, opts Options) (PublishResult, error) {
	result := PublishResult{}

	deckName := defaultDeckName
	manifestName := defaultManifestName
	if opts.BaseName != "" {
		deckName = opts.BaseName + ".pptx"
		manifestName = opts.BaseName + ".json"
	}

	deckPath, err := ResolveOutputPath(opts.OutputDir, deckName)
	if err != nil {
		return result, err
	}
	manifestPath, err := ResolveOutputPath(opts.OutputDir, manifestName)
	if err != nil {
		return result, err
	}

	if err := p.writer.Write(ctx, deckPath, bytes.NewReader(pptxData), pptxMIMEType); err != nil {
		return result, fmt.Errorf("publisher: プレゼンテーションの保存に失敗しました: %w", err)
	}
	result.DeckPath = deckPath
	slog.Info("プレゼンテーションを保存したのだ", "path", deckPath, "bytes", len(pptxData))

	manifest := deckManifest{
		Title:       title,
		PageCount:   len(slides),
		GeneratedAt: time.Now().UTC(),
		Slides:      domain.SanitizeForExport(slides),
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return result, fmt.Errorf("publisher: マニフェストの直列化に失敗しました: %w", err)
	}

	if err := p.writer.Write(ctx, manifestPath, bytes.NewReader(data), manifestMIMEType); err != nil {
		return result, fmt.Errorf("publisher: マニフェストの保存に失敗しました: %w", err)
	}
	result.ManifestPath = manifestPath

	return result, nil
}
