// Package pipeline は、CLI から起動されるフェーズ実行をまとめます。
// アウトライン → 画像 → 組み立て → 保存 の順で進み、各フェーズの
// 成否をログに残します。
package pipeline

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/shouni/go-deck-kit/internal/builder"
	"github.com/shouni/go-deck-kit/internal/config"
	"github.com/shouni/go-deck-kit/pkg/assembler"
	"github.com/shouni/go-deck-kit/pkg/domain"
	"github.com/shouni/go-deck-kit/pkg/publisher"
)

// ExecuteGenerate はトピックから完成した .pptx までの全フェーズを実行するのだ。
func ExecuteGenerate(ctx context.Context, cfg *config.Config) error {
	appCtx, err := builder.NewAppContext(ctx, cfg)
	if err != nil {
		return err
	}
	opts := appCtx.Options

	// --- Phase 0: Template Phase（参考画像の解析。任意） ---
	var templateStyle *domain.TemplateStyle
	if opts.TemplateImage != "" {
		templateStyle, err = runAnalyzeStep(ctx, appCtx)
		if err != nil {
			return err
		}
	}

	// --- Phase 1 & 2: Outline + Image Phase ---
	orch, err := builder.BuildOrchestrator(ctx, appCtx)
	if err != nil {
		return err
	}
	if err := orch.Generate(ctx, opts.Topic, opts.PageCount, templateStyle); err != nil {
		return fmt.Errorf("生成ランに失敗したのだ: %w", err)
	}

	snap := orch.Snapshot()
	slides := make([]*domain.Slide, len(snap.Slides))
	for i := range snap.Slides {
		s := snap.Slides[i]
		slides[i] = &s
	}

	// --- Phase 3: Assemble Phase（.pptx 組み立て） ---
	data, err := assembler.New().Assemble(slides, opts.Topic, templateStyle)
	if err != nil {
		return fmt.Errorf("プレゼンテーションの組み立てに失敗したのだ: %w", err)
	}

	// --- Phase 4: Publish Phase（保存） ---
	pub, err := builder.BuildPublisher(appCtx)
	if err != nil {
		return err
	}
	result, err := pub.Publish(ctx, slides, opts.Topic, data, publisher.Options{
		OutputDir: opts.OutputDir,
		BaseName:  opts.BaseName,
	})
	if err != nil {
		return err
	}

	slog.Info("プレゼンテーションが完成したのだ！", "deck", result.DeckPath, "manifest", result.ManifestPath)
	return nil
}

// ExecuteOutlineOnly はアウトラインだけを生成して JSON で保存するのだ。
// 画像もテンプレート解析も行いません。
func ExecuteOutlineOnly(ctx context.Context, cfg *config.Config) error {
	appCtx, err := builder.NewAppContext(ctx, cfg)
	if err != nil {
		return err
	}
	opts := appCtx.Options

	synth, err := builder.BuildSynthesizer(ctx, appCtx)
	if err != nil {
		return err
	}

	resp, err := synth.Synthesize(ctx, opts.Topic, opts.PageCount, nil)
	if err != nil {
		return fmt.Errorf("アウトライン生成に失敗したのだ: %w", err)
	}

	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("アウトラインの直列化に失敗しました: %w", err)
	}

	outPath, err := publisher.ResolveOutputPath(opts.OutputDir, "outline.json")
	if err != nil {
		return err
	}
	if appCtx.Writer == nil {
		return fmt.Errorf("出力先が利用できません")
	}
	if err := appCtx.Writer.Write(ctx, outPath, strings.NewReader(string(data)), "application/json; charset=utf-8"); err != nil {
		return fmt.Errorf("アウトラインの保存に失敗しました: %w", err)
	}

	slog.Info("アウトラインを保存したのだ", "path", outPath, "slides", len(resp.Slides))
	return nil
}

// ExecuteAnalyzeOnly は参考テンプレート画像を解析してスタイルを JSON で保存するのだ。
func ExecuteAnalyzeOnly(ctx context.Context, cfg *config.Config) error {
	appCtx, err := builder.NewAppContext(ctx, cfg)
	if err != nil {
		return err
	}
	opts := appCtx.Options

	style, err := runAnalyzeStep(ctx, appCtx)
	if err != nil {
		return err
	}

	// マニフェストには元画像を含めない
	exported := *style
	exported.ReferenceImage = ""

	data, err := json.MarshalIndent(&exported, "", "  ")
	if err != nil {
		return fmt.Errorf("解析結果の直列化に失敗しました: %w", err)
	}

	outPath, err := publisher.ResolveOutputPath(opts.OutputDir, "template.json")
	if err != nil {
		return err
	}
	if appCtx.Writer == nil {
		return fmt.Errorf("出力先が利用できません")
	}
	if err := appCtx.Writer.Write(ctx, outPath, strings.NewReader(string(data)), "application/json; charset=utf-8"); err != nil {
		return fmt.Errorf("解析結果の保存に失敗しました: %w", err)
	}

	slog.Info("テンプレート解析が完了したのだ", "path", outPath, "mood", style.Mood)
	return nil
}

// runAnalyzeStep は参考画像を読み込み、ビジュアルスタイルを抽出します。
func runAnalyzeStep(ctx context.Context, appCtx *builder.AppContext) (*domain.TemplateStyle, error) {
	opts := appCtx.Options

	rc, err := appCtx.Reader.Open(ctx, opts.TemplateImage)
	if err != nil {
		return nil, fmt.Errorf("参考画像 '%s' の読み込みに失敗しました: %w", opts.TemplateImage, err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("参考画像の読み取りに失敗しました: %w", err)
	}

	az, err := builder.BuildAnalyzer(appCtx)
	if err != nil {
		return nil, err
	}

	slog.Info("参考テンプレートを解析するのだ", "image", opts.TemplateImage)
	style, err := az.Analyze(ctx, base64.StdEncoding.EncodeToString(raw))
	if err != nil {
		return nil, fmt.Errorf("テンプレート解析に失敗したのだ: %w", err)
	}
	return style, nil
}
