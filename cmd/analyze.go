package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-deck-kit/internal/config"
	"github.com/shouni/go-deck-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// analyzeCmd は、参考テンプレート画像のスタイル抽出だけを実行するのだ。
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "参考テンプレート画像からビジュアルスタイルを抽出するのだ。",
	Long: `スライドテンプレートのスクリーンショットをマルチモーダルモデルで解析し、
配色・レイアウト・雰囲気を JSON として保存するのだ。結果は generate の
--template-image と同じ形式なのだよ。`,
	RunE: analyzeCommand,
}

func analyzeCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if opts.TemplateImage == "" {
		return fmt.Errorf("解析する画像（--template-image）を指定してほしいのだ")
	}

	cfg := config.LoadConfig()
	cfg.Options = opts

	slog.Info("テンプレート解析モードを起動するのだ！", "image", opts.TemplateImage)

	return pipeline.ExecuteAnalyzeOnly(ctx, cfg)
}
