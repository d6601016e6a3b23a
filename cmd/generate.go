package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-deck-kit/internal/config"
	"github.com/shouni/go-deck-kit/internal/pipeline"
	"github.com/shouni/go-deck-kit/pkg/domain"

	"github.com/spf13/cobra"
)

// generateCmd は、トピックから完成した .pptx までの全工程を実行するのだ。
var generateCmd = &cobra.Command{
	Use:   "generate <topic>",
	Short: "トピックからプレゼンテーションを丸ごと生成するのだ。",
	Long: `アウトラインの合成、スライドごとの背景アート生成、.pptx への組み立て、
保存までを一気に実行するのだ。--template-image を渡すと参考画像の
スタイルが配色とアートに反映されるのだよ。`,
	Args: cobra.ExactArgs(1),
	RunE: generateCommand,
}

func generateCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	opts.Topic = args[0]
	if !domain.ValidPageCount(opts.PageCount) {
		return fmt.Errorf("ページ数は %d〜%d の範囲で指定してほしいのだ（指定値: %d）",
			domain.MinPageCount, domain.MaxPageCount, opts.PageCount)
	}

	cfg := config.LoadConfig()
	cfg.Options = opts
	cfg.HTTPTimeout = opts.HTTPTimeout

	slog.Info("プレゼンテーション生成パイプラインを起動するのだ！",
		"topic", opts.Topic,
		"pages", opts.PageCount,
		"template", opts.TemplateImage,
		"output", opts.OutputDir)

	if err := pipeline.ExecuteGenerate(ctx, cfg); err != nil {
		return fmt.Errorf("パイプライン実行中にエラーが発生したのだ: %w", err)
	}

	slog.Info("すべての生成工程が完了したのだ！")
	return nil
}
