package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-deck-kit/internal/config"
	"github.com/shouni/go-deck-kit/internal/pipeline"
	"github.com/shouni/go-deck-kit/pkg/domain"

	"github.com/spf13/cobra"
)

// outlineCmd は、アウトライン生成だけを実行するサブコマンドなのだ。
// 画像生成のコストを掛けずに構成を確認・修正したい場合に便利なのだ。
var outlineCmd = &cobra.Command{
	Use:   "outline <topic>",
	Short: "アウトラインだけを生成して JSON で保存するのだ。",
	Args:  cobra.ExactArgs(1),
	RunE:  outlineCommand,
}

func outlineCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	opts.Topic = args[0]
	if !domain.ValidPageCount(opts.PageCount) {
		return fmt.Errorf("ページ数は %d〜%d の範囲で指定してほしいのだ（指定値: %d）",
			domain.MinPageCount, domain.MaxPageCount, opts.PageCount)
	}

	cfg := config.LoadConfig()
	cfg.Options = opts

	slog.Info("アウトライン生成モードを起動するのだ！",
		"topic", opts.Topic,
		"pages", opts.PageCount)

	return pipeline.ExecuteOutlineOnly(ctx, cfg)
}
