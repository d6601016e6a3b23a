package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-deck-kit/internal/builder"
	"github.com/shouni/go-deck-kit/internal/config"
	"github.com/shouni/go-deck-kit/internal/server"

	"github.com/spf13/cobra"
)

// serveCmd は、生成パイプラインを HTTP API として公開するのだ。
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "生成パイプラインを HTTP API として起動するのだ。",
	RunE:  serveCommand,
}

func init() {
	serveCmd.Flags().StringVar(&opts.ServerAddr, "addr", config.DefaultServerAddr, "待ち受けアドレスなのだ。")
}

func serveCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg := config.LoadConfig()
	cfg.Options = opts

	appCtx, err := builder.NewAppContext(ctx, cfg)
	if err != nil {
		return err
	}

	srv, err := server.New(ctx, appCtx)
	if err != nil {
		return fmt.Errorf("サーバーの構築に失敗したのだ: %w", err)
	}

	slog.Info("APIサーバーモードを起動するのだ！", "addr", opts.ServerAddr)
	return srv.Run(ctx)
}
