package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shouni/go-deck-kit/internal/config"
	"github.com/spf13/cobra"
)

// opts は各サブコマンドで共有される実行時パラメータなのだ。
var opts config.GenerateOptions

var rootCmd = &cobra.Command{
	Use:   "go-deck-kit",
	Short: "トピックからプレゼンテーション（.pptx）を自動生成するのだ。",
	Long: `アウトラインの合成、背景アートの並列生成、テンプレート画像からの
スタイル抽出、そして .pptx への組み立てまでを一気通貫で実行するのだ。`,
	SilenceUsage:      true,
	PersistentPreRunE: preRunAppE,
}

// addAppFlags は、アプリケーション全般に適用されるグローバルフラグを定義するのだ。
func addAppFlags(rootCmd *cobra.Command) {
	// --- 生成対象 ---
	rootCmd.PersistentFlags().IntVarP(&opts.PageCount, "pages", "p", config.DefaultPageCount, "生成するスライドの枚数（3〜20）なのだ。")

	// --- テンプレート解析 ---
	rootCmd.PersistentFlags().StringVarP(&opts.TemplateImage, "template-image", "t", "", "参考テンプレート画像のパス（ローカル or gs://...）なのだ。")

	// --- 生成結果の出力設定 ---
	rootCmd.PersistentFlags().StringVarP(&opts.OutputDir, "output-dir", "o", config.DefaultOutputDir, "保存ディレクトリ（ローカル or gs://...）なのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.BaseName, "name", "", "出力ファイルのベース名（省略時は deck）なのだ。")

	// --- AIモデル・挙動設定 ---
	rootCmd.PersistentFlags().StringVar(&opts.TextModel, "model", "", "アウトライン生成に使うテキストモデル名なのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.ImageModel, "image-model", "", "背景アート生成に使う画像モデル名なのだ。")
	rootCmd.PersistentFlags().DurationVar(&opts.HTTPTimeout, "http-timeout", config.DefaultHTTPTimeout, "Webリクエストのタイムアウトなのだ。")
}

// preRunAppE は、コマンド実行前に環境変数などの必須チェックを行うのだ。
func preRunAppE(cmd *cobra.Command, args []string) error {
	// どちらかのAPIキーが無いと何も生成できないのだ！
	if os.Getenv("SILICONFLOW_API_KEY") == "" && os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("エラー: 環境変数 SILICONFLOW_API_KEY か GEMINI_API_KEY のいずれかが必要なのだ")
	}
	return nil
}

// Execute は、アプリケーションのメインエントリポイントなのだ。
// main.go から呼び出されて、cobra のコマンドライン解析を開始するのだよ。
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addAppFlags(rootCmd)
	rootCmd.AddCommand(generateCmd, outlineCmd, analyzeCmd, serveCmd)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
