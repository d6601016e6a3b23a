package builder

import (
	"github.com/patrickmn/go-cache"
	"github.com/shouni/go-deck-kit/internal/config"
	"github.com/shouni/go-http-kit/httpkit"
	"github.com/shouni/go-remote-io/pkg/remoteio"
)

// AppContext は、アプリケーション実行に必要な共通コンテキストを保持する
// これを各Build関数に渡すことで、依存関係の注入を簡素化します。
type AppContext struct {
	Config     *config.Config          // Configは、環境変数から読み込まれたグローバルな設定です（APIキー、接続先など）。
	Options    config.GenerateOptions  // Optionsは、コマンドラインから渡された実行時の設定です（トピック、枚数など）。
	HTTPClient httpkit.HTTPClient // HTTPClientは、リモート画像の取得など外部APIとの通信に使う共通クライアントです。
	Reader     remoteio.InputReader    // Readerは、参考テンプレート画像などの読み込みに使用する入力元です。
	Writer     remoteio.OutputWriter   // Writerは、生成された .pptx とマニフェストを保存するための出力先です。
	ImageCache *cache.Cache            // ImageCacheは、取得済み画像のTTLキャッシュです。
}
