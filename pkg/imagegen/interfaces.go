package imagegen

import (
	"context"
	"time"
)

// Capability は画像生成エンジンへの窓口です。戻り値はリモートURLか
// data URI のどちらかで、埋め込み変換は Acquirer 側の責務です。
// 失敗は retry.Classify で種別付けして返すことが期待されます。
type Capability interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// ImageCacher は、取得済み画像をキャッシュするためのインターフェースです。
type ImageCacher interface {
	Get(key string) (any, bool)
	Set(key string, value any, d time.Duration)
}

// HTTPClient は、URLからデータを取得するためのインターフェースです。
type HTTPClient interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}
