package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shouni/gemini-image-kit/imgutil"
	"github.com/shouni/go-deck-kit/pkg/domain"
)

const (
	defaultEmbedTimeout = 15 * time.Second
	jpegQuality         = 85
)

// Embedder はリモートURLの画像を取得し、自己完結した data URI に変換します。
// アセンブラは埋め込み画像しか受け付けないため、リモートURLを下流へ
// 流さないための関門です。取得結果は TTL キャッシュに載せます。
type Embedder struct {
	httpClient HTTPClient
	cache      ImageCacher
	ttl        time.Duration
	timeout    time.Duration
}

// NewEmbedder は Embedder を初期化します。cache は nil を許容します
// （キャッシュなし動作）。
func NewEmbedder(httpClient HTTPClient, cache ImageCacher, ttl time.Duration) (*Embedder, error) {
	if httpClient == nil {
		return nil, fmt.Errorf("imagegen: httpClient is required")
	}
	return &Embedder{
		httpClient: httpClient,
		cache:      cache,
		ttl:        ttl,
		timeout:    defaultEmbedTimeout,
	}, nil
}

// Embed は url を data URI に変換して返します。すでに埋め込み形式なら
// そのまま返します。変換には全体より短い独自タイムアウトが掛かります。
func (e *Embedder) Embed(ctx context.Context, url string) (string, error) {
	if domain.IsEmbeddedImage(url) {
		return url, nil
	}

	if e.cache != nil {
		if val, ok := e.cache.Get(url); ok {
			if uri, ok := val.(string); ok {
				return uri, nil
			}
		}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	data, err := e.httpClient.FetchBytes(fetchCtx, url)
	if err != nil {
		return "", fmt.Errorf("imagegen: 画像の取得に失敗しました: %w", err)
	}

	// JPEG圧縮に失敗しても元データで続行する
	finalData := data
	if compressed, err := imgutil.CompressToJPEG(bytes.NewReader(data), jpegQuality); err == nil {
		finalData = compressed
	}

	mimeType := http.DetectContentType(finalData)
	if !strings.HasPrefix(mimeType, "image/") {
		return "", fmt.Errorf("imagegen: 取得データが画像ではありません (mime: %s)", mimeType)
	}

	uri := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(finalData))

	if e.cache != nil {
		e.cache.Set(url, uri, e.ttl)
	}

	return uri, nil
}
