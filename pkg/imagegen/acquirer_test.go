package imagegen

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"
	"time"

	"github.com/shouni/go-deck-kit/pkg/domain"
	"github.com/shouni/go-deck-kit/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCapability はスクリプト化された結果列を順番に返すフェイクなのだ。
type fakeCapability struct {
	results []string
	errs    []error
	calls   int
	prompts []string
}

func (f *fakeCapability) GenerateImage(_ context.Context, prompt string) (string, error) {
	i := f.calls
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.results) {
		return f.results[i], nil
	}
	return "", errors.New("fake: 結果が尽きました")
}

type fakeHTTP struct {
	data []byte
	err  error
}

func (f *fakeHTTP) FetchBytes(context.Context, string) ([]byte, error) {
	return f.data, f.err
}

type mapCache struct{ m map[string]any }

func newMapCache() *mapCache                          { return &mapCache{m: map[string]any{}} }
func (c *mapCache) Get(k string) (any, bool)          { v, ok := c.m[k]; return v, ok }
func (c *mapCache) Set(k string, v any, _ time.Duration) { c.m[k] = v }

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func fastPolicy(max int) retry.Policy {
	return retry.Policy{MaxAttempts: max, Delay: func(int, retry.Kind) time.Duration { return 0 }}
}

func newTestEmbedder(t *testing.T, httpClient HTTPClient) *Embedder {
	t.Helper()
	e, err := NewEmbedder(httpClient, newMapCache(), time.Minute)
	require.NoError(t, err)
	return e
}

func TestComposePrompt(t *testing.T) {
	theme := &domain.StyleTheme{ColorTone: "warm vintage", Style: "photorealistic", Mood: "historical"}

	t.Run("テーマありの合成は決定的なのだ", func(t *testing.T) {
		a := ComposePrompt("old factory", theme, nil)
		b := ComposePrompt("old factory", theme, nil)
		assert.Equal(t, a, b)
		assert.Equal(t, "warm vintage, photorealistic style. old factory. No text, no faces, 16:9, high resolution, cinematic lighting.", a)
	})

	t.Run("テンプレートの imagery 記述はテーマより優先なのだ", func(t *testing.T) {
		tmpl := &domain.TemplateStyle{ImageStylePrompt: "soft pastel gradients"}
		got := ComposePrompt("old factory", theme, tmpl)
		assert.Contains(t, got, "soft pastel gradients")
		assert.NotContains(t, got, "warm vintage")
	})

	t.Run("テーマ無しでも品質指定は必ず付くのだ", func(t *testing.T) {
		got := ComposePrompt("old factory", nil, nil)
		assert.Contains(t, got, "16:9")
		assert.Contains(t, got, "high quality")
	})
}

func TestAcquirer_Acquire(t *testing.T) {
	ctx := context.Background()
	theme := &domain.StyleTheme{ColorTone: "blue", Style: "flat"}

	t.Run("data URI が返ればそのまま埋め込み済みとして返すのだ", func(t *testing.T) {
		cap := &fakeCapability{results: []string{"data:image/png;base64,AAAA"}}
		a, err := NewAcquirer(cap, nil, fastPolicy(3), newTestEmbedder(t, &fakeHTTP{}))
		require.NoError(t, err)

		got, err := a.Acquire(ctx, "p", theme, nil)
		require.NoError(t, err)
		assert.Equal(t, "data:image/png;base64,AAAA", got)
	})

	t.Run("リモートURLは埋め込み変換されてから返るのだ", func(t *testing.T) {
		cap := &fakeCapability{results: []string{"https://img.example/a.png"}}
		a, err := NewAcquirer(cap, nil, fastPolicy(3), newTestEmbedder(t, &fakeHTTP{data: pngBytes(t)}))
		require.NoError(t, err)

		got, err := a.Acquire(ctx, "p", theme, nil)
		require.NoError(t, err)
		assert.True(t, domain.IsEmbeddedImage(got), "埋め込み形式であるべきなのだ: %q", got)
	})

	t.Run("変換失敗は空画像として成功扱いになるのだ", func(t *testing.T) {
		cap := &fakeCapability{results: []string{"https://img.example/a.png"}}
		a, err := NewAcquirer(cap, nil, fastPolicy(3), newTestEmbedder(t, &fakeHTTP{err: errors.New("down")}))
		require.NoError(t, err)

		got, err := a.Acquire(ctx, "p", theme, nil)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("レート制限は同一リクエストを再送して成功できるのだ", func(t *testing.T) {
		rl := retry.Classify(retry.KindRateLimited, errors.New("429"))
		cap := &fakeCapability{
			errs:    []error{rl},
			results: []string{"", "data:image/png;base64,AAAA"},
		}
		a, err := NewAcquirer(cap, nil, fastPolicy(3), newTestEmbedder(t, &fakeHTTP{}))
		require.NoError(t, err)

		got, err := a.Acquire(ctx, "p", theme, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, cap.calls)
		assert.Equal(t, "data:image/png;base64,AAAA", got)
		// 同一プロンプトの再送であること
		assert.Equal(t, cap.prompts[0], cap.prompts[1])
	})

	t.Run("レート制限で尽きた場合はフォールバックに進まないのだ", func(t *testing.T) {
		rl := retry.Classify(retry.KindRateLimited, errors.New("429"))
		primary := &fakeCapability{errs: []error{rl, rl}}
		secondary := &fakeCapability{results: []string{"data:image/png;base64,BBBB"}}
		a, err := NewAcquirer(primary, secondary, fastPolicy(2), newTestEmbedder(t, &fakeHTTP{}))
		require.NoError(t, err)

		_, err = a.Acquire(ctx, "p", theme, nil)
		assert.ErrorIs(t, err, ErrGenerationFailed)
		assert.Equal(t, 0, secondary.calls)
	})

	t.Run("完全失敗なら二次ケーパビリティへ一度だけフォールバックするのだ", func(t *testing.T) {
		down := retry.Classify(retry.KindNetwork, errors.New("down"))
		primary := &fakeCapability{errs: []error{down, down}}
		secondary := &fakeCapability{results: []string{"data:image/png;base64,BBBB"}}
		a, err := NewAcquirer(primary, secondary, fastPolicy(2), newTestEmbedder(t, &fakeHTTP{}))
		require.NoError(t, err)

		got, err := a.Acquire(ctx, "p", theme, nil)
		require.NoError(t, err)
		assert.Equal(t, "data:image/png;base64,BBBB", got)
		assert.Equal(t, 2, primary.calls)
		assert.Equal(t, 1, secondary.calls)
	})

	t.Run("両方失敗したら generation-failed になるのだ", func(t *testing.T) {
		down := retry.Classify(retry.KindNetwork, errors.New("down"))
		primary := &fakeCapability{errs: []error{down, down}}
		secondary := &fakeCapability{errs: []error{down, down}}
		a, err := NewAcquirer(primary, secondary, fastPolicy(2), newTestEmbedder(t, &fakeHTTP{}))
		require.NoError(t, err)

		_, err = a.Acquire(ctx, "p", theme, nil)
		assert.ErrorIs(t, err, ErrGenerationFailed)
	})
}

func TestEmbedder_Embed(t *testing.T) {
	ctx := context.Background()

	t.Run("同じURLの二度目はキャッシュから返るのだ", func(t *testing.T) {
		httpClient := &fakeHTTP{data: pngBytes(t)}
		c := newMapCache()
		e, err := NewEmbedder(httpClient, c, time.Minute)
		require.NoError(t, err)

		first, err := e.Embed(ctx, "https://img.example/a.png")
		require.NoError(t, err)

		// 2回目の取得を失敗させてもキャッシュで返せること
		httpClient.data = nil
		httpClient.err = errors.New("down")
		second, err := e.Embed(ctx, "https://img.example/a.png")
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("data URI はそのまま素通しなのだ", func(t *testing.T) {
		e, err := NewEmbedder(&fakeHTTP{err: errors.New("should not be called")}, nil, time.Minute)
		require.NoError(t, err)

		got, err := e.Embed(ctx, "data:image/png;base64,AAAA")
		require.NoError(t, err)
		assert.Equal(t, "data:image/png;base64,AAAA", got)
	})

	t.Run("画像でないデータは拒否するのだ", func(t *testing.T) {
		e, err := NewEmbedder(&fakeHTTP{data: []byte("<html>not an image</html>")}, nil, time.Minute)
		require.NoError(t, err)

		_, err = e.Embed(ctx, "https://img.example/a.png")
		assert.Error(t, err)
	})
}
