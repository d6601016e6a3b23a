package outline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shouni/go-deck-kit/pkg/domain"
	"github.com/shouni/go-deck-kit/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTextGen はスクリプト化された応答列を順番に返すフェイクなのだ。
type fakeTextGen struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (f *fakeTextGen) GenerateText(_ context.Context, prompt string) (string, error) {
	i := f.calls
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return "", errors.New("fake: 応答が尽きました")
}

func fastPolicy(max int) retry.Policy {
	return retry.Policy{MaxAttempts: max, Delay: func(int, retry.Kind) time.Duration { return 0 }}
}

func outlineJSON(n int) string {
	var sb strings.Builder
	sb.WriteString(`{"styleTheme":{"name":"Test","colorTone":"blue","style":"flat","mood":"calm"},"slides":[`)
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(`{"title":"t","content":"c","bulletPoints":["a","b"],"imagePrompt":"p"}`)
	}
	sb.WriteString(`]}`)
	return sb.String()
}

func TestSynthesizer_Synthesize(t *testing.T) {
	ctx := context.Background()

	t.Run("入力バリデーション", func(t *testing.T) {
		s, err := NewSynthesizer(&fakeTextGen{}, fastPolicy(1))
		require.NoError(t, err)

		_, err = s.Synthesize(ctx, "", 5, nil)
		assert.ErrorIs(t, err, ErrInvalidInput)

		for _, n := range []int{2, 21, 0} {
			_, err = s.Synthesize(ctx, "Mars", n, nil)
			assert.ErrorIs(t, err, ErrInvalidInput, "pageCount=%d", n)
		}
	})

	t.Run("件数がずれていても必ずN件に修復されるのだ", func(t *testing.T) {
		for _, returned := range []int{3, 5, 8} {
			gen := &fakeTextGen{responses: []string{outlineJSON(returned)}}
			s, err := NewSynthesizer(gen, fastPolicy(1))
			require.NoError(t, err)

			resp, err := s.Synthesize(ctx, "Mars Exploration", 5, nil)
			require.NoError(t, err)
			assert.Len(t, resp.Slides, 5, "returned=%d", returned)
		}
	})

	t.Run("テーマ欠落時はデフォルトテーマで補うのだ", func(t *testing.T) {
		gen := &fakeTextGen{responses: []string{`{"slides":[{"title":"t","content":"c","imagePrompt":"p"}]}`}}
		s, err := NewSynthesizer(gen, fastPolicy(1))
		require.NoError(t, err)

		resp, err := s.Synthesize(ctx, "Mars", 3, nil)
		require.NoError(t, err)
		require.NotNil(t, resp.StyleTheme)
		assert.Equal(t, "Professional Blue", resp.StyleTheme.Name)
	})

	t.Run("ビジー応答は再試行され、2回目の成功で完了するのだ", func(t *testing.T) {
		gen := &fakeTextGen{
			errs:      []error{retry.Classify(retry.KindBusy, errors.New("503"))},
			responses: []string{"", outlineJSON(3)},
		}
		s, err := NewSynthesizer(gen, fastPolicy(3))
		require.NoError(t, err)

		resp, err := s.Synthesize(ctx, "Mars", 3, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, gen.calls)
		assert.Len(t, resp.Slides, 3)
	})

	t.Run("再試行上限を使い切ると exhausted で失敗するのだ", func(t *testing.T) {
		busy := retry.Classify(retry.KindBusy, errors.New("503"))
		gen := &fakeTextGen{errs: []error{busy, busy, busy}}
		s, err := NewSynthesizer(gen, fastPolicy(3))
		require.NoError(t, err)

		_, err = s.Synthesize(ctx, "Mars", 3, nil)
		assert.ErrorIs(t, err, retry.ErrExhausted)
		assert.Equal(t, 3, gen.calls)
	})

	t.Run("パース不能な応答は再試行されず致命になるのだ", func(t *testing.T) {
		gen := &fakeTextGen{responses: []string{"これはJSONではないのだ"}}
		s, err := NewSynthesizer(gen, fastPolicy(5))
		require.NoError(t, err)

		_, err = s.Synthesize(ctx, "Mars", 3, nil)
		require.Error(t, err)
		assert.Equal(t, 1, gen.calls, "パース失敗は再試行しない")
	})

	t.Run("テンプレートスタイルはプロンプトとテーマの両方に反映されるのだ", func(t *testing.T) {
		gen := &fakeTextGen{responses: []string{outlineJSON(3)}}
		s, err := NewSynthesizer(gen, fastPolicy(1))
		require.NoError(t, err)

		tmpl := &domain.TemplateStyle{
			PrimaryColor:     "#1E40AF",
			SecondaryColor:   "#60A5FA",
			Mood:             "playful",
			VisualElements:   "organic curves",
			ImageStylePrompt: "soft pastel gradients",
		}
		resp, err := s.Synthesize(ctx, "Mars", 3, tmpl)
		require.NoError(t, err)

		require.Len(t, gen.prompts, 1)
		assert.Contains(t, gen.prompts[0], "#1E40AF")
		assert.Contains(t, gen.prompts[0], "soft pastel gradients")

		// テーマの決定権はテンプレート側にある
		assert.Equal(t, "playful", resp.StyleTheme.Mood)
		assert.Equal(t, "organic curves", resp.StyleTheme.Style)
	})

	t.Run("プロンプトには要求ページ数が織り込まれるのだ", func(t *testing.T) {
		gen := &fakeTextGen{responses: []string{outlineJSON(5)}}
		s, err := NewSynthesizer(gen, fastPolicy(1))
		require.NoError(t, err)

		_, err = s.Synthesize(ctx, "Mars Exploration", 5, nil)
		require.NoError(t, err)
		assert.Contains(t, gen.prompts[0], "exactly 5 slides")
		assert.Contains(t, gen.prompts[0], "Mars Exploration")
	})
}
