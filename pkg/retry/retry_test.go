package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// noDelay はテスト高速化のため待ち時間をゼロにするのだ。
func noDelay(int, Kind) time.Duration { return 0 }

func TestPolicy_Do(t *testing.T) {
	ctx := context.Background()

	t.Run("一度で成功すれば一度しか呼ばれないのだ", func(t *testing.T) {
		calls := 0
		p := Policy{MaxAttempts: 5, Delay: noDelay}
		err := p.Do(ctx, func(int) error {
			calls++
			return nil
		})
		if err != nil {
			t.Fatalf("予期しないエラー: %v", err)
		}
		if calls != 1 {
			t.Errorf("呼び出し回数 = %d, want 1", calls)
		}
	})

	t.Run("一過性の失敗は上限まで再試行されるのだ", func(t *testing.T) {
		calls := 0
		p := Policy{MaxAttempts: 3, Delay: noDelay}
		err := p.Do(ctx, func(int) error {
			calls++
			return Classify(KindBusy, errors.New("busy"))
		})
		if !errors.Is(err, ErrExhausted) {
			t.Errorf("ErrExhausted であるべきなのだ: %v", err)
		}
		if calls != 3 {
			t.Errorf("呼び出し回数 = %d, want 3", calls)
		}
	})

	t.Run("2回目で成功したらそこで止まるのだ", func(t *testing.T) {
		calls := 0
		p := Policy{MaxAttempts: 5, Delay: noDelay}
		err := p.Do(ctx, func(int) error {
			calls++
			if calls < 2 {
				return Classify(KindRateLimited, errors.New("429"))
			}
			return nil
		})
		if err != nil {
			t.Fatalf("予期しないエラー: %v", err)
		}
		if calls != 2 {
			t.Errorf("呼び出し回数 = %d, want 2", calls)
		}
	})

	t.Run("KindFatal は即座に打ち切られるのだ", func(t *testing.T) {
		calls := 0
		cause := errors.New("unparsable")
		p := Policy{MaxAttempts: 5, Delay: noDelay}
		err := p.Do(ctx, func(int) error {
			calls++
			return Classify(KindFatal, cause)
		})
		if calls != 1 {
			t.Errorf("呼び出し回数 = %d, want 1", calls)
		}
		if !errors.Is(err, cause) {
			t.Errorf("原因エラーが保持されていないのだ: %v", err)
		}
		if errors.Is(err, ErrExhausted) {
			t.Error("fatal は exhausted 扱いにしないのだ")
		}
	})

	t.Run("コンテキスト破棄で待機が中断されるのだ", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		p := Policy{MaxAttempts: 3, Delay: func(int, Kind) time.Duration { return time.Hour }}
		done := make(chan error, 1)
		go func() {
			done <- p.Do(cctx, func(int) error {
				return Classify(KindNetwork, errors.New("down"))
			})
		}()
		cancel()
		select {
		case err := <-done:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("context.Canceled であるべきなのだ: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("待機が中断されなかったのだ")
		}
	})
}

func TestDefaultDelay(t *testing.T) {
	tests := []struct {
		attempt int
		kind    Kind
		want    time.Duration
	}{
		{1, KindBusy, time.Second},
		{3, KindBusy, 3 * time.Second},
		{1, KindNetwork, 500 * time.Millisecond},
		{2, KindNetwork, time.Second},
		{1, KindRateLimited, 3 * time.Second},
		{2, KindRateLimited, 6 * time.Second},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt=%d kind=%d", tt.attempt, tt.kind), func(t *testing.T) {
			if got := DefaultDelay(tt.attempt, tt.kind); got != tt.want {
				t.Errorf("DefaultDelay = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("同じ入力なら同じ遅延になるのだ", func(t *testing.T) {
		if DefaultDelay(4, KindBusy) != DefaultDelay(4, KindBusy) {
			t.Error("遅延関数が純粋ではないのだ")
		}
	})
}
