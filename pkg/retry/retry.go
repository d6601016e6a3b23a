// Package retry は、アウトライン生成と画像生成の両方で共有する
// 小さな純粋リトライポリシーを提供します。遅延関数は試行回数と
// 失敗種別だけで決まるため、ネットワークなしで検証できます。
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Kind は失敗の種別です。種別によってバックオフのスケジュールが変わります。
type Kind int

const (
	// KindNetwork は接続断・タイムアウト等の一過性障害です。
	KindNetwork Kind = iota
	// KindBusy はサーバービジー（HTTP 503 相当）です。
	KindBusy
	// KindRateLimited はレート制限（HTTP 429 相当）です。
	// 同一リクエストをそのまま再送し、フォールバックには進みません。
	KindRateLimited
	// KindFatal は再試行しても無意味な失敗（パース不能な応答など）です。
	KindFatal
)

// ErrExhausted は、試行上限まで使い切っても成功しなかったことを示します。
var ErrExhausted = errors.New("retry: 試行回数の上限に達しました")

// Failure は fn から返される、種別付きの失敗です。
type Failure struct {
	Kind Kind
	Err  error
}

func (f *Failure) Error() string { return f.Err.Error() }
func (f *Failure) Unwrap() error { return f.Err }

// Classify は err を種別付き失敗に包みます。
func Classify(kind Kind, err error) error {
	return &Failure{Kind: kind, Err: err}
}

// Policy はリトライの振る舞いを定義します。
// Delay は「次の待ち時間」を試行番号（1始まり）と失敗種別から決める
// 純粋関数で、時刻やカウンタを内部に持ちません。
type Policy struct {
	MaxAttempts int
	Delay       func(attempt int, kind Kind) time.Duration
}

// DefaultDelay は移植元と同じスケジュールです。
// ビジーは attempt×1s の線形、ネットワーク断は attempt×500ms の短め、
// レート制限は attempt×3s で同一リクエストを粘ります。
func DefaultDelay(attempt int, kind Kind) time.Duration {
	switch kind {
	case KindBusy:
		return time.Duration(attempt) * time.Second
	case KindRateLimited:
		return time.Duration(attempt) * 3 * time.Second
	default:
		return time.Duration(attempt) * 500 * time.Millisecond
	}
}

// Do は fn を成功するまで、または上限に達するまで実行します。
// fn が KindFatal を返した時点で即座に打ち切ります。
// 待機中に ctx が破棄された場合は ctx のエラーを返します。
func (p Policy) Do(ctx context.Context, fn func(attempt int) error) error {
	if p.MaxAttempts <= 0 {
		return fmt.Errorf("retry: MaxAttempts が不正です: %d", p.MaxAttempts)
	}

	delay := p.Delay
	if delay == nil {
		delay = DefaultDelay
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		var f *Failure
		if errors.As(err, &f) && f.Kind == KindFatal {
			return f.Err
		}

		if attempt == p.MaxAttempts {
			break
		}

		kind := KindNetwork
		if errors.As(err, &f) {
			kind = f.Kind
		}

		select {
		case <-time.After(delay(attempt, kind)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return fmt.Errorf("%w: %w", ErrExhausted, lastErr)
}
