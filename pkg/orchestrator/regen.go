package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shouni/go-deck-kit/pkg/domain"
)

var (
	// ErrRunNotReady は、スライドがまだ存在しない状態での再生成要求です。
	ErrRunNotReady = errors.New("orchestrator: スライドがまだ初期化されていません")
	// ErrSlideNotFound は、指定IDのスライドが現在のランに存在しないことを示します。
	ErrSlideNotFound = errors.New("orchestrator: 指定されたスライドが見つかりません")
	// ErrRegenInFlight は、同じスライドの再生成がすでに進行中であることを示します。
	ErrRegenInFlight = errors.New("orchestrator: このスライドは再生成中です")
)

// RegenerateSlide は1枚だけ画像を作り直します。プロンプトは元のランで
// スライドに割り当てられたものを再利用し、テーマもラン開始時に確定した
// 同じインスタンスを渡します。同一スライドへの多重要求は在席表で弾きます。
func (o *Orchestrator) RegenerateSlide(ctx context.Context, slideID string) (string, error) {
	o.mu.Lock()
	if len(o.slides) == 0 {
		o.mu.Unlock()
		return "", ErrRunNotReady
	}

	var target *domain.Slide
	for _, s := range o.slides {
		if s.ID == slideID {
			target = s
			break
		}
	}
	if target == nil {
		o.mu.Unlock()
		return "", fmt.Errorf("%w: %s", ErrSlideNotFound, slideID)
	}

	if o.regenInFlight[slideID] {
		o.mu.Unlock()
		return "", ErrRegenInFlight
	}
	o.regenInFlight[slideID] = true

	runID := o.runID
	prompt := target.ImagePrompt
	theme := o.theme
	templateStyle := o.templateStyle
	page := target.PageNumber
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		delete(o.regenInFlight, slideID)
		o.mu.Unlock()
	}()

	slog.Info("スライド画像を再生成するのだ", "page", page, "run_id", runID)

	url, err := o.acquirer.Acquire(ctx, prompt, theme, templateStyle)
	if err != nil {
		slog.Error("スライド画像の再生成に失敗したのだ", "page", page, "error", err)
		return "", err
	}

	// ラン識別子の照合込みで書き戻す。再生成中に新しいランが始まって
	// いた場合、この結果は捨てられる。
	o.applyImageResult(runID, slideID, url)
	return url, nil
}
