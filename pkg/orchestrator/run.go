// Package orchestrator は、アウトライン取得から画像のファンアウトまでの
// 生成セッション全体を司る司令塔です。状態機械は
// idle → outline → images → done で、outline と images からは error に
// 落ちることがあります。画像1枚の失敗はそのスライドだけに閉じ、
// ラン全体を巻き込みません。
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shouni/go-deck-kit/pkg/domain"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Status は生成セッションの状態です。
type Status string

const (
	StatusIdle    Status = "idle"
	StatusOutline Status = "outline"
	StatusImages  Status = "images"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// 進捗の配分。アウトライン完了で10%、残り90%を画像タスクで均等に刻む。
const (
	outlineProgress = 10.0
	imagesProgress  = 90.0
)

// OutlineSynthesizer はアウトライン合成器への窓口です。
type OutlineSynthesizer interface {
	Synthesize(ctx context.Context, topic string, pageCount int, templateStyle *domain.TemplateStyle) (*domain.OutlineResponse, error)
}

// ImageAcquirer は画像取得ワーカーへの窓口です。
type ImageAcquirer interface {
	Acquire(ctx context.Context, prompt string, theme *domain.StyleTheme, templateStyle *domain.TemplateStyle) (string, error)
}

// Config はオーケストレーターの実行時パラメータです。
type Config struct {
	// Concurrency は同時に走る画像タスク数。0以下なら2になります。
	Concurrency int
	// RateInterval はリクエスト間の最小間隔。0なら制限なし。
	RateInterval time.Duration
	// Jitter は各リクエスト前に挟むランダム遅延の上限。バースト緩和用。
	Jitter time.Duration
}

const defaultConcurrency = 2

// Orchestrator は1セッション分の生成状態を保持します。
// slides が唯一の可変共有構造で、各画像タスクは自分が担当する1枚の
// ImageURL だけを書き込みます。テーマはラン中一度だけ作られ、
// 再生成を含む全画像リクエストが同じインスタンスを参照します。
type Orchestrator struct {
	synth    OutlineSynthesizer
	acquirer ImageAcquirer
	cfg      Config

	mu            sync.Mutex
	runID         string
	status        Status
	progress      float64
	errMessage    string
	theme         *domain.StyleTheme
	templateStyle *domain.TemplateStyle
	slides        []*domain.Slide
	regenInFlight map[string]bool
}

// New は Orchestrator を初期化します。
func New(synth OutlineSynthesizer, acquirer ImageAcquirer, cfg Config) (*Orchestrator, error) {
	if synth == nil {
		return nil, fmt.Errorf("orchestrator: OutlineSynthesizer is required")
	}
	if acquirer == nil {
		return nil, fmt.Errorf("orchestrator: ImageAcquirer is required")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}

	return &Orchestrator{
		synth:         synth,
		acquirer:      acquirer,
		cfg:           cfg,
		status:        StatusIdle,
		regenInFlight: make(map[string]bool),
	}, nil
}

// Generate は1回の生成ランを最後まで実行します。呼び出しはブロックしますが、
// 途中経過は Snapshot で随時観測できます。エラー状態からの再実行は
// 新しいラン識別子で最初からやり直し、前のランの部分状態を破棄します。
// 追い越された古いランの結果はラン識別子の照合で捨てられます。
func (o *Orchestrator) Generate(ctx context.Context, topic string, pageCount int, templateStyle *domain.TemplateStyle) error {
	runID := uuid.NewString()

	o.mu.Lock()
	o.runID = runID
	o.status = StatusOutline
	o.progress = 0
	o.errMessage = ""
	o.theme = nil
	o.templateStyle = templateStyle
	o.slides = nil
	o.mu.Unlock()

	slog.Info("生成ランを開始するのだ", "run_id", runID, "topic", topic, "pages", pageCount)

	resp, err := o.synth.Synthesize(ctx, topic, pageCount, templateStyle)
	if err != nil {
		o.failRun(runID, err)
		return err
	}

	// スライドの初期化はアウトライン完了に対して完全に同期。
	// 全プレースホルダが揃う前に画像タスクが走ることはありません。
	o.mu.Lock()
	if o.runID != runID {
		o.mu.Unlock()
		return nil // 新しいランに追い越された
	}
	o.theme = resp.StyleTheme
	o.slides = domain.NewSlides(resp.Slides)
	o.status = StatusImages
	o.progress = outlineProgress
	slides := o.slides
	theme := o.theme
	o.mu.Unlock()

	o.runImagePhase(ctx, runID, slides, theme, templateStyle)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.runID != runID {
		return nil
	}
	o.status = StatusDone
	o.progress = outlineProgress + imagesProgress
	slog.Info("生成ランが完了したのだ", "run_id", runID)
	return nil
}

// runImagePhase はスライド1枚につき1つの画像タスクを、固定並列数の
// ワーカープールでさばきます。完了順は不定で、成功も失敗枯渇も等しく
// 「完了」として進捗に数えます。
func (o *Orchestrator) runImagePhase(ctx context.Context, runID string, slides []*domain.Slide, theme *domain.StyleTheme, templateStyle *domain.TemplateStyle) {
	total := len(slides)
	queue := make(chan *domain.Slide, total)
	for _, s := range slides {
		queue <- s
	}
	close(queue)

	limit := rate.Inf
	if o.cfg.RateInterval > 0 {
		limit = rate.Every(o.cfg.RateInterval)
	}
	limiter := rate.NewLimiter(limit, o.cfg.Concurrency)

	completed := 0
	slog.Info("並列画像生成を開始するのだ", "count", total, "concurrency", o.cfg.Concurrency)

	eg, egCtx := errgroup.WithContext(ctx)
	for w := 0; w < o.cfg.Concurrency; w++ {
		eg.Go(func() error {
			for slide := range queue {
				if err := limiter.Wait(egCtx); err != nil {
					return nil
				}

				// バーストをずらすための小さなランダム遅延
				if o.cfg.Jitter > 0 {
					select {
					case <-time.After(rand.N(o.cfg.Jitter)):
					case <-egCtx.Done():
						return nil
					}
				}

				url, err := o.acquirer.Acquire(egCtx, slide.ImagePrompt, theme, templateStyle)
				if err != nil {
					// 1枚の失敗はそのスライドだけのもの。ImageURL は空のまま続行する
					slog.Error("画像生成に失敗したのだ", "page", slide.PageNumber, "error", err)
				} else {
					o.applyImageResult(runID, slide.ID, url)
				}

				o.mu.Lock()
				if o.runID == runID {
					completed++
					o.progress = outlineProgress + imagesProgress*float64(completed)/float64(total)
				}
				o.mu.Unlock()
			}
			return nil
		})
	}

	// ワーカーは個別失敗を返さないので、ここでエラーは出ない
	_ = eg.Wait()
}

// applyImageResult は、ランと担当スライドが今も有効な場合に限って
// ImageURL を書き込みます。追い越された古いランからの遅延結果は
// ここで黙って捨てられます。
func (o *Orchestrator) applyImageResult(runID, slideID, url string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.runID != runID {
		slog.Warn("古いランからの画像結果を破棄したのだ", "run_id", runID)
		return
	}
	for _, s := range o.slides {
		if s.ID == slideID {
			s.ImageURL = url
			return
		}
	}
}

func (o *Orchestrator) failRun(runID string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.runID != runID {
		return
	}
	o.status = StatusError
	o.errMessage = err.Error()
	slog.Error("生成ランが失敗したのだ", "run_id", runID, "error", err)
}

// Snapshot は現在の状態のコピーを返します。スライドは値コピーなので、
// 呼び出し側が書き換えてもラン状態は汚れません。
func (o *Orchestrator) Snapshot() RunSnapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	slides := make([]domain.Slide, len(o.slides))
	for i, s := range o.slides {
		slides[i] = *s
	}

	return RunSnapshot{
		Status:       o.status,
		Progress:     o.progress,
		ErrorMessage: o.errMessage,
		Theme:        o.theme,
		Slides:       slides,
	}
}

// RunSnapshot は観測用の状態コピーです。
type RunSnapshot struct {
	Status       Status
	Progress     float64
	ErrorMessage string
	Theme        *domain.StyleTheme
	Slides       []domain.Slide
}
