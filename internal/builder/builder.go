package builder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/patrickmn/go-cache"
	"github.com/shouni/go-deck-kit/internal/config"
	"github.com/shouni/go-deck-kit/pkg/analyzer"
	"github.com/shouni/go-deck-kit/pkg/capability"
	"github.com/shouni/go-deck-kit/pkg/imagegen"
	"github.com/shouni/go-deck-kit/pkg/orchestrator"
	"github.com/shouni/go-deck-kit/pkg/outline"
	"github.com/shouni/go-deck-kit/pkg/publisher"
	"github.com/shouni/go-deck-kit/pkg/retry"
	"github.com/shouni/go-http-kit/httpkit"
	"github.com/shouni/go-remote-io/pkg/gcsfactory"
)

// NewAppContext は共有コンポーネントを初期化して AppContext を返すのだ。
// 出力先の取得失敗は警告に留め、生成機能そのものは使えるようにします。
func NewAppContext(ctx context.Context, cfg *config.Config) (*AppContext, error) {
	httpClient := httpkit.New(cfg.HTTPTimeout)

	gcsFactory, err := gcsfactory.NewGCSClientFactory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client factory: %w", err)
	}

	reader, err := gcsFactory.NewInputReader()
	if err != nil {
		return nil, fmt.Errorf("failed to create input reader: %w", err)
	}
	writer, err := gcsFactory.NewOutputWriter()
	if err != nil {
		slog.WarnContext(ctx, "OutputWriterの取得に失敗しました。保存機能が制限される可能性があります", "error", err)
	}

	return &AppContext{
		Config:     cfg,
		Options:    cfg.Options,
		HTTPClient: httpClient,
		Reader:     reader,
		Writer:     writer,
		ImageCache: cache.New(cfg.ImageCacheTTL, 2*cfg.ImageCacheTTL),
	}, nil
}

func retryPolicy(cfg *config.Config) retry.Policy {
	return retry.Policy{MaxAttempts: cfg.MaxAttempts, Delay: retry.DefaultDelay}
}

// InitializeOpenAICompat は OpenAI 互換（SiliconFlow等）のケーパビリティを
// 初期化します。CLIフラグのモデル指定が環境変数より優先されます。
func InitializeOpenAICompat(appCtx *AppContext) (*capability.OpenAICompat, error) {
	cfg := appCtx.Config

	textModel := cfg.TextModel
	if appCtx.Options.TextModel != "" {
		textModel = appCtx.Options.TextModel
	}
	imageModel := cfg.ImageModel
	if appCtx.Options.ImageModel != "" {
		imageModel = appCtx.Options.ImageModel
	}

	return capability.NewOpenAICompat(capability.OpenAIConfig{
		APIKey:      cfg.OpenAIAPIKey,
		BaseURL:     cfg.OpenAIBaseURL,
		TextModel:   textModel,
		ImageModel:  imageModel,
		VisionModel: cfg.VisionModel,
		ImageSize:   cfg.ImageSize,
		Timeout:     cfg.HTTPTimeout,
	})
}

// InitializeGemini は Gemini 側のケーパビリティを初期化します。
func InitializeGemini(ctx context.Context, appCtx *AppContext) (*capability.Gemini, error) {
	cfg := appCtx.Config
	return capability.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiImageModel)
}

// BuildSynthesizer はアウトライン合成器を構築します。テキスト生成は
// OpenAI互換キーがあればそちら、無ければ Gemini に割り当てます。
func BuildSynthesizer(ctx context.Context, appCtx *AppContext) (*outline.Synthesizer, error) {
	cfg := appCtx.Config

	var gen outline.TextGenerator
	switch {
	case cfg.OpenAIAPIKey != "":
		oc, err := InitializeOpenAICompat(appCtx)
		if err != nil {
			return nil, err
		}
		gen = oc
	case cfg.GeminiAPIKey != "":
		g, err := InitializeGemini(ctx, appCtx)
		if err != nil {
			return nil, err
		}
		gen = g
	default:
		return nil, fmt.Errorf("builder: SILICONFLOW_API_KEY か GEMINI_API_KEY のいずれかが必要です")
	}

	return outline.NewSynthesizer(gen, retryPolicy(cfg))
}

// BuildAcquirer は画像取得ワーカーを構築します。どちらのキーもあれば
// OpenAI互換を一次、Gemini を二次ケーパビリティに割り当てます。
func BuildAcquirer(ctx context.Context, appCtx *AppContext) (*imagegen.Acquirer, error) {
	cfg := appCtx.Config

	embedder, err := imagegen.NewEmbedder(appCtx.HTTPClient, appCtx.ImageCache, cfg.ImageCacheTTL)
	if err != nil {
		return nil, err
	}

	var primary, secondary imagegen.Capability
	switch {
	case cfg.OpenAIAPIKey != "":
		oc, err := InitializeOpenAICompat(appCtx)
		if err != nil {
			return nil, err
		}
		primary = oc
		if cfg.GeminiAPIKey != "" {
			g, err := InitializeGemini(ctx, appCtx)
			if err != nil {
				slog.WarnContext(ctx, "二次ケーパビリティの初期化に失敗しました。フォールバックなしで続行します", "error", err)
			} else {
				secondary = g
			}
		}
	case cfg.GeminiAPIKey != "":
		g, err := InitializeGemini(ctx, appCtx)
		if err != nil {
			return nil, err
		}
		primary = g
	default:
		return nil, fmt.Errorf("builder: SILICONFLOW_API_KEY か GEMINI_API_KEY のいずれかが必要です")
	}

	return imagegen.NewAcquirer(primary, secondary, retryPolicy(cfg), embedder)
}

// BuildOrchestrator は生成ラン全体の司令塔を構築します。
func BuildOrchestrator(ctx context.Context, appCtx *AppContext) (*orchestrator.Orchestrator, error) {
	synth, err := BuildSynthesizer(ctx, appCtx)
	if err != nil {
		return nil, fmt.Errorf("アウトライン合成器の構築に失敗したのだ: %w", err)
	}

	acquirer, err := BuildAcquirer(ctx, appCtx)
	if err != nil {
		return nil, fmt.Errorf("画像取得ワーカーの構築に失敗したのだ: %w", err)
	}

	cfg := appCtx.Config
	return orchestrator.New(synth, acquirer, orchestrator.Config{
		Concurrency:  cfg.Concurrency,
		RateInterval: cfg.RateInterval,
		Jitter:       cfg.Jitter,
	})
}

// BuildAnalyzer はテンプレート画像の解析器を構築します。マルチモーダル
// モデルは OpenAI 互換側にしか無いため、そちらのキーが必須です。
func BuildAnalyzer(appCtx *AppContext) (*analyzer.Analyzer, error) {
	if appCtx.Config.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("builder: テンプレート解析には SILICONFLOW_API_KEY が必要です")
	}

	oc, err := InitializeOpenAICompat(appCtx)
	if err != nil {
		return nil, err
	}
	return analyzer.NewAnalyzer(oc, retryPolicy(appCtx.Config))
}

// BuildPublisher は成果物の保存役を構築します。
func BuildPublisher(appCtx *AppContext) (*publisher.DeckPublisher, error) {
	if appCtx.Writer == nil {
		return nil, fmt.Errorf("builder: 出力先が利用できません")
	}
	return publisher.NewDeckPublisher(appCtx.Writer)
}
