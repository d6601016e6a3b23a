package config

import (
	"strconv"
	"time"

	"github.com/shouni/go-utils/envutil"
)

// デフォルト値の定義なのだ
const (
	DefaultOpenAIBaseURL    = "https://api.siliconflow.cn/v1"
	DefaultTextModel        = "Qwen/Qwen2.5-7B-Instruct"
	DefaultImageModel       = "Kwai-Kolors/Kolors"
	DefaultVisionModel      = "Qwen/Qwen2-VL-72B-Instruct"
	DefaultGeminiModel      = "gemini-3-flash-preview"
	DefaultGeminiImageModel = "gemini-3-pro-image-preview"
	DefaultImageSize        = "1024x576" // 16:9 に合わせた生成サイズ
	DefaultHTTPTimeout      = 30 * time.Second
	DefaultMaxAttempts      = 3
	DefaultConcurrency      = 2
	DefaultRateInterval     = 500 * time.Millisecond
	DefaultJitter           = 1 * time.Second
	DefaultImageCacheTTL    = 10 * time.Minute
	DefaultPageCount        = 8
	DefaultOutputDir        = "output"
	DefaultServerAddr       = ":8080"
)

// Config はアプリケーション全体の環境設定（APIキーや接続先）を保持する構造体なのだ。
type Config struct {
	// OpenAI互換（SiliconFlow等）の接続設定
	OpenAIAPIKey  string
	OpenAIBaseURL string
	TextModel     string
	ImageModel    string
	VisionModel   string
	ImageSize     string

	// Gemini側（二次ケーパビリティ）の接続設定
	GeminiAPIKey     string
	GeminiModel      string
	GeminiImageModel string

	HTTPTimeout   time.Duration
	MaxAttempts   int
	Concurrency   int
	RateInterval  time.Duration
	Jitter        time.Duration
	ImageCacheTTL time.Duration

	Options GenerateOptions
}

// LoadConfig は環境変数から設定を読み込み、構造体を返すのだ！
func LoadConfig() *Config {
	return &Config{
		OpenAIAPIKey:  envutil.GetEnv("SILICONFLOW_API_KEY", ""),
		OpenAIBaseURL: envutil.GetEnv("SILICONFLOW_BASE_URL", DefaultOpenAIBaseURL),
		TextModel:     envutil.GetEnv("TEXT_MODEL", DefaultTextModel),
		ImageModel:    envutil.GetEnv("IMAGE_MODEL", DefaultImageModel),
		VisionModel:   envutil.GetEnv("VISION_MODEL", DefaultVisionModel),
		ImageSize:     envutil.GetEnv("IMAGE_SIZE", DefaultImageSize),

		GeminiAPIKey:     envutil.GetEnv("GEMINI_API_KEY", ""),
		GeminiModel:      envutil.GetEnv("GEMINI_MODEL", DefaultGeminiModel),
		GeminiImageModel: envutil.GetEnv("IMAGE_GEMINI_MODEL", DefaultGeminiImageModel),

		HTTPTimeout:   envDuration("HTTP_TIMEOUT", DefaultHTTPTimeout),
		MaxAttempts:   envInt("MAX_ATTEMPTS", DefaultMaxAttempts),
		Concurrency:   envInt("IMAGE_CONCURRENCY", DefaultConcurrency),
		RateInterval:  envDuration("RATE_INTERVAL", DefaultRateInterval),
		Jitter:        envDuration("REQUEST_JITTER", DefaultJitter),
		ImageCacheTTL: envDuration("IMAGE_CACHE_TTL", DefaultImageCacheTTL),
	}
}

// envDuration は "30s" のような時間表記の環境変数を読みます。
// パースできない値は既定値に落とします。
func envDuration(key string, fallback time.Duration) time.Duration {
	raw := envutil.GetEnv(key, "")
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

func envInt(key string, fallback int) int {
	raw := envutil.GetEnv(key, "")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

// GenerateOptions は CLI フラグから渡される実行時のパラメータなのだ。
type GenerateOptions struct {
	// 生成対象
	Topic     string // --topic
	PageCount int    // --pages

	// テンプレート解析関連
	TemplateImage string // --template-image: 参考画像のパス

	// 出力関連
	OutputDir string // --output-dir
	BaseName  string // --name

	// AI挙動設定
	TextModel  string // --model
	ImageModel string // --image-model

	// 実行制御
	HTTPTimeout time.Duration // --http-timeout
	ServerAddr  string        // --addr (serve用)
}
