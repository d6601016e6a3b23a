package domain

// StyleTheme は、デッキ全体で共有される単一のビジュアルアイデンティティです。
// アウトライン生成時に一度だけ作られ、以降は不変。すべての画像リクエストは
// 同じインスタンスを参照します（コピーして書き換えてはいけないのだ）。
type StyleTheme struct {
	Name      string `json:"name"`
	ColorTone string `json:"colorTone"`
	Style     string `json:"style"`
	Mood      string `json:"mood"`
}

// TemplateStyle は、ユーザーがアップロードした参考画像から抽出された
// ビジュアルスタイルです。存在する場合、自動テーマよりも優先されます。
type TemplateStyle struct {
	PrimaryColor     string `json:"primaryColor"`
	SecondaryColor   string `json:"secondaryColor"`
	BackgroundColor  string `json:"backgroundColor"`
	Layout           string `json:"layout"`
	TitleStyle       string `json:"titleStyle"`
	Mood             string `json:"mood"`
	VisualElements   string `json:"visualElements"`
	ImageStylePrompt string `json:"imageStylePrompt"`

	// ReferenceImage は解析元画像の base64。セッション中のみ保持されます。
	ReferenceImage string `json:"referenceImage,omitempty"`
}

// SlideOutline は AI モデルから返される 1 ページ分のテキスト骨子です。
// 修復処理後は、必ず要求ページ数とちょうど同じ数だけ存在します。
type SlideOutline struct {
	Title        string   `json:"title"`
	Subtitle     string   `json:"subtitle,omitempty"`
	Content      string   `json:"content"`
	BulletPoints []string `json:"bulletPoints"`
	ImagePrompt  string   `json:"imagePrompt"`
}

// OutlineResponse は AI モデルから返されるアウトライン全体の構造です。
type OutlineResponse struct {
	StyleTheme *StyleTheme    `json:"styleTheme"`
	Slides     []SlideOutline `json:"slides"`
}

// Slide は生成セッション中の可変な作業単位です。
// 作成後に書き換わるのは ImageURL だけで、担当する画像タスクか
// 単一ページ再生成だけがそれを書き込みます。
type Slide struct {
	ID           string   `json:"id"`
	PageNumber   int      `json:"pageNumber"`
	Title        string   `json:"title"`
	Subtitle     string   `json:"subtitle,omitempty"`
	Content      string   `json:"content"`
	BulletPoints []string `json:"bulletPoints"`
	ImageURL     string   `json:"imageUrl"`
	ImagePrompt  string   `json:"imagePrompt"`
}

// IsBookend は、このスライドが表紙（1ページ目）または締め（最終ページ）
// かどうかを返します。total はデッキの総ページ数です。
func (s Slide) IsBookend(total int) bool {
	return s.PageNumber == 1 || s.PageNumber == total
}

// ページ数の許容範囲。入力バリデーションで使用します。
const (
	MinPageCount = 3
	MaxPageCount = 20
)

// ValidPageCount は要求ページ数が許容範囲内かを返します。
func ValidPageCount(n int) bool {
	return n >= MinPageCount && n <= MaxPageCount
}

// DefaultStyleTheme は、AI 応答にテーマが含まれなかった場合の
// フォールバックです。下流がテーマ不在を観測することはありません。
func DefaultStyleTheme() *StyleTheme {
	return &StyleTheme{
		Name:      "Professional Blue",
		ColorTone: "deep blue and white gradient",
		Style:     "minimalist corporate",
		Mood:      "professional",
	}
}
