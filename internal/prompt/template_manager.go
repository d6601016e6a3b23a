package prompt

import (
	_ "embed"
	"fmt"
)

const (
	ModeOutline = "outline"
	ModeAnalyze = "analyze"
)

//go:embed outline.md
var OutlinePrompt string

//go:embed analyze.md
var AnalyzePrompt string

// modeTemplates はモードとテンプレート文字列を紐づけるマップなのだ。
var modeTemplates = map[string]string{
	ModeOutline: OutlinePrompt,
	ModeAnalyze: AnalyzePrompt,
}

// GetPromptByMode は、指定されたモードに対応するプロンプト文字列を返すのだ。
func GetPromptByMode(mode string) (string, error) {
	content, ok := modeTemplates[mode]
	if !ok {
		return "", fmt.Errorf("サポートされていないモード: '%s'", mode)
	}

	if content == "" {
		return "", fmt.Errorf("モード '%s' に対応するプロンプトテンプレートが空なのだ。embed設定を確認してほしいのだ", mode)
	}

	return content, nil
}
