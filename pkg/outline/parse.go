package outline

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/shouni/go-deck-kit/pkg/domain"
)

var jsonBlockRegex = regexp.MustCompile("(?s)```(?:json)?\\s*(.*\\S)\\s*```")

// Parse は AI の生テキスト応答をアウトライン構造に変換します。
// コードフェンスを剥がし、それでもダメなら最外の JSON オブジェクトを
// 探してからデコードします。失敗はこの呼び出しにとって致命的です。
func Parse(raw string) (*domain.OutlineResponse, error) {
	raw = strings.TrimSpace(raw)
	var rawJSON string

	matches := jsonBlockRegex.FindStringSubmatch(raw)
	if len(matches) > 1 {
		rawJSON = matches[1]
	} else {
		firstBracket := strings.Index(raw, "{")
		lastBracket := strings.LastIndex(raw, "}")
		if firstBracket != -1 && lastBracket != -1 && lastBracket > firstBracket {
			rawJSON = raw[firstBracket : lastBracket+1]
		} else {
			rawJSON = raw
		}
	}

	var resp domain.OutlineResponse
	if err := json.Unmarshal([]byte(rawJSON), &resp); err != nil {
		return nil, fmt.Errorf("outline: AIからの応答に含まれるJSONの解析に失敗しました (応答抜粋: %q): %w", truncateString(raw, 200), err)
	}

	if len(resp.Slides) == 0 {
		return nil, fmt.Errorf("outline: 応答にスライドが1件も含まれていません (応答抜粋: %q)", truncateString(raw, 200))
	}

	return &resp, nil
}

// RepairSlideCount は、スライド数が要求とずれていた場合に必ず補正します。
// 不足分は直前スライドの画像プロンプトを流用した埋め草で補い、
// 超過分は先頭から pageCount 件だけ残します。外部ケーパビリティは
// 件数を守るとは限らないので、この補正は毎回走らせます。
func RepairSlideCount(slides []domain.SlideOutline, pageCount int) []domain.SlideOutline {
	if len(slides) > pageCount {
		return slides[:pageCount]
	}

	for len(slides) < pageCount {
		fillerPrompt := "blue gradient minimalist abstract background, geometric patterns, no text, 16:9"
		if last := len(slides) - 1; last >= 0 && slides[last].ImagePrompt != "" {
			fillerPrompt = slides[last].ImagePrompt
		}

		title := fmt.Sprintf("Part %d", len(slides)+1)
		if len(slides) == pageCount-1 {
			title = "Summary & Outlook"
		}

		slides = append(slides, domain.SlideOutline{
			Title:        title,
			Content:      "(to be expanded)",
			BulletPoints: []string{"Point 1", "Point 2", "Point 3"},
			ImagePrompt:  fillerPrompt,
		})
	}

	return slides
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
