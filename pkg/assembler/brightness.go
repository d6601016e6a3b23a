package assembler

import (
	"bytes"
	"fmt"
	"image"

	_ "image/jpeg" // 背景画像のデコード用
	_ "image/png"

	"golang.org/x/image/draw"
)

// 明暗判定のしきい値（0-255の灰色平均）。タイトル帯が載る画像上部が
// 明るめに出やすいため、中間値128よりわずかに下げてあります。
const brightnessThreshold = 120.0

// 統計用の縮小サイズ。判定は平均値なので解像度は粗くてよい。
const brightnessSampleSize = 100

// meanBrightness は画像全体の平均輝度（0-255）を返します。
// 同じ入力には必ず同じ値を返します。
func meanBrightness(data []byte) (float64, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("assembler: 画像のデコードに失敗しました: %w", err)
	}

	gray := image.NewGray(image.Rect(0, 0, brightnessSampleSize, brightnessSampleSize))
	draw.ApproxBiLinear.Scale(gray, gray.Bounds(), src, src.Bounds(), draw.Src, nil)

	var sum uint64
	for _, v := range gray.Pix {
		sum += uint64(v)
	}
	return float64(sum) / float64(len(gray.Pix)), nil
}

// isBright は背景画像が「明るい」かどうかを判定します。
// 判定不能（壊れた画像など）の場合は暗い背景とみなし、淡色文字側に
// 倒します。
func isBright(data []byte) bool {
	mean, err := meanBrightness(data)
	if err != nil {
		return false
	}
	return mean > brightnessThreshold
}
