package gemini

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// ErrMalformedResponse は応答から期待したデータを取り出せなかった場合に返されます。
// このエラーは再試行の対象になりません。
var ErrMalformedResponse = errors.New("応答の形式が不正です")

// ExtractImage はモードに応じて応答から生成画像を取り出します。
func ExtractImage(mode Mode, body []byte) (domain.Image, error) {
	switch mode {
	case ModeImagen:
		return extractPrediction(body)
	case ModeImage:
		return extractInlineImage(body)
	default:
		return domain.Image{}, fmt.Errorf("%w: モード %s は画像を返しません", ErrMalformedResponse, mode)
	}
}

// ExtractText は generateContent の応答から最初の候補のテキストを取り出します。
func ExtractText(body []byte) (string, error) {
	var resp GenerateContentResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: 候補がありません%s", ErrMalformedResponse, blockReason(resp))
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: テキストが含まれていません (finishReason: %s)", ErrMalformedResponse, resp.Candidates[0].FinishReason)
	}
	return sb.String(), nil
}

func extractInlineImage(body []byte) (domain.Image, error) {
	var resp GenerateContentResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.Image{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(resp.Candidates) == 0 {
		return domain.Image{}, fmt.Errorf("%w: 候補がありません%s", ErrMalformedResponse, blockReason(resp))
	}

	// テキスト Part が先に返ることがあるため、最初のインライン Part を探す
	for _, p := range resp.Candidates[0].Content.Parts {
		if p.InlineData != nil && len(p.InlineData.Data) > 0 {
			return domain.Image{MimeType: defaultMime(p.InlineData.MimeType), Data: p.InlineData.Data}, nil
		}
	}
	return domain.Image{}, fmt.Errorf("%w: 画像データが含まれていません (finishReason: %s)", ErrMalformedResponse, resp.Candidates[0].FinishReason)
}

func extractPrediction(body []byte) (domain.Image, error) {
	var resp PredictResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.Image{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	for _, p := range resp.Predictions {
		if len(p.BytesBase64Encoded) > 0 {
			return domain.Image{MimeType: defaultMime(p.MimeType), Data: p.BytesBase64Encoded}, nil
		}
	}
	return domain.Image{}, fmt.Errorf("%w: predictions に画像が含まれていません", ErrMalformedResponse)
}

func blockReason(resp GenerateContentResponse) string {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return fmt.Sprintf(" (blockReason: %s)", resp.PromptFeedback.BlockReason)
	}
	return ""
}

func defaultMime(m string) string {
	if m == "" {
		return domain.MimeTypePNG
	}
	return m
}
