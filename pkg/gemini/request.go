package gemini

import (
	"log/slog"
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

const (
	responseMimeTypeJSON = "application/json"
	modalityImage        = "IMAGE"
)

// Request はモードに依存しない生成リクエストです。
// Parts の先頭がテキスト、それ以降がインラインのバイナリという順序を保ちます。
type Request struct {
	Parts       []Part
	AspectRatio string
}

// TextPart はテキストだけの Part を生成します。
func TextPart(text string) Part {
	return Part{Text: text}
}

// ImagePart は画像の Part を生成します。
func ImagePart(img domain.Image) Part {
	return Part{InlineData: &InlineData{MimeType: img.MimeType, Data: img.Data}}
}

// Text はすべてのテキスト Part を連結した文字列を返します。
func (r Request) Text() string {
	var texts []string
	for _, p := range r.Parts {
		if p.InlineData == nil && p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// TextParts はテキスト Part の数を返します。
func (r Request) TextParts() int {
	n := 0
	for _, p := range r.Parts {
		if p.InlineData == nil {
			n++
		}
	}
	return n
}

// BinaryParts はインラインのバイナリ Part の数を返します。
func (r Request) BinaryParts() int {
	return len(r.Parts) - r.TextParts()
}

// Encode はモードに応じたワイヤ形式のペイロードに変換します。
// ModeImagen は参照画像を受け付けないため、バイナリ Part は警告を出して破棄します。
func Encode(mode Mode, r Request) any {
	switch mode {
	case ModeImagen:
		if n := r.BinaryParts(); n > 0 {
			slog.Warn("Imagen モードでは参照画像を送信できないため破棄します", "dropped", n)
		}
		return PredictRequest{
			Instances:  []PredictInstance{{Prompt: r.Text()}},
			Parameters: PredictParameters{SampleCount: 1, AspectRatio: r.AspectRatio},
		}
	case ModeImage:
		return GenerateContentRequest{
			Contents:         []Content{{Parts: r.Parts}},
			GenerationConfig: &GenerationConfig{ResponseModalities: []string{modalityImage}},
		}
	default:
		return GenerateContentRequest{Contents: []Content{{Parts: r.Parts}}}
	}
}

// EncodeJSONText は JSON 応答を要求するテキストモードのペイロードを生成します。
func EncodeJSONText(system, user string, temperature *float32) GenerateContentRequest {
	req := GenerateContentRequest{
		Contents: []Content{{Parts: []Part{TextPart(user)}}},
		GenerationConfig: &GenerationConfig{
			ResponseMimeType: responseMimeTypeJSON,
			Temperature:      temperature,
		},
	}
	if system != "" {
		req.SystemInstruction = &Content{Parts: []Part{TextPart(system)}}
	}
	return req
}

// EncodePlainText はプレーンテキスト応答を要求するテキストモードのペイロードを生成します。
func EncodePlainText(user string, temperature *float32) GenerateContentRequest {
	req := GenerateContentRequest{Contents: []Content{{Parts: []Part{TextPart(user)}}}}
	if temperature != nil {
		req.GenerationConfig = &GenerationConfig{Temperature: temperature}
	}
	return req
}
