package gemini

import (
	"fmt"
	"strings"
)

const (
	DefaultBaseURL     = "https://generativelanguage.googleapis.com/v1beta"
	DefaultTextModel   = "gemini-2.5-flash-preview-09-2025"
	DefaultImageModel  = "gemini-2.5-flash-image-preview"
	DefaultImagenModel = "imagen-3.0-generate-001"
)

// Mode は呼び出し先のエンドポイントと応答形式を決める生成モードです。
type Mode int

const (
	// ModeText はテキスト応答の generateContent です（台本解析など）。
	ModeText Mode = iota
	// ModeImage はインライン画像を返すマルチモーダルな generateContent です。
	ModeImage
	// ModeImagen は predictions リストを返すテキストから画像への predict です。
	ModeImagen
)

func (m Mode) String() string {
	switch m {
	case ModeText:
		return "text"
	case ModeImage:
		return "image"
	case ModeImagen:
		return "imagen"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode は CLI や設定ファイルの文字列を Mode に変換します。
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text":
		return ModeText, nil
	case "", "image", "nano-banana":
		return ModeImage, nil
	case "imagen":
		return ModeImagen, nil
	default:
		return ModeImage, fmt.Errorf("不明な生成モードです: '%s' (image|imagen)", s)
	}
}

// Endpoints はモードごとのモデル名とベースURLを保持します。
type Endpoints struct {
	BaseURL     string
	TextModel   string
	ImageModel  string
	ImagenModel string
}

// DefaultEndpoints は推奨されるデフォルトのエンドポイント設定を返します。
func DefaultEndpoints() Endpoints {
	return Endpoints{
		BaseURL:     DefaultBaseURL,
		TextModel:   DefaultTextModel,
		ImageModel:  DefaultImageModel,
		ImagenModel: DefaultImagenModel,
	}
}

// URL はモードに対応するエンドポイントURLを返します。APIキーは含みません。
func (e Endpoints) URL(mode Mode) string {
	base := strings.TrimRight(e.BaseURL, "/")
	switch mode {
	case ModeImage:
		return fmt.Sprintf("%s/models/%s:generateContent", base, e.ImageModel)
	case ModeImagen:
		return fmt.Sprintf("%s/models/%s:predict", base, e.ImagenModel)
	default:
		return fmt.Sprintf("%s/models/%s:generateContent", base, e.TextModel)
	}
}
