package gemini

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

func TestEndpoints_URL(t *testing.T) {
	e := Endpoints{BaseURL: "https://example.com/v1beta/", TextModel: "t", ImageModel: "i", ImagenModel: "g"}
	tests := []struct {
		mode Mode
		want string
	}{
		{ModeText, "https://example.com/v1beta/models/t:generateContent"},
		{ModeImage, "https://example.com/v1beta/models/i:generateContent"},
		{ModeImagen, "https://example.com/v1beta/models/g:predict"},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			if got := e.URL(tt.mode); got != tt.want {
				t.Errorf("URL() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeImage, "Nano-Banana": ModeImage, "imagen": ModeImagen, "text": ModeText} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseMode("dall-e"); err == nil {
		t.Error("不明なモードでエラーが発生しませんでした")
	}
}

func TestEncode(t *testing.T) {
	req := Request{Parts: []Part{
		TextPart("Style: noir."),
		ImagePart(domain.Image{MimeType: domain.MimeTypePNG, Data: []byte("png")}),
	}}

	t.Run("image モードは inlineData を base64 で送信すること", func(t *testing.T) {
		data, err := json.Marshal(Encode(ModeImage, req))
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		want := fmt.Sprintf(`{"contents":[{"parts":[{"text":"Style: noir."},{"inlineData":{"mimeType":"image/png","data":"%s"}}]}],"generationConfig":{"responseModalities":["IMAGE"]}}`,
			base64.StdEncoding.EncodeToString([]byte("png")))
		if string(data) != want {
			t.Errorf("ペイロードが不正です\n got: %s\nwant: %s", data, want)
		}
	})

	t.Run("imagen モードはテキストだけを送信すること", func(t *testing.T) {
		payload, ok := Encode(ModeImagen, req).(PredictRequest)
		if !ok {
			t.Fatalf("PredictRequest を期待しました")
		}
		want := PredictRequest{
			Instances:  []PredictInstance{{Prompt: "Style: noir."}},
			Parameters: PredictParameters{SampleCount: 1},
		}
		if diff := cmp.Diff(want, payload); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})
}

func TestExtractImage(t *testing.T) {
	img := base64.StdEncoding.EncodeToString([]byte{0x89, 'P', 'N', 'G'})

	t.Run("generateContent はテキストの後のインライン画像を取り出すこと", func(t *testing.T) {
		body := fmt.Sprintf(`{"candidates":[{"content":{"parts":[{"text":"here you go"},{"inlineData":{"mimeType":"image/png","data":"%s"}}]}}]}`, img)
		got, err := ExtractImage(ModeImage, []byte(body))
		if err != nil {
			t.Fatalf("ExtractImage: %v", err)
		}
		if got.MimeType != domain.MimeTypePNG || string(got.Data) != "\x89PNG" {
			t.Errorf("画像が不正です: %+v", got)
		}
	})

	t.Run("predict は predictions から取り出すこと", func(t *testing.T) {
		body := fmt.Sprintf(`{"predictions":[{"bytesBase64Encoded":"%s","mimeType":"image/jpeg"}]}`, img)
		got, err := ExtractImage(ModeImagen, []byte(body))
		if err != nil {
			t.Fatalf("ExtractImage: %v", err)
		}
		if got.MimeType != domain.MimeTypeJPEG || len(got.Data) != 4 {
			t.Errorf("画像が不正です: %+v", got)
		}
	})

	malformed := map[string]struct {
		mode Mode
		body string
	}{
		"JSONではない":     {ModeImage, `<html>`},
		"候補なし":         {ModeImage, `{"candidates":[],"promptFeedback":{"blockReason":"SAFETY"}}`},
		"画像なし":         {ModeImage, `{"candidates":[{"content":{"parts":[{"text":"sorry"}]},"finishReason":"STOP"}]}`},
		"predictions が空": {ModeImagen, `{"predictions":[]}`},
		"テキストモード":      {ModeText, `{}`},
	}
	for name, tt := range malformed {
		t.Run(name, func(t *testing.T) {
			if _, err := ExtractImage(tt.mode, []byte(tt.body)); !errors.Is(err, ErrMalformedResponse) {
				t.Errorf("ErrMalformedResponse を期待しましたが %v でした", err)
			}
		})
	}
}

func TestExtractText(t *testing.T) {
	body := `{"candidates":[{"content":{"parts":[{"text":"{\"a\":"},{"text":"1}"}]}}]}`
	got, err := ExtractText([]byte(body))
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if got != `{"a":1}` {
		t.Errorf("ExtractText = %s", got)
	}

	if _, err := ExtractText([]byte(`{"candidates":[]}`)); !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("ErrMalformedResponse を期待しましたが %v でした", err)
	}
}
