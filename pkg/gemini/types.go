package gemini

// Content は generateContent リクエスト/レスポンス内のコンテンツです。
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Part はテキストまたはインラインのバイナリを保持します。
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

// InlineData は base64 エンコードされたバイナリとメディアタイプです。
// Data は []byte なので encoding/json により標準 base64 で表現されます。
type InlineData struct {
	MimeType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

// GenerationConfig は生成パラメータです。
type GenerationConfig struct {
	ResponseMimeType   string   `json:"responseMimeType,omitempty"`
	ResponseModalities []string `json:"responseModalities,omitempty"`
	Temperature        *float32 `json:"temperature,omitempty"`
}

// GenerateContentRequest は :generateContent エンドポイントへのリクエストです。
type GenerateContentRequest struct {
	Contents          []Content         `json:"contents"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
}

// GenerateContentResponse は :generateContent エンドポイントの応答です。
type GenerateContentResponse struct {
	Candidates []struct {
		Content      Content `json:"content"`
		FinishReason string  `json:"finishReason,omitempty"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason,omitempty"`
	} `json:"promptFeedback,omitempty"`
}

// PredictRequest は :predict（テキストから画像）エンドポイントへのリクエストです。
type PredictRequest struct {
	Instances  []PredictInstance `json:"instances"`
	Parameters PredictParameters `json:"parameters"`
}

// PredictInstance は predict リクエストの1件分の入力です。
type PredictInstance struct {
	Prompt string `json:"prompt"`
}

// PredictParameters は predict リクエストの生成パラメータです。
type PredictParameters struct {
	SampleCount int    `json:"sampleCount"`
	AspectRatio string `json:"aspectRatio,omitempty"`
}

// PredictResponse は :predict エンドポイントの応答です。
type PredictResponse struct {
	Predictions []struct {
		BytesBase64Encoded []byte `json:"bytesBase64Encoded"`
		MimeType           string `json:"mimeType"`
	} `json:"predictions"`
}
