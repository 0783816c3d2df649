package generator

import (
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/gemini"
	"github.com/shouni/go-storyboard-kit/pkg/prompts"

	"golang.org/x/time/rate"
)

// DefaultBatchInterval は一括生成で画像生成の呼び出し間に空ける間隔です。
const DefaultBatchInterval = 2 * time.Second

// StoryboardComposer は Gemini の呼び出しと絵コンテの状態を結びつけるコンポーネントです。
type StoryboardComposer struct {
	Caller        Caller
	Endpoints     gemini.Endpoints
	PromptBuilder prompts.TextPrompt
	RateLimiter   *rate.Limiter
	Temperature   *float32 // nil の場合はモデルの既定値を使います
}

// NewStoryboardComposer は StoryboardComposer の新しいインスタンスを初期化済みの状態で生成します。
// limiter が nil の場合は DefaultBatchInterval のリミッターを使います。
func NewStoryboardComposer(
	caller Caller,
	endpoints gemini.Endpoints,
	pb prompts.TextPrompt,
	limiter *rate.Limiter,
) *StoryboardComposer {
	if limiter == nil {
		limiter = NewBatchLimiter(DefaultBatchInterval)
	}
	return &StoryboardComposer{
		Caller:        caller,
		Endpoints:     endpoints,
		PromptBuilder: pb,
		RateLimiter:   limiter,
	}
}

// NewBatchLimiter は呼び出し間に interval の間隔を空けるリミッターを生成します。
// interval が0以下の場合は待機しません。
func NewBatchLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}
