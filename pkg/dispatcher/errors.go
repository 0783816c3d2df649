package dispatcher

import (
	"errors"
	"fmt"
)

var (
	// ErrNoCredentials は APIキーが1つも設定されていない場合に返されます。
	ErrNoCredentials = errors.New("APIキーが設定されていません")
	// ErrExhausted はすべてのAPIキーで呼び出しに失敗した場合に返されます。
	ErrExhausted = errors.New("すべてのAPIキーで呼び出しに失敗しました")
	// ErrRateLimited はレート制限（429）を示します。
	ErrRateLimited = errors.New("レート制限に達しました")
)

// StatusError は HTTP 200 以外のステータスを返した呼び出しの詳細です。
type StatusError struct {
	StatusCode int
	Body       string
	KeyIndex   int
	// Attempts は中断した時点までの試行回数です。ローテーション中に記録された途中のエラーでは0です。
	Attempts int
	// RateLimited は次のキーへのローテーション対象となったステータスかどうかです。
	RateLimited bool
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API Error %d (key %d): %s", e.StatusCode, e.KeyIndex+1, truncate(e.Body, 300))
}

// Is はレート制限系のステータスを ErrRateLimited として扱えるようにします。
func (e *StatusError) Is(target error) bool {
	return target == ErrRateLimited && e.RateLimited
}

// ExhaustedError はキーを使い切った際の試行回数と最後に観測したエラーを保持します。
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	if e.Last == nil {
		return fmt.Sprintf("%s (試行回数: %d)", ErrExhausted, e.Attempts)
	}
	return fmt.Sprintf("%s (試行回数: %d): %v", ErrExhausted, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() []error {
	if e.Last == nil {
		return []error{ErrExhausted}
	}
	return []error{ErrExhausted, e.Last}
}

// Outcome は呼び出し結果の分類です。
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeRateLimited
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRateLimited:
		return "rate_limited"
	default:
		return "failed"
	}
}

// Classify は Dispatch が返したエラーを Outcome に分類します。
// すべてのキーがレート制限で尽きた場合は OutcomeRateLimited になります。
func Classify(err error) Outcome {
	if err == nil {
		return OutcomeSuccess
	}
	if errors.Is(err, ErrRateLimited) {
		return OutcomeRateLimited
	}
	return OutcomeFailed
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
