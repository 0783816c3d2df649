package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/shouni/go-http-kit/httpkit"
)

// ErrorPolicy はレート制限以外のエラーステータスを受け取った際の挙動です。
type ErrorPolicy int

const (
	// AbortOnError は即座に呼び出しを中断し、残りのキーは試しません。
	AbortOnError ErrorPolicy = iota
	// ContinueOnError はエラーを記録して次のキーで再試行します。
	ContinueOnError
)

// ParseErrorPolicy は設定値の文字列を ErrorPolicy に変換します。
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "abort":
		return AbortOnError, nil
	case "continue":
		return ContinueOnError, nil
	default:
		return AbortOnError, fmt.Errorf("不明なエラーポリシーです: '%s' (abort|continue)", s)
	}
}

// Options は Dispatcher の挙動を制御する設定項目です。
type Options struct {
	Policy ErrorPolicy
	// RotateOnUnavailable が true の場合、503 も 429 と同様に次のキーへ切り替えます。
	RotateOnUnavailable bool
}

// Response は成功した呼び出しの結果です。
type Response struct {
	StatusCode int
	Body       []byte
	Attempts   int // 成功までに行った試行回数（成功した1回を含む）
	KeyIndex   int // 成功したキーの位置
}

// Dispatcher は APIキーのリストを順番に試し、最初に成功した応答を返します。
// ローテーションの状態は呼び出しをまたいで保持しません。
type Dispatcher struct {
	httpClient httpkit.Doer
	keys       []string
	opts       Options
}

// New は Dispatcher を生成します。キーの並び順がそのまま試行順になります。
// httpClient の Do はリトライせずにステータスコードをそのまま返す必要があります。
// nil の場合は httpkit の既定クライアントを使います。
func New(httpClient httpkit.Doer, keys []string, opts Options) (*Dispatcher, error) {
	if httpClient == nil {
		httpClient = httpkit.New(httpkit.DefaultHTTPTimeout)
	}
	cleaned := make([]string, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			cleaned = append(cleaned, k)
		}
	}
	if len(cleaned) == 0 {
		return nil, ErrNoCredentials
	}
	return &Dispatcher{httpClient: httpClient, keys: cleaned, opts: opts}, nil
}

// KeyCount は設定されているキーの数を返します。
func (d *Dispatcher) KeyCount() int {
	return len(d.keys)
}

// Dispatch は payload を JSON として endpoint に POST します。
// 200 で即座に返し、429（設定により 503 も）と通信エラーでは次のキーに切り替えます。
func (d *Dispatcher) Dispatch(ctx context.Context, endpoint string, payload any) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("リクエストのJSON変換に失敗しました: %w", err)
	}

	var lastErr error
	attempts := 0
	for i, key := range d.keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		attempts++

		status, respBody, err := d.post(ctx, endpoint, key, body)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			slog.WarnContext(ctx, "通信エラーのため次のキーに切り替えます", "key", i+1, "error", err)
			lastErr = err
			continue
		}

		if status == http.StatusOK {
			return &Response{StatusCode: status, Body: respBody, Attempts: attempts, KeyIndex: i}, nil
		}

		statusErr := &StatusError{StatusCode: status, Body: string(respBody), KeyIndex: i}
		if d.isRateLimit(status) {
			statusErr.RateLimited = true
			slog.WarnContext(ctx, "キーが上限に達したため切り替えます", "key", i+1, "status", status)
			lastErr = statusErr
			continue
		}

		if d.opts.Policy == AbortOnError {
			statusErr.Attempts = attempts
			return nil, statusErr
		}
		slog.WarnContext(ctx, "エラー応答のため次のキーで再試行します", "key", i+1, "status", status)
		lastErr = statusErr
	}

	return nil, &ExhaustedError{Attempts: attempts, Last: lastErr}
}

func (d *Dispatcher) isRateLimit(status int) bool {
	if status == http.StatusTooManyRequests {
		return true
	}
	return d.opts.RotateOnUnavailable && status == http.StatusServiceUnavailable
}

func (d *Dispatcher) post(ctx context.Context, endpoint, key string, body []byte) (int, []byte, error) {
	target, err := withKey(endpoint, key)
	if err != nil {
		return 0, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("リクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, nil, redactKey(err, key)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("レスポンスの読み込みに失敗しました: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

// withKey はエンドポイントのクエリ文字列に key を付与します。
func withKey(endpoint, key string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("エンドポイントURLが不正です: %w", err)
	}
	q := u.Query()
	q.Set("key", key)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// redactKey は url.Error に含まれる APIキーを伏せ字にします。
func redactKey(err error, key string) error {
	msg := strings.ReplaceAll(err.Error(), url.QueryEscape(key), "REDACTED")
	return fmt.Errorf("リクエストの送信に失敗しました: %s", msg)
}
