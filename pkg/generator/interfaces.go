package generator

import (
	"context"

	"github.com/shouni/go-storyboard-kit/pkg/dispatcher"
)

// Caller は、エンドポイントへ JSON ペイロードを送信し成功した応答を返す契約です。
// *dispatcher.Dispatcher がこれを満たします。
type Caller interface {
	Dispatch(ctx context.Context, endpoint string, payload any) (*dispatcher.Response, error)
}
