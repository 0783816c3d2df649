package generator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/go-storyboard-kit/pkg/dispatcher"
	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/gemini"
)

// GenerateRemaining は位置 from 以降で画像を持たないシーンを順番に生成します。
// 呼び出しの間はリミッターで一定の間隔を空け、直前に生成した画像を次のシーンの継続性に使います。
// 最初に成功しなかったシーンで停止し、それまでの結果を返します。
// error を返すのはコンテキストがキャンセルされた場合だけです。
func (sc *StoryboardComposer) GenerateRemaining(ctx context.Context, mode gemini.Mode, p *domain.Project, images *domain.ImageStore, from int) ([]SceneResult, error) {
	if from < 0 {
		from = 0
	}

	var results []SceneResult
	for i := from; i < p.SceneCount(); i++ {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		if _, ok := images.Get(p.Storyboard[i].ID); ok {
			continue
		}

		slog.InfoContext(ctx, "APIレート制限を確認中...", "scene", i+1)
		if err := sc.RateLimiter.Wait(ctx); err != nil {
			return results, fmt.Errorf("リミッター待機中にエラーが発生しました: %w", err)
		}

		res := sc.GenerateScene(ctx, mode, p, images, i)
		results = append(results, res)
		if res.Status != dispatcher.OutcomeSuccess {
			if err := ctx.Err(); err != nil {
				return results, err
			}
			slog.WarnContext(ctx, "一括生成を中断します", "scene", i+1, "status", res.Status)
			break
		}
	}
	return results, nil
}
