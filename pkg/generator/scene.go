package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shouni/go-storyboard-kit/pkg/dispatcher"
	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/gemini"
	"github.com/shouni/go-storyboard-kit/pkg/prompts"
)

// SceneResult は1シーン分の生成結果です。
// Status が OutcomeSuccess の場合のみ Image が設定されます。
type SceneResult struct {
	Index    int
	SceneID  int
	Status   dispatcher.Outcome
	Image    *domain.Image
	Attempts int
	Err      error
}

// Message は結果を1行で表す表示用の文字列を返します。
func (r SceneResult) Message() string {
	switch r.Status {
	case dispatcher.OutcomeSuccess:
		return fmt.Sprintf("Scene %d: 生成しました", r.Index+1)
	case dispatcher.OutcomeRateLimited:
		return fmt.Sprintf("Scene %d: すべてのAPIキーがレート制限に達しました", r.Index+1)
	default:
		return fmt.Sprintf("Scene %d: 生成に失敗しました: %v", r.Index+1, r.Err)
	}
}

// SceneContext は位置 index のシーンの生成に必要な入力を組み立てます。
// 直前のシーンに生成済み画像があれば継続性のために添付します。
func (sc *StoryboardComposer) SceneContext(p *domain.Project, images *domain.ImageStore, index int) (prompts.SceneContext, error) {
	scene, err := p.SceneAt(index)
	if err != nil {
		return prompts.SceneContext{}, err
	}

	out := prompts.SceneContext{
		Style:       p.Style,
		GlobalRefs:  p.StyleImages,
		Characters:  p.Characters,
		ScenePrompt: scene.Prompt,
		SceneRefs:   scene.Refs,
	}
	if index > 0 && images != nil {
		if prev, ok := images.Get(p.Storyboard[index-1].ID); ok {
			out.PreviousImage = &prev
		}
	}
	return out, nil
}

// GenerateScene は位置 index のシーンの画像を生成し、成功した場合は images に保存します。
// 失敗は error ではなく SceneResult の Status と Err で表します。
func (sc *StoryboardComposer) GenerateScene(ctx context.Context, mode gemini.Mode, p *domain.Project, images *domain.ImageStore, index int) SceneResult {
	res := SceneResult{Index: index, Status: dispatcher.OutcomeFailed}

	sceneCtx, err := sc.SceneContext(p, images, index)
	if err != nil {
		res.Err = err
		return res
	}
	res.SceneID = p.Storyboard[index].ID
	if mode == gemini.ModeImagen {
		// 画像を送れないモードでは継続性の指示も付けないようにします
		sceneCtx.PreviousImage = nil
	}

	img, attempts, err := sc.generateImage(ctx, mode, prompts.BuildSceneRequest(sceneCtx))
	res.Attempts = attempts
	if err != nil {
		res.Status = dispatcher.Classify(err)
		res.Err = err
		slog.WarnContext(ctx, "シーン画像の生成に失敗しました", "scene", index+1, "status", res.Status, "error", err)
		return res
	}

	images.Put(res.SceneID, img)
	res.Status = dispatcher.OutcomeSuccess
	res.Image = &img
	slog.InfoContext(ctx, "シーン画像を生成しました", "scene", index+1, "id", res.SceneID, "attempts", attempts)
	return res
}

// PreviewCharacter はキャラクターシートの画像を生成し、キャラクターの Preview に設定します。
func (sc *StoryboardComposer) PreviewCharacter(ctx context.Context, mode gemini.Mode, style string, styleRefs []domain.ReferenceImage, c *domain.Character) error {
	if c == nil {
		return errors.New("キャラクターが指定されていません")
	}
	img, _, err := sc.generateImage(ctx, mode, prompts.BuildCharacterPreviewRequest(style, styleRefs, *c))
	if err != nil {
		return fmt.Errorf("キャラクター %s のプレビュー生成に失敗しました: %w", c.Key, err)
	}
	c.Preview = &img
	return nil
}

func (sc *StoryboardComposer) generateImage(ctx context.Context, mode gemini.Mode, req gemini.Request) (domain.Image, int, error) {
	if mode == gemini.ModeText {
		return domain.Image{}, 0, fmt.Errorf("モード %s では画像を生成できません", mode)
	}

	resp, err := sc.Caller.Dispatch(ctx, sc.Endpoints.URL(mode), gemini.Encode(mode, req))
	if err != nil {
		return domain.Image{}, dispatchAttempts(err), err
	}

	img, err := gemini.ExtractImage(mode, resp.Body)
	if err != nil {
		return domain.Image{}, resp.Attempts, err
	}
	return img, resp.Attempts, nil
}

// dispatchAttempts は Dispatch が失敗するまでに行った試行回数をエラーから取り出します。
func dispatchAttempts(err error) int {
	var exhausted *dispatcher.ExhaustedError
	if errors.As(err, &exhausted) {
		return exhausted.Attempts
	}
	var statusErr *dispatcher.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Attempts
	}
	return 0
}
