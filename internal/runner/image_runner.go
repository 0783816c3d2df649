package runner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/go-storyboard-kit/pkg/dispatcher"
	"github.com/shouni/go-storyboard-kit/pkg/gemini"
	"github.com/shouni/go-storyboard-kit/pkg/generator"
	"github.com/shouni/go-storyboard-kit/pkg/session"
)

// ImageRunner は、絵コンテのシーン画像を生成するためのインターフェースなのだ。
type ImageRunner interface {
	// RunScene は表示中のシーンだけを生成（再生成）するのだ。
	RunScene(ctx context.Context, s *session.Session) (generator.SceneResult, error)
	// RunRemaining は表示中のシーン以降で画像のないシーンを順番に生成するのだ。
	RunRemaining(ctx context.Context, s *session.Session) ([]generator.SceneResult, error)
}

// SceneImageRunner は、前のシーンの画像を引き継ぎながらシーン画像を生成する実体なのだ。
type SceneImageRunner struct {
	composer *generator.StoryboardComposer
	mode     gemini.Mode
}

// NewSceneImageRunner は、SceneImageRunner の新しいインスタンスを生成して返すのだ。
func NewSceneImageRunner(composer *generator.StoryboardComposer, mode gemini.Mode) *SceneImageRunner {
	return &SceneImageRunner{composer: composer, mode: mode}
}

func (ir *SceneImageRunner) RunScene(ctx context.Context, s *session.Session) (generator.SceneResult, error) {
	if err := enterStoryboard(s); err != nil {
		return generator.SceneResult{}, err
	}

	slog.InfoContext(ctx, "シーン画像を生成するのだ", "position", s.Position(), "mode", ir.mode)
	res := ir.composer.GenerateScene(ctx, ir.mode, s.Project, s.Images, s.Current)
	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, nil
}

func (ir *SceneImageRunner) RunRemaining(ctx context.Context, s *session.Session) ([]generator.SceneResult, error) {
	if err := enterStoryboard(s); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "残りのシーンを一括生成するのだ", "from", s.Current+1, "total", s.Project.SceneCount(), "mode", ir.mode)
	results, err := ir.composer.GenerateRemaining(ctx, ir.mode, s.Project, s.Images, s.Current)

	generated := 0
	for _, r := range results {
		if r.Status == dispatcher.OutcomeSuccess {
			generated++
		}
	}
	slog.InfoContext(ctx, "一括生成が終わったのだ", "generated", generated, "attempted", len(results), "images", s.Images.Len())
	return results, err
}

// enterStoryboard は、キャラクター確認の段階なら絵コンテ段階へ進めるのだ。
func enterStoryboard(s *session.Session) error {
	switch s.Step {
	case session.StepStoryboard:
		return nil
	case session.StepCharacters:
		return s.Advance()
	default:
		return fmt.Errorf("%w: 先に台本を解析してほしいのだ (現在: %s)", session.ErrWrongStep, s.Step)
	}
}
