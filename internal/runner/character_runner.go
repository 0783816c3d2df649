package runner

import (
	"context"
	"log/slog"

	"github.com/shouni/go-storyboard-kit/pkg/gemini"
	"github.com/shouni/go-storyboard-kit/pkg/generator"
	"github.com/shouni/go-storyboard-kit/pkg/session"
)

// CharacterRunner は、キャラクターの説明の強化とプレビュー生成を行う実体なのだ。
type CharacterRunner struct {
	composer *generator.StoryboardComposer
	mode     gemini.Mode
}

// NewCharacterRunner は、CharacterRunner の新しいインスタンスを生成して返すのだ。
func NewCharacterRunner(composer *generator.StoryboardComposer, mode gemini.Mode) *CharacterRunner {
	return &CharacterRunner{composer: composer, mode: mode}
}

// Enhance は、キャラクターの説明を AI に書き直させてセッションに反映するのだ。
func (cr *CharacterRunner) Enhance(ctx context.Context, s *session.Session, key string) (string, error) {
	c, err := s.Character(key)
	if err != nil {
		return "", err
	}
	desc, err := cr.composer.EnhanceCharacter(ctx, s.Project.Style, *c)
	if err != nil {
		return "", err
	}
	if err := s.SetDescription(c.Key, desc); err != nil {
		return "", err
	}
	slog.InfoContext(ctx, "キャラクターの説明を強化したのだ", "key", c.Key)
	return desc, nil
}

// Preview は、キャラクターシートを生成してキャラクターに保存するのだ。
func (cr *CharacterRunner) Preview(ctx context.Context, s *session.Session, key string) error {
	c, err := s.Character(key)
	if err != nil {
		return err
	}
	if err := cr.composer.PreviewCharacter(ctx, cr.mode, s.Project.Style, s.Project.StyleImages, c); err != nil {
		return err
	}
	slog.InfoContext(ctx, "キャラクターのプレビューを生成したのだ", "key", c.Key)
	return nil
}
