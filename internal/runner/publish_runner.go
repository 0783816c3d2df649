package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shouni/go-storyboard-kit/pkg/project"
	"github.com/shouni/go-storyboard-kit/pkg/session"
	"github.com/shouni/go-storyboard-kit/pkg/storage"
)

// PublisherRunner は、セッションの内容をプロジェクトとして永続化するためのインターフェースなのだ。
type PublisherRunner interface {
	// Open は保存済みのプロジェクトからセッションを再開するのだ。なければ新しいセッションを作るのだ。
	Open(ctx context.Context, name string) (*session.Session, error)
	// Publish はセッションのプロジェクトと生成画像を保存するのだ。
	Publish(ctx context.Context, s *session.Session) error
}

// ProjectPublisherRunner は、project.Repository を使って保存と読み込みを行う実体なのだ。
type ProjectPublisherRunner struct {
	repo *project.Repository
}

// NewProjectPublisherRunner は、ProjectPublisherRunner の新しいインスタンスを生成して返すのだ。
func NewProjectPublisherRunner(repo *project.Repository) *ProjectPublisherRunner {
	return &ProjectPublisherRunner{repo: repo}
}

func (pr *ProjectPublisherRunner) Open(ctx context.Context, name string) (*session.Session, error) {
	p, images, err := pr.repo.Load(ctx, name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) && p == nil {
			slog.InfoContext(ctx, "新しいプロジェクトを作成するのだ", "project", name)
			return session.New(name), nil
		}
		if p == nil {
			return nil, fmt.Errorf("プロジェクト '%s' を開けなかったのだ: %w", name, err)
		}
		// 画像の一部が読めなかっただけなら、読めた分で作業を続けるのだ
		slog.WarnContext(ctx, "一部の画像を読み込めなかったのだ", "project", name, "error", err)
	}
	return session.FromProject(p, images), nil
}

func (pr *ProjectPublisherRunner) Publish(ctx context.Context, s *session.Session) error {
	if err := pr.repo.Save(ctx, s.Project, s.Images); err != nil {
		return fmt.Errorf("プロジェクトの保存に失敗したのだ: %w", err)
	}
	return nil
}
