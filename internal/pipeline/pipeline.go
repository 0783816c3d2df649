package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/shouni/go-storyboard-kit/internal/builder"
	"github.com/shouni/go-storyboard-kit/internal/config"
	"github.com/shouni/go-storyboard-kit/internal/runner"
	"github.com/shouni/go-storyboard-kit/pkg/dispatcher"
	"github.com/shouni/go-storyboard-kit/pkg/generator"
	"github.com/shouni/go-storyboard-kit/pkg/publisher"
	"github.com/shouni/go-storyboard-kit/pkg/session"
)

const defaultExportDirName = "export"

// ErrProjectRequired はプロジェクト名が指定されていない場合に返されるのだ。
var ErrProjectRequired = errors.New("プロジェクト名を --project で指定してほしいのだ")

// ExecuteBreakdown は、スタイルと台本を解析して絵コンテとキャラクター表を作り、保存するのだ（Step 1 & 2）。
func ExecuteBreakdown(ctx context.Context, cfg *config.Config, in runner.ScriptInput, stdin io.Reader) (*session.Session, error) {
	return withSession(ctx, cfg, builder.BuildAppContext, func(appCtx *builder.AppContext, s *session.Session) error {
		scriptRunner := builder.BuildScriptRunner(appCtx, stdin)
		if err := scriptRunner.Run(ctx, s, in); err != nil {
			return fmt.Errorf("台本の解析に失敗したのだ: %w", err)
		}
		return nil
	})
}

// ExecuteEnhance は、キャラクターの説明を AI で強化して保存するのだ（Step 3）。
func ExecuteEnhance(ctx context.Context, cfg *config.Config, key string) (string, error) {
	var desc string
	_, err := withSession(ctx, cfg, builder.BuildAppContext, func(appCtx *builder.AppContext, s *session.Session) error {
		var err error
		desc, err = builder.BuildCharacterRunner(appCtx).Enhance(ctx, s, key)
		return err
	})
	return desc, err
}

// ExecutePreview は、キャラクターシートを生成して保存するのだ（Step 3）。
func ExecutePreview(ctx context.Context, cfg *config.Config, key string) (*session.Session, error) {
	return withSession(ctx, cfg, builder.BuildAppContext, func(appCtx *builder.AppContext, s *session.Session) error {
		return builder.BuildCharacterRunner(appCtx).Preview(ctx, s, key)
	})
}

// ExecuteEdit は、AIを呼ばない編集（キャラクターやシーンの追加・削除・書き換え）を適用して保存するのだ。
func ExecuteEdit(ctx context.Context, cfg *config.Config, edit func(s *session.Session) error) (*session.Session, error) {
	return withSession(ctx, cfg, builder.BuildStorageContext, func(_ *builder.AppContext, s *session.Session) error {
		return edit(s)
	})
}

// ExecuteGenerate は、scene 番目（1始まり）のシーン画像を生成して保存するのだ（Step 4）。
// remaining が true なら、そのシーン以降で画像のないシーンを順番に生成するのだ。
// 失敗したシーンは結果に含めて返し、それまでに生成できた画像は保存するのだ。
func ExecuteGenerate(ctx context.Context, cfg *config.Config, scene int, remaining bool) ([]generator.SceneResult, error) {
	appCtx, s, err := openSession(ctx, cfg, builder.BuildAppContext)
	if err != nil {
		return nil, err
	}

	imageRunner := builder.BuildImageRunner(appCtx)
	if err := selectScene(s, scene); err != nil {
		return nil, err
	}

	var (
		results []generator.SceneResult
		runErr  error
	)
	if remaining {
		results, runErr = imageRunner.RunRemaining(ctx, s)
	} else {
		var res generator.SceneResult
		res, runErr = imageRunner.RunScene(ctx, s)
		if runErr == nil || res.Err != nil {
			results = append(results, res)
		}
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		return results, runErr
	}

	if succeeded(results) > 0 {
		// キャンセルされていても、生成済みの画像は失わないように保存するのだ
		if err := builder.BuildPublisherRunner(appCtx).Publish(context.WithoutCancel(ctx), s); err != nil {
			return results, err
		}
	}
	return results, runErr
}

// ExecuteImport は、書き出した絵コンテの Markdown を取り込んで保存するのだ。AIは呼ばないのだ。
func ExecuteImport(ctx context.Context, cfg *config.Config, path string) (*session.Session, error) {
	return withSession(ctx, cfg, builder.BuildStorageContext, func(_ *builder.AppContext, s *session.Session) error {
		return builder.BuildImportRunner().Run(ctx, s, path)
	})
}

// ExecuteExport は、絵コンテを Markdown と連番のシーン画像として書き出すのだ。
// dir が空なら、ローカルは output/<プロジェクト名>、保存先は <root>/<プロジェクト名>/export に書き出すのだ。
func ExecuteExport(ctx context.Context, cfg *config.Config, dir string, remote bool) (publisher.PublishResult, error) {
	appCtx, s, err := openSession(ctx, cfg, builder.BuildStorageContext)
	if err != nil {
		return publisher.PublishResult{}, err
	}
	if s.Project.SceneCount() == 0 {
		return publisher.PublishResult{}, session.ErrNoScenes
	}
	if dir == "" {
		dir = path.Join(config.DefaultLocalDir, s.Project.Name)
		if remote {
			dir = path.Join(cfg.Storage.Root, s.Project.Name, defaultExportDirName)
		}
	}
	return builder.BuildStoryboardPublisher(appCtx, remote).Publish(ctx, s.Project, s.Images, publisher.Options{OutputDir: dir, StoreRelative: remote})
}

// ExecuteShow は、保存済みのプロジェクトを読み込んでセッションとして返すのだ。
func ExecuteShow(ctx context.Context, cfg *config.Config) (*session.Session, error) {
	_, s, err := openSession(ctx, cfg, builder.BuildStorageContext)
	return s, err
}

// ExecuteListProjects は、保存済みのプロジェクト名の一覧を返すのだ。
func ExecuteListProjects(ctx context.Context, cfg *config.Config) ([]string, error) {
	appCtx, err := builder.BuildStorageContext(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return appCtx.Repository.List(ctx)
}

// ExecuteDeleteProject は、プロジェクトを画像ごと削除するのだ。
func ExecuteDeleteProject(ctx context.Context, cfg *config.Config) error {
	name, err := projectName(cfg)
	if err != nil {
		return err
	}
	appCtx, err := builder.BuildStorageContext(ctx, cfg)
	if err != nil {
		return err
	}
	return appCtx.Repository.Delete(ctx, name)
}

// contextBuilder は AppContext の初期化方法なのだ。
type contextBuilder func(context.Context, *config.Config) (*builder.AppContext, error)

// withSession は、セッションを開いて action を実行し、成功したら保存するのだ。
func withSession(ctx context.Context, cfg *config.Config, build contextBuilder, action func(*builder.AppContext, *session.Session) error) (*session.Session, error) {
	appCtx, s, err := openSession(ctx, cfg, build)
	if err != nil {
		return nil, err
	}
	if err := action(appCtx, s); err != nil {
		return nil, err
	}
	if err := builder.BuildPublisherRunner(appCtx).Publish(ctx, s); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "プロジェクトを保存したのだ", "project", s.Project.Name, "step", s.Step, "scenes", s.Project.SceneCount())
	return s, nil
}

// openSession は AppContext を初期化して、プロジェクトからセッションを再開するのだ。
func openSession(ctx context.Context, cfg *config.Config, build contextBuilder) (*builder.AppContext, *session.Session, error) {
	name, err := projectName(cfg)
	if err != nil {
		return nil, nil, err
	}
	appCtx, err := build(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	s, err := builder.BuildPublisherRunner(appCtx).Open(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	return appCtx, s, nil
}

func projectName(cfg *config.Config) (string, error) {
	name := strings.TrimSpace(cfg.Options.Project)
	if name == "" {
		return "", ErrProjectRequired
	}
	return name, nil
}

// selectScene は 1始まりのシーン番号を表示位置に反映するのだ。0 は先頭を意味するのだ。
func selectScene(s *session.Session, scene int) error {
	if scene <= 0 || s.Project.SceneCount() == 0 {
		return nil
	}
	return s.Select(scene - 1)
}

func succeeded(results []generator.SceneResult) int {
	n := 0
	for _, r := range results {
		if r.Status == dispatcher.OutcomeSuccess {
			n++
		}
	}
	return n
}
