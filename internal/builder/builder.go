package builder

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/shouni/go-storyboard-kit/internal/config"
	"github.com/shouni/go-storyboard-kit/internal/runner"
	"github.com/shouni/go-storyboard-kit/pkg/dispatcher"
	"github.com/shouni/go-storyboard-kit/pkg/gemini"
	"github.com/shouni/go-storyboard-kit/pkg/generator"
	"github.com/shouni/go-storyboard-kit/pkg/parser"
	"github.com/shouni/go-storyboard-kit/pkg/project"
	"github.com/shouni/go-storyboard-kit/pkg/prompts"
	"github.com/shouni/go-storyboard-kit/pkg/publisher"
	"github.com/shouni/go-storyboard-kit/pkg/storage"

	"github.com/shouni/go-http-kit/httpkit"
)

// BuildAppContext は、設定から Dispatcher、Composer、保存先をまとめて初期化するのだ。
func BuildAppContext(ctx context.Context, cfg *config.Config) (*AppContext, error) {
	mode, err := gemini.ParseMode(cfg.Options.Mode)
	if err != nil {
		return nil, err
	}

	httpClient := NewHTTPClient(cfg)
	composer, err := InitializeComposer(httpClient, cfg)
	if err != nil {
		return nil, err
	}

	store, folders, err := initializeStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	repo := project.NewRepository(store, folders, cfg.Storage.Root)
	appCtx := NewAppContext(cfg, httpClient, mode, composer, store, folders, repo)
	return &appCtx, nil
}

// BuildStorageContext は、保存先だけを初期化した AppContext を返すのだ。
// AIを呼ばない操作（一覧、編集、削除）はAPIキーなしで実行できるのだ。
func BuildStorageContext(ctx context.Context, cfg *config.Config) (*AppContext, error) {
	store, folders, err := initializeStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	repo := project.NewRepository(store, folders, cfg.Storage.Root)
	appCtx := NewAppContext(cfg, nil, gemini.ModeImage, nil, store, folders, repo)
	return &appCtx, nil
}

func initializeStore(ctx context.Context, cfg *config.Config) (storage.Store, *storage.FolderResolver, error) {
	store, err := BuildStore(ctx, cfg.Storage)
	if err != nil {
		return nil, nil, err
	}
	// フォルダIDはプロセス内でキャッシュして、同じフォルダの重複作成を防ぐのだ
	return store, storage.NewFolderResolver(store, nil), nil
}

// NewHTTPClient は、Gemini API 用の httpkit クライアントを生成するのだ。
// ベースURLを既定から変えた場合（ローカルのプロキシやテストサーバー）だけネットワーク検証を外すのだ。
func NewHTTPClient(cfg *config.Config) *httpkit.Client {
	var opts []httpkit.ClientOption
	if cfg.BaseURL != "" && cfg.BaseURL != gemini.DefaultBaseURL {
		opts = append(opts, httpkit.WithSkipNetworkValidation(true))
	}
	return httpkit.New(cfg.HTTPTimeout, opts...)
}

// InitializeComposer は、APIキーをローテーションする Dispatcher を組み込んだ Composer を初期化するのだ。
func InitializeComposer(httpClient httpkit.Doer, cfg *config.Config) (*generator.StoryboardComposer, error) {
	policy, err := dispatcher.ParseErrorPolicy(cfg.ErrorPolicy)
	if err != nil {
		return nil, err
	}
	d, err := dispatcher.New(httpClient, cfg.APIKeys, dispatcher.Options{
		Policy:              policy,
		RotateOnUnavailable: cfg.RotateOnUnavailable,
	})
	if err != nil {
		return nil, fmt.Errorf("Dispatcherの初期化に失敗したのだ: %w", err)
	}

	pb, err := prompts.NewTextPromptBuilder()
	if err != nil {
		return nil, fmt.Errorf("プロンプトビルダーの初期化に失敗したのだ: %w", err)
	}

	endpoints := gemini.Endpoints{
		BaseURL:     cfg.BaseURL,
		TextModel:   cfg.TextModel,
		ImageModel:  cfg.ImageModel,
		ImagenModel: cfg.ImagenModel,
	}
	composer := generator.NewStoryboardComposer(d, endpoints, pb, generator.NewBatchLimiter(cfg.BatchInterval))
	composer.Temperature = cfg.Temperature

	slog.Debug("Composerを初期化したのだ", "keys", d.KeyCount(), "policy", cfg.ErrorPolicy, "text_model", cfg.TextModel)
	return composer, nil
}

// BuildStore は、設定されたバックエンドの保存先を構築するのだ。
func BuildStore(ctx context.Context, sc config.StorageConfig) (storage.Store, error) {
	var (
		store storage.Store
		err   error
	)
	switch sc.Backend {
	case config.StorageLocal, "":
		store, err = storage.NewLocalStore(sc.LocalDir)
	case config.StorageDrive:
		store, err = storage.NewDriveStore(ctx, sc.Drive)
	case config.StorageMinio:
		store, err = storage.NewMinioStore(ctx, sc.Minio)
	default:
		return nil, fmt.Errorf("不明な保存先なのだ: '%s' (local|drive|minio)", sc.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("保存先 %s の初期化に失敗したのだ: %w", sc.Backend, err)
	}
	slog.Debug("保存先を初期化したのだ", "backend", sc.Backend, "root", sc.Root)
	return store, nil
}

// BuildScriptRunner は台本解析を担当する Runner を構築するのだ。
func BuildScriptRunner(appCtx *AppContext, stdin io.Reader) runner.ScriptRunner {
	return runner.NewStoryboardScriptRunner(appCtx.Composer, stdin)
}

// BuildCharacterRunner はキャラクターの強化とプレビューを担当する Runner を構築するのだ。
func BuildCharacterRunner(appCtx *AppContext) *runner.CharacterRunner {
	return runner.NewCharacterRunner(appCtx.Composer, appCtx.Mode)
}

// BuildImageRunner はシーン画像の生成を担当する Runner を構築するのだ。
func BuildImageRunner(appCtx *AppContext) runner.ImageRunner {
	return runner.NewSceneImageRunner(appCtx.Composer, appCtx.Mode)
}

// BuildImportRunner は書き出した絵コンテの取り込みを担当する Runner を構築するのだ。
func BuildImportRunner() *runner.MarkdownImportRunner {
	return runner.NewMarkdownImportRunner(parser.NewMarkdownParser())
}

// BuildStoryboardPublisher は絵コンテの書き出しを担当するパブリッシャーを構築するのだ。
// remote が true なら保存先（Drive、MinIO）に、false ならローカルに書き出すのだ。
func BuildStoryboardPublisher(appCtx *AppContext, remote bool) *publisher.StoryboardPublisher {
	var w publisher.OutputWriter = publisher.NewLocalWriter()
	if remote {
		w = publisher.NewStoreWriter(appCtx.Store, appCtx.Folders)
	}
	return publisher.NewStoryboardPublisher(w)
}

// BuildPublisherRunner はプロジェクトの保存と読み込みを担当する Runner を構築するのだ。
func BuildPublisherRunner(appCtx *AppContext) runner.PublisherRunner {
	return runner.NewProjectPublisherRunner(appCtx.Repository)
}
