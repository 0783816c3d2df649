package builder

import (
	"github.com/shouni/go-storyboard-kit/internal/config"
	"github.com/shouni/go-storyboard-kit/pkg/gemini"
	"github.com/shouni/go-storyboard-kit/pkg/generator"
	"github.com/shouni/go-storyboard-kit/pkg/project"
	"github.com/shouni/go-storyboard-kit/pkg/storage"

	"github.com/shouni/go-http-kit/httpkit"
)

// AppContext は、アプリケーション実行に必要な共通コンテキストを保持するのだ。
// これを各Build関数に渡すことで、依存関係の注入を簡素化するのだ。
type AppContext struct {
	Config     *config.Config                // Config は設定ファイルと環境変数から読み込まれた設定なのだ（APIキー、モデル、保存先）。
	Options    config.GenerateOptions        // Options はコマンドラインから渡された実行時の設定なのだ。
	Mode       gemini.Mode                   // Mode は画像生成に使うモードなのだ。
	Composer   *generator.StoryboardComposer // Composer は Gemini の呼び出しと絵コンテの状態を結びつけるのだ。
	Store      storage.Store                 // Store はプロジェクトの保存先なのだ。
	Folders    *storage.FolderResolver       // Folders は保存先のフォルダIDを解決・キャッシュするのだ。
	Repository *project.Repository           // Repository はプロジェクトの保存と読み込みを担うのだ。
	httpClient *httpkit.Client               // httpClient は Gemini API との通信に使う共通クライアントなのだ。
}

// NewAppContext は AppContext の新しいインスタンスを生成するのだ。
func NewAppContext(
	cfg *config.Config,
	httpClient *httpkit.Client,
	mode gemini.Mode,
	composer *generator.StoryboardComposer,
	store storage.Store,
	folders *storage.FolderResolver,
	repo *project.Repository,
) AppContext {
	return AppContext{
		Config:     cfg,
		Options:    cfg.Options,
		Mode:       mode,
		Composer:   composer,
		Store:      store,
		Folders:    folders,
		Repository: repo,
		httpClient: httpClient,
	}
}
