package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/shouni/go-storyboard-kit/internal/config"

	"github.com/spf13/cobra"
)

const appName = "storyboard"

var (
	opts config.GenerateOptions
	cfg  *config.Config
)

// rootCmd は、すべてのサブコマンドの親になるコマンドなのだ。
var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "AIと一緒にスタイル、台本、キャラクター、絵コンテの4段階で絵コンテを作るのだ。",
	Long: `台本を Gemini で絵コンテ（シーンとキャラクター表）に分解し、
前のシーンの画像を引き継ぎながらシーン画像を1枚ずつ生成するのだ。
複数のAPIキーを順番に使うので、レート制限に当たっても次のキーで続行できるのだ。`,
	SilenceUsage:      true,
	PersistentPreRunE: preRunAppE,
}

// addAppFlags は、アプリケーション全般に適用されるグローバルフラグを定義するのだ。
func addAppFlags(rootCmd *cobra.Command) {
	rootCmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "設定ファイル（YAML）のパスなのだ。省略時は STORYBOARD_CONFIG か ./storyboard.yaml を探すのだ。")
	rootCmd.PersistentFlags().StringVarP(&opts.Project, "project", "p", "", "作業するプロジェクト名なのだ。")
	rootCmd.PersistentFlags().StringVarP(&opts.Mode, "mode", "m", config.DefaultMode, "画像生成モードなのだ（image: 参照画像を使う / imagen: テキストのみ）。")
	rootCmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "デバッグログを出力するのだ。")
}

// preRunAppE は、設定を読み込んで必須チェックを行うのだ。
// offline アノテーションの付いたコマンドは APIキーなしでも実行できるのだ。
func preRunAppE(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	loaded, err := config.LoadConfig(opts.ConfigFile)
	if err != nil {
		return err
	}
	loaded.Options = opts

	if isOffline(cmd) {
		err = loaded.ValidateStorage()
	} else {
		err = loaded.Validate()
	}
	if err != nil {
		return err
	}
	cfg = loaded
	return nil
}

func isOffline(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations["offline"] == "true" {
			return true
		}
	}
	return false
}

var offline = map[string]string{"offline": "true"}

// Execute は、アプリケーションのメインエントリポイントなのだ。
// main.go から呼び出されて、cobra のコマンドライン解析を開始するのだよ。
func Execute() {
	addAppFlags(rootCmd)
	rootCmd.AddCommand(
		breakdownCmd,
		characterCmd,
		sceneCmd,
		generateCmd,
		projectCmd,
	)

	// Ctrl+C で生成中の呼び出しを中断し、それまでの画像は保存するのだ
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, config.ErrNoAPIKeys) {
			fmt.Fprintln(os.Stderr, "💡 GEMINI_API_KEYS=key1,key2 のように複数のキーを指定できるのだ。")
		}
		stop()
		os.Exit(1)
	}
}
