package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-storyboard-kit/internal/pipeline"
	"github.com/shouni/go-storyboard-kit/pkg/dispatcher"

	"github.com/spf13/cobra"
)

var (
	generateScene     int
	generateRemaining bool
)

// generateCmd は、シーン画像を生成するのだ（Step 4）。
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "シーン画像を生成するのだ。",
	Long: `指定したシーンの画像を生成（再生成）するのだ。--remaining を付けると、
そのシーン以降で画像のないシーンを一定間隔で順番に生成するのだ。
前のシーンの画像があれば、継続性のために参照として渡すのだよ。`,
	Example: `  storyboard generate --scene 3 -p noir
  storyboard generate --remaining -p noir`,
	Args: cobra.NoArgs,
	RunE: generateCommand,
}

func init() {
	generateCmd.Flags().IntVarP(&generateScene, "scene", "n", 1, "生成するシーンの番号（1始まり）なのだ。")
	generateCmd.Flags().BoolVarP(&generateRemaining, "remaining", "r", false, "指定したシーン以降の未生成のシーンをすべて生成するのだ。")
}

func generateCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	slog.Info("シーン画像の生成を開始するのだ！",
		"project", cfg.Options.Project,
		"mode", cfg.Options.Mode,
		"scene", generateScene,
		"remaining", generateRemaining,
		"keys", len(cfg.APIKeys))

	results, err := pipeline.ExecuteGenerate(ctx, cfg, generateScene, generateRemaining)
	out := cmd.OutOrStdout()
	failed := 0
	for _, r := range results {
		icon := "✅"
		if r.Status != dispatcher.OutcomeSuccess {
			icon = "❌"
			failed++
		}
		fmt.Fprintf(out, "%s %s (試行 %d 回)\n", icon, r.Message(), r.Attempts)
	}
	if err != nil {
		return fmt.Errorf("画像生成中にエラーが発生したのだ: %w", err)
	}
	if len(results) == 0 {
		fmt.Fprintln(out, "生成が必要なシーンはなかったのだ。")
	}
	if failed > 0 {
		return fmt.Errorf("%d シーンの生成に失敗したのだ", failed)
	}
	return nil
}
