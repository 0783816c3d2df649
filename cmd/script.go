package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/shouni/go-storyboard-kit/internal/pipeline"
	"github.com/shouni/go-storyboard-kit/internal/runner"

	"github.com/spf13/cobra"
)

var scriptInput runner.ScriptInput

// breakdownCmd は、スタイルを決めて台本を絵コンテに分解するのだ（Step 1 & 2）。
var breakdownCmd = &cobra.Command{
	Use:   "breakdown",
	Short: "スタイルと台本から絵コンテとキャラクター表を作るのだ。",
	Long: `スタイルの説明と台本を Gemini に渡して、シーンごとの台本と画像プロンプト、
登場キャラクターの外見の説明を作るのだ。やり直すと生成済みの画像は破棄されるのだよ。`,
	RunE: breakdownCommand,
}

func init() {
	f := breakdownCmd.Flags()
	f.StringVarP(&scriptInput.Style, "style", "s", "", "絵のスタイルの説明なのだ。省略時は前回のスタイルを使うのだ。")
	f.StringVar(&scriptInput.StyleLink, "style-link", "", "スタイルの参考になるURLなのだ。")
	f.StringSliceVar(&scriptInput.StyleImages, "style-image", nil, "スタイル参照画像のパスなのだ（複数指定可）。")
	f.StringVarP(&scriptInput.ScriptFile, "script-file", "f", "", "台本ファイルのパスなのだ（'-'で標準入力なのだ）。")
	f.StringVarP(&scriptInput.Instructions, "instructions", "i", "", "台本の解析に対する追加の指示なのだ。")
}

func breakdownCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	in := scriptInput
	if in.ScriptFile == "" && isStdin() {
		in.ScriptFile = "-"
	}

	slog.Info("台本解析モードを起動するのだ！", "project", cfg.Options.Project, "text_model", cfg.TextModel)
	s, err := pipeline.ExecuteBreakdown(ctx, cfg, in, os.Stdin)
	if err != nil {
		return fmt.Errorf("台本解析中にエラーが発生したのだ: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "🎬 %d シーンの絵コンテができたのだ。\n", s.Project.SceneCount())
	for i, sc := range s.Project.Storyboard {
		fmt.Fprintf(out, "  %2d. %s\n", i+1, sc.Prompt)
	}
	fmt.Fprintf(out, "👥 キャラクター: %d 人\n", len(s.Project.Characters))
	for _, c := range s.Project.Characters {
		fmt.Fprintf(out, "  %s\n", c)
	}
	return nil
}

func isStdin() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}
