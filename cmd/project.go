package cmd

import (
	"fmt"

	"github.com/shouni/go-storyboard-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// projectCmd は、保存先のプロジェクトを管理するコマンドなのだ。
var projectCmd = &cobra.Command{
	Use:         "project",
	Short:       "保存済みのプロジェクトを管理するのだ。",
	Annotations: offline,
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "保存済みのプロジェクトの一覧を表示するのだ。",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := pipeline.ExecuteListProjects(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(names) == 0 {
			fmt.Fprintf(out, "%s にプロジェクトはまだないのだ。\n", cfg.Storage.Root)
			return nil
		}
		for _, name := range names {
			fmt.Fprintln(out, name)
		}
		return nil
	},
}

var projectShowCmd = &cobra.Command{
	Use:   "show",
	Short: "プロジェクトの概要を表示するのだ。",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := pipeline.ExecuteShow(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		p := s.Project
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "プロジェクト: %s\n段階: %s\n", p.Name, s.Step)
		fmt.Fprintf(out, "スタイル: %s\n", p.Style)
		if p.StyleLink != "" {
			fmt.Fprintf(out, "参考URL: %s\n", p.StyleLink)
		}
		fmt.Fprintf(out, "スタイル参照画像: %d 枚\nキャラクター: %d 人\n", len(p.StyleImages), len(p.Characters))
		fmt.Fprintf(out, "シーン: %d（画像 %d 枚）\n", p.SceneCount(), s.Images.Len())
		return nil
	},
}

var projectDeleteForce bool

var projectDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "プロジェクトを画像ごと削除するのだ。",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !projectDeleteForce {
			return fmt.Errorf("元に戻せないので --force を付けて実行してほしいのだ")
		}
		if err := pipeline.ExecuteDeleteProject(cmd.Context(), cfg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "🗑 %s を削除したのだ。\n", cfg.Options.Project)
		return nil
	},
}

var (
	exportDir    string
	exportRemote bool
)

var projectExportCmd = &cobra.Command{
	Use:   "export",
	Short: "絵コンテを Markdown と連番のシーン画像として書き出すのだ。",
	Long: `絵コンテを storyboard.md と images/01_scene.png のような連番の画像として書き出すのだ。
--remote を付けると、ローカルではなく設定された保存先（Drive、MinIO）に書き出すのだ。`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := pipeline.ExecuteExport(cmd.Context(), cfg, exportDir, exportRemote)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "📁 %s と %d 枚の画像を書き出したのだ。\n", res.MarkdownPath, len(res.ImagePaths))
		return nil
	},
}

var projectImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "書き出した storyboard.md を取り込むのだ。絵コンテとキャラクター表は置き換わるのだ。",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := pipeline.ExecuteImport(cmd.Context(), cfg, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "📥 %d シーン（画像 %d 枚）を取り込んだのだ。\n", s.Project.SceneCount(), s.Images.Len())
		return nil
	},
}

func init() {
	projectDeleteCmd.Flags().BoolVar(&projectDeleteForce, "force", false, "確認なしで削除するのだ。")
	projectExportCmd.Flags().StringVarP(&exportDir, "output-dir", "o", "", "書き出し先のディレクトリなのだ。省略時は output/<プロジェクト名> なのだ。")
	projectExportCmd.Flags().BoolVar(&exportRemote, "remote", false, "設定された保存先に書き出すのだ。")
	projectCmd.AddCommand(
		projectListCmd,
		projectShowCmd,
		projectDeleteCmd,
		projectExportCmd,
		projectImportCmd,
	)
}
