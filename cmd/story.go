package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/shouni/go-storyboard-kit/internal/pipeline"
	"github.com/shouni/go-storyboard-kit/pkg/asset"
	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/session"

	"github.com/spf13/cobra"
)

// sceneCmd は、絵コンテのシーンを確認・編集するためのコマンドなのだ（Step 4）。
// シーン番号は 1 から数えるのだ。
var sceneCmd = &cobra.Command{
	Use:   "scene",
	Short: "絵コンテのシーンを確認・編集するのだ。",
	Example: `  storyboard scene list -p noir
  storyboard scene insert 2 -p noir
  storyboard scene prompt 3 "a close-up of the detective" -p noir`,
}

var sceneListCmd = &cobra.Command{
	Use:         "list",
	Short:       "シーンの一覧と画像の生成状況を表示するのだ。",
	Annotations: offline,
	Args:        cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := pipeline.ExecuteShow(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if s.Project.SceneCount() == 0 {
			fmt.Fprintln(out, "シーンはまだないのだ。先に breakdown を実行してほしいのだ。")
			return nil
		}
		for i, sc := range s.Project.Storyboard {
			mark := "⬜"
			if _, ok := s.Images.Get(sc.ID); ok {
				mark = "✅"
			}
			fmt.Fprintf(out, "%s %2d. %s\n", mark, i+1, sc.Prompt)
		}
		return nil
	},
}

var sceneShowCmd = &cobra.Command{
	Use:         "show N",
	Short:       "シーンの台本とプロンプトを表示するのだ。",
	Annotations: offline,
	Args:        cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := pipeline.ExecuteShow(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		if err := selectArg(s, args[0]); err != nil {
			return err
		}
		sc, err := s.CurrentScene()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, s.Position())
		fmt.Fprintf(out, "台本: %s\nプロンプト: %s\n参照画像: %d 枚\n", sc.Script, sc.Prompt, len(sc.Refs))
		if _, ok := s.CurrentImage(); ok {
			fmt.Fprintln(out, "画像: 生成済み")
		}
		return nil
	},
}

var sceneInsertCmd = &cobra.Command{
	Use:         "insert N",
	Short:       "N 番目のシーンの直後に新しいシーンを追加するのだ（0 で先頭なのだ）。",
	Annotations: offline,
	Args:        cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := pipeline.ExecuteEdit(cmd.Context(), cfg, func(s *session.Session) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("シーン番号が不正なのだ: %q", args[0])
			}
			if n == 0 {
				_, err = s.Project.InsertScene(0, "", domain.DefaultNewScenePrompt)
				return err
			}
			if err := s.Select(n - 1); err != nil {
				return err
			}
			_, err = s.InsertScene()
			return err
		})
		return err
	},
}

var sceneRemoveCmd = &cobra.Command{
	Use:         "remove N",
	Short:       "シーンとその画像を削除するのだ。",
	Annotations: offline,
	Args:        cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := pipeline.ExecuteEdit(cmd.Context(), cfg, func(s *session.Session) error {
			if err := selectArg(s, args[0]); err != nil {
				return err
			}
			_, err := s.RemoveScene()
			return err
		})
		return err
	},
}

var scenePromptCmd = &cobra.Command{
	Use:         "prompt N TEXT",
	Short:       "シーンの画像プロンプトを書き換えるのだ。",
	Annotations: offline,
	Args:        cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := pipeline.ExecuteEdit(cmd.Context(), cfg, func(s *session.Session) error {
			if err := selectArg(s, args[0]); err != nil {
				return err
			}
			return s.SetPrompt(args[1])
		})
		return err
	},
}

var sceneRefCmd = &cobra.Command{
	Use:         "ref N FILE...",
	Short:       "このシーンだけに使う参照画像を追加するのだ。",
	Annotations: offline,
	Args:        cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		refs := make([]domain.ReferenceImage, 0, len(args)-1)
		for _, path := range args[1:] {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("参照画像 '%s' の読み込みに失敗したのだ: %w", path, err)
			}
			refs = append(refs, domain.ReferenceImage{MimeType: asset.MimeTypeOfExt(filepath.Ext(path)), Data: data})
		}
		_, err := pipeline.ExecuteEdit(cmd.Context(), cfg, func(s *session.Session) error {
			if err := selectArg(s, args[0]); err != nil {
				return err
			}
			for _, ref := range refs {
				if err := s.AddSceneRef(ref); err != nil {
					return err
				}
			}
			return nil
		})
		return err
	},
}

func init() {
	sceneCmd.AddCommand(
		sceneListCmd,
		sceneShowCmd,
		sceneInsertCmd,
		sceneRemoveCmd,
		scenePromptCmd,
		sceneRefCmd,
	)
}

// selectArg は 1始まりのシーン番号の引数で表示位置を選ぶのだ。
func selectArg(s *session.Session, arg string) error {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return fmt.Errorf("シーン番号が不正なのだ: %q", arg)
	}
	return s.Select(n - 1)
}
