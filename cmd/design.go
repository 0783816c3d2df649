package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/shouni/go-storyboard-kit/internal/pipeline"
	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/session"

	"github.com/spf13/cobra"
)

// characterCmd は、台本解析で作られたキャラクター表を確認・修正するためのコマンドなのだ（Step 3）。
var characterCmd = &cobra.Command{
	Use:     "character",
	Aliases: []string{"chars"},
	Short:   "キャラクター表の確認と修正を行うのだ。",
}

var characterListCmd = &cobra.Command{
	Use:         "list",
	Short:       "キャラクターの一覧を表示するのだ。",
	Annotations: offline,
	Args:        cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := pipeline.ExecuteShow(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(s.Project.Characters) == 0 {
			fmt.Fprintln(out, "キャラクターはまだいないのだ。")
			return nil
		}
		for _, c := range s.Project.Characters {
			mark := "  "
			if c.Preview != nil {
				mark = "🖼 "
			}
			fmt.Fprintf(out, "%s%s\n", mark, c)
		}
		return nil
	},
}

var characterAddCmd = &cobra.Command{
	Use:         "add KEY DESCRIPTION",
	Short:       "キャラクターを追加するのだ。",
	Annotations: offline,
	Args:        cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := pipeline.ExecuteEdit(cmd.Context(), cfg, func(s *session.Session) error {
			return s.AddCharacter(bracketKey(args[0]), args[1])
		})
		return err
	},
}

var characterSetCmd = &cobra.Command{
	Use:         "set KEY DESCRIPTION",
	Short:       "キャラクターの説明を書き換えるのだ。プレビューは破棄されるのだ。",
	Annotations: offline,
	Args:        cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := pipeline.ExecuteEdit(cmd.Context(), cfg, func(s *session.Session) error {
			return s.SetDescription(args[0], args[1])
		})
		return err
	},
}

var characterRemoveCmd = &cobra.Command{
	Use:         "remove KEY",
	Short:       "キャラクターを削除するのだ。",
	Annotations: offline,
	Args:        cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := pipeline.ExecuteEdit(cmd.Context(), cfg, func(s *session.Session) error {
			return s.RemoveCharacter(args[0])
		})
		return err
	},
}

var characterImportCmd = &cobra.Command{
	Use:         "import FILE",
	Short:       "JSONファイルのキャラクターを追加するのだ。同じキーは説明を上書きするのだ。",
	Annotations: offline,
	Args:        cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("キャラクターファイルの読み込みに失敗したのだ: %w", err)
		}
		chars, err := domain.ParseCharacters(data)
		if err != nil {
			return err
		}
		_, err = pipeline.ExecuteEdit(cmd.Context(), cfg, func(s *session.Session) error {
			for _, c := range chars {
				if _, err := s.Character(c.Key); err == nil {
					if err := s.SetDescription(c.Key, c.Description); err != nil {
						return err
					}
					continue
				}
				if err := s.AddCharacter(bracketKey(c.Key), c.Description); err != nil {
					return err
				}
			}
			return nil
		})
		if err == nil {
			slog.Info("キャラクターを取り込んだのだ", "count", len(chars))
		}
		return err
	},
}

var characterEnhanceCmd = &cobra.Command{
	Use:   "enhance KEY",
	Short: "キャラクターの説明を AI でより詳しく書き直すのだ。",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		desc, err := pipeline.ExecuteEnhance(cmd.Context(), cfg, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✨ %s: %s\n", args[0], desc)
		return nil
	},
}

var previewOutputDir string

var characterPreviewCmd = &cobra.Command{
	Use:   "preview KEY",
	Short: "キャラクターシートを生成するのだ。",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := pipeline.ExecutePreview(cmd.Context(), cfg, args[0])
		if err != nil {
			return err
		}
		c, err := s.Character(args[0])
		if err != nil {
			return err
		}
		if previewOutputDir == "" || c.Preview == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "🎨 %s のプレビューを保存したのだ。\n", c.Key)
			return nil
		}

		name := "character_" + strings.ToLower(strings.Trim(c.Key, "[]"))
		path, err := writeImage(previewOutputDir, name, *c.Preview)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "🎨 %s のプレビュー: %s\n", c.Key, path)
		return nil
	},
}

func init() {
	characterPreviewCmd.Flags().StringVarP(&previewOutputDir, "output-dir", "o", "", "プレビュー画像をローカルにも書き出すディレクトリなのだ。")
	characterCmd.AddCommand(
		characterListCmd,
		characterAddCmd,
		characterSetCmd,
		characterRemoveCmd,
		characterImportCmd,
		characterEnhanceCmd,
		characterPreviewCmd,
	)
}

// bracketKey は "Batman" を "[Batman]" の形にそろえるのだ。
func bracketKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" || strings.HasPrefix(key, "[") {
		return key
	}
	return "[" + key + "]"
}

// writeImage は画像を dir/<base><拡張子> に書き出すのだ。
func writeImage(dir, base string, img domain.Image) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("出力ディレクトリの作成に失敗したのだ: %w", err)
	}
	path := filepath.Join(dir, base+img.Extension())
	if err := os.WriteFile(path, img.Data, 0o644); err != nil {
		slog.Error("Failed to save image", "path", path, "error", err)
		return "", fmt.Errorf("画像の保存に失敗したのだ: %w", err)
	}
	return path, nil
}
