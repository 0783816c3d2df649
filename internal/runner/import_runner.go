package runner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shouni/go-storyboard-kit/pkg/asset"
	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/parser"
	"github.com/shouni/go-storyboard-kit/pkg/session"
)

// MarkdownImportRunner は、書き出した絵コンテの Markdown をセッションに読み戻す実体なのだ。
// AIは呼ばないので、手で編集した絵コンテをそのまま取り込めるのだ。
type MarkdownImportRunner struct {
	parser *parser.MarkdownParser
}

// NewMarkdownImportRunner は、MarkdownImportRunner の新しいインスタンスを生成して返すのだ。
func NewMarkdownImportRunner(p *parser.MarkdownParser) *MarkdownImportRunner {
	if p == nil {
		p = parser.NewMarkdownParser()
	}
	return &MarkdownImportRunner{parser: p}
}

// Run は Markdown ファイルを解析して絵コンテとキャラクター表を置き換えるのだ。
// ローカルにある画像はシーン画像として取り込み、キャラクター確認の段階に進めるのだ。
func (ir *MarkdownImportRunner) Run(ctx context.Context, s *session.Session, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("絵コンテファイル '%s' の読み込みに失敗しました: %w", path, err)
	}
	sb, err := ir.parser.Parse(filepath.Dir(path), string(content))
	if err != nil {
		return fmt.Errorf("絵コンテファイル '%s' の解析に失敗しました: %w", path, err)
	}

	p := s.Project
	if sb.Style != "" {
		p.Style = sb.Style
	}
	if sb.StyleLink != "" {
		p.StyleLink = sb.StyleLink
	}
	s.ApplyBreakdown(sb.Breakdown())

	imported := 0
	for i, scene := range sb.Scenes {
		if scene.ImagePath == "" {
			continue
		}
		if parser.IsRemotePath(scene.ImagePath) {
			slog.WarnContext(ctx, "リモートの画像は取り込めないのだ", "scene", i+1, "path", scene.ImagePath)
			continue
		}
		data, err := os.ReadFile(scene.ImagePath)
		if err != nil {
			slog.WarnContext(ctx, "シーン画像を読み込めなかったのだ", "scene", i+1, "path", scene.ImagePath, "error", err)
			continue
		}
		mime := asset.MimeTypeOfExt(filepath.Ext(scene.ImagePath))
		s.Images.Put(p.Storyboard[i].ID, domain.Image{MimeType: mime, Data: data})
		imported++
	}

	s.Step = session.StepCharacters
	slog.InfoContext(ctx, "絵コンテを取り込んだのだ", "project", p.Name, "scenes", p.SceneCount(), "images", imported)
	return nil
}
