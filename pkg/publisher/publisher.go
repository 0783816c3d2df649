package publisher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

const (
	// DefaultMarkdownName は書き出す絵コンテの Markdown のファイル名です。
	DefaultMarkdownName = "storyboard.md"
	// DefaultImageDirName はシーン画像を書き出すサブディレクトリ名です。
	DefaultImageDirName = "images"

	mimeTypeMarkdown = "text/markdown; charset=utf-8"
)

// OutputWriter はデータを外部ストレージに保存するためのインターフェースです。
type OutputWriter interface {
	Write(ctx context.Context, path string, r io.Reader, mimeType string) error
}

// Options はパブリッシュ動作を制御する設定項目です。
type Options struct {
	OutputDir string
	// StoreRelative が true の場合、OutputDir を storage.Store 内の '/' 区切りのパスとして扱います。
	StoreRelative bool
}

// PublishResult はパブリッシュ処理の結果として生成されたファイルの情報を保持します。
type PublishResult struct {
	MarkdownPath string   // 生成された storyboard.md のパス
	ImagePaths   []string // 保存されたシーン画像のパス（絵コンテの順）
}

// StoryboardPublisher は絵コンテを Markdown と連番のシーン画像として書き出します。
// 書き出した Markdown は parser.MarkdownParser で読み戻せます。
type StoryboardPublisher struct {
	writer OutputWriter
}

// NewStoryboardPublisher は StoryboardPublisher を生成します。
func NewStoryboardPublisher(writer OutputWriter) *StoryboardPublisher {
	return &StoryboardPublisher{writer: writer}
}

// Publish は画像の保存と Markdown の構築を一括して実行し、生成されたファイル情報を返します。
// 画像のないシーンは Markdown にだけ出力されます。
func (p *StoryboardPublisher) Publish(ctx context.Context, proj *domain.Project, images *domain.ImageStore, opts Options) (PublishResult, error) {
	resolve := ResolveOutputPath
	if opts.StoreRelative {
		resolve = storePath
	}

	var result PublishResult
	mdPath, err := resolve(opts.OutputDir, DefaultMarkdownName)
	if err != nil {
		return result, fmt.Errorf("出力パスの解決に失敗しました: %w", err)
	}
	result.MarkdownPath = mdPath

	// 1. 画像の保存（Markdown にはサブディレクトリからの相対パスを書きます）
	relPaths := make([]string, proj.SceneCount())
	for i, scene := range proj.Storyboard {
		img, ok := images.Get(scene.ID)
		if !ok {
			continue
		}
		name := ExportImageName(i, img)
		fullPath, err := resolve(opts.OutputDir, path.Join(DefaultImageDirName, name))
		if err != nil {
			return result, fmt.Errorf("画像の出力パスの解決に失敗しました: %w", err)
		}
		if err := p.writer.Write(ctx, fullPath, bytes.NewReader(img.Data), img.MimeType); err != nil {
			return result, fmt.Errorf("画像の書き込みに失敗しました %s: %w", fullPath, err)
		}
		relPaths[i] = path.Join(DefaultImageDirName, name)
		result.ImagePaths = append(result.ImagePaths, fullPath)
	}

	// 2. Markdown の書き出し
	content := BuildMarkdown(proj, relPaths)
	if err := p.writer.Write(ctx, result.MarkdownPath, strings.NewReader(content), mimeTypeMarkdown); err != nil {
		return result, fmt.Errorf("markdownファイルの書き込みに失敗しました: %w", err)
	}

	slog.InfoContext(ctx, "絵コンテを書き出しました", "project", proj.Name, "markdown", result.MarkdownPath, "images", len(result.ImagePaths))
	return result, nil
}
