package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/asset"
	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/generator"
	"github.com/shouni/go-storyboard-kit/pkg/session"
)

// ScriptInput は台本解析の入力なのだ。空の項目はセッションの現在の値を維持するのだ。
type ScriptInput struct {
	Style        string
	StyleLink    string
	StyleImages  []string // スタイル参照画像のファイルパス
	ScriptFile   string   // '-' で標準入力なのだ
	Instructions string
}

// ScriptRunner は、スタイルと台本から絵コンテとキャラクター表を作るためのインターフェースなのだ。
type ScriptRunner interface {
	Run(ctx context.Context, s *session.Session, in ScriptInput) error
}

// StoryboardScriptRunner は、台本を読み込んで Gemini に解析させ、セッションに反映する実体なのだ。
type StoryboardScriptRunner struct {
	composer *generator.StoryboardComposer
	stdin    io.Reader
}

// NewStoryboardScriptRunner は、StoryboardScriptRunner の新しいインスタンスを生成して返すのだ。
func NewStoryboardScriptRunner(composer *generator.StoryboardComposer, stdin io.Reader) *StoryboardScriptRunner {
	if stdin == nil {
		stdin = os.Stdin
	}
	return &StoryboardScriptRunner{composer: composer, stdin: stdin}
}

// Run は、スタイルの確定、台本の読み込み、AIによる解析、セッションへの反映を一気に行うのだ。
// 成功するとセッションはキャラクター確認の段階に進むのだ。
func (sr *StoryboardScriptRunner) Run(ctx context.Context, s *session.Session, in ScriptInput) error {
	p := s.Project

	// 1. スタイルを反映して、スタイル段階を抜けるのだ
	if in.Style != "" {
		p.Style = in.Style
	}
	if in.StyleLink != "" {
		p.StyleLink = in.StyleLink
	}
	if len(in.StyleImages) > 0 {
		refs, err := readImages(in.StyleImages)
		if err != nil {
			return err
		}
		p.StyleImages = refs
	}
	s.Step = session.StepStyle
	if err := s.Advance(); err != nil {
		return err
	}

	// 2. 台本を読み込むのだ（指定がなければ前回の台本を使い回すのだ）
	if in.ScriptFile != "" {
		script, err := sr.readScript(in.ScriptFile)
		if err != nil {
			return err
		}
		p.Script = script
	}
	if in.Instructions != "" {
		p.Instructions = in.Instructions
	}

	// 3. Gemini に台本を解析させるのだ
	slog.InfoContext(ctx, "台本の解析を開始するのだ", "project", p.Name, "style_images", len(p.StyleImages))
	b, err := sr.composer.BreakdownScript(ctx, generator.BreakdownInput{
		Style:        p.Style,
		StyleLink:    p.StyleLink,
		Script:       p.Script,
		Instructions: p.Instructions,
	})
	if err != nil {
		return err
	}

	// 4. 結果をセッションに反映して、キャラクター確認に進むのだ
	s.ApplyBreakdown(b)
	return s.Advance()
}

// readScript は、ファイルまたは標準入力から台本を読み込むのだ。
func (sr *StoryboardScriptRunner) readScript(path string) (string, error) {
	var r io.Reader = sr.stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("台本ファイル '%s' の読み込みに失敗しました: %w", path, err)
		}
		defer f.Close()
		r = f
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("台本の読み込みに失敗しました: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

// readImages は、参照画像ファイルを読み込んで拡張子から MimeType を決めるのだ。
func readImages(paths []string) ([]domain.ReferenceImage, error) {
	refs := make([]domain.ReferenceImage, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("参照画像 '%s' の読み込みに失敗しました: %w", path, err)
		}
		refs = append(refs, domain.ReferenceImage{MimeType: asset.MimeTypeOfExt(filepath.Ext(path)), Data: data})
	}
	return refs, nil
}
