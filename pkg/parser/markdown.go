package parser

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/publisher"
)

// Storyboard は Markdown から読み取った絵コンテです。
type Storyboard struct {
	Title      string
	Style      string
	StyleLink  string
	Characters domain.Characters
	Scenes     []Scene
}

// Scene は1シーン分の内容と、あれば画像ファイルのパスです。
type Scene struct {
	domain.SceneDraft
	ImagePath string
}

// Breakdown はシーンとキャラクターを台本解析の結果と同じ形で返します。
func (sb *Storyboard) Breakdown() domain.Breakdown {
	drafts := make([]domain.SceneDraft, len(sb.Scenes))
	for i, s := range sb.Scenes {
		drafts[i] = s.SceneDraft
	}
	return domain.Breakdown{Storyboard: drafts, Characters: sb.Characters}
}

// MarkdownParser は publisher.BuildMarkdown が出力する形式の Markdown を解析します。
type MarkdownParser struct{}

// NewMarkdownParser は MarkdownParser を生成します。
func NewMarkdownParser() *MarkdownParser {
	return &MarkdownParser{}
}

// Parse は Markdown テキストを解析して Storyboard に変換します。
// baseDir を指定すると、相対的な画像パスを baseDir 基準のパスに解決します。
func (p *MarkdownParser) Parse(baseDir string, input string) (*Storyboard, error) {
	sb := &Storyboard{}
	var (
		scene *Scene
		char  *domain.Character
	)

	// 前のブロックを確定して追加するヘルパー関数
	flush := func() {
		if scene != nil && hasContent(scene) {
			sb.Scenes = append(sb.Scenes, *scene)
		}
		if char != nil {
			if err := sb.Characters.Add(*char); err != nil {
				slog.Warn("キャラクターを追加できませんでした", "key", char.Key, "error", err)
			}
		}
		scene, char = nil, nil
	}

	for _, line := range strings.Split(input, "\n") {
		trimmedLine := strings.TrimSpace(line)
		if trimmedLine == "" {
			continue
		}

		if m := CharacterRegex.FindStringSubmatch(trimmedLine); m != nil {
			flush()
			char = &domain.Character{Key: strings.TrimSpace(m[1])}
			continue
		}
		if m := SceneRegex.FindStringSubmatch(trimmedLine); m != nil {
			flush()
			scene = &Scene{ImagePath: resolveFullPath(baseDir, strings.TrimSpace(m[1]))}
			continue
		}
		if m := TitleRegex.FindStringSubmatch(trimmedLine); m != nil {
			sb.Title = strings.TrimSpace(m[1])
			continue
		}

		m := FieldRegex.FindStringSubmatch(trimmedLine)
		if m == nil {
			continue
		}
		key, val := strings.ToLower(m[1]), strings.TrimSpace(m[2])
		switch {
		case scene != nil:
			switch key {
			case publisher.FieldScript:
				scene.Script = val
			case publisher.FieldPrompt:
				scene.Prompt = val
			default:
				slog.Debug("Markdown内に未知のフィールドキーが見つかりました", "key", key)
			}
		case char != nil:
			if key == publisher.FieldDescription {
				char.Description = val
			}
		default:
			switch key {
			case publisher.FieldStyle:
				sb.Style = val
			case publisher.FieldStyleLink:
				sb.StyleLink = val
			}
		}
	}
	flush()

	if len(sb.Scenes) == 0 {
		return nil, fmt.Errorf("有効なシーン情報が見つかりませんでした")
	}
	return sb, nil
}

// hasContent はシーンに有効な情報が含まれているか判定します。
func hasContent(s *Scene) bool {
	return s.ImagePath != "" || s.Script != "" || s.Prompt != ""
}
