package prompts

import (
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/gemini"
)

const (
	// ContinuityInstruction は直前のシーン画像を添付した場合に末尾へ追加する指示です。
	ContinuityInstruction = "Continuity: the last attached image is the previous scene. Keep the same characters, costumes, palette and lighting so the sequence reads as one continuous storyboard."

	// SceneAspectRatio は Imagen モードで要求するアスペクト比です。
	SceneAspectRatio = "16:9"

	characterPreviewLayout = "full body, front view, neutral pose, plain background"
)

// SceneContext は1シーン分の生成リクエストを組み立てるための入力です。
type SceneContext struct {
	Style         string
	GlobalRefs    []domain.ReferenceImage
	Characters    domain.Characters
	ScenePrompt   string
	SceneRefs     []domain.ReferenceImage
	PreviousImage *domain.Image // 直前のシーンの生成画像。なければ nil
}

// BuildSceneRequest はスタイル、キャラクター表、シーンのプロンプトを1つのテキスト Part にまとめ、
// グローバル参照画像、シーン固有の参照画像、直前のシーン画像の順にバイナリ Part を添付します。
// 副作用を持たない純粋関数です。
func BuildSceneRequest(sc SceneContext) gemini.Request {
	var sections []string
	if s := strings.TrimSpace(sc.Style); s != "" {
		sections = append(sections, "Style: "+terminate(s))
	}
	if chars := CharacterTable(sc.Characters); chars != "" {
		sections = append(sections, "Characters: "+chars)
	}
	sections = append(sections, "Scene: "+terminate(strings.TrimSpace(sc.ScenePrompt)))
	if sc.PreviousImage != nil {
		sections = append(sections, ContinuityInstruction)
	}

	parts := make([]gemini.Part, 0, 1+len(sc.GlobalRefs)+len(sc.SceneRefs)+1)
	parts = append(parts, gemini.TextPart(strings.Join(sections, " ")))
	for _, ref := range sc.GlobalRefs {
		parts = append(parts, gemini.ImagePart(ref))
	}
	for _, ref := range sc.SceneRefs {
		parts = append(parts, gemini.ImagePart(ref))
	}
	if sc.PreviousImage != nil {
		parts = append(parts, gemini.ImagePart(*sc.PreviousImage))
	}

	return gemini.Request{Parts: parts, AspectRatio: SceneAspectRatio}
}

// BuildCharacterPreviewRequest はキャラクターシート生成用のリクエストを組み立てます。
// スタイル参照画像がある場合はすべて添付します。
func BuildCharacterPreviewRequest(style string, styleRefs []domain.ReferenceImage, c domain.Character) gemini.Request {
	var sb strings.Builder
	sb.WriteString("Character Sheet: ")
	sb.WriteString(c.Key)
	sb.WriteString(". ")
	sb.WriteString(terminate(strings.TrimSpace(c.Description)))
	sb.WriteString(" Layout: ")
	sb.WriteString(characterPreviewLayout)
	sb.WriteString(".")
	if s := strings.TrimSpace(style); s != "" {
		sb.WriteString(" Style: ")
		sb.WriteString(terminate(s))
	}

	parts := []gemini.Part{gemini.TextPart(sb.String())}
	for _, ref := range styleRefs {
		parts = append(parts, gemini.ImagePart(ref))
	}
	return gemini.Request{Parts: parts, AspectRatio: "1:1"}
}

// CharacterTable はキャラクター表を "<key> looks like: <description>." の形式で連結します。
// 並び順は表の順序のままです。
func CharacterTable(chars domain.Characters) string {
	entries := make([]string, 0, len(chars))
	for _, c := range chars {
		key := strings.TrimSpace(c.Key)
		desc := strings.TrimSpace(c.Description)
		if key == "" || desc == "" {
			continue
		}
		entries = append(entries, key+" looks like: "+terminate(desc))
	}
	return strings.Join(entries, " ")
}

// terminate は文末に句点がなければ "." を補います。
func terminate(s string) string {
	if s == "" {
		return s
	}
	switch s[len(s)-1] {
	case '.', '!', '?':
		return s
	}
	return s + "."
}
