package publisher

import (
	"fmt"
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// Markdown のフィールドキーです。parser パッケージと共有します。
const (
	FieldStyle       = "style"
	FieldStyleLink   = "style_link"
	FieldDescription = "description"
	FieldScript      = "script"
	FieldPrompt      = "prompt"
)

// BuildMarkdown はプロジェクトを次の形式の Markdown に変換します。
//
//	# <プロジェクト名>
//	- style: ...
//
//	## Character: [Hero]
//	- description: ...
//
//	## Scene: images/01_scene.png
//	- script: ...
//	- prompt: ...
//
// imagePaths[i] は i 番目のシーンの画像パスで、空なら画像なしとして出力します。
// フィールドの値は1行にまとめるため、改行は空白に置き換えます。
func BuildMarkdown(proj *domain.Project, imagePaths []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", proj.Name)
	writeField(&sb, FieldStyle, proj.Style)
	writeField(&sb, FieldStyleLink, proj.StyleLink)
	sb.WriteString("\n")

	for _, c := range proj.Characters {
		fmt.Fprintf(&sb, "## Character: %s\n", c.Key)
		writeField(&sb, FieldDescription, c.Description)
		sb.WriteString("\n")
	}

	for i, scene := range proj.Storyboard {
		if i < len(imagePaths) && imagePaths[i] != "" {
			fmt.Fprintf(&sb, "## Scene: %s\n", imagePaths[i])
		} else {
			sb.WriteString("## Scene\n")
		}
		writeField(&sb, FieldScript, scene.Script)
		writeField(&sb, FieldPrompt, scene.Prompt)
		sb.WriteString("\n")
	}
	return sb.String()
}

func writeField(sb *strings.Builder, key, value string) {
	value = strings.Join(strings.Fields(value), " ")
	if value == "" {
		return
	}
	fmt.Fprintf(sb, "- %s: %s\n", key, value)
}
