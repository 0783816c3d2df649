package parser

import "regexp"

var (
	// TitleRegex は "# タイトル" 形式のタイトル行をキャプチャします。
	TitleRegex = regexp.MustCompile(`^#\s+(.+)`)

	// SceneRegex は "## Scene" で始まるシーン区切り行を特定し、画像パスがあればキャプチャします。
	SceneRegex = regexp.MustCompile(`^##\s+Scene(?:\s*:\s*(\S.*))?$`)

	// CharacterRegex は "## Character: [Key]" 形式のキャラクター区切り行をキャプチャします。
	CharacterRegex = regexp.MustCompile(`^##\s+Character\s*:\s*(\S.*)$`)

	// FieldRegex は "- key: value" 形式のフィールド行をキャプチャします。
	FieldRegex = regexp.MustCompile(`^\s*-\s*([a-zA-Z_]+):\s*(.+)`)
)
