package asset

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

const (
	// DefaultProjectRoot はすべてのプロジェクトフォルダを格納するルートフォルダ名です。
	DefaultProjectRoot = "_Storyboard_Projects"
	// DefaultProjectFile はプロジェクトの JSON ドキュメントのファイル名です。
	DefaultProjectFile = "data.json"
	// DefaultSceneFileName はシーン画像の共通のベースファイル名です。
	DefaultSceneFileName = "scene.png"
	// MimeTypeJSON はプロジェクトドキュメントの MimeType です。
	MimeTypeJSON = "application/json"
)

// SceneFileRegex はシーン画像 (scene_3.png 等) に一致し、シーンIDをキャプチャします。
var SceneFileRegex = createIndexedRegex(DefaultSceneFileName)

// SceneFileName はシーンIDと画像の種類からファイル名を生成します。
// 例: 3, image/png -> "scene_3.png"
func SceneFileName(sceneID int, img domain.Image) string {
	baseName := strings.TrimSuffix(DefaultSceneFileName, filepath.Ext(DefaultSceneFileName))
	return fmt.Sprintf("%s_%d%s", baseName, sceneID, img.Extension())
}

// ParseSceneFileName はシーン画像のファイル名からシーンIDと MimeType を取り出します。
func ParseSceneFileName(name string) (int, string, bool) {
	m := SceneFileRegex.FindStringSubmatch(name)
	if m == nil {
		return 0, "", false
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, "", false
	}
	return id, MimeTypeOfExt(m[2]), true
}

// MimeTypeOfExt は拡張子に対応する画像の MimeType を返します。
func MimeTypeOfExt(ext string) string {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "jpg", "jpeg":
		return domain.MimeTypeJPEG
	case "webp":
		return "image/webp"
	default:
		return domain.MimeTypePNG
	}
}

// createIndexedRegex は、ファイル名に基づきインデックス付きファイル用の正規表現を生成します。
// 拡張子は画像として保存しうるものをすべて受け付けます。
// 例: "scene.png" -> ^scene_(\d+)\.(png|jpe?g|webp)$
func createIndexedRegex(fileName string) *regexp.Regexp {
	baseName := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	pattern := fmt.Sprintf(`^%s_(\d+)\.(png|jpe?g|webp)$`, regexp.QuoteMeta(baseName))
	return regexp.MustCompile(pattern)
}
