package publisher

import (
	"fmt"
	"path"
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/domain"

	"github.com/shouni/go-utils/urlpath"
)

// ResolveOutputPath は、ベースとなるディレクトリパスとファイル名から出力パスを生成します。
// gs:// などのリモートURIは URL として、それ以外はローカルパスとして結合します。
func ResolveOutputPath(baseDir, fileName string) (string, error) {
	return urlpath.ResolvePath(baseDir, fileName)
}

// storePath は storage.Store 内の '/' 区切りのパスを生成します。
// 保存先のIDは OS のパス区切りに依存しないため filepath ではなく path で結合します。
func storePath(baseDir, fileName string) (string, error) {
	baseDir = strings.TrimRight(baseDir, "/")
	if baseDir == "" {
		return fileName, nil
	}
	return path.Join(baseDir, fileName), nil
}

// ExportImageName は絵コンテの位置 index（0始まり）に対応する連番のファイル名を返します。
// シーンIDではなく位置を使うため、ファイル名の順序が絵コンテの順序と一致します。
func ExportImageName(index int, img domain.Image) string {
	return fmt.Sprintf("%02d_scene%s", index+1, img.Extension())
}

// splitPath は出力パスをディレクトリの列とファイル名に分けます。
func splitPath(p string) ([]string, string) {
	p = path.Clean(strings.TrimLeft(p, "/"))
	dir, file := path.Split(p)
	var dirs []string
	for _, d := range strings.Split(strings.Trim(dir, "/"), "/") {
		if d != "" && d != "." {
			dirs = append(dirs, d)
		}
	}
	return dirs, file
}
