package parser

import (
	"net/url"
	"path"
	"path/filepath"

	"github.com/shouni/go-utils/urlpath"
)

// IsRemotePath は、参照先が HTTP(S) の URL かクラウドストレージの URI かどうかを判定します。
func IsRemotePath(p string) bool {
	if urlpath.IsRemoteURI(p) {
		return true
	}
	u, err := url.Parse(p)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// resolveFullPath はベースディレクトリと相対パスから画像のパスを組み立てます。
// リモートの参照や絶対パスはそのまま返します。
func resolveFullPath(baseDir string, refPath string) string {
	if refPath == "" {
		return ""
	}
	if IsRemotePath(refPath) || baseDir == "" || path.IsAbs(refPath) || filepath.IsAbs(refPath) {
		return refPath
	}

	full, err := urlpath.ResolvePath(baseDir, refPath)
	if err != nil {
		return refPath
	}
	return full
}
