package storage

import (
	"context"
	"errors"
	"io"
)

// MimeTypeFolder はフォルダを表す MimeType です（Google Drive と同じ値）。
const MimeTypeFolder = "application/vnd.google-apps.folder"

// ErrNotFound は指定したファイルやフォルダが存在しない場合に返されます。
var ErrNotFound = errors.New("ファイルが見つかりません")

// File はストア上のファイルまたはフォルダです。
// ID はバックエンドごとの不透明な識別子で、呼び出し側は解釈しません。
type File struct {
	ID       string
	Name     string
	ParentID string
	MimeType string
	Size     int64
}

// IsFolder はフォルダかどうかを返します。
func (f File) IsFolder() bool {
	return f.MimeType == MimeTypeFolder
}

// Query は List の検索条件です。
type Query struct {
	ParentID    string // 空の場合はストアのルート直下
	Name        string // 空の場合は名前で絞り込みません
	FoldersOnly bool
}

// Store は階層型のファイルストレージの契約です。
type Store interface {
	// List は条件に一致するファイルを返します。並び順は保証しません。
	List(ctx context.Context, q Query) ([]File, error)
	// CreateFolder は parentID の直下にフォルダを作成します。
	CreateFolder(ctx context.Context, name, parentID string) (File, error)
	// CreateFile は parentID の直下にファイルをアップロードします。
	CreateFile(ctx context.Context, name, parentID, mimeType string, r io.Reader) (File, error)
	// Delete はファイルを削除します。フォルダの場合は配下も削除されます。
	Delete(ctx context.Context, id string) error
	// Download はファイルの内容を返します。呼び出し側で Close してください。
	Download(ctx context.Context, id string) (io.ReadCloser, error)
}

// ReadAll は Download した内容をすべて読み込みます。
func ReadAll(ctx context.Context, s Store, id string) ([]byte, error) {
	rc, err := s.Download(ctx, id)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
