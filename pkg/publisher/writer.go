package publisher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/storage"

	"github.com/shouni/go-utils/urlpath"
)

// LocalWriter はローカルファイルシステムに書き出す OutputWriter です。
type LocalWriter struct{}

// NewLocalWriter は LocalWriter を生成します。
func NewLocalWriter() *LocalWriter {
	return &LocalWriter{}
}

// Write は path に r の内容を書き込みます。親ディレクトリは必要に応じて作成します。
func (w *LocalWriter) Write(ctx context.Context, path string, r io.Reader, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if urlpath.IsRemoteURI(path) {
		return fmt.Errorf("ローカルに書き出せないパスです: %s", path)
	}
	full := filepath.FromSlash(path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("ディレクトリの作成に失敗しました: %w", err)
	}
	f, err := os.Create(full)
	if err != nil {
		return fmt.Errorf("ファイルの作成に失敗しました: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("ファイルの書き込みに失敗しました: %w", err)
	}
	return f.Close()
}

// StoreWriter は storage.Store（Drive、MinIO、ローカル）に書き出す OutputWriter です。
// パスのディレクトリ部分はフォルダとして作成し、同名のファイルは置き換えます。
type StoreWriter struct {
	store   storage.Store
	folders *storage.FolderResolver
}

// NewStoreWriter は StoreWriter を生成します。
func NewStoreWriter(store storage.Store, folders *storage.FolderResolver) *StoreWriter {
	if folders == nil {
		folders = storage.NewFolderResolver(store, nil)
	}
	return &StoreWriter{store: store, folders: folders}
}

func (w *StoreWriter) Write(ctx context.Context, path string, r io.Reader, mimeType string) error {
	dirs, name := splitPath(path)
	if strings.HasSuffix(path, "/") || name == "" || name == "." {
		return fmt.Errorf("出力パスにファイル名がありません: %q", path)
	}
	parentID, err := w.folders.EnsurePath(ctx, dirs...)
	if err != nil {
		return err
	}

	old, err := w.store.List(ctx, storage.Query{ParentID: parentID, Name: name})
	if err != nil {
		return fmt.Errorf("既存ファイルの確認に失敗しました: %w", err)
	}
	for _, f := range old {
		if f.IsFolder() {
			continue
		}
		if err := w.store.Delete(ctx, f.ID); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s の削除に失敗しました: %w", f.Name, err)
		}
	}

	if _, err := w.store.CreateFile(ctx, name, parentID, mimeType, r); err != nil {
		return fmt.Errorf("%s のアップロードに失敗しました: %w", name, err)
	}
	return nil
}
