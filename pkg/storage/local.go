package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalStore はローカルのディレクトリをストアとして扱います。
// ID はルートからのスラッシュ区切りの相対パスです。
type LocalStore struct {
	root string
}

// NewLocalStore は root をルートとする LocalStore を生成します。root が存在しない場合は作成します。
func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("ディレクトリ %s の作成に失敗しました: %w", root, err)
	}
	return &LocalStore{root: root}, nil
}

func (s *LocalStore) List(ctx context.Context, q Query) ([]File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, err := s.resolve(q.ParentID)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, q.ParentID)
		}
		return nil, fmt.Errorf("ディレクトリの読み込みに失敗しました: %w", err)
	}

	var files []File
	for _, e := range entries {
		if q.Name != "" && e.Name() != q.Name {
			continue
		}
		if q.FoldersOnly && !e.IsDir() {
			continue
		}
		f := File{ID: path.Join(q.ParentID, e.Name()), Name: e.Name(), ParentID: q.ParentID}
		if e.IsDir() {
			f.MimeType = MimeTypeFolder
		} else {
			f.MimeType = mimeTypeOf(e.Name())
			if info, err := e.Info(); err == nil {
				f.Size = info.Size()
			}
		}
		files = append(files, f)
	}
	return files, nil
}

func (s *LocalStore) CreateFolder(ctx context.Context, name, parentID string) (File, error) {
	if err := ctx.Err(); err != nil {
		return File{}, err
	}
	id, dir, err := s.child(name, parentID)
	if err != nil {
		return File{}, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return File{}, fmt.Errorf("フォルダ %s の作成に失敗しました: %w", name, err)
	}
	return File{ID: id, Name: name, ParentID: parentID, MimeType: MimeTypeFolder}, nil
}

func (s *LocalStore) CreateFile(ctx context.Context, name, parentID, mimeType string, r io.Reader) (File, error) {
	if err := ctx.Err(); err != nil {
		return File{}, err
	}
	id, p, err := s.child(name, parentID)
	if err != nil {
		return File{}, err
	}

	f, err := os.Create(p)
	if err != nil {
		return File{}, fmt.Errorf("ファイル %s の作成に失敗しました: %w", name, err)
	}
	n, copyErr := io.Copy(f, r)
	if closeErr := f.Close(); copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		return File{}, fmt.Errorf("ファイル %s の書き込みに失敗しました: %w", name, copyErr)
	}
	return File{ID: id, Name: name, ParentID: parentID, MimeType: mimeType, Size: n}, nil
}

func (s *LocalStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.resolve(id)
	if err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("ルートは削除できません")
	}
	if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return os.RemoveAll(p)
}

func (s *LocalStore) Download(ctx context.Context, id string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.resolve(id)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("ファイルを開けませんでした: %w", err)
	}
	return f, nil
}

// resolve は ID をルート配下の実パスに変換します。ルートの外を指す ID は拒否します。
func (s *LocalStore) resolve(id string) (string, error) {
	if !fs.ValidPath(cleanID(id)) {
		return "", fmt.Errorf("不正なIDです: %q", id)
	}
	return filepath.Join(s.root, filepath.FromSlash(cleanID(id))), nil
}

func (s *LocalStore) child(name, parentID string) (string, string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", "", fmt.Errorf("不正な名前です: %q", name)
	}
	id := path.Join(parentID, name)
	p, err := s.resolve(id)
	return id, p, err
}

func cleanID(id string) string {
	if id == "" {
		return "."
	}
	return id
}

func mimeTypeOf(name string) string {
	if t := mime.TypeByExtension(path.Ext(name)); t != "" {
		return strings.SplitN(t, ";", 2)[0]
	}
	return "application/octet-stream"
}
