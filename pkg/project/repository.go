package project

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/shouni/go-storyboard-kit/pkg/asset"
	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/storage"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency は画像の同時アップロード・ダウンロード数の上限です。
const DefaultConcurrency = 4

// Repository はプロジェクトを <root>/<name>/ フォルダに保存します。
// フォルダには data.json と、生成済みのシーンごとに scene_<id>.png が置かれます。
type Repository struct {
	store       storage.Store
	folders     *storage.FolderResolver
	root        string
	concurrency int
}

// NewRepository は Repository を生成します。root が空の場合は asset.DefaultProjectRoot を使います。
func NewRepository(store storage.Store, folders *storage.FolderResolver, root string) *Repository {
	if folders == nil {
		folders = storage.NewFolderResolver(store, nil)
	}
	if root == "" {
		root = asset.DefaultProjectRoot
	}
	return &Repository{store: store, folders: folders, root: root, concurrency: DefaultConcurrency}
}

// WithConcurrency は画像転送の同時実行数を変更します。
func (r *Repository) WithConcurrency(n int) *Repository {
	if n > 0 {
		r.concurrency = n
	}
	return r
}

// Save はプロジェクトを保存します。既存のオブジェクトは削除してからアップロードし直します。
// シーン画像を削除するのは、そのシーンがプロジェクトから取り除かれた場合だけです。
// 失敗はオブジェクトごとに記録して処理を続け、最後にまとめて返します。途中までの変更は取り消しません。
func (r *Repository) Save(ctx context.Context, p *domain.Project, images *domain.ImageStore) error {
	name, err := validateName(p.Name)
	if err != nil {
		return err
	}

	projID, err := r.folders.EnsurePath(ctx, r.root, name)
	if err != nil {
		return fmt.Errorf("プロジェクトフォルダの準備に失敗しました: %w", err)
	}
	existing, err := r.store.List(ctx, storage.Query{ParentID: projID})
	if err != nil {
		return fmt.Errorf("既存ファイルの取得に失敗しました: %w", err)
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	record := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	// 1. プロジェクトの JSON を保存
	data, err := domain.MarshalProject(p)
	if err != nil {
		return err
	}
	if err := r.replace(ctx, projID, asset.DefaultProjectFile, asset.MimeTypeJSON, data, filesNamed(existing, asset.DefaultProjectFile)); err != nil {
		record(err)
	}

	// 2. 生成済みのシーン画像を保存
	sceneIDs := p.SceneIDs()
	old := sceneFiles(existing)
	keep := make(map[int]struct{})

	eg := new(errgroup.Group)
	eg.SetLimit(r.concurrency)
	for _, id := range images.IDs() {
		if _, ok := sceneIDs[id]; !ok {
			continue
		}
		img, ok := images.Get(id)
		if !ok {
			continue
		}
		keep[id] = struct{}{}
		eg.Go(func() error {
			if err := r.replace(ctx, projID, asset.SceneFileName(id, img), img.MimeType, img.Data, old[id]); err != nil {
				record(err)
			}
			return nil
		})
	}
	_ = eg.Wait()

	// 3. 削除されたシーンの画像を片付ける
	// 読み込みに失敗して ImageStore にないだけの画像は、シーンが残っている限り消しません
	stale := 0
	for id, files := range old {
		if _, ok := sceneIDs[id]; ok {
			continue
		}
		for _, f := range files {
			stale++
			if err := r.store.Delete(ctx, f.ID); err != nil && !errors.Is(err, storage.ErrNotFound) {
				record(fmt.Errorf("古い画像 %s の削除に失敗しました: %w", f.Name, err))
			}
		}
	}

	slog.InfoContext(ctx, "プロジェクトを保存しました",
		"project", name,
		"scenes", p.SceneCount(),
		"images", len(keep),
		"stale_deleted", stale,
		"errors", len(errs),
	)
	if len(errs) > 0 {
		return fmt.Errorf("プロジェクト %s の保存に一部失敗しました: %w", name, errors.Join(errs...))
	}
	return nil
}

// Load はプロジェクトと生成済みの画像を読み込みます。
// 画像の読み込みに失敗した場合も、読み込めた分の結果とまとめたエラーを返します。
func (r *Repository) Load(ctx context.Context, name string) (*domain.Project, *domain.ImageStore, error) {
	projID, err := r.projectFolder(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	files, err := r.store.List(ctx, storage.Query{ParentID: projID})
	if err != nil {
		return nil, nil, fmt.Errorf("プロジェクトファイルの取得に失敗しました: %w", err)
	}

	docs := filesNamed(files, asset.DefaultProjectFile)
	if len(docs) == 0 {
		return nil, nil, fmt.Errorf("%w: %s/%s", storage.ErrNotFound, name, asset.DefaultProjectFile)
	}
	data, err := storage.ReadAll(ctx, r.store, docs[0].ID)
	if err != nil {
		return nil, nil, fmt.Errorf("%s の読み込みに失敗しました: %w", asset.DefaultProjectFile, err)
	}
	p, err := domain.UnmarshalProject(data)
	if err != nil {
		return nil, nil, err
	}
	if p.Name == "" {
		p.Name = name
	}

	images := domain.NewImageStore()
	sceneIDs := p.SceneIDs()
	var (
		mu   sync.Mutex
		errs []error
	)
	eg := new(errgroup.Group)
	eg.SetLimit(r.concurrency)
	for _, f := range files {
		id, mime, ok := asset.ParseSceneFileName(f.Name)
		if !ok {
			continue
		}
		if _, exists := sceneIDs[id]; !exists {
			continue
		}
		eg.Go(func() error {
			b, err := storage.ReadAll(ctx, r.store, f.ID)
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("画像 %s の読み込みに失敗しました: %w", f.Name, err))
				mu.Unlock()
				return nil
			}
			images.Put(id, domain.Image{MimeType: mime, Data: b})
			return nil
		})
	}
	_ = eg.Wait()

	slog.InfoContext(ctx, "プロジェクトを読み込みました", "project", p.Name, "scenes", p.SceneCount(), "images", images.Len())
	return p, images, errors.Join(errs...)
}

// List は保存済みのプロジェクト名を昇順で返します。
func (r *Repository) List(ctx context.Context) ([]string, error) {
	rootID, err := r.folders.Lookup(ctx, r.root, "")
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return []string{}, nil
		}
		return nil, err
	}
	folders, err := r.store.List(ctx, storage.Query{ParentID: rootID, FoldersOnly: true})
	if err != nil {
		return nil, fmt.Errorf("プロジェクト一覧の取得に失敗しました: %w", err)
	}

	names := make([]string, 0, len(folders))
	for _, f := range folders {
		names = append(names, f.Name)
	}
	slices.Sort(names)
	return slices.Compact(names), nil
}

// Delete はプロジェクトフォルダを配下のファイルごと削除します。
func (r *Repository) Delete(ctx context.Context, name string) error {
	projID, err := r.projectFolder(ctx, name)
	if err != nil {
		return err
	}
	if err := r.store.Delete(ctx, projID); err != nil {
		return fmt.Errorf("プロジェクト %s の削除に失敗しました: %w", name, err)
	}
	if rootID, err := r.folders.Lookup(ctx, r.root, ""); err == nil {
		r.folders.Forget(name, rootID)
	}
	slog.InfoContext(ctx, "プロジェクトを削除しました", "project", name)
	return nil
}

func (r *Repository) projectFolder(ctx context.Context, name string) (string, error) {
	name, err := validateName(name)
	if err != nil {
		return "", err
	}
	rootID, err := r.folders.Lookup(ctx, r.root, "")
	if err != nil {
		return "", fmt.Errorf("プロジェクト %s が見つかりません: %w", name, err)
	}
	projID, err := r.folders.Lookup(ctx, name, rootID)
	if err != nil {
		return "", fmt.Errorf("プロジェクト %s が見つかりません: %w", name, err)
	}
	return projID, nil
}

// replace は old をすべて削除してから新しいファイルをアップロードします。
// 削除に失敗した場合は重複を避けるためアップロードしません。
func (r *Repository) replace(ctx context.Context, parentID, name, mimeType string, data []byte, old []storage.File) error {
	for _, f := range old {
		if err := r.store.Delete(ctx, f.ID); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s の削除に失敗しました: %w", f.Name, err)
		}
	}
	if _, err := r.store.CreateFile(ctx, name, parentID, mimeType, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("%s のアップロードに失敗しました: %w", name, err)
	}
	return nil
}

func filesNamed(files []storage.File, name string) []storage.File {
	var out []storage.File
	for _, f := range files {
		if f.Name == name && !f.IsFolder() {
			out = append(out, f)
		}
	}
	return out
}

// sceneFiles は既存のシーン画像をシーンIDごとにまとめます。拡張子の異なる同じIDの画像も含みます。
func sceneFiles(files []storage.File) map[int][]storage.File {
	out := make(map[int][]storage.File)
	for _, f := range files {
		if f.IsFolder() {
			continue
		}
		if id, _, ok := asset.ParseSceneFileName(f.Name); ok {
			out[id] = append(out[id], f)
		}
	}
	return out
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("プロジェクト名が空です")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("プロジェクト名に使用できない文字が含まれています: %q", name)
	}
	return name, nil
}
