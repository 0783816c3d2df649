package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

const (
	defaultFolderCacheExpiration = 30 * time.Minute
	folderCacheCleanupInterval   = 1 * time.Hour
)

// FolderResolver はフォルダ名からIDを解決し、存在しない場合は作成します。
// 解決したIDはキャッシュし、同じフォルダの同時作成は1回にまとめます。
type FolderResolver struct {
	store Store
	cache *cache.Cache
	group singleflight.Group
}

// NewFolderResolver は FolderResolver を生成します。c が nil の場合は新しいキャッシュを作ります。
func NewFolderResolver(store Store, c *cache.Cache) *FolderResolver {
	if c == nil {
		c = cache.New(defaultFolderCacheExpiration, folderCacheCleanupInterval)
	}
	return &FolderResolver{store: store, cache: c}
}

// Ensure は parentID 直下の name フォルダのIDを返します。見つからない場合は作成します。
// 同名のフォルダが複数ある場合は List が最初に返したものを使います。
func (r *FolderResolver) Ensure(ctx context.Context, name, parentID string) (string, error) {
	key := cacheKey(name, parentID)
	if id, ok := r.cached(key); ok {
		return id, nil
	}

	val, err, _ := r.group.Do(key, func() (interface{}, error) {
		// singleflight で待機中に他のゴルーチンが作成を完了させている可能性があるため再度確認する
		if id, ok := r.cached(key); ok {
			return id, nil
		}

		id, found, err := r.find(ctx, name, parentID)
		if err != nil {
			return nil, err
		}
		if !found {
			folder, err := r.store.CreateFolder(ctx, name, parentID)
			if err != nil {
				return nil, fmt.Errorf("フォルダ %s の作成に失敗しました: %w", name, err)
			}
			slog.DebugContext(ctx, "フォルダを作成しました", "name", name, "id", folder.ID)
			id = folder.ID
		}

		r.cache.SetDefault(key, id)
		return id, nil
	})
	if err != nil {
		return "", err
	}

	id, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("unexpected return type from singleflight: %T", val)
	}
	return id, nil
}

// EnsurePath はルートから names を順にたどり、最後のフォルダのIDを返します。
func (r *FolderResolver) EnsurePath(ctx context.Context, names ...string) (string, error) {
	parentID := ""
	for _, name := range names {
		id, err := r.Ensure(ctx, name, parentID)
		if err != nil {
			return "", err
		}
		parentID = id
	}
	return parentID, nil
}

// Lookup はフォルダを作成せずにIDを解決します。見つからない場合は ErrNotFound を返します。
func (r *FolderResolver) Lookup(ctx context.Context, name, parentID string) (string, error) {
	key := cacheKey(name, parentID)
	if id, ok := r.cached(key); ok {
		return id, nil
	}
	id, found, err := r.find(ctx, name, parentID)
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("%w: フォルダ %s", ErrNotFound, name)
	}
	r.cache.SetDefault(key, id)
	return id, nil
}

// Forget はキャッシュからフォルダを取り除きます。フォルダを削除した後に呼び出してください。
func (r *FolderResolver) Forget(name, parentID string) {
	r.cache.Delete(cacheKey(name, parentID))
}

func (r *FolderResolver) find(ctx context.Context, name, parentID string) (string, bool, error) {
	files, err := r.store.List(ctx, Query{ParentID: parentID, Name: name, FoldersOnly: true})
	if err != nil {
		return "", false, fmt.Errorf("フォルダ %s の検索に失敗しました: %w", name, err)
	}
	if len(files) == 0 {
		return "", false, nil
	}
	return files[0].ID, true, nil
}

func (r *FolderResolver) cached(key string) (string, bool) {
	v, ok := r.cache.Get(key)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

func cacheKey(name, parentID string) string {
	return parentID + "\x00" + name
}
