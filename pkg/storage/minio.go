package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const minioFolderContentType = "application/x-directory"

// MinioConfig は MinioStore の接続設定です。
type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"` // ストアのルートとして使うキーの接頭辞
	UseSSL    bool   `yaml:"use_ssl"`
}

// MinioStore は S3 互換のオブジェクトストレージをストアとして扱います。
// フォルダはキーの接頭辞で表し、ID はオブジェクトキーです（フォルダの ID は "/" で終わります）。
type MinioStore struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinioStore はクライアントを初期化し、バケットが存在しない場合は作成します。
func NewMinioStore(ctx context.Context, cfg MinioConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("MinIO クライアントの初期化に失敗しました: %w", err)
	}

	s := NewMinioStoreWithClient(client, cfg.Bucket, cfg.Prefix)
	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// NewMinioStoreWithClient は初期化済みのクライアントから MinioStore を生成します。
func NewMinioStoreWithClient(client *minio.Client, bucket, prefix string) *MinioStore {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &MinioStore{client: client, bucket: bucket, prefix: prefix}
}

func (s *MinioStore) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("バケット %s の確認に失敗しました: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("バケット %s の作成に失敗しました: %w", s.bucket, err)
	}
	slog.InfoContext(ctx, "バケットを作成しました", "bucket", s.bucket)
	return nil
}

func (s *MinioStore) List(ctx context.Context, q Query) ([]File, error) {
	parent := s.folderKey(q.ParentID)

	var files []File
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: parent}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("オブジェクト一覧の取得に失敗しました: %w", obj.Err)
		}
		if obj.Key == parent {
			continue
		}
		isFolder := strings.HasSuffix(obj.Key, "/")
		name := strings.TrimSuffix(strings.TrimPrefix(obj.Key, parent), "/")
		if q.Name != "" && name != q.Name {
			continue
		}
		if q.FoldersOnly && !isFolder {
			continue
		}

		f := File{ID: obj.Key, Name: name, ParentID: q.ParentID, MimeType: obj.ContentType, Size: obj.Size}
		if isFolder {
			f.MimeType = MimeTypeFolder
		} else if f.MimeType == "" {
			f.MimeType = mimeTypeOf(name)
		}
		files = append(files, f)
	}
	return files, nil
}

func (s *MinioStore) CreateFolder(ctx context.Context, name, parentID string) (File, error) {
	key := s.folderKey(parentID) + name + "/"
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(nil), 0, minio.PutObjectOptions{
		ContentType: minioFolderContentType,
	})
	if err != nil {
		return File{}, fmt.Errorf("フォルダ %s の作成に失敗しました: %w", name, err)
	}
	return File{ID: key, Name: name, ParentID: parentID, MimeType: MimeTypeFolder}, nil
}

func (s *MinioStore) CreateFile(ctx context.Context, name, parentID, mimeType string, r io.Reader) (File, error) {
	key := path.Join(s.folderKey(parentID), name)
	size := int64(-1)
	if l, ok := r.(interface{ Len() int }); ok {
		size = int64(l.Len())
	}

	info, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: mimeType})
	if err != nil {
		return File{}, fmt.Errorf("MinIO へのアップロードに失敗しました: %w", err)
	}
	return File{ID: key, Name: name, ParentID: parentID, MimeType: mimeType, Size: info.Size}, nil
}

func (s *MinioStore) Delete(ctx context.Context, id string) error {
	if !strings.HasSuffix(id, "/") {
		if _, err := s.client.StatObject(ctx, s.bucket, id, minio.StatObjectOptions{}); err != nil {
			return s.wrapErr(id, err)
		}
		return s.client.RemoveObject(ctx, s.bucket, id, minio.RemoveObjectOptions{})
	}

	// フォルダは配下のオブジェクトと自身のマーカーをすべて削除する
	objects := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: id, Recursive: true})
	return collectRemoveErrors(s.client.RemoveObjects(ctx, s.bucket, objects, minio.RemoveObjectsOptions{}))
}

// collectRemoveErrors は RemoveObjects の結果チャネルを最後まで読み切り、失敗をまとめて返します。
// 途中で読むのをやめると minio-go 側の送信ゴルーチンが止まってしまいます。
func collectRemoveErrors(results <-chan minio.RemoveObjectError) error {
	var errs []error
	for rerr := range results {
		if rerr.Err != nil {
			errs = append(errs, fmt.Errorf("オブジェクト %s の削除に失敗しました: %w", rerr.ObjectName, rerr.Err))
		}
	}
	return errors.Join(errs...)
}

func (s *MinioStore) Download(ctx context.Context, id string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, id, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.wrapErr(id, err)
	}
	// GetObject はエラーを遅延させるため、Stat で存在を確認する
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, s.wrapErr(id, err)
	}
	return obj, nil
}

func (s *MinioStore) folderKey(parentID string) string {
	if parentID == "" {
		return s.prefix
	}
	if !strings.HasSuffix(parentID, "/") {
		return parentID + "/"
	}
	return parentID
}

func (s *MinioStore) wrapErr(id string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return fmt.Errorf("オブジェクト %s の取得に失敗しました: %w", id, err)
}
