package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const driveFileFields = "id, name, mimeType, parents, size"

// DriveConfig は DriveStore の OAuth2 認証情報です。
// 保存先はリフレッシュトークンを発行したユーザーのマイドライブになります。
type DriveConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
}

// DriveStore は Google Drive v3 をストアとして扱います。ID は Drive のファイルIDです。
type DriveStore struct {
	service *drive.Service
}

// NewDriveStore はリフレッシュトークンで認証した Drive クライアントを生成します。
func NewDriveStore(ctx context.Context, cfg DriveConfig) (*DriveStore, error) {
	if cfg.RefreshToken == "" || cfg.ClientID == "" {
		return nil, errors.New("Drive の認証情報が設定されていません")
	}
	conf := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{drive.DriveScope},
	}
	ts := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})

	return NewDriveStoreWithOptions(ctx, option.WithTokenSource(ts))
}

// NewDriveStoreWithOptions は任意のクライアントオプションで DriveStore を生成します。
func NewDriveStoreWithOptions(ctx context.Context, opts ...option.ClientOption) (*DriveStore, error) {
	srv, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("Drive サービスの初期化に失敗しました: %w", err)
	}
	return &DriveStore{service: srv}, nil
}

func (s *DriveStore) List(ctx context.Context, q Query) ([]File, error) {
	var files []File
	call := s.service.Files.List().Q(driveQuery(q)).Fields(googleapi.Field("nextPageToken, files(" + driveFileFields + ")")).Context(ctx)
	err := call.Pages(ctx, func(page *drive.FileList) error {
		for _, f := range page.Files {
			files = append(files, fromDrive(f))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("Drive のファイル検索に失敗しました: %w", err)
	}
	return files, nil
}

func (s *DriveStore) CreateFolder(ctx context.Context, name, parentID string) (File, error) {
	meta := &drive.File{Name: name, MimeType: MimeTypeFolder}
	if parentID != "" {
		meta.Parents = []string{parentID}
	}
	f, err := s.service.Files.Create(meta).Fields(driveFileFields).Context(ctx).Do()
	if err != nil {
		return File{}, fmt.Errorf("Drive フォルダ %s の作成に失敗しました: %w", name, err)
	}
	return fromDrive(f), nil
}

func (s *DriveStore) CreateFile(ctx context.Context, name, parentID, mimeType string, r io.Reader) (File, error) {
	meta := &drive.File{Name: name}
	if parentID != "" {
		meta.Parents = []string{parentID}
	}
	f, err := s.service.Files.Create(meta).
		Media(r, googleapi.ContentType(mimeType)).
		Fields(driveFileFields).
		Context(ctx).
		Do()
	if err != nil {
		return File{}, fmt.Errorf("Drive へのアップロードに失敗しました (%s): %w", name, err)
	}
	return fromDrive(f), nil
}

func (s *DriveStore) Delete(ctx context.Context, id string) error {
	if err := s.service.Files.Delete(id).Context(ctx).Do(); err != nil {
		return wrapDriveErr(id, err)
	}
	return nil
}

func (s *DriveStore) Download(ctx context.Context, id string) (io.ReadCloser, error) {
	resp, err := s.service.Files.Get(id).Context(ctx).Download()
	if err != nil {
		return nil, wrapDriveErr(id, err)
	}
	return resp.Body, nil
}

// driveQuery は Query を Drive の検索クエリ構文に変換します。ゴミ箱のファイルは除外します。
func driveQuery(q Query) string {
	parent := q.ParentID
	if parent == "" {
		parent = "root"
	}
	clauses := []string{fmt.Sprintf("'%s' in parents", escapeQuery(parent))}
	if q.Name != "" {
		clauses = append(clauses, fmt.Sprintf("name = '%s'", escapeQuery(q.Name)))
	}
	if q.FoldersOnly {
		clauses = append(clauses, fmt.Sprintf("mimeType = '%s'", MimeTypeFolder))
	}
	clauses = append(clauses, "trashed = false")
	return strings.Join(clauses, " and ")
}

func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

func fromDrive(f *drive.File) File {
	out := File{ID: f.Id, Name: f.Name, MimeType: f.MimeType, Size: f.Size}
	if len(f.Parents) > 0 {
		out.ParentID = f.Parents[0]
	}
	return out
}

func wrapDriveErr(id string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return fmt.Errorf("Drive の操作に失敗しました (%s): %w", id, err)
}
