package domain

import (
	"slices"
	"sync"
)

const (
	MimeTypePNG  = "image/png"
	MimeTypeJPEG = "image/jpeg"
)

// Image は生成画像および参照画像のバイナリとメディアタイプです。
// JSON では Data が base64 文字列として表現されます。
type Image struct {
	MimeType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

// ReferenceImage は Image の別名です。グローバル参照（全シーン共通）とシーン固有参照の両方に使います。
type ReferenceImage = Image

// Extension は MimeType に対応するファイル拡張子を返します。
func (img Image) Extension() string {
	switch img.MimeType {
	case MimeTypeJPEG:
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

// ImageStore は生成済みシーン画像をシーンIDで保持する順序付きコンテナです。
// キーは表示位置ではなく安定したシーンIDなので、挿入や削除で再キー付けは発生しません。
type ImageStore struct {
	mu     sync.RWMutex
	images map[int]Image
}

// NewImageStore は空の ImageStore を生成します。
func NewImageStore() *ImageStore {
	return &ImageStore{images: make(map[int]Image)}
}

// Get はシーンIDに対応する画像を返します。
func (s *ImageStore) Get(sceneID int) (Image, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	img, ok := s.images[sceneID]
	return img, ok
}

// Put はシーンIDに画像を保存します。既存の画像は上書きされます。
func (s *ImageStore) Put(sceneID int, img Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images[sceneID] = img
}

// Delete はシーンIDに対応する画像を削除します。
func (s *ImageStore) Delete(sceneID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.images, sceneID)
}

// Len は保持している画像の数を返します。
func (s *ImageStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.images)
}

// IDs は画像を持つシーンIDを昇順で返します。
func (s *ImageStore) IDs() []int {
	s.mu.RLock()
	ids := make([]int, 0, len(s.images))
	for id := range s.images {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	slices.Sort(ids)
	return ids
}

// Retain は keep に含まれないシーンIDの画像を削除し、削除したIDを返します。
func (s *ImageStore) Retain(keep map[int]struct{}) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed []int
	for id := range s.images {
		if _, ok := keep[id]; !ok {
			delete(s.images, id)
			removed = append(removed, id)
		}
	}
	slices.Sort(removed)
	return removed
}
