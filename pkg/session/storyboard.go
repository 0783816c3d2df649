package session

import (
	"fmt"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// CurrentScene は表示中のシーンを返します。
func (s *Session) CurrentScene() (*domain.Scene, error) {
	if s.Project.SceneCount() == 0 {
		return nil, ErrNoScenes
	}
	return s.Project.SceneAt(s.Current)
}

// Select は表示するシーンを位置で指定します。
func (s *Session) Select(index int) error {
	if _, err := s.Project.SceneAt(index); err != nil {
		return err
	}
	s.Current = index
	return nil
}

// Next は次のシーンへ移動します。最後のシーンでは移動せず false を返します。
func (s *Session) Next() bool {
	if s.Current >= s.Project.SceneCount()-1 {
		return false
	}
	s.Current++
	return true
}

// Previous は前のシーンへ移動します。最初のシーンでは移動せず false を返します。
func (s *Session) Previous() bool {
	if s.Current <= 0 {
		return false
	}
	s.Current--
	return true
}

// InsertScene は表示中のシーンの直後に空のシーンを追加します。表示位置は変わりません。
// シーンが1つもない場合は先頭に追加します。
func (s *Session) InsertScene() (*domain.Scene, error) {
	at := s.Current + 1
	if s.Project.SceneCount() == 0 {
		at = 0
	}
	return s.Project.InsertScene(at, "", domain.DefaultNewScenePrompt)
}

// RemoveScene は表示中のシーンとその生成画像を削除します。
// 後続のシーンの画像はシーンIDで保持されているため、そのまま後続のシーンに残ります。
func (s *Session) RemoveScene() (domain.Scene, error) {
	if s.Project.SceneCount() == 0 {
		return domain.Scene{}, ErrNoScenes
	}
	removed, err := s.Project.RemoveScene(s.Current)
	if err != nil {
		return domain.Scene{}, err
	}
	s.Images.Delete(removed.ID)
	s.clamp()
	return removed, nil
}

// SetPrompt は表示中のシーンの画像プロンプトを書き換えます。生成済みの画像は残ります。
func (s *Session) SetPrompt(prompt string) error {
	scene, err := s.CurrentScene()
	if err != nil {
		return err
	}
	scene.Prompt = prompt
	return nil
}

// AddSceneRef は表示中のシーンに固有の参照画像を追加します。
func (s *Session) AddSceneRef(img domain.ReferenceImage) error {
	scene, err := s.CurrentScene()
	if err != nil {
		return err
	}
	scene.Refs = append(scene.Refs, img)
	return nil
}

// CurrentImage は表示中のシーンの生成画像を返します。
func (s *Session) CurrentImage() (domain.Image, bool) {
	scene, err := s.CurrentScene()
	if err != nil {
		return domain.Image{}, false
	}
	return s.Images.Get(scene.ID)
}

// Position は "Scene 2 / 5" 形式の表示位置を返します。
func (s *Session) Position() string {
	total := s.Project.SceneCount()
	if total == 0 {
		return "Scene 0 / 0"
	}
	return fmt.Sprintf("Scene %d / %d", s.Current+1, total)
}

func (s *Session) clamp() {
	if n := s.Project.SceneCount(); s.Current >= n {
		s.Current = max(n-1, 0)
	}
	if s.Current < 0 {
		s.Current = 0
	}
}
