package domain

import (
	"errors"
	"testing"
)

func newTestProject(n int) *Project {
	p := NewProject("test")
	drafts := make([]SceneDraft, n)
	for i := range drafts {
		drafts[i] = SceneDraft{Script: string(rune('a' + i)), Prompt: string(rune('A' + i))}
	}
	p.SetStoryboard(drafts)
	return p
}

func TestProject_SetStoryboard(t *testing.T) {
	p := newTestProject(3)
	for i, s := range p.Storyboard {
		if s.ID != i+1 {
			t.Errorf("シーン %d のIDが %d です (期待値 %d)", i, s.ID, i+1)
		}
	}
	if p.NextSceneID != 4 {
		t.Errorf("NextSceneID = %d, want 4", p.NextSceneID)
	}
}

func TestProject_InsertScene(t *testing.T) {
	p := newTestProject(2)

	s, err := p.InsertScene(1, "", DefaultNewScenePrompt)
	if err != nil {
		t.Fatalf("挿入に失敗しました: %v", err)
	}
	if s.ID != 3 {
		t.Errorf("新しいシーンのIDは 3 であるべきです: %d", s.ID)
	}
	wantIDs := []int{1, 3, 2}
	for i, id := range wantIDs {
		if p.Storyboard[i].ID != id {
			t.Errorf("位置 %d のID = %d, want %d", i, p.Storyboard[i].ID, id)
		}
	}

	if _, err := p.InsertScene(5, "", ""); !errors.Is(err, ErrSceneOutOfRange) {
		t.Errorf("範囲外の挿入で ErrSceneOutOfRange を期待しましたが %v でした", err)
	}
}

// 位置 i のシーンを削除すると、i より後ろの画像は1つ前の位置から参照されること。
func TestProject_RemoveSceneKeepsImagesAligned(t *testing.T) {
	const length = 5
	p := newTestProject(length)
	images := NewImageStore()
	for _, s := range p.Storyboard {
		images.Put(s.ID, Image{MimeType: MimeTypePNG, Data: []byte{byte(s.ID)}})
	}

	before := make([]Image, length)
	for i, s := range p.Storyboard {
		before[i], _ = images.Get(s.ID)
	}

	const removeAt = 1
	removed, err := p.RemoveScene(removeAt)
	if err != nil {
		t.Fatalf("削除に失敗しました: %v", err)
	}
	images.Delete(removed.ID)

	if p.SceneCount() != length-1 {
		t.Fatalf("シーン数 = %d, want %d", p.SceneCount(), length-1)
	}
	if images.Len() != length-1 {
		t.Errorf("画像数 = %d, want %d", images.Len(), length-1)
	}

	for j := 0; j < p.SceneCount(); j++ {
		got, ok := images.Get(p.Storyboard[j].ID)
		if !ok {
			t.Fatalf("位置 %d の画像が見つかりません", j)
		}
		wantFrom := j
		if j >= removeAt {
			wantFrom = j + 1
		}
		if got.Data[0] != before[wantFrom].Data[0] {
			t.Errorf("位置 %d の画像は削除前の位置 %d のものであるべきです", j, wantFrom)
		}
	}
}

func TestProject_Normalize(t *testing.T) {
	t.Run("IDのない旧形式のシーンにIDが振られること", func(t *testing.T) {
		p := &Project{Storyboard: []Scene{{Script: "a"}, {Script: "b"}}}
		p.Normalize()
		if p.Storyboard[0].ID != 1 || p.Storyboard[1].ID != 2 {
			t.Errorf("IDが不正です: %+v", p.Storyboard)
		}
		if p.NextSceneID != 3 {
			t.Errorf("NextSceneID = %d, want 3", p.NextSceneID)
		}
	})

	t.Run("既存のIDは変更されないこと", func(t *testing.T) {
		p := &Project{Storyboard: []Scene{{ID: 7}, {ID: 2}}, NextSceneID: 3}
		p.Normalize()
		if p.Storyboard[0].ID != 7 || p.Storyboard[1].ID != 2 {
			t.Errorf("IDが変更されています: %+v", p.Storyboard)
		}
		if p.NextSceneID != 8 {
			t.Errorf("NextSceneID = %d, want 8", p.NextSceneID)
		}
	})
}
