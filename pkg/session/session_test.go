package session

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

func img(b byte) domain.Image {
	return domain.Image{MimeType: domain.MimeTypePNG, Data: []byte{b}}
}

func storyboardSession(t *testing.T, n int) *Session {
	t.Helper()
	s := New("")
	s.Project.Style = "noir"
	drafts := make([]domain.SceneDraft, n)
	for i := range drafts {
		drafts[i] = domain.SceneDraft{Script: "s", Prompt: string(rune('a' + i))}
	}
	s.ApplyBreakdown(domain.Breakdown{Storyboard: drafts})
	for s.Step != StepStoryboard {
		if err := s.Advance(); err != nil {
			t.Fatalf("Advance: %v", err)
		}
	}
	return s
}

func prompts(s *Session) []string {
	out := make([]string, 0, s.Project.SceneCount())
	for _, sc := range s.Project.Storyboard {
		out = append(out, sc.Prompt)
	}
	return out
}

func TestAdvance(t *testing.T) {
	s := New("demo")
	if s.ID == "" || s.Step != StepStyle || s.Project.Name != "demo" {
		t.Fatalf("初期状態が不正です: %+v", s)
	}

	t.Run("スタイルが空では進めないこと", func(t *testing.T) {
		if err := s.Advance(); !errors.Is(err, ErrStyleRequired) {
			t.Errorf("ErrStyleRequired を期待しましたが %v でした", err)
		}
		if s.Step != StepStyle {
			t.Errorf("Step = %s", s.Step)
		}
	})

	s.Project.Style = "80s retro anime"
	if err := s.Advance(); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	t.Run("絵コンテがなければ進めないこと", func(t *testing.T) {
		if err := s.Advance(); !errors.Is(err, ErrStoryboardRequired) {
			t.Errorf("ErrStoryboardRequired を期待しましたが %v でした", err)
		}
	})

	s.ApplyBreakdown(domain.Breakdown{Storyboard: []domain.SceneDraft{{Prompt: "a"}}})
	for _, want := range []Step{StepCharacters, StepStoryboard} {
		if err := s.Advance(); err != nil {
			t.Fatalf("Advance: %v", err)
		}
		if s.Step != want {
			t.Errorf("Step = %s, want %s", s.Step, want)
		}
	}

	if err := s.Advance(); !errors.Is(err, ErrWrongStep) {
		t.Errorf("最後の段階で ErrWrongStep を期待しましたが %v でした", err)
	}

	if !s.Back() || s.Step != StepCharacters {
		t.Errorf("Back 後の Step = %s", s.Step)
	}
}

func TestReset(t *testing.T) {
	s := storyboardSession(t, 2)
	s.Project.Name = "keep"
	s.Images.Put(s.Project.Storyboard[0].ID, img(1))
	s.Next()

	s.Reset()
	if s.Step != StepStyle || s.Current != 0 || s.Project.SceneCount() != 0 || s.Images.Len() != 0 {
		t.Errorf("Reset 後の状態が不正です: %+v", s)
	}
	if s.Project.Name != "keep" {
		t.Errorf("プロジェクト名が失われました: %s", s.Project.Name)
	}
}

func TestNavigation(t *testing.T) {
	s := storyboardSession(t, 3)

	if s.Previous() {
		t.Error("先頭で Previous が移動しました")
	}
	if !s.Next() || !s.Next() {
		t.Fatal("Next が移動しませんでした")
	}
	if s.Next() {
		t.Error("末尾で Next が移動しました")
	}
	if s.Position() != "Scene 3 / 3" {
		t.Errorf("Position = %s", s.Position())
	}
	if err := s.Select(5); !errors.Is(err, domain.ErrSceneOutOfRange) {
		t.Errorf("ErrSceneOutOfRange を期待しましたが %v でした", err)
	}
}

func TestInsertScene(t *testing.T) {
	s := storyboardSession(t, 2)

	inserted, err := s.InsertScene()
	if err != nil {
		t.Fatalf("InsertScene: %v", err)
	}
	if inserted.Prompt != domain.DefaultNewScenePrompt || inserted.Script != "" {
		t.Errorf("追加されたシーンが不正です: %+v", inserted)
	}
	if diff := cmp.Diff([]string{"a", domain.DefaultNewScenePrompt, "b"}, prompts(s)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if s.Current != 0 {
		t.Errorf("表示位置が変わりました: %d", s.Current)
	}
}

func TestRemoveScene(t *testing.T) {
	s := storyboardSession(t, 4)
	for i, sc := range s.Project.Storyboard {
		s.Images.Put(sc.ID, img(byte(i)))
	}

	s.Select(1)
	if _, err := s.RemoveScene(); err != nil {
		t.Fatalf("RemoveScene: %v", err)
	}

	// 位置 j>=1 の画像は削除前の位置 j+1 の画像になる
	for j, want := range []byte{0, 2, 3} {
		got, ok := s.Images.Get(s.Project.Storyboard[j].ID)
		if !ok || got.Data[0] != want {
			t.Errorf("位置 %d の画像 = %v, want %d", j, got.Data, want)
		}
	}
	if s.Images.Len() != 3 {
		t.Errorf("画像数 = %d, want 3", s.Images.Len())
	}

	t.Run("末尾を削除すると表示位置が詰められること", func(t *testing.T) {
		s.Select(2)
		if _, err := s.RemoveScene(); err != nil {
			t.Fatalf("RemoveScene: %v", err)
		}
		if s.Current != 1 {
			t.Errorf("Current = %d, want 1", s.Current)
		}
	})

	t.Run("シーンがなくなるまで削除できること", func(t *testing.T) {
		for s.Project.SceneCount() > 0 {
			if _, err := s.RemoveScene(); err != nil {
				t.Fatalf("RemoveScene: %v", err)
			}
		}
		if s.Current != 0 {
			t.Errorf("Current = %d, want 0", s.Current)
		}
		if _, err := s.RemoveScene(); !errors.Is(err, ErrNoScenes) {
			t.Errorf("ErrNoScenes を期待しましたが %v でした", err)
		}
		if s.Position() != "Scene 0 / 0" {
			t.Errorf("Position = %s", s.Position())
		}
	})
}

func TestSetPrompt(t *testing.T) {
	s := storyboardSession(t, 1)
	s.Images.Put(s.Project.Storyboard[0].ID, img(9))

	if err := s.SetPrompt("rewritten"); err != nil {
		t.Fatalf("SetPrompt: %v", err)
	}
	if s.Project.Storyboard[0].Prompt != "rewritten" {
		t.Errorf("Prompt = %s", s.Project.Storyboard[0].Prompt)
	}
	if _, ok := s.CurrentImage(); !ok {
		t.Error("プロンプトの変更で画像が失われました")
	}
}

func TestFromProject(t *testing.T) {
	tests := []struct {
		name string
		p    *domain.Project
		want Step
	}{
		{"空のプロジェクト", domain.NewProject("x"), StepStyle},
		{"スタイルのみ", &domain.Project{Style: "noir"}, StepScript},
		{"シーンあり", &domain.Project{Style: "noir", Storyboard: []domain.Scene{{ID: 1}}}, StepStoryboard},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := FromProject(tt.p, nil)
			if s.Step != tt.want {
				t.Errorf("Step = %s, want %s", s.Step, tt.want)
			}
			if s.Images == nil {
				t.Error("ImageStore が初期化されていません")
			}
		})
	}
}

func TestCharacters(t *testing.T) {
	s := New("x")
	if err := s.AddCharacter("[Batman]", "cape"); err != nil {
		t.Fatalf("AddCharacter: %v", err)
	}
	if err := s.AddCharacter("[batman]", "other"); !errors.Is(err, domain.ErrDuplicateCharacter) {
		t.Errorf("ErrDuplicateCharacter を期待しましたが %v でした", err)
	}

	c, _ := s.Character("Batman")
	preview := img(1)
	c.Preview = &preview
	if err := s.SetDescription("[Batman]", "black cape"); err != nil {
		t.Fatalf("SetDescription: %v", err)
	}
	if c.Description != "black cape" || c.Preview != nil {
		t.Errorf("説明の変更が反映されていません: %+v", c)
	}

	if err := s.RemoveCharacter("[Batman]"); err != nil {
		t.Fatalf("RemoveCharacter: %v", err)
	}
	if err := s.RemoveCharacter("[Batman]"); err == nil {
		t.Error("存在しないキャラクターの削除でエラーが発生しませんでした")
	}
}
