package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestProject_RoundTrip(t *testing.T) {
	p := NewProject("ずんだ物語")
	p.Style = "Dark, cinematic anime, 80s retro style"
	p.StyleLink = "https://example.com/watch?v=1"
	p.StyleImages = []ReferenceImage{{MimeType: MimeTypeJPEG, Data: []byte{0xff, 0xd8, 0x01}}}
	p.Script = "Batman stands on the roof. Robin arrives."
	p.Instructions = "one scene per sentence"
	p.ApplyBreakdown(Breakdown{
		Storyboard: []SceneDraft{
			{Script: "Batman stands on the roof.", Prompt: "[Batman] on a rooftop at night"},
			{Script: "Robin arrives.", Prompt: "[Robin] lands next to [Batman]"},
		},
		Characters: Characters{
			{Key: "[Batman]", Description: "black cape", Preview: &Image{MimeType: MimeTypePNG, Data: []byte{1, 2, 3}}},
			{Key: "[Robin]", Description: "red vest"},
		},
	})
	p.Storyboard[1].Refs = []ReferenceImage{{MimeType: MimeTypePNG, Data: []byte{9}}}
	if _, err := p.InsertScene(2, "", DefaultNewScenePrompt); err != nil {
		t.Fatalf("InsertScene: %v", err)
	}

	data, err := MarshalProject(p)
	if err != nil {
		t.Fatalf("MarshalProject: %v", err)
	}
	got, err := UnmarshalProject(data)
	if err != nil {
		t.Fatalf("UnmarshalProject: %v", err)
	}

	if diff := cmp.Diff(p, got); diff != "" {
		t.Errorf("保存前後でプロジェクトが一致しません (-want +got):\n%s", diff)
	}
}

func TestUnmarshalProject_LegacyFormat(t *testing.T) {
	// ID を持たない旧形式の data.json も読み込めること
	legacy := []byte(`{
		"script": "s",
		"style": "noir",
		"storyboard": [{"script": "a", "prompt": "A"}, {"script": "b", "prompt": "B"}],
		"characters": [{"key": "[Batman]", "description": "cape"}]
	}`)

	p, err := UnmarshalProject(legacy)
	if err != nil {
		t.Fatalf("UnmarshalProject: %v", err)
	}
	if p.Storyboard[0].ID == 0 || p.Storyboard[0].ID == p.Storyboard[1].ID {
		t.Errorf("シーンIDが正しく付与されていません: %+v", p.Storyboard)
	}
	if p.Style != "noir" || len(p.Characters) != 1 {
		t.Errorf("フィールドが正しく読み込まれていません: %+v", p)
	}
}

func TestImageStore_IDs(t *testing.T) {
	s := NewImageStore()
	s.Put(5, Image{})
	s.Put(2, Image{})
	s.Put(9, Image{})

	if diff := cmp.Diff([]int{2, 5, 9}, s.IDs()); diff != "" {
		t.Errorf("IDs() の順序が不正です (-want +got):\n%s", diff)
	}

	removed := s.Retain(map[int]struct{}{5: {}})
	if diff := cmp.Diff([]int{2, 9}, removed); diff != "" {
		t.Errorf("Retain() の結果が不正です (-want +got):\n%s", diff)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}
