package domain

import "fmt"

// DefaultNewScenePrompt は追加直後のシーンに設定されるプロンプトです。
const DefaultNewScenePrompt = "New scene..."

// Scene は絵コンテの1単位（台本の断片と画像プロンプト）を保持します。
type Scene struct {
	ID     int              `json:"id"`
	Script string           `json:"script"`
	Prompt string           `json:"prompt"`
	Refs   []ReferenceImage `json:"refs,omitempty"` // このシーンだけに適用する参照画像
}

// SceneDraft は台本解析の結果として AI から返されるシーンです。IDは持ちません。
type SceneDraft struct {
	Script string `json:"script"`
	Prompt string `json:"prompt"`
}

// Breakdown は台本解析の応答全体の構造です。
type Breakdown struct {
	Storyboard []SceneDraft `json:"storyboard"`
	Characters Characters   `json:"characters"`
}

// SceneCount はシーン数を返します。
func (p *Project) SceneCount() int {
	return len(p.Storyboard)
}

// SceneAt は位置 i のシーンを返します。
func (p *Project) SceneAt(i int) (*Scene, error) {
	if i < 0 || i >= len(p.Storyboard) {
		return nil, fmt.Errorf("%w: %d (シーン数 %d)", ErrSceneOutOfRange, i, len(p.Storyboard))
	}
	return &p.Storyboard[i], nil
}

// IndexOf はシーンIDの現在の表示位置を返します。見つからない場合は -1 です。
func (p *Project) IndexOf(sceneID int) int {
	for i, s := range p.Storyboard {
		if s.ID == sceneID {
			return i
		}
	}
	return -1
}

// SetStoryboard は解析済みのシーン群で絵コンテを置き換え、新しいIDを振り直します。
func (p *Project) SetStoryboard(drafts []SceneDraft) {
	p.Storyboard = make([]Scene, 0, len(drafts))
	for _, d := range drafts {
		p.Storyboard = append(p.Storyboard, Scene{ID: p.nextID(), Script: d.Script, Prompt: d.Prompt})
	}
}

// InsertScene は位置 at にシーンを挿入し、挿入されたシーンを返します。
// at == SceneCount() の場合は末尾に追加します。
func (p *Project) InsertScene(at int, script, prompt string) (*Scene, error) {
	if at < 0 || at > len(p.Storyboard) {
		return nil, fmt.Errorf("%w: %d (シーン数 %d)", ErrSceneOutOfRange, at, len(p.Storyboard))
	}
	s := Scene{ID: p.nextID(), Script: script, Prompt: prompt}
	p.Storyboard = append(p.Storyboard, Scene{})
	copy(p.Storyboard[at+1:], p.Storyboard[at:])
	p.Storyboard[at] = s
	return &p.Storyboard[at], nil
}

// RemoveScene は位置 at のシーンを削除し、削除したシーンを返します。
// 画像は呼び出し側が ImageStore から削除します。
func (p *Project) RemoveScene(at int) (Scene, error) {
	if at < 0 || at >= len(p.Storyboard) {
		return Scene{}, fmt.Errorf("%w: %d (シーン数 %d)", ErrSceneOutOfRange, at, len(p.Storyboard))
	}
	removed := p.Storyboard[at]
	p.Storyboard = append(p.Storyboard[:at], p.Storyboard[at+1:]...)
	return removed, nil
}

// SceneIDs は現在のシーンIDの集合を返します。
func (p *Project) SceneIDs() map[int]struct{} {
	ids := make(map[int]struct{}, len(p.Storyboard))
	for _, s := range p.Storyboard {
		ids[s.ID] = struct{}{}
	}
	return ids
}

// Normalize はIDを持たないシーン（旧形式のデータ）にIDを付与し、NextSceneID を整合させます。
func (p *Project) Normalize() {
	maxID := 0
	for _, s := range p.Storyboard {
		maxID = max(maxID, s.ID)
	}
	if p.NextSceneID <= maxID {
		p.NextSceneID = maxID + 1
	}
	for i := range p.Storyboard {
		if p.Storyboard[i].ID == 0 {
			p.Storyboard[i].ID = p.nextID()
		}
	}
}

func (p *Project) nextID() int {
	if p.NextSceneID <= 0 {
		p.NextSceneID = 1
	}
	id := p.NextSceneID
	p.NextSceneID++
	return id
}
