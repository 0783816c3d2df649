package domain

import (
	"encoding/json"
	"fmt"
)

// DefaultProjectName はプロジェクト名が未指定の場合に使われる名前です。
const DefaultProjectName = "My_Project"

// Project はプロジェクトごとに1つ保存される JSON ドキュメントの構造です。
// 生成画像はこのドキュメントには含めず、シーンごとに別オブジェクトとして保存します。
type Project struct {
	Name         string           `json:"name"`
	Style        string           `json:"style"`
	StyleLink    string           `json:"style_link,omitempty"`
	StyleImages  []ReferenceImage `json:"style_images,omitempty"`
	Script       string           `json:"script"`
	Instructions string           `json:"instructions,omitempty"`
	Storyboard   []Scene          `json:"storyboard"`
	Characters   Characters       `json:"characters"`
	NextSceneID  int              `json:"next_scene_id"`
}

// NewProject は空のプロジェクトを生成します。
func NewProject(name string) *Project {
	if name == "" {
		name = DefaultProjectName
	}
	return &Project{
		Name:        name,
		Storyboard:  []Scene{},
		Characters:  Characters{},
		NextSceneID: 1,
	}
}

// ApplyBreakdown は台本解析の結果を絵コンテとキャラクター表に反映します。
func (p *Project) ApplyBreakdown(b Breakdown) {
	p.SetStoryboard(b.Storyboard)
	p.Characters = append(Characters{}, b.Characters...)
}

// MarshalProject はプロジェクトを保存形式の JSON に変換します。
func MarshalProject(p *Project) ([]byte, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("プロジェクトのJSON変換に失敗しました: %w", err)
	}
	return data, nil
}

// UnmarshalProject は保存形式の JSON からプロジェクトを復元します。
func UnmarshalProject(data []byte) (*Project, error) {
	p := &Project{}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("プロジェクトJSONのパースに失敗しました: %w", err)
	}
	if p.Storyboard == nil {
		p.Storyboard = []Scene{}
	}
	if p.Characters == nil {
		p.Characters = Characters{}
	}
	p.Normalize()
	return p, nil
}
