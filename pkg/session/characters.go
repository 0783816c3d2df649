package session

import (
	"fmt"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// Character はキーに一致するキャラクターを返します。
func (s *Session) Character(key string) (*domain.Character, error) {
	i := s.Project.Characters.Find(key)
	if i < 0 {
		return nil, fmt.Errorf("キャラクター %s が見つかりません", key)
	}
	return &s.Project.Characters[i], nil
}

// AddCharacter はキャラクターを追加します。同じキーは追加できません。
func (s *Session) AddCharacter(key, description string) error {
	return s.Project.Characters.Add(domain.Character{Key: key, Description: description})
}

// SetDescription はキャラクターの説明を書き換えます。既存のプレビューは破棄します。
func (s *Session) SetDescription(key, description string) error {
	c, err := s.Character(key)
	if err != nil {
		return err
	}
	if c.Description != description {
		c.Description = description
		c.Preview = nil
	}
	return nil
}

// RemoveCharacter はキャラクターを削除します。
func (s *Session) RemoveCharacter(key string) error {
	if !s.Project.Characters.Remove(key) {
		return fmt.Errorf("キャラクター %s が見つかりません", key)
	}
	return nil
}
