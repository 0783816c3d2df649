package domain

import "errors"

var (
	// ErrDuplicateCharacter は同じキーのキャラクターを追加しようとした場合に返されます。
	ErrDuplicateCharacter = errors.New("キャラクターが既に存在します")
	// ErrSceneOutOfRange はシーンの位置が範囲外の場合に返されます。
	ErrSceneOutOfRange = errors.New("シーンの位置が範囲外です")
)
