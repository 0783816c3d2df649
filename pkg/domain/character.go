package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Character は絵コンテに登場するキャラクターの定義を保持します。
type Character struct {
	Key         string `json:"key"`         // "[Batman]" のような角括弧付きの名前
	Description string `json:"description"` // 生成プロンプトに注入する外見上の特徴
	Preview     *Image `json:"preview,omitempty"`
}

// Characters はキャラクターの順序付きリストです。並び順はプロンプトへの出力順になります。
type Characters []Character

// String はキャラクターの情報を文字列で返します。
func (c Character) String() string {
	return fmt.Sprintf("%s: %s", c.Key, c.Description)
}

// Find はキーに一致するキャラクターの位置を返します。角括弧と大文字小文字の違いは無視します。
func (cs Characters) Find(key string) int {
	want := normalizeKey(key)
	for i, c := range cs {
		if normalizeKey(c.Key) == want {
			return i
		}
	}
	return -1
}

// Add はキャラクターを末尾に追加します。同じキーのキャラクターが既に存在する場合はエラーを返します。
func (cs *Characters) Add(c Character) error {
	if strings.TrimSpace(c.Key) == "" {
		return fmt.Errorf("キャラクターのキーが空です")
	}
	if cs.Find(c.Key) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateCharacter, c.Key)
	}
	*cs = append(*cs, c)
	return nil
}

// Remove はキーに一致するキャラクターを削除します。
func (cs *Characters) Remove(key string) bool {
	i := cs.Find(key)
	if i < 0 {
		return false
	}
	*cs = append((*cs)[:i], (*cs)[i+1:]...)
	return true
}

// ParseCharacters はJSONバイト列からキャラクターリストをパースして返します。
// この関数はステートレスであり、キーの重複はチェックしません。
func ParseCharacters(data []byte) (Characters, error) {
	var chars Characters
	if err := json.Unmarshal(data, &chars); err != nil {
		return nil, fmt.Errorf("キャラクター情報のJSONパースに失敗しました: %w", err)
	}
	return chars, nil
}

func normalizeKey(key string) string {
	k := strings.TrimSpace(key)
	k = strings.TrimPrefix(k, "[")
	k = strings.TrimSuffix(k, "]")
	return strings.ToLower(strings.TrimSpace(k))
}
