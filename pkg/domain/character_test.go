package domain

import (
	"errors"
	"testing"
)

func TestParseCharacters(t *testing.T) {
	// 1. 正常系：正しいJSONからリストが生成されること
	jsonInput := []byte(`[
		{"key": "[Batman]", "description": "black cape, pointed cowl"},
		{"key": "[Robin]", "description": "red vest, green gloves"}
	]`)

	chars, err := ParseCharacters(jsonInput)
	if err != nil {
		t.Fatalf("正常なJSONでエラーが発生しました: %v", err)
	}
	if len(chars) != 2 {
		t.Fatalf("期待値 2件, 実際の値 %d件", len(chars))
	}
	if chars[1].Key != "[Robin]" {
		t.Errorf("期待値 '[Robin]', 実際の値 '%s'", chars[1].Key)
	}

	// 2. 異常系：不正なJSONでエラーが返ること
	if _, err := ParseCharacters([]byte(`{ invalid json }`)); err == nil {
		t.Error("不正なJSONでエラーが発生しませんでした")
	}
}

func TestCharacters_Find(t *testing.T) {
	chars := Characters{
		{Key: "[Batman]", Description: "cape"},
		{Key: "Alfred", Description: "butler"},
	}

	tests := []struct {
		name string
		key  string
		want int
	}{
		{"完全一致", "[Batman]", 0},
		{"角括弧なし", "batman", 0},
		{"角括弧を補っても一致", "[Alfred]", 1},
		{"存在しないキー", "[Joker]", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := chars.Find(tt.key); got != tt.want {
				t.Errorf("Find(%q) = %d, want %d", tt.key, got, tt.want)
			}
		})
	}
}

func TestCharacters_Add(t *testing.T) {
	chars := Characters{{Key: "[Batman]"}}

	t.Run("新しいキャラクターは末尾に追加されること", func(t *testing.T) {
		if err := chars.Add(Character{Key: "[Robin]", Description: "sidekick"}); err != nil {
			t.Fatalf("追加に失敗しました: %v", err)
		}
		if len(chars) != 2 || chars[1].Key != "[Robin]" {
			t.Errorf("追加結果が不正です: %+v", chars)
		}
	})

	t.Run("重複したキーは拒否されること", func(t *testing.T) {
		err := chars.Add(Character{Key: "batman"})
		if !errors.Is(err, ErrDuplicateCharacter) {
			t.Errorf("ErrDuplicateCharacter を期待しましたが %v でした", err)
		}
	})

	t.Run("空のキーは拒否されること", func(t *testing.T) {
		if err := chars.Add(Character{Key: "  "}); err == nil {
			t.Error("空のキーでエラーが発生しませんでした")
		}
	})

	t.Run("削除できること", func(t *testing.T) {
		if !chars.Remove("[Robin]") {
			t.Fatal("削除に失敗しました")
		}
		if chars.Find("[Robin]") != -1 {
			t.Error("削除後も検索できてしまいます")
		}
	})
}

func TestCharacter_String(t *testing.T) {
	c := Character{Key: "[Batman]", Description: "black cape"}
	expected := "[Batman]: black cape"
	if c.String() != expected {
		t.Errorf("期待値 '%s', 実際の値 '%s'", expected, c.String())
	}
}
