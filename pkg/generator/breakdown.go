package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/gemini"
	"github.com/shouni/go-storyboard-kit/pkg/prompts"
)

var jsonBlockRegex = regexp.MustCompile("(?s)```(?:json)?\\s*(.*\\S)\\s*```")

// BreakdownInput は台本解析に渡す入力です。
type BreakdownInput struct {
	Style        string
	StyleLink    string
	Script       string
	Instructions string
}

// BreakdownScript は台本をシーンとキャラクター表に分解します。
// 応答の JSON が壊れている場合は gemini.ErrMalformedResponse を返し、再試行はしません。
func (sc *StoryboardComposer) BreakdownScript(ctx context.Context, in BreakdownInput) (domain.Breakdown, error) {
	if strings.TrimSpace(in.Script) == "" {
		return domain.Breakdown{}, fmt.Errorf("台本が空です")
	}

	userPrompt, err := sc.PromptBuilder.Build(prompts.ModeBreakdown, prompts.TemplateData{
		Style:        in.Style,
		StyleLink:    in.StyleLink,
		Script:       in.Script,
		Instructions: in.Instructions,
	})
	if err != nil {
		return domain.Breakdown{}, fmt.Errorf("台本解析プロンプトの生成に失敗しました: %w", err)
	}

	slog.InfoContext(ctx, "台本を解析しています", "model", sc.Endpoints.TextModel, "script_length", len(in.Script))
	payload := gemini.EncodeJSONText(prompts.BreakdownSystemPrompt, userPrompt, sc.Temperature)
	resp, err := sc.Caller.Dispatch(ctx, sc.Endpoints.URL(gemini.ModeText), payload)
	if err != nil {
		return domain.Breakdown{}, fmt.Errorf("台本の解析に失敗しました: %w", err)
	}

	text, err := gemini.ExtractText(resp.Body)
	if err != nil {
		return domain.Breakdown{}, err
	}
	b, err := parseBreakdown(text)
	if err != nil {
		return domain.Breakdown{}, err
	}

	slog.InfoContext(ctx, "台本の解析が完了しました", "scenes", len(b.Storyboard), "characters", len(b.Characters))
	return b, nil
}

// EnhanceCharacter はキャラクターの外見の説明をより詳細な説明に書き換えた結果を返します。
// キャラクター自体は変更しません。
func (sc *StoryboardComposer) EnhanceCharacter(ctx context.Context, style string, c domain.Character) (string, error) {
	userPrompt, err := sc.PromptBuilder.Build(prompts.ModeEnhance, prompts.TemplateData{
		Style:       style,
		Key:         c.Key,
		Description: c.Description,
	})
	if err != nil {
		return "", fmt.Errorf("キャラクター強化プロンプトの生成に失敗しました: %w", err)
	}

	resp, err := sc.Caller.Dispatch(ctx, sc.Endpoints.URL(gemini.ModeText), gemini.EncodePlainText(userPrompt, sc.Temperature))
	if err != nil {
		return "", fmt.Errorf("キャラクター %s の説明の強化に失敗しました: %w", c.Key, err)
	}

	text, err := gemini.ExtractText(resp.Body)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// parseBreakdown は応答テキストから Markdown のコードブロック等を除去して JSON としてパースします。
func parseBreakdown(raw string) (domain.Breakdown, error) {
	raw = strings.TrimSpace(raw)
	var rawJSON string

	if matches := jsonBlockRegex.FindStringSubmatch(raw); len(matches) > 1 {
		rawJSON = matches[1]
	} else {
		first := strings.Index(raw, "{")
		last := strings.LastIndex(raw, "}")
		if first != -1 && last > first {
			rawJSON = raw[first : last+1]
		} else {
			rawJSON = raw
		}
	}

	var b domain.Breakdown
	if err := json.Unmarshal([]byte(rawJSON), &b); err != nil {
		return domain.Breakdown{}, fmt.Errorf("%w: 台本解析の JSON をパースできません (応答抜粋: %q): %v",
			gemini.ErrMalformedResponse, truncateString(raw, 200), err)
	}
	if len(b.Storyboard) == 0 {
		return domain.Breakdown{}, fmt.Errorf("%w: 絵コンテが空です", gemini.ErrMalformedResponse)
	}
	return b, nil
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
