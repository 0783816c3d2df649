package pipeline

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/shouni/go-storyboard-kit/internal/config"
	"github.com/shouni/go-storyboard-kit/internal/runner"
	"github.com/shouni/go-storyboard-kit/pkg/dispatcher"
	"github.com/shouni/go-storyboard-kit/pkg/gemini"
	"github.com/shouni/go-storyboard-kit/pkg/session"

	"github.com/google/go-cmp/cmp"
)

const breakdownJSON = "```json\n" + `{"storyboard":[{"script":"He waits.","prompt":"a man under a lamp"},{"script":"She arrives.","prompt":"a woman in the rain"}],"characters":[{"key":"[Hero]","description":"a tired man"}]}` + "\n```"

// fakeGemini はモデル名で応答を切り替える Gemini API のスタブなのだ。
func fakeGemini(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var images atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "k1" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		var req gemini.GenerateContentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		switch {
		case strings.Contains(r.URL.Path, "/models/image:"):
			n := images.Add(1)
			fmt.Fprintf(w, `{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"image/png","data":"%s"}}]}}]}`,
				base64.StdEncoding.EncodeToString([]byte{byte(n)}))
		case req.SystemInstruction != nil:
			fmt.Fprintf(w, `{"candidates":[{"content":{"parts":[{"text":%q}]}}]}`, breakdownJSON)
		default:
			fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"  a tired man in a long grey coat  "}]}}]}`)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &images
}

func newConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.APIKeys = []string{"k1"}
	cfg.BaseURL = baseURL
	cfg.TextModel = "text"
	cfg.ImageModel = "image"
	cfg.ImagenModel = "imagen"
	cfg.BatchInterval = 0
	cfg.Storage.LocalDir = t.TempDir()
	cfg.Options.Project = "demo"
	return cfg
}

func TestStoryboardWorkflow(t *testing.T) {
	ctx := context.Background()
	srv, images := fakeGemini(t)
	cfg := newConfig(t, srv.URL)

	t.Run("台本を解析してキャラクター確認に進む", func(t *testing.T) {
		s, err := ExecuteBreakdown(ctx, cfg, runner.ScriptInput{Style: "noir", ScriptFile: "-"}, strings.NewReader("He waits.\nShe arrives.\n"))
		if err != nil {
			t.Fatalf("ExecuteBreakdown: %v", err)
		}
		if s.Step != session.StepCharacters {
			t.Errorf("Step = %v, want %v", s.Step, session.StepCharacters)
		}
		if s.Project.SceneCount() != 2 || len(s.Project.Characters) != 1 {
			t.Errorf("scenes = %d, characters = %d", s.Project.SceneCount(), len(s.Project.Characters))
		}
		if s.Project.Script != "He waits.\nShe arrives." {
			t.Errorf("Script = %q", s.Project.Script)
		}
	})

	t.Run("キャラクターの説明を強化する", func(t *testing.T) {
		desc, err := ExecuteEnhance(ctx, cfg, "hero")
		if err != nil {
			t.Fatalf("ExecuteEnhance: %v", err)
		}
		if desc != "a tired man in a long grey coat" {
			t.Errorf("desc = %q", desc)
		}
		s, err := ExecuteShow(ctx, cfg)
		if err != nil {
			t.Fatalf("ExecuteShow: %v", err)
		}
		if got := s.Project.Characters[0].Description; got != desc {
			t.Errorf("保存された説明 = %q", got)
		}
	})

	t.Run("残りのシーンを一括生成する", func(t *testing.T) {
		results, err := ExecuteGenerate(ctx, cfg, 0, true)
		if err != nil {
			t.Fatalf("ExecuteGenerate: %v", err)
		}
		if len(results) != 2 {
			t.Fatalf("len(results) = %d, want 2", len(results))
		}
		for _, r := range results {
			if r.Status != dispatcher.OutcomeSuccess {
				t.Errorf("%s", r.Message())
			}
		}

		s, err := ExecuteShow(ctx, cfg)
		if err != nil {
			t.Fatalf("ExecuteShow: %v", err)
		}
		if s.Step != session.StepStoryboard {
			t.Errorf("Step = %v, want %v", s.Step, session.StepStoryboard)
		}
		if s.Images.Len() != 2 {
			t.Errorf("Images.Len() = %d, want 2", s.Images.Len())
		}
	})

	t.Run("追加したシーンだけを生成する", func(t *testing.T) {
		_, err := ExecuteEdit(ctx, cfg, func(s *session.Session) error {
			if err := s.Select(0); err != nil {
				return err
			}
			_, err := s.InsertScene()
			return err
		})
		if err != nil {
			t.Fatalf("ExecuteEdit: %v", err)
		}

		before := images.Load()
		results, err := ExecuteGenerate(ctx, cfg, 2, false)
		if err != nil {
			t.Fatalf("ExecuteGenerate: %v", err)
		}
		if len(results) != 1 || results[0].Index != 1 {
			t.Fatalf("results = %+v", results)
		}
		if got := images.Load() - before; got != 1 {
			t.Errorf("画像生成の呼び出し = %d, want 1", got)
		}

		s, err := ExecuteShow(ctx, cfg)
		if err != nil {
			t.Fatalf("ExecuteShow: %v", err)
		}
		if s.Images.Len() != 3 {
			t.Errorf("Images.Len() = %d, want 3", s.Images.Len())
		}
		if got := s.Project.Storyboard[1].Prompt; got != "New scene..." {
			t.Errorf("追加したシーンのプロンプト = %q", got)
		}
	})

	t.Run("書き出した絵コンテを別のプロジェクトに取り込む", func(t *testing.T) {
		res, err := ExecuteExport(ctx, cfg, t.TempDir(), false)
		if err != nil {
			t.Fatalf("ExecuteExport: %v", err)
		}
		if len(res.ImagePaths) != 3 {
			t.Errorf("len(ImagePaths) = %d, want 3", len(res.ImagePaths))
		}

		copyCfg := *cfg
		copyCfg.Options.Project = "copy"
		s, err := ExecuteImport(ctx, &copyCfg, res.MarkdownPath)
		if err != nil {
			t.Fatalf("ExecuteImport: %v", err)
		}
		if s.Project.SceneCount() != 3 || s.Images.Len() != 3 {
			t.Errorf("scenes = %d, images = %d", s.Project.SceneCount(), s.Images.Len())
		}
		if s.Project.Style != "noir" || s.Step != session.StepCharacters {
			t.Errorf("Style = %q, Step = %v", s.Project.Style, s.Step)
		}
		if err := ExecuteDeleteProject(ctx, &copyCfg); err != nil {
			t.Fatalf("ExecuteDeleteProject: %v", err)
		}
	})

	t.Run("プロジェクトの一覧と削除", func(t *testing.T) {
		names, err := ExecuteListProjects(ctx, cfg)
		if err != nil {
			t.Fatalf("ExecuteListProjects: %v", err)
		}
		if diff := cmp.Diff([]string{"demo"}, names); diff != "" {
			t.Errorf("names (-want +got):\n%s", diff)
		}

		if err := ExecuteDeleteProject(ctx, cfg); err != nil {
			t.Fatalf("ExecuteDeleteProject: %v", err)
		}
		names, err = ExecuteListProjects(ctx, cfg)
		if err != nil {
			t.Fatalf("ExecuteListProjects: %v", err)
		}
		if len(names) != 0 {
			t.Errorf("削除後の names = %v", names)
		}
	})
}

func TestExecuteGenerate_BeforeBreakdown(t *testing.T) {
	srv, _ := fakeGemini(t)
	cfg := newConfig(t, srv.URL)

	_, err := ExecuteGenerate(context.Background(), cfg, 0, true)
	if !errors.Is(err, session.ErrWrongStep) {
		t.Errorf("err = %v, want ErrWrongStep", err)
	}
}

func TestProjectRequired(t *testing.T) {
	cfg := newConfig(t, "http://gemini.test")
	cfg.Options.Project = " "

	if _, err := ExecuteShow(context.Background(), cfg); !errors.Is(err, ErrProjectRequired) {
		t.Errorf("ExecuteShow err = %v", err)
	}
	if err := ExecuteDeleteProject(context.Background(), cfg); !errors.Is(err, ErrProjectRequired) {
		t.Errorf("ExecuteDeleteProject err = %v", err)
	}
}

func TestStorageOnlyCommandsWithoutKeys(t *testing.T) {
	cfg := newConfig(t, "http://gemini.test")
	cfg.APIKeys = nil

	names, err := ExecuteListProjects(context.Background(), cfg)
	if err != nil {
		t.Fatalf("ExecuteListProjects: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("names = %v", names)
	}

	if _, err := ExecuteEnhance(context.Background(), cfg, "[Hero]"); !errors.Is(err, dispatcher.ErrNoCredentials) {
		t.Errorf("ExecuteEnhance err = %v, want ErrNoCredentials", err)
	}
}
