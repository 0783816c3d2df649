package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"STORYBOARD_CONFIG", "GEMINI_API_KEYS", "GEMINI_API_KEY", "GEMINI_ERROR_POLICY", "GEMINI_MODEL",
		"GEMINI_TEMPERATURE", "GEMINI_ROTATE_ON_503", "BATCH_INTERVAL", "STORAGE_BACKEND", "MINIO_BUCKET",
	} {
		// t.Setenv で終了時の復元を登録してから未設定にする
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "storyboard.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadConfig_Layers(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
api_keys: [file-1, file-2]
error_policy: continue
batch_interval: 5s
temperature: 0.4
storage:
  backend: minio
  minio:
    endpoint: localhost:9000
    bucket: from-file
`)
	t.Setenv("GEMINI_API_KEY", "env-single")
	t.Setenv("MINIO_BUCKET", "from-env")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if diff := cmp.Diff([]string{"file-1", "file-2", "env-single"}, cfg.APIKeys); diff != "" {
		t.Errorf("APIKeys (-want +got):\n%s", diff)
	}
	if cfg.ErrorPolicy != "continue" || cfg.BatchInterval != 5*time.Second {
		t.Errorf("ファイルの値が反映されていません: %+v", cfg)
	}
	if cfg.Temperature == nil || *cfg.Temperature != 0.4 {
		t.Errorf("Temperature = %v", cfg.Temperature)
	}
	if cfg.Storage.Minio.Bucket != "from-env" || cfg.Storage.Minio.Endpoint != "localhost:9000" {
		t.Errorf("環境変数が優先されていません: %+v", cfg.Storage.Minio)
	}
	if cfg.TextModel == "" || cfg.Storage.Root == "" {
		t.Error("デフォルト値が失われました")
	}
}

func TestLoadConfig_EnvOnly(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("GEMINI_API_KEYS", " a, ,b ,")
	t.Setenv("GEMINI_ROTATE_ON_503", "true")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, cfg.APIKeys); diff != "" {
		t.Errorf("APIKeys (-want +got):\n%s", diff)
	}
	if !cfg.RotateOnUnavailable {
		t.Error("RotateOnUnavailable が反映されていません")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	clearEnv(t)

	t.Run("明示したファイルが存在しない", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
			t.Error("エラーが発生しませんでした")
		}
	})

	t.Run("不正な環境変数", func(t *testing.T) {
		t.Setenv("BATCH_INTERVAL", "soon")
		if _, err := LoadConfig(writeFile(t, "")); err == nil {
			t.Error("エラーが発生しませんでした")
		}
	})
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); !errors.Is(err, ErrNoAPIKeys) {
		t.Errorf("APIキーなしの err = %v, want ErrNoAPIKeys", err)
	}
	if err := cfg.ValidateStorage(); err != nil {
		t.Errorf("ValidateStorage: %v", err)
	}

	cfg.APIKeys = []string{"k"}
	cfg.Storage.Backend = "ftp"
	if err := cfg.Validate(); err == nil {
		t.Error("不明な保存先でエラーが発生しませんでした")
	}

	cfg.Storage.Backend = StorageLocal
	cfg.Options.Mode = "dall-e"
	if err := cfg.Validate(); err == nil {
		t.Error("不明なモードでエラーが発生しませんでした")
	}
}
