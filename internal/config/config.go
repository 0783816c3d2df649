package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/asset"
	"github.com/shouni/go-storyboard-kit/pkg/gemini"
	"github.com/shouni/go-storyboard-kit/pkg/storage"

	"github.com/shouni/go-utils/envutil"
	"gopkg.in/yaml.v3"
)

// デフォルト値の定義なのだ
const (
	DefaultConfigFile    = "storyboard.yaml"
	DefaultHTTPTimeout   = 120 * time.Second
	DefaultBatchInterval = 2 * time.Second
	DefaultStorage       = StorageLocal
	DefaultLocalDir      = "output"
	DefaultErrorPolicy   = "abort"
	DefaultMode          = "image"
)

// ErrNoAPIKeys は Gemini のAPIキーが1つも設定されていない場合に返されるのだ。
var ErrNoAPIKeys = errors.New("APIキーが設定されていません")

// 保存先バックエンドの種類なのだ
const (
	StorageLocal = "local"
	StorageDrive = "drive"
	StorageMinio = "minio"
)

// Config はアプリケーション全体の設定（APIキー、モデル、保存先）を保持する構造体なのだ。
// 優先順位は CLI フラグ > 環境変数 > 設定ファイル > デフォルト値なのだ。
type Config struct {
	APIKeys             []string      `yaml:"api_keys"`
	ErrorPolicy         string        `yaml:"error_policy"`
	RotateOnUnavailable bool          `yaml:"rotate_on_unavailable"`
	BaseURL             string        `yaml:"base_url"`
	TextModel           string        `yaml:"text_model"`
	ImageModel          string        `yaml:"image_model"`
	ImagenModel         string        `yaml:"imagen_model"`
	Temperature         *float32      `yaml:"temperature"`
	HTTPTimeout         time.Duration `yaml:"http_timeout"`
	BatchInterval       time.Duration `yaml:"batch_interval"`
	Storage             StorageConfig `yaml:"storage"`

	Options GenerateOptions `yaml:"-"`
}

// StorageConfig はプロジェクトの保存先の設定なのだ。
type StorageConfig struct {
	Backend  string              `yaml:"backend"`
	Root     string              `yaml:"root"`
	LocalDir string              `yaml:"local_dir"`
	Drive    storage.DriveConfig `yaml:"drive"`
	Minio    storage.MinioConfig `yaml:"minio"`
}

// GenerateOptions は CLI フラグから渡される実行時のパラメータなのだ。
type GenerateOptions struct {
	ConfigFile string // --config
	Project    string // --project
	Mode       string // --mode: image | imagen
	Verbose    bool   // --verbose
}

// Default はデフォルト値だけで構成された設定を返すのだ。
func Default() *Config {
	return &Config{
		ErrorPolicy:   DefaultErrorPolicy,
		BaseURL:       gemini.DefaultBaseURL,
		TextModel:     gemini.DefaultTextModel,
		ImageModel:    gemini.DefaultImageModel,
		ImagenModel:   gemini.DefaultImagenModel,
		HTTPTimeout:   DefaultHTTPTimeout,
		BatchInterval: DefaultBatchInterval,
		Storage: StorageConfig{
			Backend:  DefaultStorage,
			Root:     asset.DefaultProjectRoot,
			LocalDir: DefaultLocalDir,
		},
		Options: GenerateOptions{Mode: DefaultMode},
	}
}

// LoadConfig は設定ファイル（存在すれば）と環境変数から設定を読み込むのだ！
// path が空の場合は STORYBOARD_CONFIG、それもなければ DefaultConfigFile を探すのだ。
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = envutil.GetEnv("STORYBOARD_CONFIG", DefaultConfigFile)
		explicit = path != DefaultConfigFile
	}
	if err := cfg.loadFile(path, explicit); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile は YAML ファイルの値で上書きするのだ。暗黙のパスが存在しない場合は何もしないのだ。
func (c *Config) loadFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("設定ファイル '%s' の読み込みに失敗しました: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("設定ファイル '%s' の解析に失敗しました: %w", path, err)
	}
	return nil
}

// applyEnv は環境変数の値で上書きするのだ。未設定の変数は現在の値を維持するのだ。
func (c *Config) applyEnv() error {
	if keys := envutil.GetEnv("GEMINI_API_KEYS", ""); keys != "" {
		c.APIKeys = SplitKeys(keys)
	}
	if key := envutil.GetEnv("GEMINI_API_KEY", ""); key != "" && !containsKey(c.APIKeys, key) {
		c.APIKeys = append(c.APIKeys, key)
	}

	c.ErrorPolicy = envutil.GetEnv("GEMINI_ERROR_POLICY", c.ErrorPolicy)
	c.BaseURL = envutil.GetEnv("GEMINI_BASE_URL", c.BaseURL)
	c.TextModel = envutil.GetEnv("GEMINI_MODEL", c.TextModel)
	c.ImageModel = envutil.GetEnv("IMAGE_GEMINI_MODEL", c.ImageModel)
	c.ImagenModel = envutil.GetEnv("IMAGEN_MODEL", c.ImagenModel)

	var err error
	if c.RotateOnUnavailable, err = envBool("GEMINI_ROTATE_ON_503", c.RotateOnUnavailable); err != nil {
		return err
	}
	if c.HTTPTimeout, err = envDuration("HTTP_TIMEOUT", c.HTTPTimeout); err != nil {
		return err
	}
	if c.BatchInterval, err = envDuration("BATCH_INTERVAL", c.BatchInterval); err != nil {
		return err
	}
	if v := envutil.GetEnv("GEMINI_TEMPERATURE", ""); v != "" {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return fmt.Errorf("環境変数 GEMINI_TEMPERATURE の値が不正です: %w", err)
		}
		t := float32(f)
		c.Temperature = &t
	}

	s := &c.Storage
	s.Backend = envutil.GetEnv("STORAGE_BACKEND", s.Backend)
	s.Root = envutil.GetEnv("STORAGE_ROOT", s.Root)
	s.LocalDir = envutil.GetEnv("STORAGE_LOCAL_DIR", s.LocalDir)
	s.Drive.ClientID = envutil.GetEnv("GDRIVE_CLIENT_ID", s.Drive.ClientID)
	s.Drive.ClientSecret = envutil.GetEnv("GDRIVE_CLIENT_SECRET", s.Drive.ClientSecret)
	s.Drive.RefreshToken = envutil.GetEnv("GDRIVE_REFRESH_TOKEN", s.Drive.RefreshToken)
	s.Minio.Endpoint = envutil.GetEnv("MINIO_ENDPOINT", s.Minio.Endpoint)
	s.Minio.AccessKey = envutil.GetEnv("MINIO_ACCESS_KEY", s.Minio.AccessKey)
	s.Minio.SecretKey = envutil.GetEnv("MINIO_SECRET_KEY", s.Minio.SecretKey)
	s.Minio.Bucket = envutil.GetEnv("MINIO_BUCKET", s.Minio.Bucket)
	s.Minio.Prefix = envutil.GetEnv("MINIO_PREFIX", s.Minio.Prefix)
	if s.Minio.UseSSL, err = envBool("MINIO_USE_SSL", s.Minio.UseSSL); err != nil {
		return err
	}
	return nil
}

// Validate は実行前の必須チェックを行うのだ。
func (c *Config) Validate() error {
	if len(c.APIKeys) == 0 {
		return fmt.Errorf("%w。環境変数 GEMINI_API_KEYS（カンマ区切り）か設定ファイルの api_keys を指定してほしいのだ", ErrNoAPIKeys)
	}
	return c.ValidateStorage()
}

// ValidateStorage は保存先と生成モードだけをチェックするのだ。AIを呼ばないコマンドで使うのだ。
func (c *Config) ValidateStorage() error {
	switch c.Storage.Backend {
	case StorageLocal, StorageDrive, StorageMinio:
	default:
		return fmt.Errorf("不明な保存先です: '%s' (local|drive|minio)", c.Storage.Backend)
	}
	if _, err := gemini.ParseMode(c.Options.Mode); err != nil {
		return err
	}
	return nil
}

// SplitKeys はカンマ区切りのAPIキーを分割し、空の要素を取り除くのだ。
func SplitKeys(s string) []string {
	var keys []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

func containsKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

func envBool(key string, def bool) (bool, error) {
	v := envutil.GetEnv(key, "")
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("環境変数 %s の値が不正です: %w", key, err)
	}
	return b, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := envutil.GetEnv(key, "")
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("環境変数 %s の値が不正です: %w", key, err)
	}
	return d, nil
}
