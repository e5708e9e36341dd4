package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Server  ServerConfig  `yaml:"server" toml:"server"`
	Files   FilesConfig   `yaml:"files" toml:"files"`
	Listing ListingConfig `yaml:"listing" toml:"listing"`
	Admin   AdminConfig   `yaml:"admin" toml:"admin"`
}

// ServerConfig はファイル配信用TCPサーバーの設定
type ServerConfig struct {
	Host string `yaml:"host" toml:"host" validate:"required"`        // リッスンするホスト
	Port int    `yaml:"port" toml:"port" validate:"min=1,max=65535"` // リッスンするポート番号

	// タイムアウト設定（0は無制限）
	ReadTimeout  time.Duration `yaml:"read_timeout" toml:"read_timeout" validate:"gte=0"`   // 読み込みタイムアウト
	WriteTimeout time.Duration `yaml:"write_timeout" toml:"write_timeout" validate:"gte=0"` // 書き込みタイムアウト

	// 同時に処理する接続数の上限
	MaxConnections int `yaml:"max_connections" toml:"max_connections" validate:"min=1"`

	// リクエスト行の最大バイト数
	MaxRequestBytes int `yaml:"max_request_bytes" toml:"max_request_bytes" validate:"min=64,max=1048576"`
}

// FilesConfig は配信するファイルの設定
type FilesConfig struct {
	Root string `yaml:"root" toml:"root" validate:"required"` // 配信ルートディレクトリ
}

// ListingConfig はディレクトリ一覧の表示設定
type ListingConfig struct {
	DirsFirst bool `yaml:"dirs_first" toml:"dirs_first"` // ディレクトリを先頭に並べる
}

// AdminConfig は管理用HTTP APIの設定
type AdminConfig struct {
	Host string `yaml:"host" toml:"host"`
	Port int    `yaml:"port" toml:"port" validate:"min=0,max=65535"` // 0の場合は無効
}

// validate は設定検証用のバリデータ
var validate = validator.New()

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			MaxConnections:  64,
			MaxRequestBytes: 8192,
		},
		Files: FilesConfig{
			Root: "./public",
		},
		Admin: AdminConfig{
			Host: "127.0.0.1",
			Port: 0,
		},
	}
}

// Load は設定を読み込む
// デフォルト値 → CONFIG_FILE で指定された設定ファイル → 環境変数 の順に適用する
func Load() (*Config, error) {
	cfg := DefaultConfig()

	// 設定ファイルがあれば読み込む
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.decodeFile(path); err != nil {
			return nil, err
		}
	}

	// 環境変数で上書き
	cfg.applyEnv()

	// 設定の検証
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return cfg, nil
}

// LoadFile は指定された設定ファイルをデフォルト値に重ねて読み込む
// 拡張子で形式を判定する（.yaml/.yml または .toml）
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := cfg.decodeFile(path); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return cfg, nil
}

// decodeFile は設定ファイルの内容を c に上書きする
func (c *Config) decodeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("YAMLの解析に失敗 (%s): %w", path, err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), c); err != nil {
			return fmt.Errorf("TOMLの解析に失敗 (%s): %w", path, err)
		}
	default:
		return fmt.Errorf("未対応の設定ファイル形式です: %q", ext)
	}

	return nil
}

// applyEnv は環境変数の値で設定を上書きする
func (c *Config) applyEnv() {
	c.Server.Host = getEnvOrDefault("SERVER_HOST", c.Server.Host)
	c.Server.Port = getEnvAsIntOrDefault("PORT", c.Server.Port)
	c.Server.MaxConnections = getEnvAsIntOrDefault("MAX_CONNECTIONS", c.Server.MaxConnections)
	c.Files.Root = getEnvOrDefault("FILE_ROOT", c.Files.Root)
	c.Admin.Port = getEnvAsIntOrDefault("ADMIN_PORT", c.Admin.Port)
}

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("無効な設定値: %w", err)
	}

	// 管理APIはファイル配信と同じアドレスを使えない
	if c.AdminEnabled() && c.AdminAddress() == c.ServerAddress() {
		return fmt.Errorf("管理APIのアドレスがサーバーと重複しています: %s", c.AdminAddress())
	}

	return nil
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// AdminEnabled は管理APIが有効かどうかを返す
func (c *Config) AdminEnabled() bool {
	return c.Admin.Port != 0
}

// AdminAddress は管理APIのリッスンアドレスを返す
func (c *Config) AdminAddress() string {
	return fmt.Sprintf("%s:%d", c.Admin.Host, c.Admin.Port)
}

// getEnvOrDefault は環境変数を取得し、設定されていない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault は環境変数を整数として取得し、設定されていない場合はデフォルト値を返す
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultValue
}
