package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultFrontendURL 是未設定 FRONTEND_URL 時允許的跨域來源
const DefaultFrontendURL = "http://localhost:5173"

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Address      string `mapstructure:"address"`
	Mode         string `mapstructure:"mode"`
	FrontendURL  string `mapstructure:"frontend_url"`
	MaxBodyBytes int64  `mapstructure:"max_body_bytes"`
}

// DatabaseConfig 描述資料庫連線與傳輸層選項
type DatabaseConfig struct {
	URI                    string        `mapstructure:"uri"`
	Name                   string        `mapstructure:"name"`
	MaxPoolSize            uint64        `mapstructure:"max_pool_size"`
	MinPoolSize            uint64        `mapstructure:"min_pool_size"`
	ServerSelectionTimeout time.Duration `mapstructure:"server_selection_timeout"`
	SocketTimeout          time.Duration `mapstructure:"socket_timeout"`
	KeepAlive              time.Duration `mapstructure:"keep_alive"`
	RetryWrites            bool          `mapstructure:"retry_writes"`
	WriteConcern           string        `mapstructure:"write_concern"`
	Journal                bool          `mapstructure:"journal"`
	HealthInterval         time.Duration `mapstructure:"health_interval"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	Env   string `mapstructure:"env"`
}

// AllowedOrigins 將 FRONTEND_URL 拆成來源列表，支援逗號分隔
func (s ServerConfig) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(s.FrontendURL, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, strings.TrimRight(o, "/"))
		}
	}
	if len(origins) == 0 {
		return []string{DefaultFrontendURL}
	}
	return origins
}

// Load 讀取 .env、可選的 config.yaml 與環境變數
func Load() (*Config, error) {
	// .env 不存在時忽略，正式環境直接使用真實環境變數
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath("./pkg/config")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindings := map[string][]string{
		"database.uri":        {"DATABASE_URI", "MONGO_URI"},
		"database.name":       {"DATABASE_NAME"},
		"server.frontend_url": {"FRONTEND_URL"},
		"server.address":      {"SERVER_ADDRESS"},
		"server.mode":         {"GIN_MODE"},
		"log.level":           {"LOG_LEVEL"},
		"log.env":             {"APP_ENV"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Server.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// validate 在啟動時拒絕 CORS 無法接受的來源，避免建構 handler 時 panic
func (s ServerConfig) validate() error {
	for _, o := range s.AllowedOrigins() {
		if o == "*" || strings.HasPrefix(o, "http://") || strings.HasPrefix(o, "https://") {
			continue
		}
		return fmt.Errorf("invalid FRONTEND_URL origin %q: must start with http:// or https://", o)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":3000")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.frontend_url", DefaultFrontendURL)
	v.SetDefault("server.max_body_bytes", 100<<10)

	v.SetDefault("database.uri", "")
	v.SetDefault("database.name", "user_api")
	v.SetDefault("database.max_pool_size", 1)
	v.SetDefault("database.min_pool_size", 1)
	v.SetDefault("database.server_selection_timeout", 5*time.Second)
	v.SetDefault("database.socket_timeout", 45*time.Second)
	v.SetDefault("database.keep_alive", 30*time.Second)
	v.SetDefault("database.retry_writes", true)
	v.SetDefault("database.write_concern", "majority")
	v.SetDefault("database.journal", true)
	v.SetDefault("database.health_interval", 30*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.env", "development")
}
