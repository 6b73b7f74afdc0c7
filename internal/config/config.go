package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr    string `mapstructure:"LISTEN_ADDR"`
	Port          string `mapstructure:"PORT"`
	DatabasePath  string `mapstructure:"DATABASE_PATH"`
	SessionSecret string `mapstructure:"SESSION_SECRET"`
	GinMode       string `mapstructure:"GIN_MODE"`

	// 文本生成服务配置；APIKey 为空时创建任务走本地兜底模板，不视为错误。
	OpenAIAPIKey     string `mapstructure:"OPENAI_API_KEY"`
	OpenAIBaseURL    string `mapstructure:"OPENAI_BASE_URL"`
	OpenAIModel      string `mapstructure:"OPENAI_MODEL"`
	AITimeoutSeconds int    `mapstructure:"AI_TIMEOUT_SECONDS"`
}

// Load 从 .env 文件或环境变量读取应用配置，并为缺失项提供安全的默认值。
// 配置文件允许不存在，此时仅从环境变量中读取。
func Load(path string) (AppConfig, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	v.SetDefault("PORT", "8080")
	v.SetDefault("LISTEN_ADDR", "")
	v.SetDefault("DATABASE_PATH", "dozyo.db")
	v.SetDefault("SESSION_SECRET", "dozyo-dev-secret")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("OPENAI_API_KEY", "")
	v.SetDefault("OPENAI_BASE_URL", "https://api.openai.com/v1")
	v.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	v.SetDefault("AI_TIMEOUT_SECONDS", 5)

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return AppConfig{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return AppConfig{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if strings.TrimSpace(cfg.ListenAddr) == "" {
		cfg.ListenAddr = fmt.Sprintf(":%s", cfg.Port)
	}
	if cfg.AITimeoutSeconds <= 0 {
		cfg.AITimeoutSeconds = 5
	}

	return cfg, nil
}

// AITimeout 返回文本生成调用的单次超时时间。
func (c AppConfig) AITimeout() time.Duration {
	return time.Duration(c.AITimeoutSeconds) * time.Second
}
