package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	defaultAddr      = ":8080"
	defaultAPIKeyEnv = "OPENAI_API_KEY"
)

// Config 是服务的 JSON 配置，对应 config/config.json。
type Config struct {
	ServerAddr   string        `json:"server_addr,omitempty"`
	LogMode      string        `json:"log_mode,omitempty"`
	PersonasFile string        `json:"personas_file,omitempty"`
	CORSOrigins  []string      `json:"cors_origins,omitempty"`
	LLM          *LLMConfig    `json:"llm,omitempty"`
	WeChat       *WeChatConfig `json:"wechat,omitempty"`
}

// LLMConfig selects the generative-content endpoint.
type LLMConfig struct {
	Provider       string `json:"provider,omitempty"`
	Model          string `json:"model,omitempty"`
	APIKey         string `json:"api_key,omitempty"`
	APIKeyEnv      string `json:"api_key_env,omitempty"`
	BaseURL        string `json:"base_url,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
}

// WeChatConfig 公众号草稿发布所需凭据，缺省时发布功能关闭。
type WeChatConfig struct {
	AppID     string `json:"app_id"`
	AppSecret string `json:"app_secret"`
	CoverPath string `json:"cover_path"`
	Author    string `json:"author,omitempty"`
}

// Enabled reports whether publishing can be attempted at all.
func (w *WeChatConfig) Enabled() bool {
	return w != nil && w.AppID != "" && w.AppSecret != "" && w.CoverPath != ""
}

// Default returns the configuration used when no file exists: the offline
// mock provider on :8080.
func Default() Config {
	return Config{
		ServerAddr: defaultAddr,
		LogMode:    "development",
		LLM: &LLMConfig{
			Provider:  "mock",
			APIKeyEnv: defaultAPIKeyEnv,
		},
	}
}

// Load reads .env (if present) and the JSON config at path, then applies
// environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	_ = godotenv.Load(".env")

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("PERSONA_STUDIO_ADDR")); v != "" {
		cfg.ServerAddr = v
	}
	if cfg.ServerAddr == "" {
		cfg.ServerAddr = defaultAddr
	}
	if cfg.LLM == nil {
		cfg.LLM = &LLMConfig{Provider: "mock"}
	}
	if v := strings.TrimSpace(os.Getenv("PERSONA_STUDIO_LLM_MODEL")); v != "" {
		cfg.LLM.Model = v
	}
	if cfg.LLM.APIKeyEnv == "" {
		cfg.LLM.APIKeyEnv = defaultAPIKeyEnv
	}
	// 文件中未写 api_key 时从环境变量补全
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = strings.TrimSpace(os.Getenv(cfg.LLM.APIKeyEnv))
	}
}

// Validate checks the fields that have no sensible fallback.
func (c Config) Validate() error {
	if c.LLM == nil || strings.TrimSpace(c.LLM.Provider) == "" {
		return errors.New("config: llm.provider is required")
	}
	if c.LLM.TimeoutSeconds < 0 {
		return errors.New("config: llm.timeout_seconds must not be negative")
	}
	if c.WeChat != nil && (c.WeChat.AppID == "") != (c.WeChat.AppSecret == "") {
		return errors.New("config: wechat requires both app_id and app_secret")
	}
	return nil
}
