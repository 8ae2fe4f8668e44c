package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("PERSONA_STUDIO_ADDR", "")
	t.Setenv("OPENAI_API_KEY", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServerAddr != ":8080" {
		t.Fatalf("addr: got=%q", cfg.ServerAddr)
	}
	if cfg.LLM.Provider != "mock" {
		t.Fatalf("provider: got=%q want=mock", cfg.LLM.Provider)
	}
	if cfg.WeChat.Enabled() {
		t.Fatalf("wechat should be disabled by default")
	}
}

func TestLoadFillsAPIKeyFromEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "k-from-env")
	path := writeConfig(t, `{"llm":{"provider":"gemini","api_key_env":"GEMINI_API_KEY"}}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.APIKey != "k-from-env" {
		t.Fatalf("api key: got=%q", cfg.LLM.APIKey)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PERSONA_STUDIO_ADDR", "127.0.0.1:9999")
	t.Setenv("PERSONA_STUDIO_LLM_MODEL", "gpt-4o-mini")
	path := writeConfig(t, `{"server_addr":":1","llm":{"provider":"openai","model":"x","api_key":"k"}}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServerAddr != "127.0.0.1:9999" {
		t.Fatalf("addr: got=%q", cfg.ServerAddr)
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Fatalf("model: got=%q", cfg.LLM.Model)
	}
	if cfg.LLM.APIKey != "k" {
		t.Fatalf("file api key should win, got=%q", cfg.LLM.APIKey)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("PERSONA_STUDIO_ADDR", "")
	cases := map[string]string{
		"bad json":    `{"llm":`,
		"no provider": `{"llm":{"provider":""}}`,
		"negative":    `{"llm":{"provider":"mock","timeout_seconds":-1}}`,
		"half wechat": `{"wechat":{"app_id":"a"}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Fatalf("expected error for %s", name)
			}
		})
	}
}

func TestWeChatEnabled(t *testing.T) {
	w := &WeChatConfig{AppID: "a", AppSecret: "s", CoverPath: "c.png"}
	if !w.Enabled() {
		t.Fatalf("expected enabled")
	}
	w.CoverPath = ""
	if w.Enabled() {
		t.Fatalf("cover is required")
	}
}
