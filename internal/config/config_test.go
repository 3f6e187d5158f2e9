package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearKeyEnv(t *testing.T) {
	t.Helper()
	for _, e := range []string{
		"CRMREPORT_LLM_GEMINI_KEY", "CRMREPORT_LLM_OPENAI_KEY", "CRMREPORT_LLM_ANTHROPIC_KEY",
		"GEMINI_API_KEY", "GOOGLE_API_KEY",
	} {
		t.Setenv(e, "")
	}
}

// ── Load / Defaults ──

func TestLoadReturnsDefaults(t *testing.T) {
	clearKeyEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if !cfg.LLM.Enabled {
		t.Error("LLM.Enabled should be true by default")
	}
	if cfg.LLM.Primary != "gemini" {
		t.Errorf("LLM.Primary: got %q, want %q", cfg.LLM.Primary, "gemini")
	}
	if cfg.LLM.Model != "gemini-2.5-flash" {
		t.Errorf("LLM.Model: got %q, want %q", cfg.LLM.Model, "gemini-2.5-flash")
	}
	if cfg.LLM.TimeoutSec != 30 {
		t.Errorf("LLM.TimeoutSec: got %d, want 30", cfg.LLM.TimeoutSec)
	}
	if cfg.Report.Title != "CRM Analytics Report" {
		t.Errorf("Report.Title: got %q", cfg.Report.Title)
	}
	if !cfg.Report.Compress {
		t.Error("Report.Compress should be true by default")
	}
	if len(cfg.Report.KnownCategories) != len(DefaultCategories) {
		t.Errorf("Report.KnownCategories: got %v", cfg.Report.KnownCategories)
	}
	if cfg.Report.Concurrency != 4 {
		t.Errorf("Report.Concurrency: got %d, want 4", cfg.Report.Concurrency)
	}
	if cfg.Data.CacheTTL != 300 {
		t.Errorf("Data.CacheTTL: got %d, want 300", cfg.Data.CacheTTL)
	}
	if len(cfg.Data.Dirs) != 2 {
		t.Errorf("Data.Dirs: got %v", cfg.Data.Dirs)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("API.Port: got %d, want 8080", cfg.API.Port)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level: got %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Logging.Format: got %q, want %q", cfg.Logging.Format, "text")
	}
}

func TestLoadEnvOverridesDefault(t *testing.T) {
	clearKeyEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("CRMREPORT_API_PORT", "9191")
	t.Setenv("CRMREPORT_REPORT_TITLE", "Quarterly Review")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.API.Port != 9191 {
		t.Errorf("API.Port: got %d, want 9191", cfg.API.Port)
	}
	if cfg.Report.Title != "Quarterly Review" {
		t.Errorf("Report.Title: got %q", cfg.Report.Title)
	}
}

// ── LoadFromFile ──

func TestLoadFromFile(t *testing.T) {
	clearKeyEnv(t)
	cfgPath := filepath.Join(t.TempDir(), "test_config.yaml")
	content := []byte(`
llm:
  primary: "openai"
  model: "gpt-4o-mini"
  enabled: false
report:
  title: "Service Desk Review"
  compress: false
  known_categories: ["Parks", "Water"]
data:
  dirs: ["/srv/data"]
  catalog: "/srv/catalog.yaml"
  cache_ttl: 0
api:
  port: 9090
logging:
  level: "debug"
  format: "json"
`)
	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := LoadFromFile(cfgPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}
	if cfg.LLM.Primary != "openai" {
		t.Errorf("LLM.Primary: got %q, want %q", cfg.LLM.Primary, "openai")
	}
	if cfg.LLM.Enabled {
		t.Error("LLM.Enabled: got true, want false")
	}
	if cfg.Report.Title != "Service Desk Review" {
		t.Errorf("Report.Title: got %q", cfg.Report.Title)
	}
	if cfg.Report.Compress {
		t.Error("Report.Compress: got true, want false")
	}
	if len(cfg.Report.KnownCategories) != 2 || cfg.Report.KnownCategories[1] != "Water" {
		t.Errorf("Report.KnownCategories: got %v", cfg.Report.KnownCategories)
	}
	if len(cfg.Data.Dirs) != 1 || cfg.Data.Dirs[0] != "/srv/data" {
		t.Errorf("Data.Dirs: got %v", cfg.Data.Dirs)
	}
	if cfg.Data.Catalog != "/srv/catalog.yaml" {
		t.Errorf("Data.Catalog: got %q", cfg.Data.Catalog)
	}
	if cfg.Data.CacheTTL != 0 {
		t.Errorf("Data.CacheTTL: got %d, want 0", cfg.Data.CacheTTL)
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port: got %d, want 9090", cfg.API.Port)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format: got %q, want %q", cfg.Logging.Format, "json")
	}
	// Untouched sections keep their defaults.
	if cfg.LLM.TimeoutSec != 30 {
		t.Errorf("LLM.TimeoutSec: got %d, want 30", cfg.LLM.TimeoutSec)
	}
}

func TestLoadFromFileNotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("LoadFromFile() with nonexistent path should return error")
	}
}

// ── SaveToFile ──

func TestSaveToFileRoundTrip(t *testing.T) {
	clearKeyEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := &Config{
		LLM:    LLMConfig{Primary: "ollama", Model: "llama3", TimeoutSec: 12},
		Report: ReportConfig{Title: "Saved", Concurrency: 2},
		API:    APIConfig{Host: "127.0.0.1", Port: 7000},
	}
	if err := SaveToFile(cfg, path); err != nil {
		t.Fatalf("SaveToFile: %v", err)
	}

	got, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if got.LLM.Primary != "ollama" || got.LLM.Model != "llama3" {
		t.Errorf("LLM: got %+v", got.LLM)
	}
	if got.Report.Title != "Saved" {
		t.Errorf("Report.Title: got %q", got.Report.Title)
	}
	if got.API.Port != 7000 {
		t.Errorf("API.Port: got %d, want 7000", got.API.Port)
	}
}

// ── overrideFromEnv ──

func TestOverrideFromEnv(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("CRMREPORT_LLM_GEMINI_KEY", "gemini-key-789")
	t.Setenv("CRMREPORT_LLM_OPENAI_KEY", "sk-test-openai-key-123456")
	t.Setenv("CRMREPORT_LLM_ANTHROPIC_KEY", "sk-ant-test")

	cfg := &Config{}
	overrideFromEnv(cfg)

	if cfg.LLM.GeminiKey != "gemini-key-789" {
		t.Errorf("GeminiKey: got %q", cfg.LLM.GeminiKey)
	}
	if cfg.LLM.OpenAIKey != "sk-test-openai-key-123456" {
		t.Errorf("OpenAIKey: got %q", cfg.LLM.OpenAIKey)
	}
	if cfg.LLM.AnthropicKey != "sk-ant-test" {
		t.Errorf("AnthropicKey: got %q", cfg.LLM.AnthropicKey)
	}
}

func TestOverrideFromEnvBareGeminiNames(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("GOOGLE_API_KEY", "google-key")

	cfg := &Config{}
	overrideFromEnv(cfg)
	if cfg.LLM.GeminiKey != "google-key" {
		t.Errorf("GeminiKey from GOOGLE_API_KEY: got %q", cfg.LLM.GeminiKey)
	}

	t.Setenv("GEMINI_API_KEY", "gemini-key")
	cfg = &Config{}
	overrideFromEnv(cfg)
	if cfg.LLM.GeminiKey != "gemini-key" {
		t.Errorf("GEMINI_API_KEY should win over GOOGLE_API_KEY, got %q", cfg.LLM.GeminiKey)
	}

	t.Setenv("CRMREPORT_LLM_GEMINI_KEY", "prefixed")
	cfg = &Config{}
	overrideFromEnv(cfg)
	if cfg.LLM.GeminiKey != "prefixed" {
		t.Errorf("prefixed variable should win, got %q", cfg.LLM.GeminiKey)
	}
}

func TestOverrideFromEnvNoEnvSet(t *testing.T) {
	clearKeyEnv(t)

	cfg := &Config{LLM: LLMConfig{OpenAIKey: "from-config", GeminiKey: "cfg-gemini"}}
	overrideFromEnv(cfg)

	if cfg.LLM.OpenAIKey != "from-config" {
		t.Errorf("OpenAIKey should stay as 'from-config' when env is unset, got %q", cfg.LLM.OpenAIKey)
	}
	if cfg.LLM.GeminiKey != "cfg-gemini" {
		t.Errorf("GeminiKey should stay as 'cfg-gemini', got %q", cfg.LLM.GeminiKey)
	}
}

// ── maskKey ──

func TestMaskKey(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "***"},
		{"abcd", "***"},
		{"12345678", "***"},
		{"123456789", "123...789"},
		{"AIzaSyDabcdef1234567890xyz", "AIz...xyz"},
	}
	for _, tc := range tests {
		if got := maskKey(tc.input); got != tc.want {
			t.Errorf("maskKey(%q): got %q, want %q", tc.input, got, tc.want)
		}
	}
}

// ── CheckAPIKeys / checkKey ──

func TestCheckAPIKeysAllEmpty(t *testing.T) {
	clearKeyEnv(t)

	statuses := CheckAPIKeys(&Config{})
	if len(statuses) != 3 {
		t.Fatalf("CheckAPIKeys: got %d statuses, want 3", len(statuses))
	}
	for _, s := range statuses {
		if s.IsSet {
			t.Errorf("Key %q should not be set", s.Name)
		}
		if s.Source != KeySourceNone {
			t.Errorf("Key %q source: got %q, want %q", s.Name, s.Source, KeySourceNone)
		}
	}
}

func TestCheckAPIKeysSources(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("GEMINI_API_KEY", "AIza-env-key-for-testing")

	cfg := &Config{LLM: LLMConfig{
		GeminiKey: "AIza-env-key-for-testing",
		OpenAIKey: "sk-test-very-long-key-value",
	}}
	statuses := CheckAPIKeys(cfg)

	if statuses[0].Source != KeySourceEnv {
		t.Errorf("Gemini source: got %q, want %q", statuses[0].Source, KeySourceEnv)
	}
	if statuses[1].Source != KeySourceConfig {
		t.Errorf("OpenAI source: got %q, want %q", statuses[1].Source, KeySourceConfig)
	}
	if statuses[1].Masked != "sk-...lue" {
		t.Errorf("OpenAI masked: got %q, want %q", statuses[1].Masked, "sk-...lue")
	}
}

func TestHasLLMKey(t *testing.T) {
	tests := []struct {
		cfg  LLMConfig
		want bool
	}{
		{LLMConfig{Primary: "gemini"}, false},
		{LLMConfig{Primary: "gemini", GeminiKey: "k"}, true},
		{LLMConfig{Primary: "", GeminiKey: "k"}, true},
		{LLMConfig{Primary: "openai", GeminiKey: "k"}, false},
		{LLMConfig{Primary: "anthropic", AnthropicKey: "k"}, true},
		{LLMConfig{Primary: "ollama"}, true},
	}
	for _, tc := range tests {
		if got := HasLLMKey(&Config{LLM: tc.cfg}); got != tc.want {
			t.Errorf("HasLLMKey(%+v): got %v, want %v", tc.cfg, got, tc.want)
		}
	}
}

// ── homeDir ──

func TestConfigFilePathUnderHome(t *testing.T) {
	p := ConfigFilePath()
	if filepath.Base(p) != "config.yaml" {
		t.Errorf("ConfigFilePath: got %q", p)
	}
	if homeDir() == "" {
		t.Error("homeDir() should not return empty string")
	}
}
