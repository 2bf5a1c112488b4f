// Package config loads the application configuration from YAML.
package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// EmbedderConfig configures the OpenAI-compatible embeddings client.
type EmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	Concurrency int    `yaml:"concurrency"`
}

// GeneratorConfig configures the HuggingFace inference client.
type GeneratorConfig struct {
	BaseURL      string  `yaml:"base_url"`
	APIKeyEnv    string  `yaml:"api_key_env"`
	Model        string  `yaml:"model"`
	TimeoutSecs  int     `yaml:"timeout_secs"`
	MaxNewTokens int     `yaml:"max_new_tokens"`
	Temperature  float64 `yaml:"temperature"`
}

// RetrieverConfig bounds how many passages feed the prompt.
type RetrieverConfig struct {
	TopK int `yaml:"top_k"`
}

// IndexerConfig controls corpus scanning and batch indexing.
type IndexerConfig struct {
	BatchSize int    `yaml:"batch_size"`
	Pattern   string `yaml:"pattern"`
	Recursive bool   `yaml:"recursive"`
}

// PromptConfig overrides the built-in prompt template when set.
type PromptConfig struct {
	Template string `yaml:"template"`
}

// WikiConfig configures the Wikipedia category downloader.
type WikiConfig struct {
	Language    string `yaml:"language"`
	UserAgent   string `yaml:"user_agent"`
	Category    string `yaml:"category"`
	MaxDepth    int    `yaml:"max_depth"`
	ArticlesDir string `yaml:"articles_dir"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Log       string          `yaml:"log"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Generator GeneratorConfig `yaml:"generator"`
	Retriever RetrieverConfig `yaml:"retriever"`
	Indexer   IndexerConfig   `yaml:"indexer"`
	Prompt    PromptConfig    `yaml:"prompt"`
	Wiki      WikiConfig      `yaml:"wiki"`
}

// Load reads a config from a specified path. If the file does not exist,
// returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/wikirag/config.yaml.
// If neither exists, it writes defaults to ~/.config/wikirag/config.yaml
// and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "wikirag", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Log == "" {
		cfg.Log = "production"
	}
	if cfg.Embedder.BaseURL == "" {
		cfg.Embedder.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Embedder.APIKeyEnv == "" {
		cfg.Embedder.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Embedder.Model == "" {
		cfg.Embedder.Model = "text-embedding-3-small"
	}
	if cfg.Embedder.TimeoutSecs == 0 {
		cfg.Embedder.TimeoutSecs = 30
	}
	if cfg.Embedder.Concurrency == 0 {
		cfg.Embedder.Concurrency = 4
	}
	if cfg.Generator.BaseURL == "" {
		cfg.Generator.BaseURL = "https://api-inference.huggingface.co"
	}
	if cfg.Generator.APIKeyEnv == "" {
		cfg.Generator.APIKeyEnv = "HUGGINGFACE_API_KEY"
	}
	if cfg.Generator.Model == "" {
		cfg.Generator.Model = "HuggingFaceH4/zephyr-7b-beta"
	}
	if cfg.Generator.TimeoutSecs == 0 {
		cfg.Generator.TimeoutSecs = 60
	}
	if cfg.Generator.MaxNewTokens == 0 {
		cfg.Generator.MaxNewTokens = 512
	}
	if cfg.Generator.Temperature == 0 {
		cfg.Generator.Temperature = 0.7
	}
	if cfg.Retriever.TopK == 0 {
		cfg.Retriever.TopK = 3
	}
	if cfg.Indexer.BatchSize == 0 {
		cfg.Indexer.BatchSize = 32
	}
	if cfg.Indexer.Pattern == "" {
		cfg.Indexer.Pattern = "*.txt"
		cfg.Indexer.Recursive = true
	}
	if cfg.Wiki.Language == "" {
		cfg.Wiki.Language = "en"
	}
	if cfg.Wiki.UserAgent == "" {
		cfg.Wiki.UserAgent = "wikirag (contact@example.com)"
	}
	if cfg.Wiki.Category == "" {
		cfg.Wiki.Category = "Formula_One_races"
	}
	if cfg.Wiki.MaxDepth == 0 {
		cfg.Wiki.MaxDepth = 3
	}
	if cfg.Wiki.ArticlesDir == "" {
		cfg.Wiki.ArticlesDir = filepath.Join("data", "articles")
	}
}
