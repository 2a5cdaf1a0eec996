package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/searchlens/internal/domain/search/query"
	"github.com/kailas-cloud/searchlens/internal/usecase/enrich"
	"github.com/kailas-cloud/searchlens/internal/usecase/normalize"
)

// Embedding providers.
const (
	ProviderTexts  = "texts"
	ProviderOpenAI = "openai"
)

// Config holds the searchlens configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Logging    LoggingConfig    `yaml:"logging"`
	Search     SearchConfig     `yaml:"search"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Cache      CacheConfig      `yaml:"cache"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// SearchConfig holds search engine and query defaults.
type SearchConfig struct {
	Host                 string                         `yaml:"host"`
	APIKey               string                         `yaml:"api_key"`
	Embedder             string                         `yaml:"embedder"` // engine-side embedder name
	TimeoutSec           int                            `yaml:"timeout_sec"`
	DefaultKnowledgeBase string                         `yaml:"default_knowledge_base"`
	KnowledgeBases       map[string]KnowledgeBaseConfig `yaml:"knowledge_bases"`
	DefaultSemanticRatio *float64                       `yaml:"default_semantic_ratio"`
	DefaultTopK          int                            `yaml:"default_top_k"`
	MaxTopK              int                            `yaml:"max_top_k"`
}

// KnowledgeBaseConfig holds per-index field overrides, prepended to the default keys.
type KnowledgeBaseConfig struct {
	Fields map[string][]string `yaml:"fields"`
}

// EmbeddingConfig holds query embedding settings.
type EmbeddingConfig struct {
	Provider         string           `yaml:"provider"` // texts (default) | openai
	URL              string           `yaml:"url"`      // texts endpoint or OpenAI-compatible base URL
	APIKey           string           `yaml:"api_key"`
	Model            string           `yaml:"model"`
	Dimensions       int              `yaml:"dimensions"` // 0 disables the check
	TimeoutSec       int              `yaml:"timeout_sec"`
	QueryInstruction string           `yaml:"query_instruction"`
	Cache            LayerCacheConfig `yaml:"cache"`
}

// GenerationConfig holds LLM settings for enrichment.
type GenerationConfig struct {
	BaseURL     string           `yaml:"base_url"`
	APIKey      string           `yaml:"api_key"`
	Model       string           `yaml:"model"`
	Temperature float32          `yaml:"temperature"`
	MaxTokens   int              `yaml:"max_tokens"`
	TimeoutSec  int              `yaml:"timeout_sec"`
	Workers     int              `yaml:"workers"`
	RatePerSec  float64          `yaml:"rate_per_sec"` // 0 = unlimited
	Burst       int              `yaml:"burst"`
	Prompts     enrich.Prompts   `yaml:"prompts"`
	Cache       LayerCacheConfig `yaml:"cache"`
}

// LayerCacheConfig toggles a Redis-backed cache for one layer.
type LayerCacheConfig struct {
	Enabled bool `yaml:"enabled"`
	TTLSec  int  `yaml:"ttl_sec"` // 0 = no expiry
}

// TTL returns the cache entry lifetime.
func (c LayerCacheConfig) TTL() time.Duration { return time.Duration(c.TTLSec) * time.Second }

// CacheConfig holds the Redis connection used by the caches.
type CacheConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 120 // enrichment runs inside the request
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Search.Embedder == "" {
		c.Search.Embedder = "bge_m3"
	}
	if c.Search.TimeoutSec <= 0 {
		c.Search.TimeoutSec = 10
	}
	if c.Search.DefaultKnowledgeBase == "" && len(c.Search.KnowledgeBases) > 0 {
		names := c.KnowledgeBaseNames()
		c.Search.DefaultKnowledgeBase = names[0]
	}
	if c.Search.DefaultSemanticRatio == nil {
		r := query.DefaultSemanticRatio
		c.Search.DefaultSemanticRatio = &r
	}
	if c.Search.DefaultTopK <= 0 {
		c.Search.DefaultTopK = query.DefaultTopK
	}
	if c.Search.MaxTopK <= 0 {
		c.Search.MaxTopK = query.MaxTopK
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = ProviderTexts
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 10
	}

	if c.Generation.Temperature <= 0 {
		c.Generation.Temperature = enrich.DefaultTemperature
	}
	if c.Generation.MaxTokens <= 0 {
		c.Generation.MaxTokens = enrich.DefaultMaxTokens
	}
	if c.Generation.TimeoutSec <= 0 {
		c.Generation.TimeoutSec = int(enrich.DefaultTimeout / time.Second)
	}
	if c.Generation.Workers <= 0 {
		c.Generation.Workers = enrich.DefaultWorkers
	}
	if c.Generation.RatePerSec > 0 && c.Generation.Burst <= 0 {
		c.Generation.Burst = 1
	}

	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Search.Host == "" {
		return fmt.Errorf("search.host is required")
	}
	if c.Search.DefaultKnowledgeBase == "" {
		return fmt.Errorf("search.default_knowledge_base is required")
	}
	if len(c.Search.KnowledgeBases) > 0 {
		if _, ok := c.Search.KnowledgeBases[c.Search.DefaultKnowledgeBase]; !ok {
			return fmt.Errorf("search.default_knowledge_base %q is not in search.knowledge_bases",
				c.Search.DefaultKnowledgeBase)
		}
	}
	for name, kb := range c.Search.KnowledgeBases {
		for f := range kb.Fields {
			if _, err := normalize.ParseField(f); err != nil {
				return fmt.Errorf("search.knowledge_bases.%s.fields: %w", name, err)
			}
		}
	}
	if r := *c.Search.DefaultSemanticRatio; r < 0 || r > 1 {
		return fmt.Errorf("search.default_semantic_ratio must be within [0,1], got %v", r)
	}
	if c.Search.DefaultTopK > c.Search.MaxTopK {
		return fmt.Errorf("search.default_top_k (%d) must not exceed search.max_top_k (%d)",
			c.Search.DefaultTopK, c.Search.MaxTopK)
	}

	switch c.Embedding.Provider {
	case ProviderTexts, ProviderOpenAI:
	default:
		return fmt.Errorf("embedding.provider must be %q or %q, got %q",
			ProviderTexts, ProviderOpenAI, c.Embedding.Provider)
	}
	if c.Embedding.URL == "" {
		return fmt.Errorf("embedding.url is required")
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}

	if c.Generation.Model == "" {
		return fmt.Errorf("generation.model is required")
	}
	if c.Generation.Temperature > 2 {
		return fmt.Errorf("generation.temperature must be within (0,2], got %v", c.Generation.Temperature)
	}

	if (c.Embedding.Cache.Enabled || c.Generation.Cache.Enabled) && len(c.Cache.Addrs) == 0 {
		return fmt.Errorf("cache.addrs is required when a cache is enabled")
	}
	return nil
}

// KnowledgeBaseNames returns the allow-listed knowledge bases, sorted.
func (c *Config) KnowledgeBaseNames() []string {
	names := make([]string, 0, len(c.Search.KnowledgeBases))
	for name := range c.Search.KnowledgeBases {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// QueryDefaults returns the defaults applied to incoming queries.
func (c *Config) QueryDefaults() query.Defaults {
	return query.Defaults{
		KnowledgeBase:  c.Search.DefaultKnowledgeBase,
		KnowledgeBases: c.KnowledgeBaseNames(),
		SemanticRatio:  *c.Search.DefaultSemanticRatio,
		TopK:           c.Search.DefaultTopK,
		MaxTopK:        c.Search.MaxTopK,
	}
}

// Normalizers builds the per-knowledge-base normalizer registry.
// Field names are checked by Validate.
func (c *Config) Normalizers() *normalize.Registry {
	reg := normalize.NewRegistry()
	for name, kb := range c.Search.KnowledgeBases {
		if len(kb.Fields) == 0 {
			continue
		}
		extra := make(map[normalize.Field][]string, len(kb.Fields))
		for f, keys := range kb.Fields {
			field, err := normalize.ParseField(f)
			if err != nil {
				continue
			}
			extra[field] = keys
		}
		reg.WithKnowledgeBase(name, extra)
	}
	return reg
}

// Seconds converts a config seconds value to a duration.
func Seconds(n int) time.Duration { return time.Duration(n) * time.Second }

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
