package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Project config file names, in lookup order.
const (
	ProjectConfigName    = ".elasticmcp.yaml"
	ProjectConfigNameAlt = ".elasticmcp.yml"
)

// redacted replaces secrets in Redacted.
const redacted = "********"

// Config represents the complete elasticmcp configuration.
type Config struct {
	Version       int                 `yaml:"version" json:"version"`
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch" json:"elasticsearch"`
	Search        SearchConfig        `yaml:"search" json:"search"`
	Server        ServerConfig        `yaml:"server" json:"server"`
	Telemetry     TelemetryConfig     `yaml:"telemetry" json:"telemetry"`
}

// ElasticsearchConfig configures the cluster connection.
type ElasticsearchConfig struct {
	URL          string        `yaml:"url" json:"url"`
	Username     string        `yaml:"username" json:"username"`
	Password     string        `yaml:"password" json:"password"`
	DefaultIndex string        `yaml:"default_index" json:"default_index"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`

	// InsecureSkipVerify disables TLS certificate checks. On by default since
	// stock clusters ship a self-signed certificate.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify" json:"insecure_skip_verify"`
}

// elasticsearchJSON mirrors ElasticsearchConfig with the timeout as a
// duration string, matching the YAML form.
type elasticsearchJSON struct {
	URL                string `json:"url"`
	Username           string `json:"username"`
	Password           string `json:"password"`
	DefaultIndex       string `json:"default_index"`
	Timeout            string `json:"timeout"`
	InsecureSkipVerify bool   `json:"insecure_skip_verify"`
}

// MarshalJSON encodes the timeout as "30s" rather than nanoseconds.
func (e ElasticsearchConfig) MarshalJSON() ([]byte, error) {
	return json.Marshal(elasticsearchJSON{
		URL:                e.URL,
		Username:           e.Username,
		Password:           e.Password,
		DefaultIndex:       e.DefaultIndex,
		Timeout:            e.Timeout.String(),
		InsecureSkipVerify: e.InsecureSkipVerify,
	})
}

// UnmarshalJSON accepts the timeout as a duration string or seconds.
func (e *ElasticsearchConfig) UnmarshalJSON(data []byte) error {
	in := elasticsearchJSON{
		URL:                e.URL,
		Username:           e.Username,
		Password:           e.Password,
		DefaultIndex:       e.DefaultIndex,
		Timeout:            e.Timeout.String(),
		InsecureSkipVerify: e.InsecureSkipVerify,
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	timeout, err := parseTimeout(in.Timeout)
	if err != nil {
		return fmt.Errorf("elasticsearch.timeout: %w", err)
	}
	*e = ElasticsearchConfig{
		URL:                in.URL,
		Username:           in.Username,
		Password:           in.Password,
		DefaultIndex:       in.DefaultIndex,
		Timeout:            timeout,
		InsecureSkipVerify: in.InsecureSkipVerify,
	}
	return nil
}

// SearchConfig holds the defaults applied to search tool parameters the
// caller leaves unset.
type SearchConfig struct {
	Size           int  `yaml:"size" json:"size"`
	Highlight      bool `yaml:"highlight" json:"highlight"`
	FragmentSize   int  `yaml:"fragment_size" json:"fragment_size"`
	NumFragments   int  `yaml:"num_fragments" json:"num_fragments"`
	RankWindowSize int  `yaml:"rank_window_size" json:"rank_window_size"`
	RankConstant   int  `yaml:"rank_constant" json:"rank_constant"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
	Addr      string `yaml:"addr" json:"addr"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
}

// TelemetryConfig configures metrics and in-memory query insights.
type TelemetryConfig struct {
	Metrics       bool `yaml:"metrics" json:"metrics"`
	QueryInsights bool `yaml:"query_insights" json:"query_insights"`
	TopTerms      int  `yaml:"top_terms" json:"top_terms"`
	ZeroResults   int  `yaml:"zero_results" json:"zero_results"`
	RecentQueries int  `yaml:"recent_queries" json:"recent_queries"`
}

// NewConfig returns a configuration with all defaults applied.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Elasticsearch: ElasticsearchConfig{
			URL:                "https://elasticsearch:9200",
			Username:           "elastic",
			Password:           "changeme",
			DefaultIndex:       "documents",
			Timeout:            30 * time.Second,
			InsecureSkipVerify: true,
		},
		Search: SearchConfig{
			Size:           5,
			Highlight:      true,
			FragmentSize:   600,
			NumFragments:   5,
			RankWindowSize: 50,
			RankConstant:   20,
		},
		Server: ServerConfig{
			Transport: "stdio",
			Addr:      ":8080",
			LogLevel:  "info",
		},
		Telemetry: TelemetryConfig{
			Metrics:       true,
			QueryInsights: true,
			TopTerms:      100,
			ZeroResults:   50,
			RecentQueries: 500,
		},
	}
}

// GetUserConfigPath returns the path of the user config file, honoring
// XDG_CONFIG_HOME.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "elasticmcp", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "elasticmcp", "config.yaml")
	}
	return filepath.Join(home, ".config", "elasticmcp", "config.yaml")
}

// GetUserConfigDir returns the directory holding the user config file.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists reports whether the user config file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// ProjectConfigPath returns the project config file in dir, or "" when there
// is none. The .yaml name wins over .yml.
func ProjectConfigPath(dir string) string {
	for _, name := range []string{ProjectConfigName, ProjectConfigNameAlt} {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return path
		}
	}
	return ""
}

// Load builds the effective configuration for dir. Precedence, lowest first:
// defaults, user config, project config, environment.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if path := GetUserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
	}

	if path := ProjectConfigPath(dir); path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadYAML overlays the keys present in path onto c. Keys absent from the
// file keep their current value, so an explicit zero or false is honored.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	next := *c
	if err := yaml.Unmarshal(data, &next); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	*c = next
	return nil
}

// applyEnvOverrides applies environment variables. The ES_* names match
// existing deployments; the rest carry the ELASTICMCP_ prefix.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("ES_HOST"); v != "" {
		c.Elasticsearch.URL = v
	}
	if v := os.Getenv("ES_USER"); v != "" {
		c.Elasticsearch.Username = v
	}
	if v, ok := os.LookupEnv("ES_PASS"); ok {
		c.Elasticsearch.Password = v
	}
	if v := os.Getenv("ES_DEFAULT_INDEX"); v != "" {
		c.Elasticsearch.DefaultIndex = v
	}
	if v := os.Getenv("ELASTICMCP_TIMEOUT"); v != "" {
		d, err := parseTimeout(v)
		if err != nil {
			return fmt.Errorf("ELASTICMCP_TIMEOUT: %w", err)
		}
		c.Elasticsearch.Timeout = d
	}
	if v := os.Getenv("ELASTICMCP_INSECURE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("ELASTICMCP_INSECURE: %w", err)
		}
		c.Elasticsearch.InsecureSkipVerify = b
	}
	if v := os.Getenv("ELASTICMCP_TRANSPORT"); v != "" {
		c.Server.Transport = v
	}
	if v := os.Getenv("ELASTICMCP_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("ELASTICMCP_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	return nil
}

// parseTimeout accepts a Go duration ("45s") or a bare number of seconds.
func parseTimeout(s string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(s)
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Elasticsearch.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("elasticsearch.url must be an http(s) URL, got %q", c.Elasticsearch.URL)
	}
	if c.Elasticsearch.DefaultIndex == "" {
		return fmt.Errorf("elasticsearch.default_index must not be empty")
	}
	if c.Elasticsearch.Timeout <= 0 {
		return fmt.Errorf("elasticsearch.timeout must be positive, got %s", c.Elasticsearch.Timeout)
	}

	nonNegative := map[string]int{
		"search.size":              c.Search.Size,
		"search.fragment_size":     c.Search.FragmentSize,
		"search.num_fragments":     c.Search.NumFragments,
		"search.rank_window_size":  c.Search.RankWindowSize,
		"search.rank_constant":     c.Search.RankConstant,
		"telemetry.top_terms":      c.Telemetry.TopTerms,
		"telemetry.zero_results":   c.Telemetry.ZeroResults,
		"telemetry.recent_queries": c.Telemetry.RecentQueries,
	}
	for name, v := range nonNegative {
		if v < 0 {
			return fmt.Errorf("%s must be non-negative, got %d", name, v)
		}
	}

	validTransports := map[string]bool{"stdio": true, "http": true}
	if !validTransports[strings.ToLower(c.Server.Transport)] {
		return fmt.Errorf("server.transport must be 'stdio' or 'http', got %s", c.Server.Transport)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}

	return nil
}

// Redacted returns a copy safe to print, with the password masked.
func (c *Config) Redacted() *Config {
	out := *c
	if out.Elasticsearch.Password != "" {
		out.Elasticsearch.Password = redacted
	}
	return &out
}

// WriteFile writes a configuration file to path, creating its directory.
// The file may hold credentials, so it is created owner-readable only.
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// WriteYAML writes the configuration to path as YAML.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return WriteFile(path, data)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
