// Package config loads and validates cadi's layered configuration: a
// project YAML file overlaid with environment-variable overrides, the
// way the host project layers its own project/user/env config.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is cadi's complete configuration.
type Config struct {
	Atomizer    AtomizerConfig    `yaml:"atomizer" json:"atomizer"`
	Graph       GraphConfig       `yaml:"graph" json:"graph"`
	Rehydration RehydrationConfig `yaml:"rehydration" json:"rehydration"`
	Dedup       DedupConfig       `yaml:"dedup" json:"dedup"`
	Server      ServerConfig      `yaml:"server" json:"server"`
}

// AtomizerConfig controls source extraction limits and enabled languages.
type AtomizerConfig struct {
	// MaxSourceSizeBytes is a per-file size cap. It is loaded and
	// validated here; the atomize and watch commands do not read it, so
	// no file is skipped for its size.
	MaxSourceSizeBytes int `yaml:"max_source_size_bytes" json:"max_source_size_bytes"`
	// EnabledLanguages is a language allowlist. It is loaded here; the
	// atomize and watch commands do not read it, so every language the
	// atomizer registry knows is atomized.
	EnabledLanguages []string `yaml:"enabled_languages" json:"enabled_languages"`
}

// GraphConfig controls the graph store's backend and on-disk layout.
type GraphConfig struct {
	// Backend selects the store implementation: "memory" or "sqlite".
	Backend string `yaml:"backend" json:"backend"`
	// DataDir is the cache root holding graph.db and the blobs/ tree.
	DataDir string `yaml:"data_dir" json:"data_dir"`
	// BlobShardWidth is loaded and validated here but not read by the
	// store: SQLiteStore always shards blobs on the first 2 hex
	// characters (blobs/sha256/<shard>/<rest>, via chunkid.Shard).
	BlobShardWidth int `yaml:"blob_shard_width" json:"blob_shard_width"`
}

// RehydrationConfig selects a named expansion policy and field overrides
// applied on top of it.
type RehydrationConfig struct {
	// Policy names a preset: "conservative", "default", or "aggressive".
	Policy string `yaml:"policy" json:"policy"`

	MaxDepth  *int `yaml:"max_depth,omitempty" json:"max_depth,omitempty"`
	MaxAtoms  *int `yaml:"max_atoms,omitempty" json:"max_atoms,omitempty"`
	MaxTokens *int `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`
}

// DedupConfig controls the semantic normalizer's alpha-rename pass.
type DedupConfig struct {
	// AlphaRenameLanguages is loaded here but not read by package
	// normalize, which α-renames its own fixed set of languages and
	// canonicalizes every other language without renaming.
	AlphaRenameLanguages []string `yaml:"alpha_rename_languages" json:"alpha_rename_languages"`
}

// ServerConfig is reserved for the external MCP/CLI transport wiring.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
}

// NewConfig returns a Config populated with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Atomizer: AtomizerConfig{
			MaxSourceSizeBytes: 2 * 1024 * 1024,
			EnabledLanguages:   nil,
		},
		Graph: GraphConfig{
			Backend:        "sqlite",
			DataDir:        defaultDataDir(),
			BlobShardWidth: 2,
		},
		Rehydration: RehydrationConfig{
			Policy: "default",
		},
		Dedup: DedupConfig{
			AlphaRenameLanguages: nil,
		},
		Server: ServerConfig{
			Transport: "stdio",
			LogLevel:  "info",
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".cadi")
	}
	return filepath.Join(home, ".cadi")
}

// Load builds a Config for the project rooted at dir: defaults,
// overlaid with .cadi.yaml if present, overlaid with CADI_* environment
// variables, which take highest precedence.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadFromFile merges .cadi.yaml (or .cadi.yml) from dir into c, if present.
func (c *Config) loadFromFile(dir string) error {
	for _, name := range []string{".cadi.yaml", ".cadi.yml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		return c.loadYAML(path)
	}
	return nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	c.mergeWith(&parsed)
	return nil
}

// mergeWith overlays non-zero fields of other onto c.
func (c *Config) mergeWith(other *Config) {
	if other.Atomizer.MaxSourceSizeBytes != 0 {
		c.Atomizer.MaxSourceSizeBytes = other.Atomizer.MaxSourceSizeBytes
	}
	if len(other.Atomizer.EnabledLanguages) > 0 {
		c.Atomizer.EnabledLanguages = other.Atomizer.EnabledLanguages
	}
	if other.Graph.Backend != "" {
		c.Graph.Backend = other.Graph.Backend
	}
	if other.Graph.DataDir != "" {
		c.Graph.DataDir = other.Graph.DataDir
	}
	if other.Graph.BlobShardWidth != 0 {
		c.Graph.BlobShardWidth = other.Graph.BlobShardWidth
	}
	if other.Rehydration.Policy != "" {
		c.Rehydration.Policy = other.Rehydration.Policy
	}
	if other.Rehydration.MaxDepth != nil {
		c.Rehydration.MaxDepth = other.Rehydration.MaxDepth
	}
	if other.Rehydration.MaxAtoms != nil {
		c.Rehydration.MaxAtoms = other.Rehydration.MaxAtoms
	}
	if other.Rehydration.MaxTokens != nil {
		c.Rehydration.MaxTokens = other.Rehydration.MaxTokens
	}
	if len(other.Dedup.AlphaRenameLanguages) > 0 {
		c.Dedup.AlphaRenameLanguages = other.Dedup.AlphaRenameLanguages
	}
	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}
}

// applyEnvOverrides applies CADI_<SECTION>_<FIELD> overrides, highest
// precedence in the load order.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CADI_GRAPH_BACKEND"); v != "" {
		c.Graph.Backend = v
	}
	if v := os.Getenv("CADI_GRAPH_DATA_DIR"); v != "" {
		c.Graph.DataDir = v
	}
	if v := os.Getenv("CADI_GRAPH_BLOB_SHARD_WIDTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Graph.BlobShardWidth = n
		}
	}
	if v := os.Getenv("CADI_ATOMIZER_MAX_SOURCE_SIZE_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Atomizer.MaxSourceSizeBytes = n
		}
	}
	if v := os.Getenv("CADI_REHYDRATION_POLICY"); v != "" {
		c.Rehydration.Policy = v
	}
	if v := os.Getenv("CADI_SERVER_TRANSPORT"); v != "" {
		c.Server.Transport = v
	}
	if v := os.Getenv("CADI_SERVER_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("CADI_DEDUP_ALPHA_RENAME_LANGUAGES"); v != "" {
		c.Dedup.AlphaRenameLanguages = strings.Split(v, ",")
	}
}

// Validate rejects a configuration cadi cannot run with.
func (c *Config) Validate() error {
	switch c.Graph.Backend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("graph.backend must be \"memory\" or \"sqlite\", got %q", c.Graph.Backend)
	}
	switch c.Rehydration.Policy {
	case "conservative", "default", "aggressive":
	default:
		return fmt.Errorf("rehydration.policy must be one of conservative/default/aggressive, got %q", c.Rehydration.Policy)
	}
	if c.Atomizer.MaxSourceSizeBytes <= 0 {
		return fmt.Errorf("atomizer.max_source_size_bytes must be positive, got %d", c.Atomizer.MaxSourceSizeBytes)
	}
	if c.Graph.BlobShardWidth <= 0 {
		return fmt.Errorf("graph.blob_shard_width must be positive, got %d", c.Graph.BlobShardWidth)
	}
	return nil
}

// WriteYAML writes c to path as YAML.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// FindProjectRoot walks upward from startDir looking for a .git
// directory or a .cadi.yaml/.cadi.yml file, returning startDir itself
// if neither is found before the filesystem root.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	currentDir := absDir
	for {
		if dirExists(filepath.Join(currentDir, ".git")) {
			return currentDir, nil
		}
		if fileExists(filepath.Join(currentDir, ".cadi.yaml")) || fileExists(filepath.Join(currentDir, ".cadi.yml")) {
			return currentDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return absDir, nil
		}
		currentDir = parentDir
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
