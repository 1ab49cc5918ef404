// Package config loads and persists wikisync's configuration: the list of
// space bindings (remote space <-> local directory pairs) plus the global
// options that apply across all of them.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default rate-limit and transform settings, carried over from the
// teacher's Notion-specific defaults since the underlying backend is
// still notionapi.
const (
	DefaultRequestsPerSecond = 3.0
	DefaultBatchSize         = 100
	DefaultPageLimit         = 200
	DefaultWorkers           = 10
)

// SpaceBinding pairs one remote wiki space with one local directory. A
// Config may track several independent bindings at once, each with its
// own exclusions.
type SpaceBinding struct {
	RemoteBaseURL  string   `yaml:"remote_base_url"`
	SpaceKey       string   `yaml:"space_key"`
	RootPageID     string   `yaml:"root_page_id"`
	LocalPath      string   `yaml:"local_path"`
	ExcludeRoot    bool     `yaml:"exclude_root,omitempty"`
	ExcludePageIDs []string `yaml:"exclude_page_ids,omitempty"`
	ExcludeLocal   []string `yaml:"exclude_local,omitempty"`
}

// Validate checks that a binding has everything the orchestrator needs to
// run a cycle against it.
func (b SpaceBinding) Validate() error {
	if b.RemoteBaseURL == "" {
		return fmt.Errorf("remote_base_url is required")
	}
	if b.SpaceKey == "" {
		return fmt.Errorf("space_key is required")
	}
	if b.LocalPath == "" {
		return fmt.Errorf("local_path is required")
	}
	return nil
}

// TransformConfig holds content-conversion settings shared by every space
// binding (carried from the teacher's transform settings, since the
// document-tree <-> text converter is an ambient collaborator, not part
// of the spec's sync-engine core).
type TransformConfig struct {
	Dataview        string            `yaml:"dataview,omitempty"`
	Callouts        map[string]string `yaml:"callouts,omitempty"`
	UnresolvedLinks string            `yaml:"unresolved_links,omitempty"`
}

// RateLimitConfig configures the remote client's request pacing.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty"`
	BatchSize         int     `yaml:"batch_size,omitempty"`
	Workers           int     `yaml:"workers,omitempty"`
}

// Config is the persisted, top-level configuration: global options plus
// every space binding the engine will cycle over.
type Config struct {
	PageLimit  int              `yaml:"page_limit,omitempty"`
	LastSynced *time.Time       `yaml:"last_synced,omitempty"`
	Spaces     []SpaceBinding   `yaml:"spaces"`
	Transform  TransformConfig  `yaml:"transform,omitempty"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit,omitempty"`

	// path is where this Config was loaded from, so Save can write back
	// to the same place by default. unknown carries every YAML key this
	// struct doesn't know about, so Save never drops fields a newer
	// version of wikisync (or a human) added by hand.
	path    string          `yaml:"-"`
	unknown yaml.Node       `yaml:"-"`
}

// DefaultConfig returns a Config with the same baseline defaults the
// teacher ships (rate limits, callout icon set, dataview handling),
// generalized to apply across every space binding instead of a single
// Notion integration.
func DefaultConfig() *Config {
	return &Config{
		PageLimit: DefaultPageLimit,
		Transform: TransformConfig{
			Dataview:        "placeholder",
			UnresolvedLinks: "placeholder",
			Callouts: map[string]string{
				"note":     "💡",
				"warning":  "⚠️",
				"tip":      "💡",
				"info":     "ℹ️",
				"danger":   "🔴",
				"example":  "📝",
				"quote":    "💬",
				"success":  "✅",
				"failure":  "❌",
				"bug":      "🐛",
				"question": "❓",
			},
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: DefaultRequestsPerSecond,
			BatchSize:         DefaultBatchSize,
			Workers:           DefaultWorkers,
		},
	}
}

// Load reads configuration from path, or from the default search
// locations when path is empty. Absence of configuration is reported to
// the caller as a plain error; the CLI treats that as a fatal,
// user-visible configuration error per spec.
func Load(path string) (*Config, error) {
	if path != "" {
		return loadFromFile(path)
	}

	locations := []string{".wikisync.yaml", ".wikisync.yml"}
	if home, err := os.UserHomeDir(); err == nil {
		locations = append(locations,
			filepath.Join(home, ".config", "wikisync", "config.yaml"),
			filepath.Join(home, ".config", "wikisync", "config.yml"),
		)
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loadFromFile(loc)
		}
	}

	return nil, fmt.Errorf("no configuration file found (tried: %s)", strings.Join(locations, ", "))
}

func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()
	cfg.path = path

	// Unmarshal twice: once into the typed struct, once into a raw node
	// tree that Save merges back so unknown keys a human or a newer
	// binary added survive a rewrite (spec §6: "fields are merged on
	// rewrite; unknown fields preserved" — the teacher's plain
	// Marshal(cfg) loses this, which is why Save below does not reuse it
	// verbatim).
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg.unknown); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg.expandEnvVars()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) expandEnvVars() {
	for i := range c.Spaces {
		c.Spaces[i].RemoteBaseURL = expandEnv(c.Spaces[i].RemoteBaseURL)
		c.Spaces[i].LocalPath = expandEnv(c.Spaces[i].LocalPath)
		if strings.HasPrefix(c.Spaces[i].LocalPath, "~") {
			if home, err := os.UserHomeDir(); err == nil {
				c.Spaces[i].LocalPath = filepath.Join(home, c.Spaces[i].LocalPath[1:])
			}
		}
	}
}

func expandEnv(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return os.Getenv(s[2 : len(s)-1])
	}
	return os.ExpandEnv(s)
}

// Validate checks that the configuration has at least one usable space
// binding, and that every binding is individually well-formed.
func (c *Config) Validate() error {
	if len(c.Spaces) == 0 {
		return fmt.Errorf("at least one space binding is required")
	}
	for i, s := range c.Spaces {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("spaces[%d]: %w", i, err)
		}
	}
	return nil
}

// Path returns the file this Config was loaded from, or empty if it was
// never loaded from disk.
func (c *Config) Path() string {
	return c.path
}

// Save writes the configuration back to path (or to the path it was
// loaded from, if path is empty), merging the typed fields over whatever
// unknown keys were captured at load time so round-tripping an
// externally-extended config file never drops data.
func (c *Config) Save(path string) error {
	if path == "" {
		path = c.path
	}
	if path == "" {
		return fmt.Errorf("config: no path to save to")
	}

	typed, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	merged := typed
	if c.unknown.Kind != 0 {
		var typedNode yaml.Node
		if err := yaml.Unmarshal(typed, &typedNode); err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		mergeYAMLNodes(&typedNode, &c.unknown)
		out, err := yaml.Marshal(&typedNode)
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		merged = out
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, merged, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("commit config file: %w", err)
	}

	c.path = path
	return nil
}

// mergeYAMLNodes copies every mapping key present in src but absent from
// dst into dst, so keys the typed Config struct doesn't know about
// survive a Save. Both nodes are expected to be single-document mappings
// (yaml.Unmarshal always produces a DocumentNode wrapping one).
func mergeYAMLNodes(dst, src *yaml.Node) {
	dstMap := unwrapMapping(dst)
	srcMap := unwrapMapping(src)
	if dstMap == nil || srcMap == nil {
		return
	}

	known := map[string]bool{}
	for i := 0; i+1 < len(dstMap.Content); i += 2 {
		known[dstMap.Content[i].Value] = true
	}
	for i := 0; i+1 < len(srcMap.Content); i += 2 {
		key := srcMap.Content[i]
		if known[key.Value] {
			continue
		}
		dstMap.Content = append(dstMap.Content, key, srcMap.Content[i+1])
	}
}

func unwrapMapping(n *yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	if n.Kind == yaml.DocumentNode && len(n.Content) == 1 {
		n = n.Content[0]
	}
	if n.Kind != yaml.MappingNode {
		return nil
	}
	return n
}

// SetLastSynced records the wall-clock time of the most recently
// completed bidirectional cycle, in UTC, per spec §3.
func (c *Config) SetLastSynced(t time.Time) {
	u := t.UTC()
	c.LastSynced = &u
}
