// Package config loads the YAML run configuration. Every field has a default,
// so running without a file is the same as running with an empty one.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/22adi66/pdf-consolidation-system/internal/textnorm"
)

// MatchingConfig tunes the page matching passes.
type MatchingConfig struct {
	HeuristicThreshold float64 `yaml:"heuristic_threshold"`
	GlobalThreshold    float64 `yaml:"global_threshold"`
	ProximityWindow    int     `yaml:"proximity_window"`
	Workers            int     `yaml:"workers"`
}

type ConsolidationConfig struct {
	FuzzyThreshold float64 `yaml:"fuzzy_threshold"`
	// Scope is "section" or "changed".
	Scope string `yaml:"scope"`
}

// NormalizeConfig holds the regular expressions applied to page text.
type NormalizeConfig struct {
	VolatilePatterns []string `yaml:"volatile_patterns"`
	LabelPattern     string   `yaml:"label_pattern"`
}

type ExtractionConfig struct {
	UseToC   bool `yaml:"use_toc"`
	ToCPages int  `yaml:"toc_pages"`
	MaxDepth int  `yaml:"max_depth"`
	// Fallback is "document" or "none".
	Fallback string `yaml:"fallback"`
}

// OutputConfig says where results go. Manifest is relative to Dir unless
// absolute.
type OutputConfig struct {
	Dir        string `yaml:"dir"`
	Manifest   string `yaml:"manifest"`
	Docs       bool   `yaml:"docs"`
	SiteName   string `yaml:"site_name"`
	SlugPrefix string `yaml:"slug_prefix"`
}

// HistoryConfig enables the run history database when Path is set.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AIConfig controls optional change notes. The API key is read from the
// environment variable named by APIKeyEnv, never from the file.
type AIConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// Config is the full run configuration.
type Config struct {
	Matching      MatchingConfig      `yaml:"matching"`
	Consolidation ConsolidationConfig `yaml:"consolidation"`
	Normalize     NormalizeConfig     `yaml:"normalize"`
	Extraction    ExtractionConfig    `yaml:"extraction"`
	Output        OutputConfig        `yaml:"output"`
	History       HistoryConfig       `yaml:"history"`
	Logging       LoggingConfig       `yaml:"logging"`
	AI            AIConfig            `yaml:"ai"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Matching: MatchingConfig{
			HeuristicThreshold: 0.5,
			GlobalThreshold:    0.6,
			ProximityWindow:    2,
		},
		Consolidation: ConsolidationConfig{FuzzyThreshold: 0.8, Scope: "section"},
		Normalize: NormalizeConfig{
			VolatilePatterns: append([]string(nil), textnorm.DefaultVolatilePatterns...),
			LabelPattern:     textnorm.DefaultLabelPattern,
		},
		Extraction: ExtractionConfig{UseToC: true, ToCPages: 16, Fallback: "document"},
		Output:     OutputConfig{Dir: ".", Manifest: "consolidated.json"},
		Logging:    LoggingConfig{Level: "info", Format: "text"},
		AI:         AIConfig{Provider: "off", Model: "gemini-2.5-flash", APIKeyEnv: "GOOGLE_API_KEY"},
	}
}

// Load reads path over the defaults and validates the result. An empty path
// or a missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Consolidation.Scope = lower(c.Consolidation.Scope)
	c.Extraction.Fallback = lower(c.Extraction.Fallback)
	c.Logging.Level = lower(c.Logging.Level)
	c.Logging.Format = lower(c.Logging.Format)
	c.AI.Provider = lower(c.AI.Provider)
}

func lower(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Validate returns the first problem found as a *ValidationError.
func (c Config) Validate() error {
	for _, th := range []struct {
		field string
		v     float64
	}{
		{"matching.heuristic_threshold", c.Matching.HeuristicThreshold},
		{"matching.global_threshold", c.Matching.GlobalThreshold},
		{"consolidation.fuzzy_threshold", c.Consolidation.FuzzyThreshold},
	} {
		if th.v < 0 || th.v > 1 {
			return invalid(th.field, "%v is outside [0, 1]", th.v)
		}
	}
	if c.Matching.ProximityWindow < 0 {
		return invalid("matching.proximity_window", "must not be negative")
	}
	if c.Matching.Workers < 0 {
		return invalid("matching.workers", "must not be negative")
	}
	if c.Extraction.ToCPages < 0 {
		return invalid("extraction.toc_pages", "must not be negative")
	}
	if c.Extraction.MaxDepth < 0 {
		return invalid("extraction.max_depth", "must not be negative")
	}
	if err := oneOf("consolidation.scope", c.Consolidation.Scope, "section", "changed"); err != nil {
		return err
	}
	if err := oneOf("extraction.fallback", c.Extraction.Fallback, "document", "none"); err != nil {
		return err
	}
	if err := oneOf("logging.level", c.Logging.Level, "debug", "info", "warn", "error"); err != nil {
		return err
	}
	if err := oneOf("logging.format", c.Logging.Format, "text", "json"); err != nil {
		return err
	}
	if err := oneOf("ai.provider", c.AI.Provider, "off", "gemini"); err != nil {
		return err
	}
	if c.AI.Provider == "gemini" && strings.TrimSpace(c.AI.APIKeyEnv) == "" {
		return invalid("ai.api_key_env", "required for the gemini provider")
	}
	if strings.TrimSpace(c.Output.Manifest) == "" {
		return invalid("output.manifest", "is required")
	}
	for i, p := range c.Normalize.VolatilePatterns {
		if _, err := regexp.Compile(p); err != nil {
			return invalid(fmt.Sprintf("normalize.volatile_patterns[%d]", i), "%v", err)
		}
	}
	re, err := regexp.Compile(c.Normalize.LabelPattern)
	if err != nil {
		return invalid("normalize.label_pattern", "%v", err)
	}
	if c.Normalize.LabelPattern != "" && re.NumSubexp() < 1 {
		return invalid("normalize.label_pattern", "needs a capture group")
	}
	return nil
}

func oneOf(field, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return invalid(field, "%q is not one of %s", value, strings.Join(allowed, ", "))
}
