// Package config provides configuration loading and structs for the bindery pipeline.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for one book run. It is passed explicitly to
// each stage; stages never read the environment.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Book      BookConfig      `yaml:"book"`
	Paths     PathsConfig     `yaml:"paths"`
	Intake    IntakeConfig    `yaml:"intake"`
	OCR       OCRConfig       `yaml:"ocr"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Enhance   EnhanceConfig   `yaml:"enhance"`
	Watch     WatchConfig     `yaml:"watch"`
}

// BookConfig is the book descriptor: metadata carried into book.toml,
// README.md, and the flat book.properties artifact.
type BookConfig struct {
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	Author      string `yaml:"author"`
	Description string `yaml:"description"`
	CourseCode  string `yaml:"course_code"`
	Term        string `yaml:"term"`
}

// PathsConfig holds filesystem roots. Stage artifacts live under
// <data_dir>/<book-id>/ and the mdBook instance under <instances_dir>/<book-id>/.
type PathsConfig struct {
	SourceDir    string `yaml:"source_dir"`
	DataDir      string `yaml:"data_dir"`
	InstancesDir string `yaml:"instances_dir"`
	DatabasePath string `yaml:"database_path"`
}

// IntakeConfig holds image validation settings.
type IntakeConfig struct {
	// AllowLooseNames permits filenames that don't follow the pageNNN.ext
	// convention (they are warned about either way).
	AllowLooseNames bool `yaml:"allow_loose_names"`
	// MaxFileBytes rejects oversized inputs. Default 50 MB.
	MaxFileBytes int64 `yaml:"max_file_bytes"`
}

// OCRConfig holds OCR engine settings.
type OCRConfig struct {
	Language string `yaml:"language"`
	// Quality is one of "fast", "balanced", "high"; mapped to engine parameters.
	Quality       string `yaml:"quality"`
	TesseractPath string `yaml:"tesseract_path"`
	Preprocess    PreprocessConfig `yaml:"preprocess"`
}

// PreprocessConfig toggles image filters applied before OCR. Each filter is
// independently toggleable.
type PreprocessConfig struct {
	Contrast bool `yaml:"contrast"`
	Denoise  bool `yaml:"denoise"`
	Deskew   bool `yaml:"deskew"`
}

// Enabled reports whether any filter is on.
func (p PreprocessConfig) Enabled() bool {
	return p.Contrast || p.Denoise || p.Deskew
}

// EmbeddingConfig holds ONNX embedder settings.
type EmbeddingConfig struct {
	ModelPath  string `yaml:"model_path"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
	BatchSize  int    `yaml:"batch_size"`
}

// EnhanceConfig holds glossary extraction settings.
type EnhanceConfig struct {
	// MinTermLength is the minimum rune length of a bold span to become a
	// glossary term candidate. Default 4 (spans longer than 3 characters).
	MinTermLength int `yaml:"min_term_length"`
}

// WatchConfig holds settings for the watch command.
type WatchConfig struct {
	DebounceMillis int `yaml:"debounce_ms"`
}

// Debounce returns the settle window as a duration.
func (w WatchConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMillis) * time.Millisecond
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Paths.SourceDir = expandPath(cfg.Paths.SourceDir, configDir)
	cfg.Paths.DataDir = expandPath(cfg.Paths.DataDir, configDir)
	cfg.Paths.InstancesDir = expandPath(cfg.Paths.InstancesDir, configDir)
	cfg.Paths.DatabasePath = expandPath(cfg.Paths.DatabasePath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)

	return &cfg, nil
}

// Validate checks required settings and enumerated values. All problems are
// reported at once rather than one at a time.
func (c *Config) Validate() error {
	var missing []string
	if c.Book.ID == "" {
		missing = append(missing, "book.id")
	}
	if c.Book.Title == "" {
		missing = append(missing, "book.title")
	}
	if c.Paths.SourceDir == "" {
		missing = append(missing, "paths.source_dir")
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	switch c.OCR.Quality {
	case "fast", "balanced", "high":
	default:
		return fmt.Errorf("ocr.quality must be fast, balanced, or high (got %q)", c.OCR.Quality)
	}
	return nil
}

// BookDataDir returns <data_dir>/<book-id>.
func (c *Config) BookDataDir() string {
	return filepath.Join(c.Paths.DataDir, c.Book.ID)
}

// OCRDir returns the per-book OCR text output directory.
func (c *Config) OCRDir() string { return filepath.Join(c.BookDataDir(), "ocr") }

// MarkdownDir returns the per-book assembled markdown directory.
func (c *Config) MarkdownDir() string { return filepath.Join(c.BookDataDir(), "markdown") }

// ProcessedDir returns the per-book preprocessed image directory.
func (c *Config) ProcessedDir() string { return filepath.Join(c.BookDataDir(), "processed") }

// IndexDir returns the per-book keyword index directory.
func (c *Config) IndexDir() string { return filepath.Join(c.BookDataDir(), "index") }

// InstanceDir returns <instances_dir>/<book-id>.
func (c *Config) InstanceDir() string {
	return filepath.Join(c.Paths.InstancesDir, c.Book.ID)
}

// SrcDir returns the mdBook src directory of the instance.
func (c *Config) SrcDir() string { return filepath.Join(c.InstanceDir(), "src") }

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
