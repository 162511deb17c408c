// Package config holds the scan run configuration: defaults, optional YAML
// file, environment overrides, and validation. Precedence, lowest to
// highest: built-in defaults, config file, PDFFINDER_* environment
// variables, command-line flags.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full configuration for one scan run.
type Config struct {
	// Roots are the corpus directories to walk.
	Roots []string `yaml:"roots"`

	// Concurrency is the number of documents in flight at once.
	// 0 selects min(32, NumCPU+4).
	Concurrency int `yaml:"concurrency"`

	// QPDFPath is the qpdf executable. Default: "qpdf" from PATH.
	QPDFPath string `yaml:"qpdf_path"`

	// QPDFTimeout bounds one qpdf invocation, as a duration string like
	// "90s". Empty or "0" disables the timeout: qpdf's memory is always
	// capped, its wall-clock time only on request.
	QPDFTimeout string `yaml:"qpdf_timeout"`

	// MemoryLimitMB is the virtual memory ceiling per qpdf process.
	// Default: 4096 (4 GiB).
	MemoryLimitMB int `yaml:"memory_limit_mb"`

	// MaxProcs caps concurrent qpdf processes. 0 means same as
	// Concurrency.
	MaxProcs int `yaml:"max_procs"`

	// TopN is how many rows each frequency ranking shows. Default: 10.
	TopN int `yaml:"top_n"`

	// TaggedTail is how many tagged documents the tagged.tar.gz export
	// samples from the end of the list. Default: 42.
	TaggedTail int `yaml:"tagged_tail"`

	// OutputDir receives the export archives. Default: current directory.
	OutputDir string `yaml:"output_dir"`

	// SkipArchives disables writing the export archives.
	SkipArchives bool `yaml:"skip_archives"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		QPDFPath:      "qpdf",
		MemoryLimitMB: 4096,
		TopN:          10,
		TaggedTail:    42,
	}
}

// LoadFile reads a YAML config file over cfg. A missing file is not an
// error when optional is set, so the default config path may simply not
// exist.
func LoadFile(cfg *Config, path string, optional bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays PDFFINDER_* environment variables.
func ApplyEnv(cfg *Config) error {
	if v := os.Getenv("PDFFINDER_QPDF"); v != "" {
		cfg.QPDFPath = v
	}
	if v := os.Getenv("PDFFINDER_QPDF_TIMEOUT"); v != "" {
		cfg.QPDFTimeout = v
	}
	if v := os.Getenv("PDFFINDER_OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	for name, target := range map[string]*int{
		"PDFFINDER_CONCURRENCY":     &cfg.Concurrency,
		"PDFFINDER_MEMORY_LIMIT_MB": &cfg.MemoryLimitMB,
		"PDFFINDER_MAX_PROCS":       &cfg.MaxProcs,
	} {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s=%q: %w", name, v, err)
		}
		*target = n
	}
	return nil
}

// TimeoutDuration parses QPDFTimeout. Empty means disabled.
func (c *Config) TimeoutDuration() (time.Duration, error) {
	if c.QPDFTimeout == "" || c.QPDFTimeout == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.QPDFTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid qpdf_timeout %q: %w", c.QPDFTimeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("qpdf_timeout must not be negative (got %s)", d)
	}
	return d, nil
}

// Validate checks ranges and required fields.
func (c *Config) Validate() error {
	if len(c.Roots) == 0 {
		return fmt.Errorf("at least one corpus root is required")
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative (got %d)", c.Concurrency)
	}
	if c.MemoryLimitMB <= 0 {
		return fmt.Errorf("memory_limit_mb must be positive (got %d)", c.MemoryLimitMB)
	}
	if c.TopN <= 0 {
		return fmt.Errorf("top_n must be positive (got %d)", c.TopN)
	}
	if c.TaggedTail <= 0 {
		return fmt.Errorf("tagged_tail must be positive (got %d)", c.TaggedTail)
	}
	if _, err := c.TimeoutDuration(); err != nil {
		return err
	}
	return nil
}
