package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// DefaultFile is the optional config file looked up in the working directory
const DefaultFile = "depscope.toml"

// EnvPrefix prefixes environment overrides, e.g. DEPSCOPE_BUILD_DIR=build
const EnvPrefix = "DEPSCOPE_"

// Report formats
const (
	ReportText = "text"
	ReportHTML = "html"
	ReportBoth = "both"
	ReportNone = "none"
)

// Config holds all configuration for a scan
type Config struct {
	BuildDir    string `koanf:"build-dir"`
	OutDir      string `koanf:"out"`
	ProjectName string `koanf:"project-name"`
	Verbosity   string `koanf:"verbosity"`
	VerboseCnt  int    `koanf:"verbose"`
	LogFormat   string `koanf:"log-format"`
	Watch       bool   `koanf:"watch"`
	WebMode     bool   `koanf:"web"`
	Port        int    `koanf:"port"`
	Report      string `koanf:"report"`
	SBOMFile    string `koanf:"sbom-file"`
	ReportFile  string `koanf:"report-file"` // Base name, the extension follows the format
}

// Defaults returns the built-in configuration values
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"build-dir":    "",
		"out":          "out",
		"project-name": "",
		"verbosity":    "",
		"verbose":      0,
		"log-format":   "text",
		"watch":        false,
		"web":          false,
		"port":         8080,
		"report":       ReportHTML,
		"sbom-file":    "sbom.cdx.json",
		"report-file":  "report",
	}
}

// Load loads configuration from defaults, depscope.toml, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
func Load(f *pflag.FlagSet) (*Config, error) {
	return LoadFile(DefaultFile, f)
}

// LoadFile is Load with an explicit config file path. A missing file is
// skipped, a malformed one is an error.
func LoadFile(path string, f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(makeMapProvider(Defaults()), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config File (optional)
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", path, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}
	}

	// 3. Environment Variables (DEPSCOPE_BUILD_DIR -> build-dir)
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(
			strings.TrimPrefix(s, EnvPrefix)), "_", "-")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if f != nil {
		if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that cannot be expressed by the flag types
func (c *Config) Validate() error {
	switch c.Report {
	case ReportText, ReportHTML, ReportBoth, ReportNone:
	default:
		return fmt.Errorf("invalid report format %q (want text, html, both or none)", c.Report)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q (want text or json)", c.LogFormat)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.SBOMFile == "" {
		return fmt.Errorf("sbom-file must not be empty")
	}
	return nil
}

// WantsText reports whether a plain text report is written
func (c *Config) WantsText() bool {
	return c.Report == ReportText || c.Report == ReportBoth
}

// WantsHTML reports whether an HTML report is written
func (c *Config) WantsHTML() bool {
	return c.Report == ReportHTML || c.Report == ReportBoth
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]interface{}, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
