package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/nao1215/prayertimes/internal/model"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".prayertimes"

// File represents the structure of the .prayertimes configuration file.
// Zero values mean "not set" and leave the current setting alone.
type File struct {
	BaseURL          string            `yaml:"base_url,omitempty"`
	Month            string            `yaml:"month,omitempty"`
	Output           string            `yaml:"output,omitempty"`
	Mirror           string            `yaml:"mirror,omitempty"`
	Delay            time.Duration     `yaml:"delay,omitempty"`
	Timeout          time.Duration     `yaml:"timeout,omitempty"`
	Concurrency      int               `yaml:"concurrency,omitempty"`
	UserAgent        string            `yaml:"user_agent,omitempty"`
	Headers          map[string]string `yaml:"headers,omitempty"`
	MaxBodySize      int64             `yaml:"max_body_size,omitempty"`
	Proxy            string            `yaml:"proxy,omitempty"`
	Tor              bool              `yaml:"tor,omitempty"`
	CloudflareBypass bool              `yaml:"cloudflare_bypass,omitempty"`
	Report           string            `yaml:"report,omitempty"`
	DBDir            string            `yaml:"db_dir,omitempty"`

	// Districts is an inline catalog. DistrictsFile wins when both are set.
	Districts     []string `yaml:"districts,omitempty"`
	DistrictsFile string   `yaml:"districts_file,omitempty"`
}

// LoadConfigFile loads a YAML configuration file. A sibling file named
// <name>.local<ext> (e.g. .prayertimes.local or config.local.yaml) is
// merged on top when present.
// If the base file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	cf, err := readFile(path)
	if err != nil {
		return nil, err
	}

	localPath := LocalOverridePath(path)
	local, err := readFile(localPath)
	switch {
	case err == nil:
		if err := mergo.Merge(cf, local, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge %s: %w", localPath, err)
		}
		slog.Debug("merged config with local overrides", "local", localPath)
	case !errors.Is(err, ErrConfigNotFound):
		return nil, err
	}

	if cf.DistrictsFile != "" && !filepath.IsAbs(cf.DistrictsFile) {
		cf.DistrictsFile = filepath.Join(filepath.Dir(path), cf.DistrictsFile)
	}
	return cf, nil
}

func readFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &cf, nil
}

// LocalOverridePath returns the override file name for path.
// "config.yaml" becomes "config.local.yaml" and ".prayertimes" becomes
// ".prayertimes.local".
func LocalOverridePath(path string) string {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	if ext == base || ext == "" {
		return filepath.Join(dir, base+".local")
	}
	return filepath.Join(dir, strings.TrimSuffix(base, ext)+".local"+ext)
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .prayertimes in the current directory
// 3. Look for .prayertimes in the user's home directory
// 4. Look for config.yaml in the XDG config directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	xdgConfig := filepath.Join(XDGConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig
	}

	return ""
}

// Apply copies every setting present in the file onto the config.
func (c *Config) Apply(cf *File) error {
	if cf == nil {
		return nil
	}

	if cf.BaseURL != "" {
		c.BaseURL = strings.TrimSpace(cf.BaseURL)
	}
	if cf.Month != "" {
		c.Month = cf.Month
	}
	if cf.Output != "" {
		c.Output = cf.Output
	}
	if cf.Mirror != "" {
		c.Mirror = cf.Mirror
	}
	if cf.Delay != 0 {
		c.Delay = cf.Delay
	}
	if cf.Timeout != 0 {
		c.Timeout = cf.Timeout
	}
	if cf.Concurrency != 0 {
		c.Concurrency = cf.Concurrency
	}
	if cf.UserAgent != "" {
		c.UserAgent = cf.UserAgent
	}
	if len(cf.Headers) > 0 {
		if c.Headers == nil {
			c.Headers = make(map[string]string, len(cf.Headers))
		}
		for k, v := range cf.Headers {
			c.Headers[k] = v
		}
	}
	if cf.MaxBodySize != 0 {
		c.MaxBodySize = cf.MaxBodySize
	}
	if cf.Proxy != "" {
		c.ProxyAddress = cf.Proxy
	}
	if cf.Tor {
		c.UseTor = true
	}
	if cf.CloudflareBypass {
		c.CloudflareBypass = true
	}
	if cf.Report != "" {
		c.ReportFile = cf.Report
	}
	if cf.DBDir != "" {
		c.DBDir = cf.DBDir
	}

	switch {
	case cf.DistrictsFile != "":
		ids, err := LoadCatalog(cf.DistrictsFile)
		if err != nil {
			return err
		}
		c.Districts = ids
	case len(cf.Districts) > 0:
		c.Districts = model.DistrictIDs(cf.Districts...)
	}
	return nil
}
