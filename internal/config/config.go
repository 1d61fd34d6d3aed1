package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/prayertimes/internal/model"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "prayertimes"

	// DefaultMonth is the month the district pages are published for.
	DefaultMonth = "March"

	// MonthURLTemplate builds the base URL for a given month name.
	MonthURLTemplate = "https://www.emythmakers.com/namaz/en/month/%s/district"

	// DefaultOutput is the primary output file name.
	DefaultOutput = "namaz_schedule.json"

	// DefaultDelay is the minimum time between the starts of two fetches.
	// One second keeps the site from blocking the scraper.
	DefaultDelay = 1 * time.Second

	// DefaultTimeout bounds a single HTTP request.
	DefaultTimeout = 30 * time.Second

	// DefaultConcurrency of 1 fetches districts one after another.
	DefaultConcurrency = 1

	// DefaultUserAgent is sent with every request. The site rejects
	// requests without a browser-like User-Agent.
	DefaultUserAgent = "Mozilla/5.0"

	// DefaultMaxBodySize limits the response body size to read.
	DefaultMaxBodySize = model.DefaultMaxBodySize

	// DefaultTorProxyAddress is the standard Tor SOCKS5 proxy address.
	DefaultTorProxyAddress = "127.0.0.1:9050"

	// DefaultTorStartupTimeout is the maximum time to wait for the embedded
	// Tor daemon to bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute
)

// DefaultBaseURL is the district page prefix for DefaultMonth.
var DefaultBaseURL = BaseURLForMonth(DefaultMonth)

// BaseURLForMonth returns the district page prefix for month.
func BaseURLForMonth(month string) string {
	return fmt.Sprintf(MonthURLTemplate, month)
}

// Config holds all options of one scraping run.
// It is populated from defaults, the config file and CLI flags, in that
// order, and passed down explicitly.
type Config struct {
	// BaseURL is the prefix every district id is appended to.
	BaseURL string

	// Month, when set, selects the month page and overrides BaseURL.
	Month string

	// Districts is the catalog in request order.
	Districts []model.DistrictID

	// Output is the primary document location.
	Output string

	// Mirror is the optional best-effort copy location: a directory or a
	// bucket URL such as s3://bucket?region=ap-south-1.
	Mirror string

	// Delay is the minimum time between the starts of two fetches. It is
	// enforced pool-wide when Concurrency is greater than one.
	Delay time.Duration

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// Concurrency is the number of districts fetched at the same time.
	Concurrency int

	// UserAgent is the User-Agent header sent with each request.
	UserAgent string

	// Headers are extra request headers, e.g. a cookie.
	Headers map[string]string

	// MaxBodySize is the maximum response body size in bytes.
	// Zero means DefaultMaxBodySize.
	MaxBodySize int64

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" form.
	ProxyAddress string

	// UseTor starts an embedded Tor daemon and routes requests through it.
	UseTor bool

	// TorStartupTimeout is the maximum time to wait for the embedded Tor
	// daemon. Only used when UseTor is true.
	TorStartupTimeout time.Duration

	// CloudflareBypass adjusts the TLS fingerprint of the HTTP transport.
	CloudflareBypass bool

	// ReportFile is an optional Markdown run report path.
	ReportFile string

	// DBDir is the directory holding the run history database.
	DBDir string

	// SaveToDB records the run in the history database.
	SaveToDB bool

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the explicit configuration file, if any.
	ConfigFilePath string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		BaseURL:           DefaultBaseURL,
		Districts:         DefaultDistricts(),
		Output:            DefaultOutput,
		Delay:             DefaultDelay,
		Timeout:           DefaultTimeout,
		Concurrency:       DefaultConcurrency,
		UserAgent:         DefaultUserAgent,
		MaxBodySize:       DefaultMaxBodySize,
		TorStartupTimeout: DefaultTorStartupTimeout,
		DBDir:             XDGDataDir(),
		SaveToDB:          true,
	}
}

// EffectiveBaseURL returns the base URL after applying Month.
func (c *Config) EffectiveBaseURL() string {
	if c.Month != "" {
		return BaseURLForMonth(normalizeMonth(c.Month))
	}
	return c.BaseURL
}

// XDGDataDir returns the XDG data directory for prayertimes.
// On Linux: ~/.local/share/prayertimes
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for prayertimes.
// On Linux: ~/.config/prayertimes
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found.
func (c *Config) Validate() error {
	if len(c.Districts) == 0 {
		return ErrEmptyCatalog
	}
	if err := ValidateCatalog(c.Districts); err != nil {
		return err
	}

	if c.Month != "" && !isMonth(c.Month) {
		return fmt.Errorf("%w: %q", ErrInvalidMonth, c.Month)
	}
	if err := validateBaseURL(c.EffectiveBaseURL()); err != nil {
		return err
	}

	if strings.TrimSpace(c.Output) == "" {
		return ErrNoOutput
	}

	if c.Delay < 0 {
		return ErrInvalidDelay
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.ProxyAddress != "" && c.UseTor {
		return ErrConflictingProxy
	}

	return nil
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidBaseURL, raw)
	}
	return nil
}

func isMonth(name string) bool {
	n := normalizeMonth(name)
	for m := time.January; m <= time.December; m++ {
		if m.String() == n {
			return true
		}
	}
	return false
}

// normalizeMonth turns "march" or "MARCH" into "March".
func normalizeMonth(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + strings.ToLower(name[1:])
}
