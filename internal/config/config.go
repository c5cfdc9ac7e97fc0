// Package config defines the configuration file of the permit scraper.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"rrcpermits-backend/internal/components/browser"
	"rrcpermits-backend/internal/components/telemetry"
	"rrcpermits-backend/internal/scrapers/neudocs"
	"rrcpermits-backend/internal/scrapers/rrc"
	"rrcpermits-backend/lib/configutil"
)

const DefaultPath = "config/config.yaml"

type BrowserConfig struct {
	// ShowBrowser runs chrome with a visible window.
	ShowBrowser bool   `json:"show_browser" yaml:"show_browser"`
	ExecPath    string `json:"exec_path" yaml:"exec_path"`
	UserAgent   string `json:"user_agent" yaml:"user_agent"`
	DownloadDir string `json:"download_dir" yaml:"download_dir"`
}

type ScrapeConfig struct {
	MaxPages int `json:"max_pages" yaml:"max_pages"`
	// TimeoutSeconds bounds every plat retrieval step, 60 when unset.
	TimeoutSeconds int `json:"timeout_seconds" yaml:"timeout_seconds"`
	// NavigationIntervalMs is the minimum delay between two plat link navigations.
	NavigationIntervalMs int `json:"navigation_interval_ms" yaml:"navigation_interval_ms"`
}

type ServiceConfig struct {
	Port     int    `json:"port" yaml:"port"`
	DataDir  string `json:"data_dir" yaml:"data_dir"`
	Database string `json:"database" yaml:"database"`
	// Schedule is a cron spec on which a scrape is submitted automatically.
	Schedule string `json:"schedule" yaml:"schedule"`
}

type Config struct {
	Counties  []string         `json:"counties" yaml:"counties"`
	DateRange rrc.DateRange    `json:"date_range" yaml:"date_range"`
	Scrape    ScrapeConfig     `json:"scrape" yaml:"scrape"`
	Browser   BrowserConfig    `json:"browser" yaml:"browser"`
	Service   ServiceConfig    `json:"service" yaml:"service"`
	Telemetry telemetry.Config `json:"telemetry" yaml:"telemetry"`
}

var ErrInvalid = errors.New("invalid configuration")

// Load reads the configuration at `path` (and its .local override) and fills defaults.
func Load(path string) (Config, error) {
	cfg, err := configutil.ReadConfig[Config](path)
	if err != nil {
		return Config{}, err
	}
	cfg.setDefaults()
	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.Service.Port == 0 {
		c.Service.Port = 8000
	}
	if c.Service.DataDir == "" {
		c.Service.DataDir = "data"
	}
	if c.Service.Database == "" {
		c.Service.Database = filepath.Join(c.Service.DataDir, "jobs.db")
	}
	if c.Scrape.TimeoutSeconds == 0 {
		c.Scrape.TimeoutSeconds = 60
	}
}

// Validate checks the fields a scrape cannot run without, dates are not parsed.
func (c Config) Validate() error {
	var problems []string
	if len(c.Counties) == 0 {
		problems = append(problems, "counties must not be empty")
	}
	if strings.TrimSpace(c.DateRange.From) == "" {
		problems = append(problems, "date_range.from is required")
	}
	if strings.TrimSpace(c.DateRange.To) == "" {
		problems = append(problems, "date_range.to is required")
	}
	if c.Scrape.MaxPages < 0 {
		problems = append(problems, "scrape.max_pages must not be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, ", "))
	}
	return nil
}

func (c Config) SearchConfig() rrc.SearchConfig {
	return rrc.SearchConfig{
		Counties:  c.Counties,
		DateRange: c.DateRange,
	}
}

func (c Config) ChromeOptions() browser.ChromeOptions {
	return browser.ChromeOptions{
		Headless:    !c.Browser.ShowBrowser,
		ExecPath:    c.Browser.ExecPath,
		UserAgent:   c.Browser.UserAgent,
		DownloadDir: c.Browser.DownloadDir,
	}
}

func (c Config) SearcherOptions() rrc.SearcherOptions {
	return rrc.SearcherOptions{
		MaxPages:    c.Scrape.MaxPages,
		Diagnostics: rrc.FileDiagnostics{Dir: c.Service.DataDir},
	}
}

func (c Config) RetrieverOptions() neudocs.RetrieverOptions {
	return neudocs.RetrieverOptions{
		Root:               c.PlatRoot(),
		Timeout:            time.Duration(c.Scrape.TimeoutSeconds) * time.Second,
		NavigationInterval: time.Duration(c.Scrape.NavigationIntervalMs) * time.Millisecond,
	}
}

func (c Config) PlatRoot() string {
	return filepath.Join(c.Service.DataDir, "plat_files")
}
