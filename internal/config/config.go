package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/brogergvhs/mangapdf/internal/document"
	"github.com/brogergvhs/mangapdf/internal/providers/manganato"
	"github.com/brogergvhs/mangapdf/internal/publish"
)

const (
	DefaultAddr           = ":8080"
	DefaultChapterWorkers = 1
	DefaultImageTimeout   = 30 * time.Second
	DefaultMarkupAttempts = 1
	DefaultReferer        = "https://readmanganato.com/"
	DefaultPrefix         = ""
)

type Config struct {
	Output         string `yaml:"output" envconfig:"OUTPUT"`
	ScratchDir     string `yaml:"scratch_dir" envconfig:"SCRATCH_DIR"`
	ChapterWorkers int    `yaml:"chapter_workers" envconfig:"CHAPTER_WORKERS"`
	Debug          bool   `yaml:"debug" envconfig:"DEBUG"`
	LogFormat      string `yaml:"log_format" envconfig:"LOG_FORMAT"`

	Cookie           string `yaml:"cookie" envconfig:"COOKIE"`
	CookieFile       string `yaml:"cookie_file" envconfig:"COOKIE_FILE"`
	UserAgent        string `yaml:"user_agent" envconfig:"USER_AGENT"`
	CloudflareBypass bool   `yaml:"cloudflare_bypass" envconfig:"CLOUDFLARE_BYPASS"`

	SearchURL      string        `yaml:"search_url" envconfig:"SEARCH_URL"`
	ChapterURL     string        `yaml:"chapter_url" envconfig:"CHAPTER_URL"`
	Referer        string        `yaml:"referer" envconfig:"REFERER"`
	ImageTimeout   time.Duration `yaml:"image_timeout" envconfig:"IMAGE_TIMEOUT"`
	MarkupAttempts uint          `yaml:"markup_attempts" envconfig:"MARKUP_ATTEMPTS"`

	Bucket     string        `yaml:"bucket" envconfig:"BUCKET"`
	Region     string        `yaml:"region" envconfig:"REGION"`
	Prefix     string        `yaml:"prefix" envconfig:"PREFIX"`
	Endpoint   string        `yaml:"endpoint" envconfig:"ENDPOINT"`
	PathStyle  bool          `yaml:"path_style" envconfig:"PATH_STYLE"`
	LinkExpiry time.Duration `yaml:"link_expiry" envconfig:"LINK_EXPIRY"`

	PageSizes document.PageSizes `yaml:"page_sizes" ignored:"true"`

	Addr string `yaml:"addr" envconfig:"ADDR"`
}

type Options struct {
	IgnoreConfig     bool
	Debug            bool
	Output           string
	ScratchDir       string
	ChapterWorkers   int
	Cookie           string
	CookieFile       string
	UserAgent        string
	CloudflareBypass bool
	Bucket           string
	Region           string
	Endpoint         string
	Addr             string
}

func DefaultConfig() *Config {
	site := manganato.DefaultSite()
	return &Config{
		Output:         ".",
		ChapterWorkers: DefaultChapterWorkers,
		LogFormat:      "console",
		SearchURL:      site.SearchURL,
		ChapterURL:     site.ChapterURL,
		Referer:        DefaultReferer,
		ImageTimeout:   DefaultImageTimeout,
		MarkupAttempts: DefaultMarkupAttempts,
		Prefix:         DefaultPrefix,
		LinkExpiry:     publish.DefaultLinkExpiry,
		PageSizes:      document.A4,
		Addr:           DefaultAddr,
	}
}

// Site is the remote site described by the config.
func (c *Config) Site() manganato.Site {
	return manganato.Site{SearchURL: c.SearchURL, ChapterURL: c.ChapterURL}
}

func SaveYAML(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// loadYAML reads a profile over the defaults, so keys missing from older
// profiles keep their default values.
func loadYAML(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	c := DefaultConfig()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}

	return c, nil
}

func LoadMerged(opts Options) (*Config, string, error) {
	if opts.IgnoreConfig {
		cfg := DefaultConfig()
		mergeConfig(cfg, opts)
		normalizeDefaults(cfg)
		return cfg, "(ignored config)", nil
	}

	activePath, err := ActiveConfigPath()
	if err == ErrNoConfig || activePath == "" {
		cfg := DefaultConfig()
		mergeConfig(cfg, opts)
		normalizeDefaults(cfg)
		return cfg, "(default config in memory)\nRun `mangapdf config init` to create an actual config\n", nil
	}
	if err != nil {
		return nil, "", err
	}

	cfg, err := loadYAML(activePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config %s: %w", activePath, err)
	}

	mergeConfig(cfg, opts)
	normalizeDefaults(cfg)

	return cfg, activePath, nil
}

func mergeConfig(c *Config, o Options) {
	if o.Output != "" {
		c.Output = o.Output
	}
	if o.ScratchDir != "" {
		c.ScratchDir = o.ScratchDir
	}
	if o.ChapterWorkers != 0 {
		c.ChapterWorkers = o.ChapterWorkers
	}
	if o.Debug {
		c.Debug = true
	}
	if o.Cookie != "" {
		c.Cookie = o.Cookie
	}
	if o.CookieFile != "" {
		c.CookieFile = o.CookieFile
	}
	if o.UserAgent != "" {
		c.UserAgent = o.UserAgent
	}
	if o.CloudflareBypass {
		c.CloudflareBypass = true
	}
	if o.Bucket != "" {
		c.Bucket = o.Bucket
	}
	if o.Region != "" {
		c.Region = o.Region
	}
	if o.Endpoint != "" {
		c.Endpoint = o.Endpoint
	}
	if o.Addr != "" {
		c.Addr = o.Addr
	}
}

func normalizeDefaults(c *Config) {
	def := DefaultConfig()

	if c.Output == "" {
		c.Output = def.Output
	}
	if c.ChapterWorkers < 1 {
		c.ChapterWorkers = def.ChapterWorkers
	}
	if c.LogFormat == "" {
		c.LogFormat = def.LogFormat
	}
	if c.SearchURL == "" {
		c.SearchURL = def.SearchURL
	}
	if c.ChapterURL == "" {
		c.ChapterURL = def.ChapterURL
	}
	if c.Referer == "" {
		c.Referer = def.Referer
	}
	if c.ImageTimeout <= 0 {
		c.ImageTimeout = def.ImageTimeout
	}
	if c.MarkupAttempts == 0 {
		c.MarkupAttempts = def.MarkupAttempts
	}
	if c.LinkExpiry <= 0 {
		c.LinkExpiry = def.LinkExpiry
	}
	if c.PageSizes.Portrait.Width <= 0 || c.PageSizes.Portrait.Height <= 0 ||
		c.PageSizes.Landscape.Width <= 0 || c.PageSizes.Landscape.Height <= 0 {
		c.PageSizes = def.PageSizes
	}
	if c.Addr == "" {
		c.Addr = def.Addr
	}
}

func (c *Config) Print(w io.Writer) {
	p := func(format string, args ...any) {
		_, _ = fmt.Fprintf(w, format, args...)
	}

	p(" -output: %s\n", c.Output)
	if c.ScratchDir != "" {
		p(" -scratch_dir: %s\n", c.ScratchDir)
	}
	p(" -chapter_workers: %d\n", c.ChapterWorkers)
	if c.Debug {
		p(" -debug: %t\n", c.Debug)
	}
	p(" -log_format: %s\n", c.LogFormat)
	if c.CookieFile != "" {
		p(" -cookie_file: %s\n", c.CookieFile)
	}
	if c.UserAgent != "" {
		p(" -user_agent: %s\n", c.UserAgent)
	}
	if c.CloudflareBypass {
		p(" -cloudflare_bypass: %t\n", c.CloudflareBypass)
	}
	p(" -search_url: %s\n", c.SearchURL)
	p(" -chapter_url: %s\n", c.ChapterURL)
	p(" -referer: %s\n", c.Referer)
	p(" -image_timeout: %s\n", c.ImageTimeout)
	p(" -markup_attempts: %d\n", c.MarkupAttempts)
	if c.Bucket != "" {
		p(" -bucket: %s\n", c.Bucket)
		p(" -region: %s\n", c.Region)
		p(" -prefix: %s\n", c.Prefix)
		if c.Endpoint != "" {
			p(" -endpoint: %s\n", c.Endpoint)
		}
		p(" -link_expiry: %s\n", c.LinkExpiry)
	}
	p(" -page_sizes: portrait %.0fx%.0f, landscape %.0fx%.0f\n",
		c.PageSizes.Portrait.Width, c.PageSizes.Portrait.Height,
		c.PageSizes.Landscape.Width, c.PageSizes.Landscape.Height)
	p(" -addr: %s\n", c.Addr)
}
