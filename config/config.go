package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const ENV_FILE = ".env"
const CONFIG_FILE = "config.yaml"

type AppConfig struct {
	Server       ServerConfig  `yaml:"server"`
	Content      ContentConfig `yaml:"content"`
	HomePageSize int           `yaml:"home_page_size" validate:"gt=0,lte=100"`
	Pages        PagesConfig   `yaml:"pages"`
	Display      DisplayConfig `yaml:"display"`
	API          APIConfig     `yaml:"api"`
	Logging      LoggingConfig `yaml:"logging"`
}

type ServerConfig struct {
	Addr      string `yaml:"addr" validate:"required"`
	ViewsPath string `yaml:"views_path"`
}

// ContentConfig points at the Prismic repository the blog reads from.
type ContentConfig struct {
	Endpoint     string        `yaml:"endpoint" validate:"required,url"`
	AccessToken  string        `yaml:"access_token"`
	DocumentType string        `yaml:"document_type" validate:"required"`
	Timeout      time.Duration `yaml:"timeout" validate:"gte=0"`
}

// PagesConfig controls which post pages are resolved ahead of time and
// what happens when a slug outside that set is requested.
type PagesConfig struct {
	// Fallback enables on-demand generation for slugs that were not built.
	Fallback bool `yaml:"fallback"`
	// Path is the BadgerDB directory. Empty keeps the store in memory.
	Path           string `yaml:"path"`
	PrerenderLimit int    `yaml:"prerender_limit" validate:"gte=0"`
	// MissingTTL is how long an unknown slug is answered from the store.
	MissingTTL time.Duration `yaml:"missing_ttl" validate:"gte=0"`
}

type DisplayConfig struct {
	Timezone string `yaml:"timezone"`
}

type APIConfig struct {
	RatePerSecond  float64  `yaml:"rate_per_second" validate:"gte=0"`
	Burst          int      `yaml:"burst" validate:"gte=0"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=trace debug info notice warn warning error fatal panic"`
}

var config *AppConfig

// Default returns the configuration used when config.yaml leaves a field unset.
func Default() AppConfig {
	return AppConfig{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Content: ContentConfig{
			DocumentType: "post",
			Timeout:      10 * time.Second,
		},
		HomePageSize: 2,
		Pages: PagesConfig{
			Fallback:       true,
			PrerenderLimit: 100,
			MissingTTL:     time.Minute,
		},
		Display: DisplayConfig{
			Timezone: "America/Sao_Paulo",
		},
		API: APIConfig{
			RatePerSecond: 5,
			Burst:         10,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads .env and config.yaml from dir, applies environment overrides
// and validates the result. A missing config.yaml is not an error as long as
// the environment supplies the content endpoint.
func Load(dir string) (*AppConfig, error) {
	// .env is optional
	_ = godotenv.Load(filepath.Join(dir, ENV_FILE))

	c := Default()
	data, err := os.ReadFile(filepath.Join(dir, CONFIG_FILE))
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", CONFIG_FILE, err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("parse %s: %w", CONFIG_FILE, err)
		}
	}

	applyEnv(&c)

	if err := validator.New().Struct(c); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &c, nil
}

func applyEnv(c *AppConfig) {
	getEnv := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	getEnv("PRISMIC_API_ENDPOINT", &c.Content.Endpoint)
	getEnv("PRISMIC_ACCESS_TOKEN", &c.Content.AccessToken)
	getEnv("LOG_LEVEL", &c.Logging.Level)
	getEnv("PAGES_PATH", &c.Pages.Path)
	getEnv("VIEWS_PATH", &c.Server.ViewsPath)

	if port := os.Getenv("PORT"); port != "" {
		if port[0] != ':' {
			port = ":" + port
		}
		c.Server.Addr = port
	}
	if v := os.Getenv("PAGES_FALLBACK"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Pages.Fallback = b
		}
	}
}

// InitApp loads the configuration from the base path and keeps it for GetConfig.
func InitApp() error {
	c, err := Load(GetBasePath())
	if err != nil {
		return err
	}
	config = c
	return nil
}

func GetConfig() AppConfig {
	if config == nil {
		if err := InitApp(); err != nil {
			panic(err)
		}
	}

	return *config
}

// Location resolves the display timezone, falling back to UTC.
func (c AppConfig) Location() *time.Location {
	if c.Display.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Display.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func GetBasePath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		cfgPath := filepath.Join(dir, CONFIG_FILE)
		if info, err := os.Stat(cfgPath); err == nil && !info.IsDir() {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return cwd
}
