package store

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/natefinch/atomic"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/kokistudios/atlas/internal/source"
)

// EnvPrefix prefixes environment overrides, e.g. ATLAS_SOURCES_RECORDS.
const EnvPrefix = "ATLAS"

// SourcesConfig locates the two data sources. Relative paths resolve against ATLAS_HOME.
type SourcesConfig struct {
	Records      string `yaml:"records"`
	Capabilities string `yaml:"capabilities"`
	Timeout      string `yaml:"timeout"`
}

// AssetsConfig holds the base paths card assets are referenced under.
type AssetsConfig struct {
	Images string `yaml:"images"`
	Icons  string `yaml:"icons"`
}

// DisplayConfig controls terminal card layout.
type DisplayConfig struct {
	Columns   int `yaml:"columns"` // 0 = fit terminal width
	CardWidth int `yaml:"card_width"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Config holds atlas configuration.
type Config struct {
	Version string        `yaml:"version"`
	Sources SourcesConfig `yaml:"sources"`
	Assets  AssetsConfig  `yaml:"assets"`
	Display DisplayConfig `yaml:"display"`
	Log     LogConfig     `yaml:"log"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Version: "1",
		Sources: SourcesConfig{
			Records:      "data/records.json",
			Capabilities: "data/capabilities.json",
			Timeout:      "10s",
		},
		Assets: AssetsConfig{
			Images: "images/",
			Icons:  "images/icons/",
		},
		Display: DisplayConfig{
			Columns:   0,
			CardWidth: 38,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Keys lists every settable config key in display order.
var Keys = []string{
	"sources.records",
	"sources.capabilities",
	"sources.timeout",
	"assets.images",
	"assets.icons",
	"display.columns",
	"display.card_width",
	"log.level",
}

// LogLevels lists the accepted log.level values.
var LogLevels = []string{"debug", "info", "warn", "error"}

// Get returns the string form of a config value.
func (c Config) Get(key string) (string, error) {
	switch key {
	case "sources.records":
		return c.Sources.Records, nil
	case "sources.capabilities":
		return c.Sources.Capabilities, nil
	case "sources.timeout":
		return c.Sources.Timeout, nil
	case "assets.images":
		return c.Assets.Images, nil
	case "assets.icons":
		return c.Assets.Icons, nil
	case "display.columns":
		return strconv.Itoa(c.Display.Columns), nil
	case "display.card_width":
		return strconv.Itoa(c.Display.CardWidth), nil
	case "log.level":
		return c.Log.Level, nil
	}
	return "", unknownKey(key)
}

// Set validates and applies one value by dot-path key.
func (c *Config) Set(key, value string) error {
	switch key {
	case "sources.records":
		if value == "" {
			return fmt.Errorf("sources.records must not be empty")
		}
		c.Sources.Records = value
	case "sources.capabilities":
		if value == "" {
			return fmt.Errorf("sources.capabilities must not be empty")
		}
		c.Sources.Capabilities = value
	case "sources.timeout":
		if d, err := time.ParseDuration(value); err != nil || d < 0 {
			return fmt.Errorf("sources.timeout must be a duration such as 10s")
		}
		c.Sources.Timeout = value
	case "assets.images":
		c.Assets.Images = value
	case "assets.icons":
		c.Assets.Icons = value
	case "display.columns":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("display.columns must be a non-negative integer (0 fits the terminal)")
		}
		c.Display.Columns = n
	case "display.card_width":
		n, err := strconv.Atoi(value)
		if err != nil || n < 20 {
			return fmt.Errorf("display.card_width must be an integer >= 20")
		}
		c.Display.CardWidth = n
	case "log.level":
		if !validLevel(value) {
			return fmt.Errorf("log.level must be one of %s", strings.Join(LogLevels, ", "))
		}
		c.Log.Level = value
	default:
		return unknownKey(key)
	}
	return nil
}

// FetchTimeout returns the per-fetch timeout; 0 when unset or invalid.
func (c Config) FetchTimeout() time.Duration {
	d, err := time.ParseDuration(c.Sources.Timeout)
	if err != nil {
		return 0
	}
	return d
}

func unknownKey(key string) error {
	return fmt.Errorf("unknown config key: %s\nValid keys: %s", key, strings.Join(Keys, ", "))
}

func validLevel(level string) bool {
	for _, l := range LogLevels {
		if l == level {
			return true
		}
	}
	return false
}

// EnvVar returns the environment variable that overrides key.
func EnvVar(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Store represents a loaded ATLAS_HOME.
type Store struct {
	Home string
	// Config is the effective configuration: file values with environment overrides applied.
	Config Config
	// file is what config.yaml holds; SaveConfig writes it so overrides never leak to disk.
	file Config
}

// Issue represents a health check finding.
type Issue struct {
	Severity string // "warning" or "error"
	Message  string
}

// Home returns the ATLAS_HOME path, respecting the ATLAS_HOME env var.
func Home() string {
	if h := os.Getenv("ATLAS_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".atlas")
	}
	return filepath.Join(home, ".atlas")
}

// Init creates the ATLAS_HOME directory structure.
func Init(home string, force bool) error {
	if _, err := os.Stat(home); err == nil && !force {
		return fmt.Errorf("ATLAS_HOME already exists at %s (use --force to reinitialize)", home)
	}

	for _, d := range []string{home, filepath.Join(home, "data")} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", d, err)
		}
	}
	return writeConfig(filepath.Join(home, "config.yaml"), DefaultConfig())
}

// Load reads an existing ATLAS_HOME. Values are layered by viper: defaults,
// then config.yaml, then ATLAS_* environment variables.
func Load(home string) (*Store, error) {
	cfgPath := filepath.Join(home, "config.yaml")
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read ATLAS_HOME config at %s: %w", cfgPath, err)
	}

	fv, err := newViper(data, false)
	if err != nil {
		return nil, err
	}
	file, _ := fromViper(fv, false)

	ev, err := newViper(data, true)
	if err != nil {
		return nil, err
	}
	eff, err := fromViper(ev, true)
	if err != nil {
		return nil, err
	}
	return &Store{Home: home, Config: eff, file: file}, nil
}

func newViper(data []byte, env bool) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	def := DefaultConfig()
	v.SetDefault("version", def.Version)
	for _, key := range Keys {
		val, _ := def.Get(key)
		v.SetDefault(key, val)
	}
	if env {
		v.SetEnvPrefix(EnvPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()
	}
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("invalid config.yaml: %w", err)
	}
	return v, nil
}

// fromViper builds a Config from the layered values. An invalid value from
// config.yaml keeps the default (doctor reports it); an invalid environment
// override is an error when env is set.
func fromViper(v *viper.Viper, env bool) (Config, error) {
	cfg := DefaultConfig()
	cfg.Version = v.GetString("version")
	for _, key := range Keys {
		err := cfg.Set(key, v.GetString(key))
		if err == nil {
			continue
		}
		if _, ok := os.LookupEnv(EnvVar(key)); env && ok {
			return Config{}, fmt.Errorf("invalid %s: %w", EnvVar(key), err)
		}
	}
	return cfg, nil
}

// Overrides returns the keys currently overridden from the environment.
func (s *Store) Overrides() []string {
	var out []string
	for _, key := range Keys {
		if _, ok := os.LookupEnv(EnvVar(key)); ok {
			out = append(out, key)
		}
	}
	return out
}

// SaveConfig writes the file-backed config to config.yaml.
func (s *Store) SaveConfig() error {
	return writeConfig(s.Path("config.yaml"), s.file)
}

func writeConfig(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := atomic.WriteFile(path, strings.NewReader(string(data))); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	// atomic.WriteFile leaves new files 0600
	if err := os.Chmod(path, 0644); err != nil {
		return fmt.Errorf("failed to set config permissions: %w", err)
	}
	return nil
}

// SetConfigValue sets a config value by dot-path key (e.g. "sources.records") and saves it.
func (s *Store) SetConfigValue(key, value string) error {
	if err := s.file.Set(key, value); err != nil {
		return err
	}
	if err := s.Config.Set(key, value); err != nil {
		return err
	}
	return s.SaveConfig()
}

// Path resolves a path within ATLAS_HOME.
func (s *Store) Path(parts ...string) string {
	all := append([]string{s.Home}, parts...)
	return filepath.Join(all...)
}

// RecordsLocation returns the records source with relative paths resolved.
func (s *Store) RecordsLocation() string {
	return source.Resolve(s.Home, s.Config.Sources.Records)
}

// CapabilitiesLocation returns the capabilities source with relative paths resolved.
func (s *Store) CapabilitiesLocation() string {
	return source.Resolve(s.Home, s.Config.Sources.Capabilities)
}

// CheckHealth verifies ATLAS_HOME structure and config values.
func CheckHealth(home string) []Issue {
	var issues []Issue

	p := filepath.Join(home, "data")
	info, err := os.Stat(p)
	if err != nil {
		issues = append(issues, Issue{"error", fmt.Sprintf("missing directory: %s", p)})
	} else if !info.IsDir() {
		issues = append(issues, Issue{"error", fmt.Sprintf("expected directory but found file: %s", p)})
	}

	cfgPath := filepath.Join(home, "config.yaml")
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		issues = append(issues, Issue{"error", fmt.Sprintf("cannot read config.yaml: %v", err)})
		return issues
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		issues = append(issues, Issue{"error", fmt.Sprintf("config.yaml is not valid YAML: %v", err)})
		return issues
	}
	for _, key := range Keys {
		val, _ := cfg.Get(key)
		probe := cfg
		if err := probe.Set(key, val); err != nil {
			issues = append(issues, Issue{"warning", err.Error()})
		}
	}
	return issues
}

// FixIssues attempts to repair simple issues in ATLAS_HOME.
func FixIssues(home string) []string {
	var fixed []string

	p := filepath.Join(home, "data")
	if _, err := os.Stat(p); err != nil {
		if err := os.MkdirAll(p, 0755); err == nil {
			fixed = append(fixed, "recreated missing directory: data")
		}
	}

	cfgPath := filepath.Join(home, "config.yaml")
	if _, err := os.Stat(cfgPath); err != nil {
		if writeConfig(cfgPath, DefaultConfig()) == nil {
			fixed = append(fixed, "recreated missing config.yaml with defaults")
		}
	}

	return fixed
}
