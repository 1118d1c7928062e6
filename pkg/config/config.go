// Package config loads cv settings from a YAML file, a .env file and CV_*
// environment variables, in increasing order of precedence. Command-line
// flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Dicklesworthstone/canvas_viewer/pkg/graph"
	"github.com/Dicklesworthstone/canvas_viewer/pkg/layout"
	"github.com/Dicklesworthstone/canvas_viewer/pkg/logger"
	"github.com/Dicklesworthstone/canvas_viewer/pkg/session"
)

// Environment variables read by Load
const (
	EnvServerURL  = "CV_SERVER_URL"
	EnvDirection  = "CV_DIRECTION"
	EnvDebug      = "CV_DEBUG"
	EnvLogFile    = "CV_LOG_FILE"
	EnvDBPath     = "CV_DB_PATH"
	EnvDBDriver   = "CV_DB_DRIVER"
	EnvSizePolicy = "CV_SIZE_POLICY"
	EnvDebounce   = "CV_DEBOUNCE"
)

// DefaultServerURL is where a locally started canvas server listens
const DefaultServerURL = "http://localhost:8000"

// Config is the resolved configuration
type Config struct {
	ServerURL  string        `yaml:"server_url"`
	Direction  string        `yaml:"direction"`
	Debug      bool          `yaml:"debug"`
	LogFile    string        `yaml:"log_file"`
	DBPath     string        `yaml:"db_path"`
	DBDriver   string        `yaml:"db_driver"`
	SizePolicy string        `yaml:"size_policy"`
	Debounce   time.Duration `yaml:"debounce"`
	Timeout    time.Duration `yaml:"timeout"`
	Layout     LayoutConfig  `yaml:"layout"`
	UI         UIConfig      `yaml:"ui"`
}

// LayoutConfig holds layout spacing in pixels
type LayoutConfig struct {
	RankSep float64 `yaml:"rank_sep"`
	NodeSep float64 `yaml:"node_sep"`
	EdgeSep float64 `yaml:"edge_sep"`
	Margin  float64 `yaml:"margin"`
}

// UIConfig toggles the optional parts of the canvas view
type UIConfig struct {
	ShowMinimap  bool `yaml:"show_minimap"`
	ShowControls bool `yaml:"show_controls"`
	ShowPanel    bool `yaml:"show_panel"`
}

// fileConfig mirrors Config with pointers so that keys absent from the file
// leave defaults alone.
type fileConfig struct {
	ServerURL  *string         `yaml:"server_url"`
	Direction  *string         `yaml:"direction"`
	Debug      *bool           `yaml:"debug"`
	LogFile    *string         `yaml:"log_file"`
	DBPath     *string         `yaml:"db_path"`
	DBDriver   *string         `yaml:"db_driver"`
	SizePolicy *string         `yaml:"size_policy"`
	Debounce   *string         `yaml:"debounce"`
	Timeout    *string         `yaml:"timeout"`
	Layout     *layoutFileConf `yaml:"layout"`
	UI         *uiFileConf     `yaml:"ui"`
}

type layoutFileConf struct {
	RankSep *float64 `yaml:"rank_sep"`
	NodeSep *float64 `yaml:"node_sep"`
	EdgeSep *float64 `yaml:"edge_sep"`
	Margin  *float64 `yaml:"margin"`
}

type uiFileConf struct {
	ShowMinimap  *bool `yaml:"show_minimap"`
	ShowControls *bool `yaml:"show_controls"`
	ShowPanel    *bool `yaml:"show_panel"`
}

// Default returns the built-in configuration
func Default() Config {
	lo := layout.DefaultOptions()
	return Config{
		ServerURL:  DefaultServerURL,
		Direction:  string(graph.TopToBottom),
		LogFile:    filepath.Join(cacheDir(), "cv", "cv.log"),
		DBPath:     filepath.Join(configDir(), "cv", "history.db"),
		DBDriver:   session.DriverCGO,
		SizePolicy: lo.Policy.String(),
		Debounce:   150 * time.Millisecond,
		Timeout:    10 * time.Second,
		Layout: LayoutConfig{
			RankSep: lo.RankSep,
			NodeSep: lo.NodeSep,
			EdgeSep: lo.EdgeSep,
			Margin:  lo.MarginX,
		},
		UI: UIConfig{ShowMinimap: true, ShowControls: true, ShowPanel: true},
	}
}

// DefaultPath is $XDG_CONFIG_HOME/cv/config.yaml, or the platform config
// directory when XDG_CONFIG_HOME is unset.
func DefaultPath() string {
	return filepath.Join(configDir(), "cv", "config.yaml")
}

func configDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return dir
	}
	return "."
}

func cacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return dir
	}
	return os.TempDir()
}

// Load resolves the configuration. A missing file at path is not an error;
// an empty path means DefaultPath. A .env file in the working directory is
// loaded into the environment first when present.
func Load(path string) (Config, error) {
	loadEnvFile()

	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}
	if err := cfg.mergeFile(path); err != nil {
		return Config{}, err
	}
	if err := cfg.mergeEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadEnvFile() {
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using system environment variables")
	}
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Debug("No config file", "path", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&c.ServerURL, fc.ServerURL)
	setString(&c.Direction, fc.Direction)
	setBool(&c.Debug, fc.Debug)
	setString(&c.LogFile, fc.LogFile)
	setString(&c.DBPath, fc.DBPath)
	setString(&c.DBDriver, fc.DBDriver)
	setString(&c.SizePolicy, fc.SizePolicy)
	if err := setDuration(&c.Debounce, fc.Debounce, "debounce"); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	if err := setDuration(&c.Timeout, fc.Timeout, "timeout"); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	if l := fc.Layout; l != nil {
		setFloat(&c.Layout.RankSep, l.RankSep)
		setFloat(&c.Layout.NodeSep, l.NodeSep)
		setFloat(&c.Layout.EdgeSep, l.EdgeSep)
		setFloat(&c.Layout.Margin, l.Margin)
	}
	if u := fc.UI; u != nil {
		setBool(&c.UI.ShowMinimap, u.ShowMinimap)
		setBool(&c.UI.ShowControls, u.ShowControls)
		setBool(&c.UI.ShowPanel, u.ShowPanel)
	}
	logger.Debug("Loaded config file", "path", path)
	return nil
}

func (c *Config) mergeEnv() error {
	c.ServerURL = getEnvString(EnvServerURL, c.ServerURL)
	c.Direction = getEnvString(EnvDirection, c.Direction)
	c.Debug = getEnvBool(EnvDebug, c.Debug)
	c.LogFile = getEnvString(EnvLogFile, c.LogFile)
	c.DBPath = getEnvString(EnvDBPath, c.DBPath)
	c.DBDriver = getEnvString(EnvDBDriver, c.DBDriver)
	c.SizePolicy = getEnvString(EnvSizePolicy, c.SizePolicy)
	if v, ok := os.LookupEnv(EnvDebounce); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvDebounce, err)
		}
		c.Debounce = d
	}
	return nil
}

// Validate checks every value that has a fixed vocabulary or range
func (c Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server_url %q must be an http(s) URL", c.ServerURL)
	}
	if _, err := graph.ParseDirection(c.Direction); err != nil {
		return fmt.Errorf("direction: %w", err)
	}
	if _, err := layout.ParseSizePolicy(c.SizePolicy); err != nil {
		return fmt.Errorf("size_policy: %w", err)
	}
	switch c.DBDriver {
	case session.DriverCGO, session.DriverPure:
	default:
		return fmt.Errorf("db_driver %q must be %s or %s", c.DBDriver, session.DriverCGO, session.DriverPure)
	}
	if c.Debounce < 0 || c.Timeout < 0 {
		return fmt.Errorf("debounce and timeout must not be negative")
	}
	if _, err := c.LayoutOptions(); err != nil {
		return err
	}
	return nil
}

// LayoutDirection returns the parsed direction; invalid values fall back to
// top-to-bottom.
func (c Config) LayoutDirection() graph.Direction {
	d, err := graph.ParseDirection(c.Direction)
	if err != nil {
		return graph.TopToBottom
	}
	return d
}

// LayoutOptions converts the layout section into layout.Options
func (c Config) LayoutOptions() (layout.Options, error) {
	opts := layout.DefaultOptions()
	opts.RankSep = c.Layout.RankSep
	opts.NodeSep = c.Layout.NodeSep
	opts.EdgeSep = c.Layout.EdgeSep
	opts.MarginX = c.Layout.Margin
	opts.MarginY = c.Layout.Margin
	policy, err := layout.ParseSizePolicy(c.SizePolicy)
	if err != nil {
		return opts, err
	}
	opts.Policy = policy
	return opts, opts.Validate()
}

func getEnvString(key, defaultValue string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *string, name string) error {
	if v == nil {
		return nil
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = d
	return nil
}
