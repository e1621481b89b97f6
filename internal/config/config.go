// Package config loads biblify settings from defaults, the config file,
// BIBLIFY_* environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "BIBLIFY"
	DirName   = ".biblify"
	FileName  = "config.yaml"
)

// Palette holds the colors of one theme.
type Palette struct {
	Highlight string `mapstructure:"highlight" yaml:"highlight" validate:"hexcolor"`
	Reference string `mapstructure:"reference" yaml:"reference" validate:"hexcolor"`
	Text      string `mapstructure:"text" yaml:"text" validate:"hexcolor"`
	Dim       string `mapstructure:"dim" yaml:"dim" validate:"hexcolor"`
}

type Colors struct {
	Light Palette `mapstructure:"light" yaml:"light"`
	Dark  Palette `mapstructure:"dark" yaml:"dark"`
}

type Search struct {
	Debounce       time.Duration `mapstructure:"debounce" validate:"min=0"`
	MinQueryLength int           `mapstructure:"min_query_length" validate:"min=1"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl" validate:"min=0"`
}

// MarshalYAML renders durations as strings.
func (s Search) MarshalYAML() (interface{}, error) {
	return struct {
		Debounce       string `yaml:"debounce"`
		MinQueryLength int    `yaml:"min_query_length"`
		CacheTTL       string `yaml:"cache_ttl"`
	}{s.Debounce.String(), s.MinQueryLength, s.CacheTTL.String()}, nil
}

type Notifications struct {
	Exact   bool          `mapstructure:"exact"`
	Command string        `mapstructure:"command"`
	Recheck time.Duration `mapstructure:"recheck" validate:"min=1s"`
}

// MarshalYAML renders durations as strings.
func (n Notifications) MarshalYAML() (interface{}, error) {
	return struct {
		Exact   bool   `yaml:"exact"`
		Command string `yaml:"command"`
		Recheck string `yaml:"recheck"`
	}{n.Exact, n.Command, n.Recheck.String()}, nil
}

type Server struct {
	Addr string `mapstructure:"addr" yaml:"addr" validate:"required,hostname_port"`
}

// Config is the full biblify configuration.
type Config struct {
	DataDir          string        `mapstructure:"data_dir" yaml:"data_dir" validate:"required"`
	ScriptureFile    string        `mapstructure:"scripture_file" yaml:"scripture_file"`
	AffirmationsFile string        `mapstructure:"affirmations_file" yaml:"affirmations_file"`
	Database         string        `mapstructure:"database" yaml:"database"`
	Search           Search        `mapstructure:"search" yaml:"search"`
	Notifications    Notifications `mapstructure:"notifications" yaml:"notifications"`
	Server           Server        `mapstructure:"server" yaml:"server"`
	Colors           Colors        `mapstructure:"colors" yaml:"colors"`
}

// DefaultDataDir returns ~/.biblify, or .biblify when the home directory is
// unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DirName
	}
	return filepath.Join(home, DirName)
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DataDir: DefaultDataDir(),
		Search: Search{
			Debounce:       300 * time.Millisecond,
			MinQueryLength: 1,
			CacheTTL:       5 * time.Minute,
		},
		Notifications: Notifications{
			Exact:   true,
			Recheck: time.Minute,
		},
		Server: Server{Addr: "127.0.0.1:8080"},
		Colors: Colors{
			Light: Palette{Highlight: "#8839ef", Reference: "#1e66f5", Text: "#4c4f69", Dim: "#9ca0b0"},
			Dark:  Palette{Highlight: "#cba6f7", Reference: "#89b4fa", Text: "#cdd6f4", Dim: "#6c7086"},
		},
	}
}

// SetDefaults registers every key with v so AutomaticEnv can resolve it.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("scripture_file", d.ScriptureFile)
	v.SetDefault("affirmations_file", d.AffirmationsFile)
	v.SetDefault("database", d.Database)
	v.SetDefault("search.debounce", d.Search.Debounce)
	v.SetDefault("search.min_query_length", d.Search.MinQueryLength)
	v.SetDefault("search.cache_ttl", d.Search.CacheTTL)
	v.SetDefault("notifications.exact", d.Notifications.Exact)
	v.SetDefault("notifications.command", d.Notifications.Command)
	v.SetDefault("notifications.recheck", d.Notifications.Recheck)
	v.SetDefault("server.addr", d.Server.Addr)
	for name, p := range map[string]Palette{"light": d.Colors.Light, "dark": d.Colors.Dark} {
		v.SetDefault("colors."+name+".highlight", p.Highlight)
		v.SetDefault("colors."+name+".reference", p.Reference)
		v.SetDefault("colors."+name+".text", p.Text)
		v.SetDefault("colors."+name+".dim", p.Dim)
	}
}

// BindEnv makes BIBLIFY_SEARCH_DEBOUNCE and friends override nested keys.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// LoadDotEnv loads .env files into the environment. Missing files are
// ignored; existing variables win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

var validate = validator.New()

// Load decodes v into a Config, fills derived paths and validates it.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.resolvePaths()
	if err := validate.Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) resolvePaths() {
	c.DataDir = expandHome(c.DataDir)
	c.ScriptureFile = expandHome(c.ScriptureFile)
	if c.AffirmationsFile == "" {
		c.AffirmationsFile = filepath.Join(c.DataDir, "affirmations.txt")
	}
	c.AffirmationsFile = expandHome(c.AffirmationsFile)
	if c.Database == "" {
		c.Database = filepath.Join(c.DataDir, "biblify.db")
	}
	c.Database = expandHome(c.Database)
}

// Path returns a file inside the data directory.
func (c Config) Path(name string) string {
	return filepath.Join(c.DataDir, name)
}

// Palette returns the colors for a theme name; anything but "dark" is light.
func (c Config) Palette(theme string) Palette {
	if theme == "dark" {
		return c.Colors.Dark
	}
	return c.Colors.Light
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
