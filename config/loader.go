package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultEnvPrefix prefixes every environment override.
const DefaultEnvPrefix = "VOICECAP"

// configNames are tried in each search directory.
var configNames = []string{"voicecap.yml", "voicecap.yaml", "config.yml"}

// Loadable is a configuration struct Load can fill.
type Loadable interface {
	ApplyDefaults()
	Validate() error
}

// FileSystem abstracts the file operations of the loader.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// RealFileSystem implements FileSystem using actual file operations.
type RealFileSystem struct{}

func (RealFileSystem) Exists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

// LoadEnv loads a .env file without overriding variables already set.
func (RealFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// LoaderConfig holds dependencies and optional file overrides.
type LoaderConfig struct {
	FileSystem  FileSystem
	ConfigFile  string // explicit config file; must exist
	EnvFile     string // explicit .env file; must exist
	EnvPrefix   string
	SearchPaths []string // directories searched when no file is given
}

// Option is a functional option for Load.
type Option func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) Option {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) Option {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) Option {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithEnvPrefix replaces DefaultEnvPrefix.
func WithEnvPrefix(prefix string) Option {
	return func(lc *LoaderConfig) { lc.EnvPrefix = prefix }
}

// WithSearchPaths replaces the directories searched for config and .env files.
func WithSearchPaths(dirs ...string) Option {
	return func(lc *LoaderConfig) { lc.SearchPaths = dirs }
}

// DefaultSearchPaths returns ".", "./config" and the user config directory.
func DefaultSearchPaths() []string {
	paths := []string{".", "config"}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "voicecap"))
	}
	return paths
}

// ResolvedFiles contains the resolved config and env file paths. Either may
// be empty when nothing was found.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// Resolve finds the config and env files. Explicit paths win and must exist.
func Resolve(lc LoaderConfig) (ResolvedFiles, error) {
	var files ResolvedFiles

	if lc.ConfigFile != "" {
		if !lc.FileSystem.Exists(lc.ConfigFile) {
			return files, fmt.Errorf("config file %s not found", lc.ConfigFile)
		}
		files.ConfigFile = lc.ConfigFile
	} else {
		files.ConfigFile = search(lc.FileSystem, lc.SearchPaths, configNames)
	}

	if lc.EnvFile != "" {
		if !lc.FileSystem.Exists(lc.EnvFile) {
			return files, fmt.Errorf("env file %s not found", lc.EnvFile)
		}
		files.EnvFile = lc.EnvFile
	} else {
		files.EnvFile = search(lc.FileSystem, lc.SearchPaths, []string{".env"})
	}
	return files, nil
}

func search(fs FileSystem, dirs, names []string) string {
	for _, dir := range dirs {
		for _, name := range names {
			p := filepath.Join(dir, name)
			if fs.Exists(p) {
				return p
			}
		}
	}
	return ""
}

// Load fills cfg from the resolved files and the environment, then applies
// defaults and validates.
func Load(cfg Loadable, opts ...Option) error {
	lc := LoaderConfig{EnvPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.FileSystem == nil {
		lc.FileSystem = RealFileSystem{}
	}
	if lc.SearchPaths == nil {
		lc.SearchPaths = DefaultSearchPaths()
	}

	files, err := Resolve(lc)
	if err != nil {
		return err
	}

	// .env values populate the process environment before viper reads it
	if files.EnvFile != "" {
		if err := lc.FileSystem.LoadEnv(files.EnvFile); err != nil {
			return fmt.Errorf("loading env file %s: %w", files.EnvFile, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(lc.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range Keys(cfg) {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("binding %s: %w", key, err)
		}
	}

	if files.ConfigFile != "" {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %s: %w", files.ConfigFile, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("decoding config: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg.Validate()
}

var (
	durationType = reflect.TypeOf(time.Duration(0))
	timeType     = reflect.TypeOf(time.Time{})
)

// Keys lists the dotted mapstructure path of every leaf field in cfg.
func Keys(cfg any) []string {
	var keys []string
	collectKeys(reflect.TypeOf(cfg), "", &keys)
	return keys
}

func collectKeys(t reflect.Type, prefix string, keys *[]string) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "-" {
			continue
		}
		ft := f.Type
		if ft.Kind() == reflect.Struct && ft != timeType && ft != durationType {
			if opts == "squash" {
				collectKeys(ft, prefix, keys)
				continue
			}
			collectKeys(ft, join(prefix, keyName(name, f.Name)), keys)
			continue
		}
		*keys = append(*keys, join(prefix, keyName(name, f.Name)))
	}
}

func keyName(tag, field string) string {
	if tag != "" {
		return tag
	}
	return strings.ToLower(field)
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
