package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Project config file names, in lookup order within a directory
const (
	JSONFileName = "captionly.json"
	YAMLFileName = "captionly.yaml"
)

// Defaults
const (
	DefaultAPIURL    = "http://localhost:5000/api"
	DefaultStore     = "keyring"
	DefaultTimeout   = 30 * time.Second
	DefaultLogLevel  = "warn"
	DefaultLogFormat = "console"
)

// Environment variables
const (
	EnvAPIURL    = "CAPTIONLY_API_URL"
	EnvStore     = "CAPTIONLY_STORE"
	EnvTimeout   = "CAPTIONLY_TIMEOUT"
	EnvLogLevel  = "CAPTIONLY_LOG_LEVEL"
	EnvLogFormat = "CAPTIONLY_LOG_FORMAT"
)

// ErrConfigNotFound is returned by FindConfigFile when no project file exists
var ErrConfigNotFound = errors.New("captionly config file not found")

// Config is the resolved CLI configuration
type Config struct {
	APIURL    string        `validate:"required,url"`
	Store     string        `validate:"required,oneof=keyring file memory"`
	StateFile string
	Timeout   time.Duration `validate:"gt=0"`
	LogLevel  string        `validate:"omitempty,oneof=debug info warn warning error fatal panic disabled off"`
	LogFormat string        `validate:"omitempty,oneof=console json"`

	// Path is the project file the config was read from, if any
	Path string
}

// fileConfig is the on-disk shape of captionly.json / captionly.yaml
type fileConfig struct {
	APIURL    string `json:"api_url" yaml:"api_url"`
	Store     string `json:"store" yaml:"store"`
	StateFile string `json:"state_file" yaml:"state_file"`
	Timeout   string `json:"timeout" yaml:"timeout"`
	LogLevel  string `json:"log_level" yaml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		APIURL:    DefaultAPIURL,
		Store:     DefaultStore,
		Timeout:   DefaultTimeout,
		LogLevel:  DefaultLogLevel,
		LogFormat: DefaultLogFormat,
	}
}

// FindConfigFile searches for a project file in dir and its parents
func FindConfigFile(dir string) (string, error) {
	current := dir
	for {
		for _, name := range []string{JSONFileName, YAMLFileName} {
			path := filepath.Join(current, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}

		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}

	return "", fmt.Errorf("%w in %s or any parent directory", ErrConfigNotFound, dir)
}

// Load resolves the configuration for dir: defaults, then the project file,
// then .env and .env.local next to it, then the process environment.
// Flags are applied by the caller with Override.
func Load(dir string) (*Config, error) {
	cfg := Default()

	envDir := dir
	path, err := FindConfigFile(dir)
	switch {
	case err == nil:
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
		cfg.Path = path
		envDir = filepath.Dir(path)
	case !errors.Is(err, ErrConfigNotFound):
		return nil, err
	}

	env, err := readDotenv(envDir)
	if err != nil {
		return nil, err
	}
	for _, key := range []string{EnvAPIURL, EnvStore, EnvTimeout, EnvLogLevel, EnvLogFormat} {
		if value, ok := os.LookupEnv(key); ok {
			env[key] = value
		}
	}
	if err := cfg.mergeEnv(env); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromCurrentDir loads config for the working directory
func LoadFromCurrentDir() (*Config, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}
	return Load(dir)
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return c.merge(map[string]string{
		EnvAPIURL:    fc.APIURL,
		EnvStore:     fc.Store,
		EnvTimeout:   fc.Timeout,
		EnvLogLevel:  fc.LogLevel,
		EnvLogFormat: fc.LogFormat,
	}, fc.StateFile)
}

func (c *Config) mergeEnv(env map[string]string) error {
	return c.merge(env, "")
}

func (c *Config) merge(values map[string]string, stateFile string) error {
	if v := values[EnvAPIURL]; v != "" {
		c.APIURL = v
	}
	if v := values[EnvStore]; v != "" {
		c.Store = strings.ToLower(v)
	}
	if v := values[EnvTimeout]; v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid timeout %q: %w", v, err)
		}
		c.Timeout = d
	}
	if v := values[EnvLogLevel]; v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v := values[EnvLogFormat]; v != "" {
		c.LogFormat = strings.ToLower(v)
	}
	if stateFile != "" {
		c.StateFile = stateFile
	}
	return nil
}

// readDotenv reads .env then .env.local from dir. Missing files are skipped.
func readDotenv(dir string) (map[string]string, error) {
	env := make(map[string]string)
	for _, name := range []string{".env", ".env.local"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		values, err := godotenv.Read(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		for k, v := range values {
			env[k] = v
		}
	}
	return env, nil
}

// Overrides are values given on the command line. Empty fields are ignored.
type Overrides struct {
	APIURL    string
	Store     string
	LogLevel  string
	LogFormat string
}

// Override applies command line values on top of c
func (c *Config) Override(o Overrides) {
	if o.APIURL != "" {
		c.APIURL = o.APIURL
	}
	if o.Store != "" {
		c.Store = strings.ToLower(o.Store)
	}
	if o.LogLevel != "" {
		c.LogLevel = strings.ToLower(o.LogLevel)
	}
	if o.LogFormat != "" {
		c.LogFormat = strings.ToLower(o.LogFormat)
	}
}

var validate = validator.New()

// Validate checks the resolved configuration
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("invalid config: %s (%s=%v)", fe.Field(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Save writes a project file. The format follows the file extension.
func Save(path string, c *Config) error {
	fc := fileConfig{
		APIURL:    c.APIURL,
		Store:     c.Store,
		StateFile: c.StateFile,
		Timeout:   c.Timeout.String(),
		LogLevel:  c.LogLevel,
		LogFormat: c.LogFormat,
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(fc)
	default:
		data, err = json.MarshalIndent(fc, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
