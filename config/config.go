// Package config loads service configuration from a YAML file, an optional
// .env file and environment variables, in increasing order of precedence.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/spektr-org/churnboard/records"
)

// DefaultPath is read when CONFIG_PATH is unset. A missing default file is
// not an error; a missing explicit CONFIG_PATH is.
const DefaultPath = "config.yaml"

// EnvPrefix is prepended to every environment variable.
const EnvPrefix = "CHURNBOARD_"

// Config is the full service configuration.
type Config struct {
	Server ServerOptions `yaml:"server" envPrefix:"SERVER_"`
	Log    LogOptions    `yaml:"log" envPrefix:"LOG_"`
	Data   DataOptions   `yaml:"data" envPrefix:"DATA_"`
	Model  ModelOptions  `yaml:"model" envPrefix:"MODEL_"`
}

// ServerOptions configures the HTTP API.
type ServerOptions struct {
	Addr            string        `yaml:"addr" env:"ADDR"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	SessionTTL      time.Duration `yaml:"session_ttl" env:"SESSION_TTL"`
	MetricsPath     string        `yaml:"metrics_path" env:"METRICS_PATH"`
}

// LogOptions configures the logger.
type LogOptions struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// DataOptions names the base table sources. Empty file names are taken
// from Dir; a non-empty SQLite path replaces the CSV files.
type DataOptions struct {
	Dir       string `yaml:"dir" env:"DIR"`
	Employees string `yaml:"employees" env:"EMPLOYEES"`
	Surveys   string `yaml:"surveys" env:"SURVEYS"`
	Flows     string `yaml:"flows" env:"FLOWS"`
	Salaries  string `yaml:"salaries" env:"SALARIES"`
	SQLite    string `yaml:"sqlite" env:"SQLITE"`
}

// ModelOptions names the classifier and scaler artifacts.
type ModelOptions struct {
	Classifier    string        `yaml:"classifier" env:"CLASSIFIER"`
	Scaler        string        `yaml:"scaler" env:"SCALER"`
	RemoteTimeout time.Duration `yaml:"remote_timeout" env:"REMOTE_TIMEOUT"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerOptions{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			SessionTTL:      12 * time.Hour,
			MetricsPath:     "/metrics",
		},
		Log:  LogOptions{Level: "info", Format: "text"},
		Data: DataOptions{Dir: "data"},
		Model: ModelOptions{
			Classifier:    filepath.Join("artifacts", "model.yaml"),
			Scaler:        filepath.Join("artifacts", "scaler.yaml"),
			RemoteTimeout: 10 * time.Second,
		},
	}
}

// Load reads defaults, then the YAML file, then .env, then the environment.
func Load() (Config, error) {
	path := DefaultPath
	explicit := false
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		path, explicit = p, true
	}
	return LoadFrom(path, explicit, ".env")
}

// LoadFrom is Load with explicit file locations. When required is false a
// missing YAML file is skipped. Missing env files are always skipped.
func LoadFrom(path string, required bool, envFiles ...string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, errors.Wrapf(err, "parse %s", path)
		}
	case os.IsNotExist(err) && !required:
	default:
		return Config{}, errors.Wrap(err, "read config")
	}

	var present []string
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) > 0 {
		if err := godotenv.Load(present...); err != nil {
			return Config{}, errors.Wrap(err, "load env file")
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, errors.Wrap(err, "parse environment")
	}
	return cfg, cfg.Validate()
}

// Validate checks values that would only fail later at startup.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is empty")
	}
	if c.Server.SessionTTL <= 0 {
		return errors.New("server.session_ttl must be positive")
	}
	if c.Data.SQLite == "" && c.Data.Dir == "" &&
		(c.Data.Employees == "" || c.Data.Surveys == "" || c.Data.Flows == "" || c.Data.Salaries == "") {
		return errors.New("data: set dir, every source file, or sqlite")
	}
	if c.Model.Classifier == "" || c.Model.Scaler == "" {
		return errors.New("model: classifier and scaler paths are required")
	}
	return nil
}

// Sources resolves the CSV source paths.
func (d DataOptions) Sources() records.Sources {
	src := records.DefaultSources(d.Dir)
	if d.Employees != "" {
		src.Employees = d.Employees
	}
	if d.Surveys != "" {
		src.Surveys = d.Surveys
	}
	if d.Flows != "" {
		src.Flows = d.Flows
	}
	if d.Salaries != "" {
		src.Salaries = d.Salaries
	}
	return src
}

// Options converts data options for records.Open.
func (d DataOptions) Options() records.Options {
	return records.Options{Sources: d.Sources(), SQLitePath: d.SQLite}
}
