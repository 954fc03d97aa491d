package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type DBDriver string

const (
	DBMemory   DBDriver = "memory"
	DBSQLite   DBDriver = "sqlite"
	DBPostgres DBDriver = "postgres"
)

type Config struct {
	HTTPAddr  string `yaml:"http_addr"`
	PublicURL string `yaml:"public_url"`

	// SecretKey signs the session cookie.
	SecretKey string `yaml:"secret_key"`

	// LabelsURL is a file path or an http(s) URL serving the label mapping.
	LabelsURL string `yaml:"labels_url"`
	ImageDir  string `yaml:"image_dir"`
	TempDir   string `yaml:"temp_dir"`

	ExamplesPerClass int   `yaml:"examples_per_class"`
	SamplesPerClass  int   `yaml:"samples_per_class"` // 0 = use everything left after examples
	Seed             int64 `yaml:"seed"`              // 0 = time based

	DBDriver DBDriver `yaml:"db_driver"`
	DBDSN    string   `yaml:"db_dsn"`

	SessionTTL        time.Duration `yaml:"session_ttl"`
	SessionPurgeEvery time.Duration `yaml:"session_purge_every"`
	StaticMaxAge      time.Duration `yaml:"static_max_age"`

	CORSOrigins []string `yaml:"cors_origins"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // json|console
}

// DefaultSecretKey is only fit for local development.
const DefaultSecretKey = "dev-secret-change-me"

func Default() Config {
	return Config{
		HTTPAddr:          ":8080",
		SecretKey:         DefaultSecretKey,
		LabelsURL:         "labels.json",
		ImageDir:          "./static/images",
		TempDir:           os.TempDir(),
		ExamplesPerClass:  2,
		SamplesPerClass:   0,
		DBDriver:          DBMemory,
		SessionTTL:        24 * time.Hour,
		SessionPurgeEvery: 10 * time.Minute,
		StaticMaxAge:      60 * time.Second,
		CORSOrigins:       []string{"http://localhost:8080"},
		LogLevel:          "info",
		LogFormat:         "json",
	}
}

// Load reads the optional YAML file at path on top of the defaults, then
// applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg, err := applyEnv(cfg)
	if err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// FromEnv is Load without a config file.
func FromEnv() (Config, error) { return Load("") }

func applyEnv(c Config) (Config, error) {
	var err error
	c.HTTPAddr = envOr("HTTP_ADDR", c.HTTPAddr)
	c.PublicURL = envOr("PUBLIC_URL", c.PublicURL)
	c.SecretKey = envOr("SECRET_KEY", c.SecretKey)
	c.LabelsURL = envOr("LABELS_URL", c.LabelsURL)
	c.ImageDir = envOr("IMAGE_DIR", c.ImageDir)
	c.TempDir = envOr("TEMP_DIR", c.TempDir)
	c.DBDriver = DBDriver(envOr("DB_DRIVER", string(c.DBDriver)))
	c.DBDSN = envOr("DB_DSN", c.DBDSN)
	c.LogLevel = envOr("LOG_LEVEL", c.LogLevel)
	c.LogFormat = envOr("LOG_FORMAT", c.LogFormat)
	c.CORSOrigins = csvOr("CORS_ORIGINS", c.CORSOrigins)

	if c.ExamplesPerClass, err = envInt("EXAMPLES_PER_CLASS", c.ExamplesPerClass); err != nil {
		return c, err
	}
	if c.SamplesPerClass, err = envInt("SAMPLES_PER_CLASS", c.SamplesPerClass); err != nil {
		return c, err
	}
	seed, err := envInt("SEED", int(c.Seed))
	if err != nil {
		return c, err
	}
	c.Seed = int64(seed)
	if c.SessionTTL, err = envDuration("SESSION_TTL", c.SessionTTL); err != nil {
		return c, err
	}
	if c.SessionPurgeEvery, err = envDuration("SESSION_PURGE_EVERY", c.SessionPurgeEvery); err != nil {
		return c, err
	}
	if c.StaticMaxAge, err = envDuration("STATIC_MAX_AGE", c.StaticMaxAge); err != nil {
		return c, err
	}
	return c, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.LabelsURL == "" {
		errs = append(errs, errors.New("labels_url is required"))
	}
	if c.SecretKey == "" {
		errs = append(errs, errors.New("secret_key is required"))
	}
	if c.ExamplesPerClass < 0 {
		errs = append(errs, errors.New("examples_per_class must be >= 0"))
	}
	if c.SamplesPerClass < 0 {
		errs = append(errs, errors.New("samples_per_class must be >= 0"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("session_ttl must be positive"))
	}
	switch c.DBDriver {
	case DBMemory, DBSQLite, DBPostgres:
	default:
		errs = append(errs, fmt.Errorf("unsupported db_driver %q", c.DBDriver))
	}
	return errors.Join(errs...)
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", k, err)
	}
	return n, nil
}

func envDuration(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", k, err)
	}
	return d, nil
}

func csvOr(k string, def []string) []string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// UsesDefaultSecret reports whether cookies are still signed with the
// development key.
func (c Config) UsesDefaultSecret() bool { return c.SecretKey == DefaultSecretKey }
