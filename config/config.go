package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultJWTSecret is only acceptable outside production.
const DefaultJWTSecret = "foodgram-development-secret"

// DefaultMaxBodyBytes fits a base64 encoded 10 MiB image plus the rest of
// a recipe.
const DefaultMaxBodyBytes = 15 << 20

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

var defaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/foodgram/config.yaml",
}

// Config holds all configuration for the application
type Config struct {
	Env       Environment     `koanf:"env"`
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"db"`
	Redis     RedisConfig     `koanf:"redis"`
	JWT       JWTConfig       `koanf:"jwt"`
	Media     MediaConfig     `koanf:"media"`
	S3        S3Settings      `koanf:"s3"`
	API       APIConfig       `koanf:"api"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Log       LogConfig       `koanf:"log"`
	CORS      CORSConfig      `koanf:"cors"`
	PDF       PDFConfig       `koanf:"pdf"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Driver      string `koanf:"driver" validate:"oneof=postgres sqlite"`
	Host        string `koanf:"host" validate:"required_if=Driver postgres"`
	Port        string `koanf:"port"`
	User        string `koanf:"user" validate:"required_if=Driver postgres"`
	Password    string `koanf:"password"`
	Name        string `koanf:"name" validate:"required_if=Driver postgres"`
	SSLMode     string `koanf:"ssl_mode"`
	SQLitePath  string `koanf:"sqlite_path" validate:"required_if=Driver sqlite"`
	AutoMigrate bool   `koanf:"auto_migrate"`
}

// DSN builds the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

type RedisConfig struct {
	URL      string `koanf:"url"`
	Host     string `koanf:"host"`
	Port     string `koanf:"port"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db" validate:"min=0"`
}

// Enabled reports whether any redis endpoint is configured.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Host != ""
}

type JWTConfig struct {
	Secret string        `koanf:"secret" validate:"required,min=16"`
	TTL    time.Duration `koanf:"ttl" validate:"gt=0"`
}

type MediaConfig struct {
	Root string `koanf:"root" validate:"required"`
	URL  string `koanf:"url" validate:"required,startswith=/"`
}

// S3Settings configures the optional S3 image store. An empty bucket
// keeps images on the local filesystem.
type S3Settings struct {
	Bucket     string `koanf:"bucket_name"`
	Region     string `koanf:"region"`
	Endpoint   string `koanf:"endpoint"`
	PublicURL  string `koanf:"public_url"`
	PublicRead bool   `koanf:"public_read"`
}

type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size" validate:"min=1"`
	MaxPageSize     int `koanf:"max_page_size" validate:"gtefield=DefaultPageSize"`
	// MaxBodyBytes caps request bodies; zero disables the cap.
	MaxBodyBytes int64 `koanf:"max_body_bytes" validate:"min=0"`
}

type RateLimitConfig struct {
	Enabled     bool          `koanf:"enabled"`
	Window      time.Duration `koanf:"window" validate:"gt=0"`
	CreateLimit int           `koanf:"create_limit" validate:"min=1"`
	ModifyLimit int           `koanf:"modify_limit" validate:"min=1"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

type CORSConfig struct {
	Origins []string `koanf:"origins"`
}

type PDFConfig struct {
	FontPath string `koanf:"font_path"`
}

func defaultConfig() *Config {
	return &Config{
		Env: Development,
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			ShutdownTimeout: 5 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:      "sqlite",
			Port:        "5432",
			SSLMode:     "disable",
			SQLitePath:  "foodgram.db",
			AutoMigrate: true,
		},
		Redis: RedisConfig{
			Port: "6379",
		},
		JWT: JWTConfig{
			Secret: DefaultJWTSecret,
			TTL:    24 * time.Hour,
		},
		Media: MediaConfig{
			Root: "media",
			URL:  "/media/",
		},
		API: APIConfig{
			DefaultPageSize: 6,
			MaxPageSize:     100,
			MaxBodyBytes:    DefaultMaxBodyBytes,
		},
		RateLimit: RateLimitConfig{
			Enabled:     true,
			Window:      time.Hour,
			CreateLimit: 50,
			ModifyLimit: 100,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		CORS: CORSConfig{
			Origins: []string{"http://localhost:3000"},
		},
	}
}

// LoadConfig builds the configuration from defaults, an optional YAML file,
// environment variables and Docker secrets, in that order of precedence.
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := loadSecrets(k); err != nil {
		return nil, fmt.Errorf("failed to load secrets: %w", err)
	}

	if err := splitCommaList(k, "cors.origins"); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	cfg.Env = GetEnvironment()

	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range defaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var envSections = []string{"server", "db", "redis", "jwt", "media", "s3", "api", "rate_limit", "log", "cors", "pdf"}

var envAliases = map[string]string{
	"aws_region":  "s3.region",
	"s3_bucket":   "s3.bucket_name",
	"sqlite_path": "db.sqlite_path",
}

// envTransformFunc maps DB_HOST style variables onto db.host style keys.
// Variables outside the known sections are ignored.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)
	if alias, ok := envAliases[key]; ok {
		return alias
	}
	for _, section := range envSections {
		if strings.HasPrefix(key, section+"_") {
			return section + "." + strings.TrimPrefix(key, section+"_")
		}
	}
	return ""
}

// secretKeys maps Docker secret file names to config keys.
var secretKeys = map[string]string{
	"db_user":        "db.user",
	"db_password":    "db.password",
	"jwt_secret":     "jwt.secret",
	"redis_password": "redis.password",
	"redis_url":      "redis.url",
}

func loadSecrets(k *koanf.Koanf) error {
	for name, path := range secretKeys {
		if value := readSecret(name); value != "" {
			if err := k.Set(path, value); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

func splitCommaList(k *koanf.Koanf, path string) error {
	raw, ok := k.Get(path).(string)
	if !ok {
		return nil
	}
	var values []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	if err := k.Set(path, values); err != nil {
		return fmt.Errorf("failed to set %s: %w", path, err)
	}
	return nil
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	if data, err := os.ReadFile(filepath.Join(secretsDir, name)); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}
