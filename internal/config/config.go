package config

import (
	"fmt"
	"os"
	"strconv"

	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

var drivers = []string{"sqlite3", "pgx"}

type Config struct {
	Port       string         `yaml:"port"`
	Database   DatabaseConfig `yaml:"database"`
	SecretKey  string         `yaml:"secret_key"`
	Storage    StorageConfig  `yaml:"storage"`
	CORSOrigin string         `yaml:"cors_origin"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	MaxConns int    `yaml:"max_conns"`
}

// StorageConfig selects where uploaded images go. A non-empty CloudinaryURL
// wins over the local upload directory.
type StorageConfig struct {
	CloudinaryURL string `yaml:"cloudinary_url"`
	UploadDir     string `yaml:"upload_dir"`
	PublicURL     string `yaml:"public_url"`
}

func Default() Config {
	return Config{
		Port: "8080",
		Database: DatabaseConfig{
			Driver:   "sqlite3",
			DSN:      "social.db",
			MaxConns: 10,
		},
		Storage: StorageConfig{
			UploadDir: "uploads",
		},
		CORSOrigin: "http://localhost:5173",
	}
}

// Load reads the YAML file at path, if any, and applies environment overrides
// on top of it. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	setString(&c.Port, "PORT")
	setString(&c.Database.Driver, "DB_DRIVER")
	setString(&c.Database.DSN, "DB_PATH")
	setString(&c.Database.DSN, "DB_DSN")
	setString(&c.SecretKey, "SECRET_KEY")
	setString(&c.Storage.CloudinaryURL, "CLOUDINARY_URL")
	setString(&c.Storage.UploadDir, "UPLOAD_DIR")
	setString(&c.Storage.PublicURL, "PUBLIC_URL")
	setString(&c.CORSOrigin, "CORS_ORIGIN")
	if v := os.Getenv("DB_MAX_CONNS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DB_MAX_CONNS: %w", err)
		}
		c.Database.MaxConns = n
	}
	return nil
}

func (c Config) Validate() error {
	if c.SecretKey == "" {
		return fmt.Errorf("secret key is required (SECRET_KEY)")
	}
	if !slices.Contains(drivers, c.Database.Driver) {
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database dsn is required")
	}
	if c.Storage.CloudinaryURL == "" && c.Storage.UploadDir == "" {
		return fmt.Errorf("either a cloudinary url or an upload dir is required")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
