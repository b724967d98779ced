// Package config reads the service configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every setting the service needs at startup.
type Config struct {
	Port           string
	Database       Database
	MigrationsPath string

	JWTSecret string
	JWTTTL    time.Duration

	UploadDir     string
	MaxUploadSize int64
	BlobBackend   string // "disk" or "minio"
	MinIO         MinIO

	AllowedOrigins []string
	LogLevel       string
	LogFormat      string
}

// Database holds the PostgreSQL connection settings and pool bounds.
type Database struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// MinIO holds the object storage settings used when BlobBackend is "minio".
type MinIO struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
}

// DSN returns the key/value connection string understood by lib/pq.
func (d Database) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// URL returns the postgres:// form used by golang-migrate.
func (d Database) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + d.Port,
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}

// env is the flat view of the environment decoded by viper. Keys are the
// lower-cased variable names.
type env struct {
	Port              string        `mapstructure:"port"`
	DBHost            string        `mapstructure:"db_host"`
	DBPort            string        `mapstructure:"db_port"`
	DBUser            string        `mapstructure:"db_user"`
	DBPassword        string        `mapstructure:"db_password"`
	DBName            string        `mapstructure:"db_name"`
	DBSSLMode         string        `mapstructure:"db_sslmode"`
	DBMaxOpenConns    int           `mapstructure:"db_max_open_conns"`
	DBMaxIdleConns    int           `mapstructure:"db_max_idle_conns"`
	DBConnMaxLifetime time.Duration `mapstructure:"db_conn_max_lifetime"`
	MigrationsPath    string        `mapstructure:"migrations_path"`
	JWTSecret         string        `mapstructure:"jwt_secret"`
	JWTTTL            time.Duration `mapstructure:"jwt_ttl"`
	UploadDir         string        `mapstructure:"upload_dir"`
	MaxUploadSize     int64         `mapstructure:"max_upload_size"`
	BlobBackend       string        `mapstructure:"blob_backend"`
	MinIOEndpoint     string        `mapstructure:"minio_endpoint"`
	MinIOAccessKey    string        `mapstructure:"minio_access_key"`
	MinIOSecretKey    string        `mapstructure:"minio_secret_key"`
	MinIOBucket       string        `mapstructure:"minio_bucket"`
	MinIOUseSSL       bool          `mapstructure:"minio_use_ssl"`
	CORSOrigins       []string      `mapstructure:"cors_origins"`
	LogLevel          string        `mapstructure:"log_level"`
	LogFormat         string        `mapstructure:"log_format"`
}

var defaults = map[string]interface{}{
	"port":                 "3000",
	"db_host":              "",
	"db_port":              "5432",
	"db_user":              "",
	"db_password":          "",
	"db_name":              "",
	"db_sslmode":           "disable",
	"db_max_open_conns":    20,
	"db_max_idle_conns":    5,
	"db_conn_max_lifetime": 30 * time.Minute,
	"migrations_path":      "database/migrations",
	"jwt_secret":           "",
	"jwt_ttl":              time.Hour,
	"upload_dir":           "uploads",
	"max_upload_size":      int64(10 * 1024 * 1024),
	"blob_backend":         "disk",
	"minio_endpoint":       "",
	"minio_access_key":     "",
	"minio_secret_key":     "",
	"minio_bucket":         "uploads",
	"minio_use_ssl":        false,
	"cors_origins":         "http://localhost:3000",
	"log_level":            "INFO",
	"log_format":           "json",
}

// Load builds a Config from environment variables, applying defaults and
// rejecting missing required values. Every key needs a default so that
// AutomaticEnv can see it during Unmarshal.
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	var e env
	if err := v.Unmarshal(&e); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg := &Config{
		Port: e.Port,
		Database: Database{
			Host:            e.DBHost,
			Port:            e.DBPort,
			User:            e.DBUser,
			Password:        e.DBPassword,
			Name:            e.DBName,
			SSLMode:         e.DBSSLMode,
			MaxOpenConns:    e.DBMaxOpenConns,
			MaxIdleConns:    e.DBMaxIdleConns,
			ConnMaxLifetime: e.DBConnMaxLifetime,
		},
		MigrationsPath: e.MigrationsPath,
		JWTSecret:      e.JWTSecret,
		JWTTTL:         e.JWTTTL,
		UploadDir:      e.UploadDir,
		MaxUploadSize:  e.MaxUploadSize,
		BlobBackend:    strings.ToLower(e.BlobBackend),
		MinIO: MinIO{
			Endpoint:        e.MinIOEndpoint,
			AccessKeyID:     e.MinIOAccessKey,
			SecretAccessKey: e.MinIOSecretKey,
			Bucket:          e.MinIOBucket,
			UseSSL:          e.MinIOUseSSL,
		},
		LogLevel:  strings.ToUpper(e.LogLevel),
		LogFormat: strings.ToLower(e.LogFormat),
	}
	for _, origin := range e.CORSOrigins {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var missing []string
	for name, value := range map[string]string{
		"DB_HOST":     c.Database.Host,
		"DB_USER":     c.Database.User,
		"DB_PASSWORD": c.Database.Password,
		"DB_NAME":     c.Database.Name,
		"JWT_SECRET":  c.JWTSecret,
	} {
		if value == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("config: missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("config: MAX_UPLOAD_SIZE must be positive")
	}
	switch c.BlobBackend {
	case "disk":
	case "minio":
		if c.MinIO.Endpoint == "" {
			return fmt.Errorf("config: MINIO_ENDPOINT is required when BLOB_BACKEND=minio")
		}
	default:
		return fmt.Errorf("config: unknown BLOB_BACKEND %q", c.BlobBackend)
	}
	return nil
}
