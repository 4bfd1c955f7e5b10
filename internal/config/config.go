// Package config loads guildkeeper settings from an optional TOML file and
// GUILDKEEPER_* environment variables. Environment variables win.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/alfredjeanlab/guildkeeper/internal/model"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "GUILDKEEPER_"

type Config struct {
	DatabaseURL  string // GUILDKEEPER_DATABASE_URL, or composed from GUILDKEEPER_DB_* (required)
	DiscordToken string // GUILDKEEPER_DISCORD_TOKEN (required by serve)
	HTTPAddr     string // GUILDKEEPER_HTTP_ADDR (default ":8080"; /metrics, /healthz, /readyz)
	NATSURL      string // GUILDKEEPER_NATS_URL (optional, empty = no events)
	LogLevel     string // GUILDKEEPER_LOG_LEVEL (default "info")

	DefaultPrefix     string        // GUILDKEEPER_DEFAULT_PREFIX (default "a.")
	PrefixLockTimeout time.Duration // GUILDKEEPER_PREFIX_LOCK_TIMEOUT (default 3s)

	// Store pool
	DBMaxOpenConns    int           // GUILDKEEPER_DB_MAX_OPEN_CONNS (default 25)
	DBMaxIdleConns    int           // GUILDKEEPER_DB_MAX_IDLE_CONNS (default 5)
	DBConnMaxLifetime time.Duration // GUILDKEEPER_DB_CONN_MAX_LIFETIME (default 5m)
	DBOpTimeout       time.Duration // GUILDKEEPER_DB_OP_TIMEOUT (default 5s)

	// Gateway event workers
	Workers     int           // GUILDKEEPER_WORKERS (default 16)
	QueueSize   int           // GUILDKEEPER_QUEUE_SIZE (default 256)
	SubmitWait  time.Duration // GUILDKEEPER_SUBMIT_WAIT (default 2s)
	TaskTimeout time.Duration // GUILDKEEPER_TASK_TIMEOUT (default 15s)

	// Backup settings
	SyncInterval   time.Duration // GUILDKEEPER_SYNC_INTERVAL (default 15m; 0 = disabled)
	SyncS3Bucket   string        // GUILDKEEPER_SYNC_S3_BUCKET (enables S3 when set)
	SyncS3Endpoint string        // GUILDKEEPER_SYNC_S3_ENDPOINT (custom endpoint for MinIO)
	SyncS3Region   string        // GUILDKEEPER_SYNC_S3_REGION (default "us-east-1")
	SyncS3Key      string        // GUILDKEEPER_SYNC_S3_KEY (default "guildkeeper/backup.jsonl"; "{ts}" expands to the export time)
}

// duration decodes TOML strings like "5s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// file mirrors Config in the TOML config file.
type file struct {
	DatabaseURL  string `toml:"database_url"`
	DiscordToken string `toml:"discord_token"`
	HTTPAddr     string `toml:"http_addr"`
	NATSURL      string `toml:"nats_url"`
	LogLevel     string `toml:"log_level"`

	DefaultPrefix     string    `toml:"default_prefix"`
	PrefixLockTimeout *duration `toml:"prefix_lock_timeout"`

	DB struct {
		MaxOpenConns    int       `toml:"max_open_conns"`
		MaxIdleConns    int       `toml:"max_idle_conns"`
		ConnMaxLifetime *duration `toml:"conn_max_lifetime"`
		OpTimeout       *duration `toml:"op_timeout"`
	} `toml:"db"`

	Workers struct {
		Count       int       `toml:"count"`
		QueueSize   int       `toml:"queue_size"`
		SubmitWait  *duration `toml:"submit_wait"`
		TaskTimeout *duration `toml:"task_timeout"`
	} `toml:"workers"`

	Sync struct {
		Interval   *duration `toml:"interval"`
		S3Bucket   string    `toml:"s3_bucket"`
		S3Endpoint string    `toml:"s3_endpoint"`
		S3Region   string    `toml:"s3_region"`
		S3Key      string    `toml:"s3_key"`
	} `toml:"sync"`
}

func defaults() *Config {
	return &Config{
		HTTPAddr:          ":8080",
		LogLevel:          "info",
		DefaultPrefix:     model.DefaultPrefix,
		PrefixLockTimeout: 3 * time.Second,
		DBMaxOpenConns:    25,
		DBMaxIdleConns:    5,
		DBConnMaxLifetime: 5 * time.Minute,
		DBOpTimeout:       5 * time.Second,
		Workers:           16,
		QueueSize:         256,
		SubmitWait:        2 * time.Second,
		TaskTimeout:       15 * time.Second,
		SyncInterval:      15 * time.Minute,
		SyncS3Region:      "us-east-1",
		SyncS3Key:         "guildkeeper/backup.jsonl",
	}
}

// Load builds the configuration: defaults, then the TOML file named by
// GUILDKEEPER_CONFIG (if any), then environment variables.
func Load() (*Config, error) {
	c := defaults()

	if path := os.Getenv(EnvPrefix + "CONFIG"); path != "" {
		if err := c.applyFile(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}
	if err := c.applyEnv(); err != nil {
		return nil, err
	}

	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("%sDATABASE_URL or %sDB_HOST and %sDB_DBNAME are required", EnvPrefix, EnvPrefix, EnvPrefix)
	}
	if err := model.ValidatePrefix(c.DefaultPrefix); err != nil {
		return nil, fmt.Errorf("%sDEFAULT_PREFIX: %w", EnvPrefix, err)
	}
	return c, nil
}

func (c *Config) applyFile(path string) error {
	var f file
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return err
	}

	setString(&c.DatabaseURL, f.DatabaseURL)
	setString(&c.DiscordToken, f.DiscordToken)
	setString(&c.HTTPAddr, f.HTTPAddr)
	setString(&c.NATSURL, f.NATSURL)
	setString(&c.LogLevel, f.LogLevel)
	setString(&c.DefaultPrefix, f.DefaultPrefix)
	setDuration(&c.PrefixLockTimeout, f.PrefixLockTimeout)

	setInt(&c.DBMaxOpenConns, f.DB.MaxOpenConns)
	setInt(&c.DBMaxIdleConns, f.DB.MaxIdleConns)
	setDuration(&c.DBConnMaxLifetime, f.DB.ConnMaxLifetime)
	setDuration(&c.DBOpTimeout, f.DB.OpTimeout)

	setInt(&c.Workers, f.Workers.Count)
	setInt(&c.QueueSize, f.Workers.QueueSize)
	setDuration(&c.SubmitWait, f.Workers.SubmitWait)
	setDuration(&c.TaskTimeout, f.Workers.TaskTimeout)

	setDuration(&c.SyncInterval, f.Sync.Interval)
	setString(&c.SyncS3Bucket, f.Sync.S3Bucket)
	setString(&c.SyncS3Endpoint, f.Sync.S3Endpoint)
	setString(&c.SyncS3Region, f.Sync.S3Region)
	setString(&c.SyncS3Key, f.Sync.S3Key)
	return nil
}

func (c *Config) applyEnv() error {
	dbURL, err := DatabaseURLFromEnv(EnvPrefix + "DB_")
	if err != nil {
		return err
	}
	c.DatabaseURL = envOrDefault(EnvPrefix+"DATABASE_URL", firstNonEmpty(dbURL, c.DatabaseURL))

	c.DiscordToken = envOrDefault(EnvPrefix+"DISCORD_TOKEN", c.DiscordToken)
	c.HTTPAddr = envOrDefault(EnvPrefix+"HTTP_ADDR", c.HTTPAddr)
	c.NATSURL = envOrDefault(EnvPrefix+"NATS_URL", c.NATSURL)
	c.LogLevel = envOrDefault(EnvPrefix+"LOG_LEVEL", c.LogLevel)
	c.DefaultPrefix = envOrDefault(EnvPrefix+"DEFAULT_PREFIX", c.DefaultPrefix)
	c.SyncS3Bucket = envOrDefault(EnvPrefix+"SYNC_S3_BUCKET", c.SyncS3Bucket)
	c.SyncS3Endpoint = envOrDefault(EnvPrefix+"SYNC_S3_ENDPOINT", c.SyncS3Endpoint)
	c.SyncS3Region = envOrDefault(EnvPrefix+"SYNC_S3_REGION", c.SyncS3Region)
	c.SyncS3Key = envOrDefault(EnvPrefix+"SYNC_S3_KEY", c.SyncS3Key)

	var errs []error
	for _, d := range []struct {
		key string
		dst *time.Duration
	}{
		{"PREFIX_LOCK_TIMEOUT", &c.PrefixLockTimeout},
		{"DB_CONN_MAX_LIFETIME", &c.DBConnMaxLifetime},
		{"DB_OP_TIMEOUT", &c.DBOpTimeout},
		{"SUBMIT_WAIT", &c.SubmitWait},
		{"TASK_TIMEOUT", &c.TaskTimeout},
		{"SYNC_INTERVAL", &c.SyncInterval},
	} {
		if err := envDuration(EnvPrefix+d.key, d.dst); err != nil {
			errs = append(errs, err)
		}
	}
	for _, i := range []struct {
		key string
		dst *int
	}{
		{"DB_MAX_OPEN_CONNS", &c.DBMaxOpenConns},
		{"DB_MAX_IDLE_CONNS", &c.DBMaxIdleConns},
		{"WORKERS", &c.Workers},
		{"QUEUE_SIZE", &c.QueueSize},
	} {
		if err := envInt(EnvPrefix+i.key, i.dst); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DatabaseURLFromEnv builds a PostgreSQL URL from PREFIX_HOST, PREFIX_PORT,
// PREFIX_USER, PREFIX_PASSWORD, PREFIX_DBNAME and PREFIX_SSLMODE. It
// returns "" when PREFIX_HOST is unset, and an error when the host is set
// but the database name is missing.
func DatabaseURLFromEnv(prefix string) (string, error) {
	if !strings.HasSuffix(prefix, "_") {
		prefix += "_"
	}

	host := os.Getenv(prefix + "HOST")
	if host == "" {
		return "", nil
	}
	dbname := os.Getenv(prefix + "DBNAME")
	if dbname == "" {
		return "", fmt.Errorf("%sHOST is set but %sDBNAME is missing", prefix, prefix)
	}

	port := envOrDefault(prefix+"PORT", "5432")
	u := &url.URL{
		Scheme: "postgres",
		Host:   host + ":" + port,
		Path:   dbname,
	}
	if user := os.Getenv(prefix + "USER"); user != "" {
		if pass := os.Getenv(prefix + "PASSWORD"); pass != "" {
			u.User = url.UserPassword(user, pass)
		} else {
			u.User = url.User(user)
		}
	}
	if sslmode := os.Getenv(prefix + "SSLMODE"); sslmode != "" {
		q := u.Query()
		q.Set("sslmode", sslmode)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if n < 0 {
		return fmt.Errorf("%s: must not be negative", key)
	}
	*dst = n
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v *duration) {
	if v != nil {
		*dst = v.Duration
	}
}
