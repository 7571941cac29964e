package backup

import (
	"time"
)

// Config is the complete backup system configuration. It is materialized
// once at process start (flags, environment, optional config file) and
// passed into every component; no component reads the environment itself.
type Config struct {
	BackupDir     string `yaml:"backup_dir" mapstructure:"backup_dir"`
	RetentionDays int    `yaml:"retention_days" mapstructure:"retention_days"`
	MaxAgeMinutes int    `yaml:"max_age_minutes" mapstructure:"max_age_minutes"`

	// ConfigDirs are the directories snapshotted by the config archiver
	ConfigDirs []string `yaml:"config_dirs" mapstructure:"config_dirs"`

	Postgres PostgresConfig `yaml:"postgres" mapstructure:"postgres"`
	SQLite   SQLiteConfig   `yaml:"sqlite" mapstructure:"sqlite"`

	S3    S3Config    `yaml:"s3" mapstructure:"s3"`
	GCS   GCSConfig   `yaml:"gcs" mapstructure:"gcs"`
	Azure AzureConfig `yaml:"azure" mapstructure:"azure"`
}

// PostgresConfig holds PostgreSQL connection parameters for pg_dump
type PostgresConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	Database string `yaml:"database" mapstructure:"database"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
}

// HasCredentials reports whether enough connection parameters are present
// to attempt a PostgreSQL backup. The "all" operation uses this to choose
// between the PostgreSQL and SQLite adapters.
func (pc *PostgresConfig) HasCredentials() bool {
	return pc.Host != "" && pc.Database != "" && pc.Username != ""
}

// SQLiteConfig holds the source database path for the SQLite adapter
type SQLiteConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// S3Config holds Amazon S3 replication settings
type S3Config struct {
	Bucket    string `yaml:"bucket" mapstructure:"bucket"`
	Region    string `yaml:"region" mapstructure:"region"`
	AccessKey string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey string `yaml:"secret_key" mapstructure:"secret_key"`
}

// Enabled reports whether S3 replication is configured
func (sc *S3Config) Enabled() bool {
	return sc.Bucket != ""
}

// GCSConfig holds Google Cloud Storage replication settings
type GCSConfig struct {
	Bucket          string `yaml:"bucket" mapstructure:"bucket"`
	CredentialsPath string `yaml:"credentials_path" mapstructure:"credentials_path"`
}

// Enabled reports whether GCS replication is configured
func (gc *GCSConfig) Enabled() bool {
	return gc.Bucket != ""
}

// AzureConfig holds Azure Blob Storage replication settings
type AzureConfig struct {
	AccountName   string `yaml:"account_name" mapstructure:"account_name"`
	AccountKey    string `yaml:"account_key" mapstructure:"account_key"`
	ContainerName string `yaml:"container_name" mapstructure:"container_name"`
}

// Enabled reports whether Azure replication is configured
func (ac *AzureConfig) Enabled() bool {
	return ac.AccountName != "" && ac.ContainerName != ""
}

// SetDefaults sets default values for unset fields
func (c *Config) SetDefaults() {
	if c.BackupDir == "" {
		c.BackupDir = "/backups"
	}
	if c.RetentionDays == 0 {
		c.RetentionDays = 30
	}
	if c.MaxAgeMinutes == 0 {
		c.MaxAgeMinutes = 1440
	}
	if c.Postgres.Port == 0 {
		c.Postgres.Port = 5432
	}
	if c.S3.Region == "" {
		c.S3.Region = "us-east-1"
	}
	if len(c.ConfigDirs) == 0 {
		c.ConfigDirs = []string{"/etc/app", "/etc/nginx/conf.d"}
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs ValidationErrors

	if c.BackupDir == "" {
		errs.Add("backup_dir", "backup directory is required", nil)
	}
	if c.RetentionDays < 0 {
		errs.Add("retention_days", "retention days cannot be negative", c.RetentionDays)
	}
	if c.MaxAgeMinutes < 0 {
		errs.Add("max_age_minutes", "max age minutes cannot be negative", c.MaxAgeMinutes)
	}
	if c.Postgres.Port < 0 || c.Postgres.Port > 65535 {
		errs.Add("postgres.port", "port must be between 0 and 65535", c.Postgres.Port)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// RetentionAge returns the retention threshold as a duration
func (c *Config) RetentionAge() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// MaxArtifactAge returns the health check freshness threshold as a duration
func (c *Config) MaxArtifactAge() time.Duration {
	return time.Duration(c.MaxAgeMinutes) * time.Minute
}
