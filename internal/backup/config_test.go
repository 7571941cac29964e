package backup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_SetDefaults(t *testing.T) {
	config := &Config{}
	config.SetDefaults()

	assert.Equal(t, "/backups", config.BackupDir)
	assert.Equal(t, 30, config.RetentionDays)
	assert.Equal(t, 1440, config.MaxAgeMinutes)
	assert.Equal(t, 5432, config.Postgres.Port)
	assert.Equal(t, "us-east-1", config.S3.Region)
	assert.Equal(t, []string{"/etc/app", "/etc/nginx/conf.d"}, config.ConfigDirs)
}

func TestConfig_SetDefaults_PreservesExplicitValues(t *testing.T) {
	config := &Config{
		BackupDir:     "/srv/backups",
		RetentionDays: 7,
		MaxAgeMinutes: 60,
		ConfigDirs:    []string{"/etc/myapp"},
	}
	config.Postgres.Port = 5433
	config.SetDefaults()

	assert.Equal(t, "/srv/backups", config.BackupDir)
	assert.Equal(t, 7, config.RetentionDays)
	assert.Equal(t, 60, config.MaxAgeMinutes)
	assert.Equal(t, 5433, config.Postgres.Port)
	assert.Equal(t, []string{"/etc/myapp"}, config.ConfigDirs)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			modify: func(c *Config) {},
		},
		{
			name:    "empty backup dir",
			modify:  func(c *Config) { c.BackupDir = "" },
			wantErr: "backup_dir",
		},
		{
			name:    "negative retention",
			modify:  func(c *Config) { c.RetentionDays = -1 },
			wantErr: "retention_days",
		},
		{
			name:    "negative max age",
			modify:  func(c *Config) { c.MaxAgeMinutes = -10 },
			wantErr: "max_age_minutes",
		},
		{
			name:    "port out of range",
			modify:  func(c *Config) { c.Postgres.Port = 70000 },
			wantErr: "postgres.port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := &Config{}
			config.SetDefaults()
			tt.modify(config)

			err := config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPostgresConfig_HasCredentials(t *testing.T) {
	tests := []struct {
		name     string
		config   PostgresConfig
		expected bool
	}{
		{"all set", PostgresConfig{Host: "db", Database: "app", Username: "backup"}, true},
		{"password not required", PostgresConfig{Host: "db", Database: "app", Username: "backup", Password: ""}, true},
		{"missing host", PostgresConfig{Database: "app", Username: "backup"}, false},
		{"missing database", PostgresConfig{Host: "db", Username: "backup"}, false},
		{"missing username", PostgresConfig{Host: "db", Database: "app"}, false},
		{"empty", PostgresConfig{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.config.HasCredentials())
		})
	}
}

func TestProviderEnabled(t *testing.T) {
	assert.False(t, (&S3Config{}).Enabled())
	assert.True(t, (&S3Config{Bucket: "backups"}).Enabled())

	assert.False(t, (&GCSConfig{}).Enabled())
	assert.True(t, (&GCSConfig{Bucket: "backups"}).Enabled())

	assert.False(t, (&AzureConfig{}).Enabled())
	assert.False(t, (&AzureConfig{AccountName: "acct"}).Enabled())
	assert.True(t, (&AzureConfig{AccountName: "acct", ContainerName: "backups"}).Enabled())
}

func TestConfig_DurationHelpers(t *testing.T) {
	config := &Config{RetentionDays: 30, MaxAgeMinutes: 1440}

	assert.Equal(t, 30*24*time.Hour, config.RetentionAge())
	assert.Equal(t, 24*time.Hour, config.MaxArtifactAge())
}
