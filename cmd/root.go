package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dbbackup/internal/backup"
	"dbbackup/internal/logging"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// CLI flag variables
var (
	backupDir     string
	retentionDays int
	maxAgeMinutes int
	configDirs    []string

	pgHost     string
	pgPort     int
	pgDatabase string
	pgUser     string
	pgPassword string

	sqlitePath string

	s3Bucket       string
	s3Region       string
	gcsBucket      string
	azureAccount   string
	azureKey       string
	azureContainer string

	verbose   bool
	quiet     bool
	logFormat string
	logFile   string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "dbbackup [operation]",
	Short: "Automated database backup and retention manager",
	Long: `dbbackup produces point-in-time, integrity-verified, gzip-compressed
backups of a PostgreSQL or SQLite database, archives configuration
directories, enforces a retention policy on the backup directory,
optionally replicates artifacts to S3, GCS or Azure Blob storage, and
exposes a freshness health check.

The single positional argument selects the operation:

  postgres      back up the configured PostgreSQL database
  sqlite        back up the configured SQLite database file
  config        archive the configured config directories
  health-check  verify a recent backup exists (no mutation)
  all           postgres if credentials are set, else sqlite; then
                config archive, remote upload and retention (default)

Exit code is 0 on success and 1 when a fatal step fails. Remote upload,
config archiving and retention failures are warnings, never fatal.

Examples:
  # Nightly full run against PostgreSQL
  POSTGRES_HOST=db POSTGRES_DB=app POSTGRES_USER=backup \
  POSTGRES_PASSWORD=secret dbbackup all

  # SQLite backup into a custom directory with 7 day retention
  dbbackup sqlite --sqlite-path=/var/lib/app/app.db \
           --backup-dir=/srv/backups --retention-days=7

  # Monitoring probe
  BACKUP_DIR=/srv/backups dbbackup health-check`,
	Args: cobra.MaximumNArgs(1),
	RunE: runOperation,
}

// Execute runs the root command. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.dbbackup.yaml)")

	rootCmd.Flags().StringVar(&backupDir, "backup-dir", "", "backup directory (default /backups)")
	rootCmd.Flags().IntVar(&retentionDays, "retention-days", 0, "delete artifacts older than this many days (default 30)")
	rootCmd.Flags().IntVar(&maxAgeMinutes, "max-age-minutes", 0, "health check freshness threshold in minutes (default 1440)")
	rootCmd.Flags().StringSliceVar(&configDirs, "config-dir", nil, "configuration directory to archive (repeatable)")

	rootCmd.Flags().StringVar(&pgHost, "postgres-host", "", "PostgreSQL host")
	rootCmd.Flags().IntVar(&pgPort, "postgres-port", 0, "PostgreSQL port (default 5432)")
	rootCmd.Flags().StringVar(&pgDatabase, "postgres-db", "", "PostgreSQL database name")
	rootCmd.Flags().StringVar(&pgUser, "postgres-user", "", "PostgreSQL username")
	rootCmd.Flags().StringVar(&pgPassword, "postgres-password", "", "PostgreSQL password")

	rootCmd.Flags().StringVar(&sqlitePath, "sqlite-path", "", "SQLite database file path")

	rootCmd.Flags().StringVar(&s3Bucket, "s3-bucket", "", "S3 bucket for artifact replication")
	rootCmd.Flags().StringVar(&s3Region, "s3-region", "", "S3 region (default us-east-1)")
	rootCmd.Flags().StringVar(&gcsBucket, "gcs-bucket", "", "GCS bucket for artifact replication")
	rootCmd.Flags().StringVar(&azureAccount, "azure-account", "", "Azure storage account name")
	rootCmd.Flags().StringVar(&azureKey, "azure-key", "", "Azure storage account key")
	rootCmd.Flags().StringVar(&azureContainer, "azure-container", "", "Azure blob container")

	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")
	rootCmd.Flags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "also write logs to file")

	// Environment variable bindings follow the conventional names used by
	// the deployment tooling rather than a common prefix.
	viper.BindEnv("backup_dir", "BACKUP_DIR")
	viper.BindEnv("retention_days", "RETENTION_DAYS")
	viper.BindEnv("max_age_minutes", "BACKUP_MAX_AGE_MINUTES")
	viper.BindEnv("config_dirs", "CONFIG_DIRS")
	viper.BindEnv("postgres.host", "POSTGRES_HOST")
	viper.BindEnv("postgres.port", "POSTGRES_PORT")
	viper.BindEnv("postgres.database", "POSTGRES_DB")
	viper.BindEnv("postgres.username", "POSTGRES_USER")
	viper.BindEnv("postgres.password", "POSTGRES_PASSWORD")
	viper.BindEnv("sqlite.path", "SQLITE_DB_PATH")
	viper.BindEnv("s3.bucket", "AWS_S3_BUCKET")
	viper.BindEnv("s3.region", "AWS_REGION")
	viper.BindEnv("s3.access_key", "AWS_ACCESS_KEY_ID")
	viper.BindEnv("s3.secret_key", "AWS_SECRET_ACCESS_KEY")
	viper.BindEnv("gcs.bucket", "GCS_BUCKET")
	viper.BindEnv("gcs.credentials_path", "GOOGLE_APPLICATION_CREDENTIALS")
	viper.BindEnv("azure.account_name", "AZURE_STORAGE_ACCOUNT")
	viper.BindEnv("azure.account_key", "AZURE_STORAGE_KEY")
	viper.BindEnv("azure.container_name", "AZURE_STORAGE_CONTAINER")
}

// runOperation is the main execution function for the CLI
func runOperation(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	if verbose && quiet {
		return fmt.Errorf("--verbose and --quiet flags are mutually exclusive")
	}

	operation := backup.OperationAll
	if len(args) == 1 {
		parsed, err := backup.ParseOperation(args[0])
		if err != nil {
			cmd.SilenceUsage = false
			return err
		}
		operation = parsed
	}

	config, err := buildConfig(cmd)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}

	// SIGINT/SIGTERM cancel in-flight child processes; partial files
	// never carry a terminal artifact suffix, so an interrupted run
	// leaves nothing that could pass integrity verification.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	orchestrator, err := backup.NewOrchestrator(ctx, config, logger)
	if err != nil {
		return err
	}

	result := orchestrator.Run(ctx, operation)
	printOutcome(operation, result, orchestrator.LastHealth())

	if !result.Success {
		return fmt.Errorf("operation %s failed", operation)
	}
	return nil
}

// buildConfig materializes the configuration struct once from config
// file, environment and flags. Components never read the environment
// themselves.
func buildConfig(cmd *cobra.Command) (*backup.Config, error) {
	config := &backup.Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	// Explicit flag overrides beat file and environment values
	if backupDir != "" {
		config.BackupDir = backupDir
	}
	if cmd.Flags().Changed("retention-days") {
		config.RetentionDays = retentionDays
	}
	if cmd.Flags().Changed("max-age-minutes") {
		config.MaxAgeMinutes = maxAgeMinutes
	}
	if len(configDirs) > 0 {
		config.ConfigDirs = configDirs
	}
	if pgHost != "" {
		config.Postgres.Host = pgHost
	}
	if cmd.Flags().Changed("postgres-port") {
		config.Postgres.Port = pgPort
	}
	if pgDatabase != "" {
		config.Postgres.Database = pgDatabase
	}
	if pgUser != "" {
		config.Postgres.Username = pgUser
	}
	if pgPassword != "" {
		config.Postgres.Password = pgPassword
	}
	if sqlitePath != "" {
		config.SQLite.Path = sqlitePath
	}
	if s3Bucket != "" {
		config.S3.Bucket = s3Bucket
	}
	if s3Region != "" {
		config.S3.Region = s3Region
	}
	if gcsBucket != "" {
		config.GCS.Bucket = gcsBucket
	}
	if azureAccount != "" {
		config.Azure.AccountName = azureAccount
	}
	if azureKey != "" {
		config.Azure.AccountKey = azureKey
	}
	if azureContainer != "" {
		config.Azure.ContainerName = azureContainer
	}

	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func newLogger() (*logging.Logger, error) {
	level := logging.LogLevelNormal
	if verbose {
		level = logging.LogLevelDebug
	}
	if quiet {
		level = logging.LogLevelQuiet
	}
	return logging.NewLogger(logging.Config{
		Level:   level,
		Format:  logFormat,
		LogFile: logFile,
	})
}

// printOutcome writes a short human-readable summary to stdout
func printOutcome(operation backup.Operation, result *backup.JobResult, health *backup.HealthStatus) {
	if quiet {
		return
	}

	success := color.New(color.FgGreen, color.Bold)
	failure := color.New(color.FgRed, color.Bold)
	warning := color.New(color.FgYellow)

	if operation == backup.OperationHealthCheck && health != nil {
		switch health.State {
		case backup.HealthStateOK:
			success.Printf("OK: newest artifact %s is %s old\n", health.NewestArtifact, health.Age.Round(time.Minute))
		case backup.HealthStateNoBackupFound:
			failure.Println("FAIL: no backup artifacts found")
		case backup.HealthStateBackupStale:
			failure.Printf("FAIL: newest artifact %s is %s old (max %s)\n", health.NewestArtifact, health.Age.Round(time.Minute), health.MaxAge)
		}
		return
	}

	for _, artifact := range result.Artifacts {
		fmt.Printf("  created %s (%d bytes)\n", artifact.Basename(), artifact.Size)
	}
	for _, warn := range result.Warnings {
		warning.Printf("  warning: %s\n", warn)
	}
	if result.Success {
		success.Printf("%s completed in %s\n", operation, result.Elapsed.Round(time.Millisecond))
	} else {
		failure.Printf("%s failed: %s\n", operation, result.ErrorClass)
	}
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".dbbackup")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// Version information (set by main package)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// SetVersionInfo sets the version information from build flags
func SetVersionInfo(v, bt, gc string) {
	version = v
	buildTime = bt
	gitCommit = gc
}

func createVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dbbackup version %s\n", version)
			fmt.Printf("Built: %s\n", buildTime)
			fmt.Printf("Commit: %s\n", gitCommit)
		},
	}
}

func createConfigCommand() *cobra.Command {
	// Not named "config": that word is taken by the config-archive
	// operation on the root command.
	return &cobra.Command{
		Use:   "sample-config",
		Short: "Generate a sample configuration file",
		Long: `Generate a sample configuration file for use with the --config flag.

Examples:
  dbbackup sample-config > .dbbackup.yaml`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Print(sampleConfig)
		},
	}
}

const sampleConfig = `# dbbackup configuration file
# Every value can also be set through the environment variables noted
# alongside it; explicit CLI flags take precedence over both.

backup_dir: /backups        # BACKUP_DIR
retention_days: 30          # RETENTION_DAYS
max_age_minutes: 1440       # BACKUP_MAX_AGE_MINUTES

# Directories snapshotted into config_<timestamp>.tar.gz
config_dirs:                # CONFIG_DIRS
  - /etc/app
  - /etc/nginx/conf.d

# PostgreSQL connection for pg_dump. When host, database and username
# are all set, the "all" operation prefers PostgreSQL over SQLite.
postgres:
  host: ""                  # POSTGRES_HOST
  port: 5432                # POSTGRES_PORT
  database: ""              # POSTGRES_DB
  username: ""              # POSTGRES_USER
  password: ""              # POSTGRES_PASSWORD (prefer env over file)

sqlite:
  path: ""                  # SQLITE_DB_PATH

# Remote replication is best-effort: leave the buckets empty to disable.
s3:
  bucket: ""                # AWS_S3_BUCKET
  region: us-east-1         # AWS_REGION
gcs:
  bucket: ""                # GCS_BUCKET
azure:
  account_name: ""          # AZURE_STORAGE_ACCOUNT
  account_key: ""           # AZURE_STORAGE_KEY
  container_name: ""        # AZURE_STORAGE_CONTAINER
`

func init() {
	rootCmd.AddCommand(createVersionCommand())
	rootCmd.AddCommand(createConfigCommand())
}
