package backup

import (
	"context"
	"fmt"
	"os"
	"time"

	"dbbackup/internal/logging"
)

// OrchestratorState models the orchestrator lifecycle:
// Idle -> Running -> Succeeded | Failed
type OrchestratorState string

const (
	StateIdle      OrchestratorState = "idle"
	StateRunning   OrchestratorState = "running"
	StateSucceeded OrchestratorState = "succeeded"
	StateFailed    OrchestratorState = "failed"
)

// Verifier validates a produced artifact
type Verifier interface {
	Verify(artifact *Artifact) (*VerificationResult, error)
}

// Archiver snapshots configuration directories
type Archiver interface {
	Archive(ctx context.Context) (*Artifact, error)
}

// RetentionSweeper purges expired artifacts
type RetentionSweeper interface {
	Cleanup(ctx context.Context, dryRun bool) (*RetentionResult, error)
}

// HealthReporter computes backup directory freshness
type HealthReporter interface {
	Check() (*HealthStatus, error)
}

// Orchestrator selects the requested operation, sequences the components
// and aggregates exit status. The pipeline is single-threaded and
// sequential; concurrency across invocations is the caller's
// responsibility.
type Orchestrator struct {
	config       *Config
	postgres     Engine
	sqlite       Engine
	verifier     Verifier
	archiver     Archiver
	retention    RetentionSweeper
	health       HealthReporter
	uploaders    []Uploader
	metrics      *Metrics
	logger       *logging.Logger
	state        OrchestratorState
	lastHealth   *HealthStatus
}

// NewOrchestrator wires the production component set from configuration
func NewOrchestrator(ctx context.Context, config *Config, logger *logging.Logger) (*Orchestrator, error) {
	if config == nil {
		return nil, NewConfigurationError("backup configuration is required", nil)
	}
	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, NewConfigurationError("invalid backup configuration", err)
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	if err := os.MkdirAll(config.BackupDir, 0o755); err != nil {
		return nil, NewConfigurationError(fmt.Sprintf("failed to create backup directory %s", config.BackupDir), err)
	}

	runner := NewProcessRunner()

	return &Orchestrator{
		config:    config,
		postgres:  NewPostgresEngine(&config.Postgres, config.BackupDir, runner, logger),
		sqlite:    NewSQLiteEngine(&config.SQLite, config.BackupDir, logger),
		verifier:  NewIntegrityVerifier(logger),
		archiver:  NewConfigArchiver(config.ConfigDirs, config.BackupDir, logger),
		retention: NewRetentionManager(config.BackupDir, config.RetentionDays, logger),
		health:    NewHealthChecker(config.BackupDir, config.MaxArtifactAge(), logger),
		uploaders: NewUploaders(ctx, config, logger),
		metrics:   NewMetrics(),
		logger:    logger,
		state:     StateIdle,
	}, nil
}

// NewOrchestratorWithDependencies creates an orchestrator with provided
// components, used by tests to substitute fakes.
func NewOrchestratorWithDependencies(
	config *Config,
	postgres Engine,
	sqlite Engine,
	verifier Verifier,
	archiver Archiver,
	retention RetentionSweeper,
	health HealthReporter,
	uploaders []Uploader,
	logger *logging.Logger,
) *Orchestrator {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Orchestrator{
		config:    config,
		postgres:  postgres,
		sqlite:    sqlite,
		verifier:  verifier,
		archiver:  archiver,
		retention: retention,
		health:    health,
		uploaders: uploaders,
		metrics:   NewMetrics(),
		logger:    logger,
		state:     StateIdle,
	}
}

// State returns the orchestrator lifecycle state
func (o *Orchestrator) State() OrchestratorState {
	return o.state
}

// Metrics returns the per-process metrics collector
func (o *Orchestrator) Metrics() *Metrics {
	return o.metrics
}

// LastHealth returns the health status from the most recent health-check
// operation, if any.
func (o *Orchestrator) LastHealth() *HealthStatus {
	return o.lastHealth
}

// Run executes one operation end to end and returns its result. The final
// status is Failed if and only if a fatal step (engine adapter, integrity
// verifier, configuration) failed; every other component failure is
// downgraded to a warning.
func (o *Orchestrator) Run(ctx context.Context, op Operation) *JobResult {
	o.state = StateRunning
	result := NewJobResult(op)

	o.logger.Info(fmt.Sprintf("Starting operation: %s (job %s)", op, result.ID))

	switch op {
	case OperationPostgres:
		o.runBackupPipeline(ctx, result, o.postgres)
	case OperationSQLite:
		o.runBackupPipeline(ctx, result, o.sqlite)
	case OperationConfig:
		o.runConfigArchive(ctx, result)
		o.runRetention(ctx, result)
	case OperationHealthCheck:
		o.runHealthCheck(result)
	case OperationAll:
		o.runAll(ctx, result)
	default:
		o.recordFatal(result, "select-operation", NewConfigurationError(fmt.Sprintf("unknown operation %q", op), nil))
	}

	result.Elapsed = time.Since(result.StartedAt)
	result.Success = result.ErrorClass == "" && !o.healthFailed(result)
	o.metrics.ObserveDuration(MetricLastRunSeconds, result.Elapsed)

	if result.Success {
		o.state = StateSucceeded
		o.logger.Info(fmt.Sprintf("Operation %s succeeded in %s (%d artifacts, %d warnings)", op, result.Elapsed.Round(time.Millisecond), len(result.Artifacts), len(result.Warnings)))
	} else {
		o.state = StateFailed
		o.logger.Error(fmt.Sprintf("Operation %s failed after %s: %s", op, result.Elapsed.Round(time.Millisecond), result.ErrorClass))
	}

	o.logMetrics()
	return result
}

// runAll implements the composite operation: prefer PostgreSQL when
// credentials are present, fall back to SQLite, then archive config
// (best-effort), upload every artifact created in this invocation
// (best-effort) and finish with a retention sweep regardless of upload
// outcome.
func (o *Orchestrator) runAll(ctx context.Context, result *JobResult) {
	if o.config.Postgres.HasCredentials() {
		o.runEngineWithVerify(ctx, result, o.postgres)
	} else {
		o.logger.Info("No PostgreSQL credentials configured, falling back to SQLite")
		o.runEngineWithVerify(ctx, result, o.sqlite)
	}

	o.runConfigArchive(ctx, result)

	if result.ErrorClass == "" {
		o.runUploads(ctx, result)
	}

	o.runRetention(ctx, result)
}

// runBackupPipeline runs a single-engine operation: dump, verify, upload,
// retention.
func (o *Orchestrator) runBackupPipeline(ctx context.Context, result *JobResult, engine Engine) {
	o.runEngineWithVerify(ctx, result, engine)
	if result.ErrorClass == "" {
		o.runUploads(ctx, result)
	}
	o.runRetention(ctx, result)
}

func (o *Orchestrator) runEngineWithVerify(ctx context.Context, result *JobResult, engine Engine) {
	stepName := fmt.Sprintf("dump-%s", engine.Kind())
	start := time.Now()

	artifact, err := engine.Dump(ctx)
	if err != nil {
		o.recordStep(result, stepName, start, err)
		o.recordFatal(result, stepName, err)
		return
	}
	o.recordStep(result, stepName, start, nil)

	start = time.Now()
	verification, err := o.verifier.Verify(artifact)
	if err != nil {
		o.metrics.IncrCounter(MetricIntegrityFailed, 1)
		o.recordStep(result, "verify", start, err)
		o.recordFatal(result, "verify", err)
		return
	}
	o.recordStep(result, "verify", start, nil)

	o.metrics.IncrCounter(MetricArtifactsCreated, 1)
	o.metrics.IncrCounter(MetricBytesWritten, verification.Size)
	result.Artifacts = append(result.Artifacts, artifact)
}

func (o *Orchestrator) runConfigArchive(ctx context.Context, result *JobResult) {
	start := time.Now()
	artifact, err := o.archiver.Archive(ctx)
	o.recordStep(result, "config-archive", start, err)
	if err != nil {
		result.AddWarning("config archive failed: %v", err)
		o.logger.Warn(fmt.Sprintf("Config archive failed (non-fatal): %v", err))
		return
	}
	o.metrics.IncrCounter(MetricArtifactsCreated, 1)
	o.metrics.IncrCounter(MetricBytesWritten, artifact.Size)
	result.Artifacts = append(result.Artifacts, artifact)
}

func (o *Orchestrator) runUploads(ctx context.Context, result *JobResult) {
	if len(o.uploaders) == 0 || len(result.Artifacts) == 0 {
		return
	}

	start := time.Now()
	var failed int
	for _, uploader := range o.uploaders {
		for _, artifact := range result.Artifacts {
			if err := uploader.Upload(ctx, artifact.Path); err != nil {
				failed++
				o.metrics.IncrCounter(MetricUploadFailures, 1)
				result.AddWarning("upload of %s to %s failed: %v", artifact.Basename(), uploader.Name(), err)
				o.logger.Warn(fmt.Sprintf("Upload of %s to %s failed (non-fatal): %v", artifact.Basename(), uploader.Name(), err))
				continue
			}
			o.metrics.IncrCounter(MetricUploadsCompleted, 1)
			o.logger.Info(fmt.Sprintf("Uploaded %s to %s", artifact.Basename(), uploader.Name()))
		}
	}

	var stepErr error
	if failed > 0 {
		stepErr = NewUploadError(fmt.Sprintf("%d uploads failed", failed), nil)
	}
	o.recordStep(result, "upload", start, stepErr)
}

func (o *Orchestrator) runRetention(ctx context.Context, result *JobResult) {
	start := time.Now()
	sweep, err := o.retention.Cleanup(ctx, false)
	o.recordStep(result, "retention", start, err)
	if sweep != nil {
		o.metrics.IncrCounter(MetricArtifactsDeleted, int64(sweep.Deleted))
		o.metrics.IncrCounter(MetricBytesReclaimed, sweep.BytesReclaimed)
	}
	if err != nil {
		result.AddWarning("retention sweep failed: %v", err)
		o.logger.Warn(fmt.Sprintf("Retention sweep failed (non-fatal): %v", err))
	}
}

func (o *Orchestrator) runHealthCheck(result *JobResult) {
	start := time.Now()
	status, err := o.health.Check()
	o.lastHealth = status

	if err != nil {
		o.recordStep(result, "health-check", start, err)
		return
	}
	if !status.Healthy() {
		o.recordStep(result, "health-check", start, fmt.Errorf("backup directory unhealthy: %s", status.State))
		return
	}
	o.recordStep(result, "health-check", start, nil)
}

// healthFailed reports whether a health-check operation found the backup
// directory unhealthy. Health findings are not part of the error taxonomy
// but still flip the exit status.
func (o *Orchestrator) healthFailed(result *JobResult) bool {
	if result.Operation != OperationHealthCheck {
		return false
	}
	return o.lastHealth == nil || !o.lastHealth.Healthy()
}

func (o *Orchestrator) recordStep(result *JobResult, name string, start time.Time, err error) {
	step := StepStatus{
		Name:     name,
		Success:  err == nil,
		Duration: time.Since(start),
	}
	if err != nil {
		step.Error = err.Error()
	}
	result.Steps = append(result.Steps, step)
}

func (o *Orchestrator) recordFatal(result *JobResult, step string, err error) {
	result.ErrorClass = ErrorClass(err)
	o.logger.Error(fmt.Sprintf("Fatal failure in step %s: %v", step, err))
}

func (o *Orchestrator) logMetrics() {
	counters, gauges := o.metrics.Snapshot()
	fields := make(map[string]interface{}, len(counters)+len(gauges))
	for name, value := range counters {
		fields[name] = value
	}
	for name, value := range gauges {
		fields[name] = value
	}
	o.logger.WithFields(fields).Debug("Run metrics")
}
