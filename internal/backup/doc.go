// Package backup implements an automated database backup and retention
// pipeline for PostgreSQL and SQLite data stores.
//
// The pipeline produces point-in-time, gzip-compressed artifacts, verifies
// each artifact with a decompression dry-run before trusting it, optionally
// replicates artifacts to S3, GCS or Azure Blob storage, and purges
// artifacts past their retention age. A separate health check confirms
// backups are being produced on schedule.
//
// Core components:
//
//   - Engine: produces one compressed artifact per run (PostgresEngine
//     streams pg_dump through gzip; SQLiteEngine snapshots with VACUUM INTO)
//   - IntegrityVerifier: decompression dry-run; quarantines corrupt files
//   - ConfigArchiver: best-effort tar.gz of configuration directories
//   - RetentionManager: idempotent age-based artifact purging
//   - Uploader: best-effort replication to remote object storage
//   - HealthChecker: freshness probe over the backup directory
//   - Orchestrator: sequences the above and aggregates exit status
//
// Fatal failures (engine, integrity, configuration) abort the operation;
// everything else is downgraded to a warning. Components never read the
// environment directly: all settings arrive through Config.
package backup
