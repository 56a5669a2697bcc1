package scheduler

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ksfraser/WealthSystem-sub012/internal/database"
	"github.com/ksfraser/WealthSystem-sub012/internal/modules/indicators"
)

// HealthCheckJob runs SQLite's integrity_check and WAL checkpoint status on
// the application database, and sweeps the indicator cache (C2), using the
// same PRAGMA-based checks against this module's single-database model
// (internal/database/db.go).
type HealthCheckJob struct {
	log   zerolog.Logger
	db    *database.DB
	cache *indicators.Cache
}

// HealthCheckConfig holds HealthCheckJob's dependencies.
type HealthCheckConfig struct {
	Log   zerolog.Logger
	DB    *database.DB
	Cache *indicators.Cache
}

// NewHealthCheckJob creates a new health check job.
func NewHealthCheckJob(cfg HealthCheckConfig) *HealthCheckJob {
	return &HealthCheckJob{
		log:   cfg.Log.With().Str("job", "health_check").Logger(),
		db:    cfg.DB,
		cache: cfg.Cache,
	}
}

// Name returns the job name.
func (j *HealthCheckJob) Name() string { return "health_check" }

// Run executes the health check.
func (j *HealthCheckJob) Run() error {
	start := time.Now()

	if err := j.checkIntegrity(); err != nil {
		return err
	}
	j.checkWALCheckpoint()

	if j.cache != nil {
		before := j.cache.Len()
		j.cache.Evict()
		j.log.Debug().Int("entries_cleared", before).Msg("indicator cache swept")
	}

	j.log.Info().Dur("duration", time.Since(start)).Msg("health check completed")
	return nil
}

func (j *HealthCheckJob) checkIntegrity() error {
	if j.db == nil {
		return nil
	}
	var result string
	if err := j.db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database integrity check returned: %s", result)
	}
	return nil
}

func (j *HealthCheckJob) checkWALCheckpoint() {
	if j.db == nil {
		return
	}
	var mode, busy, log, checkpointed int
	row := j.db.QueryRow("PRAGMA wal_checkpoint(PASSIVE)")
	if err := row.Scan(&mode, &busy, &log, &checkpointed); err != nil {
		if err != sql.ErrNoRows {
			j.log.Warn().Err(err).Msg("failed to check WAL checkpoint")
		}
		return
	}
	if log > 1000 {
		j.log.Warn().Int("wal_frames", log).Int("checkpointed", checkpointed).Msg("WAL file is large, checkpoint may be needed")
	} else {
		j.log.Debug().Int("wal_frames", log).Msg("WAL checkpoint status OK")
	}
}
