package workers

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/hpcc-hcmut/batsim-web-portal/internal/config"
	"github.com/hpcc-hcmut/batsim-web-portal/internal/models"
	"github.com/hpcc-hcmut/batsim-web-portal/internal/storage"
	"github.com/hpcc-hcmut/batsim-web-portal/internal/tasks"
)

// StartRetentionScheduler runs a periodic check (every minute) for the
// result retention sweep. The schedule is a standard 5-field cron expression
// from configuration; an empty schedule disables the sweep entirely.
func StartRetentionScheduler(client *asynq.Client, cfg *config.Config, logger zerolog.Logger) {
	if cfg.Results.RetentionSchedule == "" {
		logger.Info().Msg("No result retention schedule configured")
		return
	}

	schedule, err := parseRetentionSchedule(cfg.Results.RetentionSchedule)
	if err != nil {
		logger.Error().
			Err(err).
			Str("schedule", cfg.Results.RetentionSchedule).
			Msg("Invalid result retention schedule, sweeps disabled")
		return
	}

	logger.Info().
		Str("schedule", cfg.Results.RetentionSchedule).
		Int("retention_days", cfg.Results.RetentionDays).
		Msg("Result retention scheduler started")

	next := schedule.Next(time.Now())

	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		if now.Before(next) {
			continue
		}
		next = schedule.Next(now)

		if _, err := client.Enqueue(tasks.NewResultRetentionTask(), asynq.Queue("low")); err != nil {
			logger.Error().Err(err).Msg("Failed to enqueue retention sweep")
			continue
		}
		logger.Info().Time("next_sweep_at", next).Msg("Result retention sweep enqueued")
	}
}

// parseRetentionSchedule parses a standard 5-field cron expression
// (minute hour day-of-month month day-of-week)
func parseRetentionSchedule(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return parser.Parse(expr)
}

// HandleResultRetention prunes results older than the configured retention
// window, removing their stored artifact files along with the rows
func HandleResultRetention(ctx context.Context, t *asynq.Task, db *gorm.DB, store *storage.Store, cfg *config.Config, logger zerolog.Logger) error {
	if cfg.Results.RetentionDays <= 0 {
		logger.Debug().Msg("Result retention window not set, skipping sweep")
		return nil
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -cfg.Results.RetentionDays)

	var expired []models.Result
	if err := db.Where("created_at < ?", cutoff).Find(&expired).Error; err != nil {
		return err
	}
	if len(expired) == 0 {
		logger.Debug().Time("cutoff", cutoff).Msg("No results past retention window")
		return nil
	}

	removed := 0
	for _, result := range expired {
		if err := db.Delete(&result).Error; err != nil {
			logger.Error().Err(err).Uint("result_id", result.ID).Msg("Failed to delete expired result")
			continue
		}
		if result.ResultFilePath != "" {
			_ = store.Remove(result.ResultFilePath)
		}
		if result.LogFilePath != "" {
			_ = store.Remove(result.LogFilePath)
		}
		removed++
	}

	logger.Info().
		Int("removed", removed).
		Int("expired", len(expired)).
		Time("cutoff", cutoff).
		Msg("Result retention sweep finished")

	return nil
}
