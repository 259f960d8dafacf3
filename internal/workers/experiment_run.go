package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/hpcc-hcmut/batsim-web-portal/internal/models"
	"github.com/hpcc-hcmut/batsim-web-portal/internal/storage"
	"github.com/hpcc-hcmut/batsim-web-portal/internal/tasks"
)

// progressInterval controls how often the runner persists progress while a
// run is in flight. The status endpoint and the stop endpoint both read and
// write the experiment row between ticks.
const progressInterval = 500 * time.Millisecond

// workloadJob is the subset of a Batsim job definition the runner needs
type workloadJob struct {
	ID       json.RawMessage `json:"id"` // string or number depending on the generator
	Subtime  float64         `json:"subtime"`
	Res      int             `json:"res"`
	Walltime float64         `json:"walltime"`
}

// jobOutcome is one scheduled job in the run's timeline
type jobOutcome struct {
	ID         string
	Subtime    float64
	Res        int
	Walltime   float64
	StartTime  float64
	FinishTime float64
}

// HandleExperimentRun executes one experiment: it schedules the workload's
// jobs onto the platform's resources with a first-come-first-served policy,
// persists progress as the timeline advances, and records a Result row with
// the computed metrics when the run completes.
func HandleExperimentRun(ctx context.Context, t *asynq.Task, db *gorm.DB, store *storage.Store, logger zerolog.Logger) error {
	payload, err := tasks.ParseExperimentPayload(t)
	if err != nil {
		return fmt.Errorf("failed to parse payload: %w", err)
	}

	var experiment models.Experiment
	if err := models.FindByID(db, payload.ExperimentID, &experiment); err != nil {
		if err == gorm.ErrRecordNotFound {
			logger.Warn().Uint("experiment_id", payload.ExperimentID).Msg("Experiment vanished before run started")
			return nil
		}
		return fmt.Errorf("failed to load experiment %d: %w", payload.ExperimentID, err)
	}

	if experiment.Status == models.StatusRunning {
		logger.Info().Uint("experiment_id", experiment.ID).Msg("Experiment already running, skipping duplicate task")
		return nil
	}
	if experiment.IsTerminal() && experiment.Status != models.StatusPending {
		// Stop was requested between enqueue and pickup
		logger.Info().
			Uint("experiment_id", experiment.ID).
			Str("status", experiment.Status).
			Msg("Experiment no longer pending, skipping run")
		return nil
	}

	var scenario models.Scenario
	if err := models.FindByID(db, experiment.ScenarioID, &scenario); err != nil {
		return failExperiment(db, &experiment, logger, fmt.Errorf("scenario %d not found: %w", experiment.ScenarioID, err))
	}
	var workload models.Workload
	if err := models.FindByID(db, scenario.WorkloadID, &workload); err != nil {
		return failExperiment(db, &experiment, logger, fmt.Errorf("workload %d not found: %w", scenario.WorkloadID, err))
	}
	var platform models.Platform
	if err := models.FindByID(db, scenario.PlatformID, &platform); err != nil {
		return failExperiment(db, &experiment, logger, fmt.Errorf("platform %d not found: %w", scenario.PlatformID, err))
	}

	jobs, err := parseWorkloadJobs(workload.Jobs)
	if err != nil {
		return failExperiment(db, &experiment, logger, fmt.Errorf("workload %d has no usable jobs: %w", workload.ID, err))
	}

	hosts := platform.NbHosts
	if hosts <= 0 {
		hosts = workload.NbRes
	}
	if hosts <= 0 {
		hosts = 1
	}

	// Mark the run as started
	now := time.Now().UTC()
	experiment.Status = models.StatusRunning
	experiment.SimRunID = models.NewRunID()
	experiment.SchedRunID = models.NewRunID()
	experiment.SimulationDir = models.GenerateRunDirName()
	experiment.StartTime = &now
	experiment.TotalJobs = len(jobs)
	experiment.CompletedJobs = 0
	experiment.ProgressPercentage = 0
	experiment.EstimatedDuration = len(jobs) // one job per scheduling tick, roughly
	experiment.Touch()

	if err := db.Save(&experiment).Error; err != nil {
		return fmt.Errorf("failed to mark experiment %d running: %w", experiment.ID, err)
	}

	logger.Info().
		Uint("experiment_id", experiment.ID).
		Str("sim_run_id", experiment.SimRunID).
		Int("total_jobs", len(jobs)).
		Int("hosts", hosts).
		Msg("Experiment run started")

	outcomes := scheduleFCFS(jobs, hosts)

	// Advance progress job by job, observing cancellation between ticks
	for i := range outcomes {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(progressInterval):
		}

		var current models.Experiment
		if err := models.FindByID(db, experiment.ID, &current); err != nil {
			if err == gorm.ErrRecordNotFound {
				logger.Warn().Uint("experiment_id", experiment.ID).Msg("Experiment deleted mid-run, aborting")
				return nil
			}
			return fmt.Errorf("failed to reload experiment %d: %w", experiment.ID, err)
		}
		if current.Status == models.StatusCancelled {
			logger.Info().Uint("experiment_id", experiment.ID).Msg("Experiment cancelled, stopping run")
			return nil
		}
		if current.Status == models.StatusPaused {
			// Hold position until resumed or cancelled
			for current.Status == models.StatusPaused {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(progressInterval):
				}
				if err := models.FindByID(db, experiment.ID, &current); err != nil {
					return fmt.Errorf("failed to reload experiment %d: %w", experiment.ID, err)
				}
			}
			if current.Status != models.StatusRunning {
				return nil
			}
		}

		completed := i + 1
		updates := map[string]interface{}{
			"completed_jobs":      completed,
			"progress_percentage": completed * 100 / len(outcomes),
			"updated_at":          time.Now().UTC(),
		}
		if err := db.Model(&models.Experiment{}).Where("id = ?", experiment.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to persist progress for experiment %d: %w", experiment.ID, err)
		}
	}

	metrics := computeRunMetrics(outcomes, hosts)

	result, err := persistResult(db, store, &experiment, outcomes, metrics, hosts)
	if err != nil {
		return failExperiment(db, &experiment, logger, fmt.Errorf("failed to record result: %w", err))
	}

	end := time.Now().UTC()
	finish := map[string]interface{}{
		"status":              models.StatusCompleted,
		"completed_jobs":      len(outcomes),
		"progress_percentage": 100,
		"end_time":            end,
		"updated_at":          end,
	}
	if err := db.Model(&models.Experiment{}).Where("id = ?", experiment.ID).Updates(finish).Error; err != nil {
		return fmt.Errorf("failed to complete experiment %d: %w", experiment.ID, err)
	}

	logger.Info().
		Uint("experiment_id", experiment.ID).
		Uint("result_id", result.ID).
		Float64("makespan", metrics.Makespan).
		Float64("resource_utilization", metrics.ResourceUtilization).
		Msg("Experiment run completed")

	return nil
}

// failExperiment marks the experiment failed and returns nil so asynq does
// not retry a run that can never succeed
func failExperiment(db *gorm.DB, experiment *models.Experiment, logger zerolog.Logger, cause error) error {
	logger.Error().Err(cause).Uint("experiment_id", experiment.ID).Msg("Experiment run failed")

	end := time.Now().UTC()
	updates := map[string]interface{}{
		"status":     models.StatusFailed,
		"end_time":   end,
		"updated_at": end,
		"run_logs":   cause.Error(),
	}
	if err := db.Model(&models.Experiment{}).Where("id = ?", experiment.ID).Updates(updates).Error; err != nil {
		logger.Error().Err(err).Uint("experiment_id", experiment.ID).Msg("Failed to persist failed status")
	}
	return nil
}

// parseWorkloadJobs decodes the stored jobs array of a workload
func parseWorkloadJobs(raw string) ([]workloadJob, error) {
	if raw == "" {
		return nil, fmt.Errorf("workload has no jobs array")
	}

	var jobs []workloadJob
	if err := json.Unmarshal([]byte(raw), &jobs); err != nil {
		return nil, fmt.Errorf("failed to decode jobs array: %w", err)
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("jobs array is empty")
	}
	return jobs, nil
}

// scheduleFCFS places jobs on hosts in submission order. A job waits until
// enough hosts are free, then occupies them for its walltime.
func scheduleFCFS(jobs []workloadJob, hosts int) []jobOutcome {
	sorted := make([]workloadJob, len(jobs))
	copy(sorted, jobs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Subtime < sorted[j].Subtime
	})

	// freeAt[i] is the simulated time at which host i becomes idle
	freeAt := make([]float64, hosts)

	outcomes := make([]jobOutcome, 0, len(sorted))
	for idx, job := range sorted {
		res := job.Res
		if res <= 0 {
			res = 1
		}
		if res > hosts {
			res = hosts
		}
		walltime := job.Walltime
		if walltime <= 0 {
			walltime = 1
		}

		// The job starts when the res-th earliest host frees up
		sort.Float64s(freeAt)
		start := math.Max(job.Subtime, freeAt[res-1])
		finish := start + walltime
		for i := 0; i < res; i++ {
			freeAt[i] = finish
		}

		outcomes = append(outcomes, jobOutcome{
			ID:         jobLabel(job.ID, idx),
			Subtime:    job.Subtime,
			Res:        res,
			Walltime:   walltime,
			StartTime:  start,
			FinishTime: finish,
		})
	}

	return outcomes
}

// jobLabel renders a job identifier that may be a JSON string or number
func jobLabel(raw json.RawMessage, fallback int) string {
	if len(raw) > 0 {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
		var n float64
		if err := json.Unmarshal(raw, &n); err == nil {
			return fmt.Sprintf("%g", n)
		}
	}
	return fmt.Sprintf("job_%d", fallback)
}

// runMetrics aggregates the scheduling outcomes of a run
type runMetrics struct {
	Makespan              float64 `json:"makespan"`
	AverageWaitingTime    float64 `json:"average_waiting_time"`
	AverageTurnaroundTime float64 `json:"average_turnaround_time"`
	ResourceUtilization   float64 `json:"resource_utilization"`
	SimulationTime        float64 `json:"simulation_time"`
}

func computeRunMetrics(outcomes []jobOutcome, hosts int) runMetrics {
	var m runMetrics
	if len(outcomes) == 0 {
		return m
	}

	var totalWaiting, totalTurnaround, busyArea float64
	for _, o := range outcomes {
		if o.FinishTime > m.Makespan {
			m.Makespan = o.FinishTime
		}
		totalWaiting += o.StartTime - o.Subtime
		totalTurnaround += o.FinishTime - o.Subtime
		busyArea += o.Walltime * float64(o.Res)
	}

	n := float64(len(outcomes))
	m.AverageWaitingTime = totalWaiting / n
	m.AverageTurnaroundTime = totalTurnaround / n
	m.SimulationTime = m.Makespan
	if m.Makespan > 0 && hosts > 0 {
		m.ResourceUtilization = busyArea / (m.Makespan * float64(hosts))
		if m.ResourceUtilization > 1 {
			m.ResourceUtilization = 1
		}
	}

	return m
}

// persistResult writes the run artifacts (per-job CSV, schedule CSV) and the
// Result row for a completed run
func persistResult(db *gorm.DB, store *storage.Store, experiment *models.Experiment, outcomes []jobOutcome, metrics runMetrics, hosts int) (*models.Result, error) {
	jobsCSV := renderJobsCSV(outcomes)
	scheduleCSV := renderScheduleCSV(metrics, len(outcomes), hosts)

	resultPath, err := store.WriteFile(storage.KindResult, fmt.Sprintf("%s_jobs.csv", experiment.SimRunID), []byte(jobsCSV))
	if err != nil {
		return nil, fmt.Errorf("failed to write jobs file: %w", err)
	}
	logPath, err := store.WriteFile(storage.KindResult, fmt.Sprintf("%s_schedule.csv", experiment.SimRunID), []byte(scheduleCSV))
	if err != nil {
		return nil, fmt.Errorf("failed to write schedule file: %w", err)
	}

	metricsJSON, err := json.Marshal(metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metrics: %w", err)
	}

	result := models.Result{
		ExperimentID:          experiment.ID,
		SimulationTime:        metrics.SimulationTime,
		TotalJobs:             len(outcomes),
		CompletedJobs:         len(outcomes),
		FailedJobs:            0,
		Makespan:              metrics.Makespan,
		AverageWaitingTime:    metrics.AverageWaitingTime,
		AverageTurnaroundTime: metrics.AverageTurnaroundTime,
		ResourceUtilization:   metrics.ResourceUtilization,
		Config:                experiment.Config,
		Metrics:               string(metricsJSON),
		ComputedMetrics:       string(metricsJSON),
		ResultFilePath:        resultPath,
		LogFilePath:           logPath,
		JobsData:              jobsCSV,
		ScheduleData:          scheduleCSV,
	}

	if err := db.Create(&result).Error; err != nil {
		return nil, fmt.Errorf("failed to create result row: %w", err)
	}

	return &result, nil
}

func renderJobsCSV(outcomes []jobOutcome) string {
	out := "job_id,submission_time,requested_resources,walltime,starting_time,finish_time,waiting_time,turnaround_time\n"
	for _, o := range outcomes {
		out += fmt.Sprintf("%s,%g,%d,%g,%g,%g,%g,%g\n",
			o.ID, o.Subtime, o.Res, o.Walltime, o.StartTime, o.FinishTime,
			o.StartTime-o.Subtime, o.FinishTime-o.Subtime)
	}
	return out
}

func renderScheduleCSV(metrics runMetrics, jobCount, hosts int) string {
	out := "makespan,nb_jobs,nb_hosts,mean_waiting_time,mean_turnaround_time,utilization\n"
	out += fmt.Sprintf("%g,%d,%d,%g,%g,%g\n",
		metrics.Makespan, jobCount, hosts,
		metrics.AverageWaitingTime, metrics.AverageTurnaroundTime, metrics.ResourceUtilization)
	return out
}
