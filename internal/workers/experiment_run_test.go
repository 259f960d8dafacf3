package workers

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
)

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestParseWorkloadJobs(t *testing.T) {
	jobs, err := parseWorkloadJobs(`[{"id": "j1", "subtime": 0, "res": 2, "walltime": 100}]`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(jobs) != 1 || jobs[0].Res != 2 || jobs[0].Walltime != 100 {
		t.Errorf("unexpected jobs: %+v", jobs)
	}

	if _, err := parseWorkloadJobs(""); err == nil {
		t.Error("expected error for empty jobs string")
	}
	if _, err := parseWorkloadJobs("[]"); err == nil {
		t.Error("expected error for empty jobs array")
	}
	if _, err := parseWorkloadJobs("not json"); err == nil {
		t.Error("expected error for malformed jobs")
	}
}

func TestScheduleFCFS_SequentialOnSingleHost(t *testing.T) {
	jobs := []workloadJob{
		{Subtime: 0, Res: 1, Walltime: 10},
		{Subtime: 0, Res: 1, Walltime: 20},
		{Subtime: 5, Res: 1, Walltime: 5},
	}

	outcomes := scheduleFCFS(jobs, 1)
	if len(outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(outcomes))
	}

	// One host: each job starts when the previous finishes
	if !approxEqual(outcomes[0].StartTime, 0) || !approxEqual(outcomes[0].FinishTime, 10) {
		t.Errorf("job 0: start %g finish %g", outcomes[0].StartTime, outcomes[0].FinishTime)
	}
	if !approxEqual(outcomes[1].StartTime, 10) || !approxEqual(outcomes[1].FinishTime, 30) {
		t.Errorf("job 1: start %g finish %g", outcomes[1].StartTime, outcomes[1].FinishTime)
	}
	if !approxEqual(outcomes[2].StartTime, 30) || !approxEqual(outcomes[2].FinishTime, 35) {
		t.Errorf("job 2: start %g finish %g", outcomes[2].StartTime, outcomes[2].FinishTime)
	}
}

func TestScheduleFCFS_ParallelJobs(t *testing.T) {
	jobs := []workloadJob{
		{Subtime: 0, Res: 1, Walltime: 10},
		{Subtime: 0, Res: 1, Walltime: 10},
	}

	outcomes := scheduleFCFS(jobs, 2)

	// Two hosts: both jobs run immediately
	if !approxEqual(outcomes[0].StartTime, 0) || !approxEqual(outcomes[1].StartTime, 0) {
		t.Errorf("expected both jobs to start at 0, got %g and %g",
			outcomes[0].StartTime, outcomes[1].StartTime)
	}
}

func TestScheduleFCFS_SortsBySubmissionTime(t *testing.T) {
	jobs := []workloadJob{
		{ID: json.RawMessage(`"late"`), Subtime: 50, Res: 1, Walltime: 10},
		{ID: json.RawMessage(`"early"`), Subtime: 0, Res: 1, Walltime: 10},
	}

	outcomes := scheduleFCFS(jobs, 1)
	if outcomes[0].ID != "early" || outcomes[1].ID != "late" {
		t.Errorf("expected submission order, got %s then %s", outcomes[0].ID, outcomes[1].ID)
	}

	// The late job arrives after the early one finished, so it starts at
	// its own submission time
	if !approxEqual(outcomes[1].StartTime, 50) {
		t.Errorf("expected late job to start at 50, got %g", outcomes[1].StartTime)
	}
}

func TestScheduleFCFS_ClampsOversizedJobs(t *testing.T) {
	jobs := []workloadJob{
		{Subtime: 0, Res: 16, Walltime: 10},
		{Subtime: 0, Res: 0, Walltime: 0},
	}

	outcomes := scheduleFCFS(jobs, 4)

	if outcomes[0].Res != 4 {
		t.Errorf("expected res clamped to host count, got %d", outcomes[0].Res)
	}
	if outcomes[1].Res != 1 || outcomes[1].Walltime != 1 {
		t.Errorf("expected zero res/walltime defaults, got res %d walltime %g",
			outcomes[1].Res, outcomes[1].Walltime)
	}
}

func TestComputeRunMetrics(t *testing.T) {
	outcomes := []jobOutcome{
		{Subtime: 0, Res: 1, Walltime: 10, StartTime: 0, FinishTime: 10},
		{Subtime: 0, Res: 1, Walltime: 20, StartTime: 10, FinishTime: 30},
	}

	m := computeRunMetrics(outcomes, 1)

	if !approxEqual(m.Makespan, 30) {
		t.Errorf("expected makespan 30, got %g", m.Makespan)
	}
	// Waiting: 0 and 10 -> avg 5
	if !approxEqual(m.AverageWaitingTime, 5) {
		t.Errorf("expected avg waiting 5, got %g", m.AverageWaitingTime)
	}
	// Turnaround: 10 and 30 -> avg 20
	if !approxEqual(m.AverageTurnaroundTime, 20) {
		t.Errorf("expected avg turnaround 20, got %g", m.AverageTurnaroundTime)
	}
	// Busy area 30 over 30*1 capacity -> fully utilized
	if !approxEqual(m.ResourceUtilization, 1) {
		t.Errorf("expected utilization 1, got %g", m.ResourceUtilization)
	}
}

func TestComputeRunMetrics_Empty(t *testing.T) {
	m := computeRunMetrics(nil, 4)
	if m.Makespan != 0 || m.AverageWaitingTime != 0 || m.ResourceUtilization != 0 {
		t.Errorf("expected zero metrics, got %+v", m)
	}
}

func TestJobLabel(t *testing.T) {
	if got := jobLabel(json.RawMessage(`"j42"`), 0); got != "j42" {
		t.Errorf("expected j42, got %s", got)
	}
	if got := jobLabel(json.RawMessage(`17`), 0); got != "17" {
		t.Errorf("expected 17, got %s", got)
	}
	if got := jobLabel(nil, 3); got != "job_3" {
		t.Errorf("expected job_3 fallback, got %s", got)
	}
}

func TestRenderJobsCSV(t *testing.T) {
	outcomes := []jobOutcome{
		{ID: "j1", Subtime: 0, Res: 2, Walltime: 10, StartTime: 0, FinishTime: 10},
	}

	csv := renderJobsCSV(outcomes)
	lines := strings.Split(strings.TrimSpace(csv), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus one row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "job_id,submission_time") {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if lines[1] != "j1,0,2,10,0,10,0,10" {
		t.Errorf("unexpected row: %s", lines[1])
	}
}
