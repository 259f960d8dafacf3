package client

import (
	"fmt"
	"net/url"
)

// Result holds the metrics produced by a completed experiment
type Result struct {
	ID                    uint    `json:"id"`
	ExperimentID          uint    `json:"experiment_id"`
	SimulationTime        float64 `json:"simulation_time,omitempty"`
	TotalJobs             int     `json:"total_jobs,omitempty"`
	CompletedJobs         int     `json:"completed_jobs,omitempty"`
	FailedJobs            int     `json:"failed_jobs"`
	Makespan              float64 `json:"makespan,omitempty"`
	AverageWaitingTime    float64 `json:"average_waiting_time,omitempty"`
	AverageTurnaroundTime float64 `json:"average_turnaround_time,omitempty"`
	ResourceUtilization   float64 `json:"resource_utilization,omitempty"`
	Metrics               string  `json:"metrics,omitempty"`
	ResultFilePath        string  `json:"result_file_path,omitempty"`
	LogFilePath           string  `json:"log_file_path,omitempty"`
	ExperimentName        string  `json:"experiment_name,omitempty"`
	ScenarioName          string  `json:"scenario_name,omitempty"`
	StrategyName          string  `json:"strategy_name,omitempty"`
	CreatedAt             string  `json:"created_at,omitempty"`
}

// AnalyticsEntry is one bucket in a grouped analytics series
type AnalyticsEntry struct {
	Name  string `json:"name,omitempty"`
	Date  string `json:"date,omitempty"`
	Count int    `json:"count"`
}

// Analytics aggregates metrics across results
type Analytics struct {
	TotalResults           int              `json:"total_results"`
	TotalExperiments       int              `json:"total_experiments"`
	AvgMakespan            float64          `json:"avg_makespan"`
	AvgWaitingTime         float64          `json:"avg_waiting_time"`
	AvgTurnaroundTime      float64          `json:"avg_turnaround_time"`
	AvgResourceUtilization float64          `json:"avg_resource_utilization"`
	TotalJobs              int              `json:"total_jobs"`
	CompletedJobs          int              `json:"completed_jobs"`
	FailedJobs             int              `json:"failed_jobs"`
	SuccessRate            float64          `json:"success_rate"`
	ResultsByDate          []AnalyticsEntry `json:"results_by_date"`
	TopStrategies          []AnalyticsEntry `json:"top_strategies"`
	TopScenarios           []AnalyticsEntry `json:"top_scenarios"`
}

// SystemStatus reports portal liveness
type SystemStatus struct {
	Service       string `json:"service"`
	Version       string `json:"version"`
	Status        string `json:"status"`
	Database      string `json:"database"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Timestamp     string `json:"timestamp"`
}

// SystemMetrics reports portal host resources
type SystemMetrics struct {
	CPUCount        int     `json:"cpu_count"`
	MemoryTotalGB   float64 `json:"memory_total_gb"`
	MemoryUsedGB    float64 `json:"memory_used_gb"`
	MemoryFreeGB    float64 `json:"memory_free_gb"`
	DiskTotalGB     float64 `json:"disk_total_gb"`
	DiskUsedGB      float64 `json:"disk_used_gb"`
	DiskAvailableGB float64 `json:"disk_available_gb"`
	DiskUsedPercent float64 `json:"disk_used_percent"`
}

// ListResults returns results with skip/limit pagination
func (c *Client) ListResults(skip, limit int) ([]Result, error) {
	return getList[Result](c, listPath("/api/results", skip, limit))
}

// GetResult returns a single result by ID
func (c *Client) GetResult(id uint) (*Result, error) {
	var result Result
	if err := c.getJSON(fmt.Sprintf("/api/results/%d", id), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ResultsByExperiment returns all results recorded for an experiment
func (c *Client) ResultsByExperiment(experimentID uint) ([]Result, error) {
	return getList[Result](c, fmt.Sprintf("/api/results/experiment/%d", experimentID))
}

// DeleteResult removes a result and its stored artifact files
func (c *Client) DeleteResult(id uint) error {
	return c.deleteJSON(fmt.Sprintf("/api/results/%d", id), nil)
}

// GetAnalytics returns aggregated metrics, optionally bounded by
// YYYY-MM-DD start/end dates
func (c *Client) GetAnalytics(startDate, endDate string) (*Analytics, error) {
	params := url.Values{}
	if startDate != "" {
		params.Set("start_date", startDate)
	}
	if endDate != "" {
		params.Set("end_date", endDate)
	}

	path := "/api/results/analytics"
	if encoded := params.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var analytics Analytics
	if err := c.getJSON(path, &analytics); err != nil {
		return nil, err
	}
	return &analytics, nil
}

// GetSystemStatus returns the portal liveness probe
func (c *Client) GetSystemStatus() (*SystemStatus, error) {
	var status SystemStatus
	if err := c.getJSON("/api/system", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// GetSystemResources returns the portal host resource probe
func (c *Client) GetSystemResources() (*SystemMetrics, error) {
	var metrics SystemMetrics
	if err := c.getJSON("/api/system/resources", &metrics); err != nil {
		return nil, err
	}
	return &metrics, nil
}
