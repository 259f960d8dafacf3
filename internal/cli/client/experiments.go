package client

import (
	"encoding/json"
	"fmt"
)

// Scenario pairs a workload with a platform on the portal
type Scenario struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	WorkloadID      uint   `json:"workload_id"`
	PlatformID      uint   `json:"platform_id"`
	WorkloadName    string `json:"workload_name,omitempty"`
	PlatformName    string `json:"platform_name,omitempty"`
	CreatedBy       uint   `json:"created_by,omitempty"`
	CreatorUsername string `json:"creator_username,omitempty"`
	CreatedAt       string `json:"created_at,omitempty"`
	UpdatedAt       string `json:"updated_at,omitempty"`
}

// CreateScenarioRequest is the body for scenario creation
type CreateScenarioRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	WorkloadID  uint   `json:"workload_id"`
	PlatformID  uint   `json:"platform_id"`
}

// UpdateScenarioRequest carries partial scenario updates
type UpdateScenarioRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	WorkloadID  *uint   `json:"workload_id,omitempty"`
	PlatformID  *uint   `json:"platform_id,omitempty"`
}

// Experiment is one execution instance combining a scenario and a strategy
type Experiment struct {
	ID                 uint   `json:"id"`
	Name               string `json:"name"`
	Description        string `json:"description,omitempty"`
	ScenarioID         uint   `json:"scenario_id"`
	StrategyID         uint   `json:"strategy_id"`
	Status             string `json:"status"`
	SimRunID           string `json:"sim_run_id,omitempty"`
	SchedRunID         string `json:"sched_run_id,omitempty"`
	StartTime          string `json:"start_time,omitempty"`
	EndTime            string `json:"end_time,omitempty"`
	TotalJobs          int    `json:"total_jobs,omitempty"`
	CompletedJobs      int    `json:"completed_jobs"`
	ProgressPercentage int    `json:"progress_percentage"`
	ScenarioName       string `json:"scenario_name,omitempty"`
	StrategyName       string `json:"strategy_name,omitempty"`
	CreatedBy          uint   `json:"created_by,omitempty"`
	CreatorUsername    string `json:"creator_username,omitempty"`
	CreatedAt          string `json:"created_at,omitempty"`
	UpdatedAt          string `json:"updated_at,omitempty"`
}

// CreateExperimentRequest is the body for experiment creation
type CreateExperimentRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	ScenarioID  uint            `json:"scenario_id"`
	StrategyID  uint            `json:"strategy_id"`
	Config      json.RawMessage `json:"config,omitempty"`
}

// UpdateExperimentRequest carries partial experiment updates
type UpdateExperimentRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// ExperimentStatus is the progress object returned by the status endpoint
type ExperimentStatus struct {
	Status             string `json:"status"`
	ProgressPercentage int    `json:"progress_percentage"`
	CompletedJobs      int    `json:"completed_jobs"`
	TotalJobs          int    `json:"total_jobs"`
	StartTime          string `json:"start_time,omitempty"`
	EndTime            string `json:"end_time,omitempty"`
}

// ListScenarios returns scenarios with skip/limit pagination
func (c *Client) ListScenarios(skip, limit int) ([]Scenario, error) {
	return getList[Scenario](c, listPath("/api/scenarios", skip, limit))
}

// GetScenario returns a single scenario by ID
func (c *Client) GetScenario(id uint) (*Scenario, error) {
	var scenario Scenario
	if err := c.getJSON(fmt.Sprintf("/api/scenarios/%d", id), &scenario); err != nil {
		return nil, err
	}
	return &scenario, nil
}

// CreateScenario pairs a workload with a platform
func (c *Client) CreateScenario(req CreateScenarioRequest) (*Scenario, error) {
	var scenario Scenario
	if err := c.sendJSON("POST", "/api/scenarios", req, &scenario); err != nil {
		return nil, err
	}
	return &scenario, nil
}

// UpdateScenario updates scenario fields
func (c *Client) UpdateScenario(id uint, req UpdateScenarioRequest) (*Scenario, error) {
	var scenario Scenario
	if err := c.sendJSON("PUT", fmt.Sprintf("/api/scenarios/%d", id), req, &scenario); err != nil {
		return nil, err
	}
	return &scenario, nil
}

// DeleteScenario removes a scenario
func (c *Client) DeleteScenario(id uint) error {
	return c.deleteJSON(fmt.Sprintf("/api/scenarios/%d", id), nil)
}

// ListExperiments returns experiments with skip/limit pagination
func (c *Client) ListExperiments(skip, limit int) ([]Experiment, error) {
	return getList[Experiment](c, listPath("/api/experiments", skip, limit))
}

// GetExperiment returns a single experiment by ID
func (c *Client) GetExperiment(id uint) (*Experiment, error) {
	var experiment Experiment
	if err := c.getJSON(fmt.Sprintf("/api/experiments/%d", id), &experiment); err != nil {
		return nil, err
	}
	return &experiment, nil
}

// CreateExperiment creates a new experiment in pending state
func (c *Client) CreateExperiment(req CreateExperimentRequest) (*Experiment, error) {
	var experiment Experiment
	if err := c.sendJSON("POST", "/api/experiments", req, &experiment); err != nil {
		return nil, err
	}
	return &experiment, nil
}

// UpdateExperiment updates experiment metadata
func (c *Client) UpdateExperiment(id uint, req UpdateExperimentRequest) (*Experiment, error) {
	var experiment Experiment
	if err := c.sendJSON("PUT", fmt.Sprintf("/api/experiments/%d", id), req, &experiment); err != nil {
		return nil, err
	}
	return &experiment, nil
}

// DeleteExperiment removes an experiment
func (c *Client) DeleteExperiment(id uint) error {
	return c.deleteJSON(fmt.Sprintf("/api/experiments/%d", id), nil)
}

// StartExperiment enqueues a simulation run for the experiment
func (c *Client) StartExperiment(id uint) (*Message, error) {
	var msg Message
	if err := c.sendJSON("POST", fmt.Sprintf("/api/experiments/%d/start", id), struct{}{}, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// StopExperiment cancels a running experiment
func (c *Client) StopExperiment(id uint) (*Message, error) {
	var msg Message
	if err := c.sendJSON("POST", fmt.Sprintf("/api/experiments/%d/stop", id), struct{}{}, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetExperimentStatus returns the live progress of an experiment
func (c *Client) GetExperimentStatus(id uint) (*ExperimentStatus, error) {
	var status ExperimentStatus
	if err := c.getJSON(fmt.Sprintf("/api/experiments/%d/status", id), &status); err != nil {
		return nil, err
	}
	return &status, nil
}
