package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/hpcc-hcmut/batsim-web-portal/internal/models"
	"github.com/hpcc-hcmut/batsim-web-portal/internal/tasks"
)

// ExperimentResponse enriches an experiment with related entity names
type ExperimentResponse struct {
	models.Experiment
	ScenarioName    string `json:"scenario_name,omitempty"`
	StrategyName    string `json:"strategy_name,omitempty"`
	CreatorUsername string `json:"creator_username,omitempty"`
}

// CreateExperimentRequest combines a scenario with a strategy
type CreateExperimentRequest struct {
	Name        string          `json:"name" binding:"required" validate:"required,min=1,max=100,entityname"`
	Description string          `json:"description"`
	ScenarioID  uint            `json:"scenario_id" binding:"required"`
	StrategyID  uint            `json:"strategy_id" binding:"required"`
	Config      json.RawMessage `json:"config"`
}

// UpdateExperimentRequest carries partial updates
type UpdateExperimentRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// ExperimentStatusResponse is the progress object returned by the status endpoint
type ExperimentStatusResponse struct {
	Status             string     `json:"status"`
	ProgressPercentage int        `json:"progress_percentage"`
	CompletedJobs      int        `json:"completed_jobs"`
	TotalJobs          int        `json:"total_jobs"`
	StartTime          *time.Time `json:"start_time,omitempty"`
	EndTime            *time.Time `json:"end_time,omitempty"`
}

func (s *Server) experimentResponse(e *models.Experiment) ExperimentResponse {
	resp := ExperimentResponse{
		Experiment:      *e,
		CreatorUsername: s.usernameByID(e.CreatedBy),
	}

	var scenario models.Scenario
	if err := s.db.Select("name").Where("id = ?", e.ScenarioID).First(&scenario).Error; err == nil {
		resp.ScenarioName = scenario.Name
	}
	var strategy models.Strategy
	if err := s.db.Select("name").Where("id = ?", e.StrategyID).First(&strategy).Error; err == nil {
		resp.StrategyName = strategy.Name
	}

	return resp
}

// @Router /api/experiments [get]
// @Success 200 {array} ExperimentResponse
func (s *Server) listExperiments(c *gin.Context) {
	params := parseListParams(c)

	var experiments []models.Experiment
	if err := s.db.Order("created_at DESC").Offset(params.Skip).Limit(params.Limit).Find(&experiments).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list experiments")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	out := make([]ExperimentResponse, len(experiments))
	for i := range experiments {
		out[i] = s.experimentResponse(&experiments[i])
	}

	c.JSON(http.StatusOK, out)
}

// @Router /api/experiments/{id} [get]
// @Success 200 {object} ExperimentResponse
func (s *Server) getExperiment(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var experiment models.Experiment
	if err := models.FindByID(s.db, id, &experiment); err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Experiment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, s.experimentResponse(&experiment))
}

// @Router /api/experiments [post]
// @Success 201 {object} models.Experiment
func (s *Server) createExperiment(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	var req CreateExperimentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	if err := s.validator.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid experiment name"})
		return
	}

	// The referenced scenario and strategy must both exist
	var scenario models.Scenario
	var strategy models.Strategy
	if err := models.FindByID(s.db, req.ScenarioID, &scenario); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid scenario or strategy"})
		return
	}
	if err := models.FindByID(s.db, req.StrategyID, &strategy); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid scenario or strategy"})
		return
	}

	experiment := &models.Experiment{
		Name:        req.Name,
		Description: req.Description,
		ScenarioID:  req.ScenarioID,
		StrategyID:  req.StrategyID,
		Status:      models.StatusPending,
		Config:      string(req.Config),
		CreatedBy:   sessionData.UserID,
	}

	// Seed total jobs from the scenario's workload so progress has a
	// denominator before the run starts
	var workload models.Workload
	if err := models.FindByID(s.db, scenario.WorkloadID, &workload); err == nil && workload.Jobs != "" {
		var jobs []json.RawMessage
		if err := json.Unmarshal([]byte(workload.Jobs), &jobs); err == nil {
			experiment.TotalJobs = len(jobs)
		}
	}

	if err := s.db.Create(experiment).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to create experiment")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to create experiment"})
		return
	}

	s.logger.Info().Uint("experiment_id", experiment.ID).Str("name", experiment.Name).Msg("Experiment created")

	c.JSON(http.StatusCreated, experiment)
}

// @Router /api/experiments/{id} [put]
// @Success 200 {object} models.Experiment
func (s *Server) updateExperiment(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var experiment models.Experiment
	if err := models.FindByID(s.db, id, &experiment); err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Experiment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	if !s.requireOwnership(c, experiment.CreatedBy) {
		return
	}

	var req UpdateExperimentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	if req.Name != nil {
		experiment.Name = *req.Name
	}
	if req.Description != nil {
		experiment.Description = *req.Description
	}
	experiment.Touch()

	if err := s.db.Save(&experiment).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to update experiment")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to update experiment"})
		return
	}

	c.JSON(http.StatusOK, experiment)
}

// @Router /api/experiments/{id} [delete]
// @Success 200 {object} messageResponse
func (s *Server) deleteExperiment(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var experiment models.Experiment
	if err := models.FindByID(s.db, id, &experiment); err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Experiment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	if !s.requireOwnership(c, experiment.CreatedBy) {
		return
	}

	if experiment.Status == models.StatusRunning {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Cannot delete a running experiment; stop it first"})
		return
	}

	if err := s.db.Delete(&experiment).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to delete experiment")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to delete experiment"})
		return
	}

	c.JSON(http.StatusOK, messageResponse{Message: "Experiment deleted successfully"})
}

// @Router /api/experiments/{id}/start [post]
// @Success 200 {object} messageResponse
func (s *Server) startExperiment(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var experiment models.Experiment
	if err := models.FindByID(s.db, id, &experiment); err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Experiment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	if experiment.Status == models.StatusRunning {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Experiment is already running"})
		return
	}

	// Restarting a finished experiment resets its progress
	experiment.Status = models.StatusPending
	experiment.CompletedJobs = 0
	experiment.ProgressPercentage = 0
	experiment.StartTime = nil
	experiment.EndTime = nil
	experiment.Touch()

	if err := s.db.Save(&experiment).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to reset experiment")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to start experiment"})
		return
	}

	task, err := tasks.NewExperimentRunTask(experiment.ID)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to build run task")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to start experiment"})
		return
	}

	if _, err := s.asynqClient.Enqueue(task); err != nil {
		s.logger.Error().Err(err).Msg("Failed to enqueue run task")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to start experiment"})
		return
	}

	s.logger.Info().Uint("experiment_id", experiment.ID).Msg("Experiment run enqueued")

	c.JSON(http.StatusOK, messageResponse{Message: "Experiment started"})
}

// @Router /api/experiments/{id}/stop [post]
// @Success 200 {object} messageResponse
func (s *Server) stopExperiment(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var experiment models.Experiment
	if err := models.FindByID(s.db, id, &experiment); err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Experiment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	if experiment.IsTerminal() {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Experiment is not running"})
		return
	}

	// The worker observes the cancelled status between progress ticks and
	// abandons the run
	now := time.Now().UTC()
	experiment.Status = models.StatusCancelled
	experiment.EndTime = &now
	experiment.Touch()

	if err := s.db.Save(&experiment).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to stop experiment")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to stop experiment"})
		return
	}

	s.logger.Info().Uint("experiment_id", experiment.ID).Msg("Experiment cancelled")

	c.JSON(http.StatusOK, messageResponse{Message: "Experiment stopped"})
}

// @Router /api/experiments/{id}/status [get]
// @Success 200 {object} ExperimentStatusResponse
func (s *Server) getExperimentStatus(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var experiment models.Experiment
	if err := models.FindByID(s.db, id, &experiment); err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Experiment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, ExperimentStatusResponse{
		Status:             experiment.Status,
		ProgressPercentage: experiment.ProgressPercentage,
		CompletedJobs:      experiment.CompletedJobs,
		TotalJobs:          experiment.TotalJobs,
		StartTime:          experiment.StartTime,
		EndTime:            experiment.EndTime,
	})
}
