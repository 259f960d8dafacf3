package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/hpcc-hcmut/batsim-web-portal/internal/models"
)

// ScenarioResponse enriches a scenario with related entity names
type ScenarioResponse struct {
	models.Scenario
	WorkloadName    string `json:"workload_name,omitempty"`
	PlatformName    string `json:"platform_name,omitempty"`
	CreatorUsername string `json:"creator_username,omitempty"`
}

// CreateScenarioRequest pairs one workload with one platform
type CreateScenarioRequest struct {
	Name        string `json:"name" binding:"required" validate:"required,min=1,max=100,entityname"`
	Description string `json:"description"`
	WorkloadID  uint   `json:"workload_id" binding:"required"`
	PlatformID  uint   `json:"platform_id" binding:"required"`
}

// UpdateScenarioRequest carries partial updates
type UpdateScenarioRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	WorkloadID  *uint   `json:"workload_id"`
	PlatformID  *uint   `json:"platform_id"`
}

func (s *Server) scenarioResponse(sc *models.Scenario) ScenarioResponse {
	resp := ScenarioResponse{
		Scenario:        *sc,
		CreatorUsername: s.usernameByID(sc.CreatedBy),
	}

	var workload models.Workload
	if err := s.db.Select("name").Where("id = ?", sc.WorkloadID).First(&workload).Error; err == nil {
		resp.WorkloadName = workload.Name
	}
	var platform models.Platform
	if err := s.db.Select("name").Where("id = ?", sc.PlatformID).First(&platform).Error; err == nil {
		resp.PlatformName = platform.Name
	}

	return resp
}

// @Router /api/scenarios [get]
// @Success 200 {array} ScenarioResponse
func (s *Server) listScenarios(c *gin.Context) {
	params := parseListParams(c)

	var scenarios []models.Scenario
	if err := s.db.Offset(params.Skip).Limit(params.Limit).Find(&scenarios).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list scenarios")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	out := make([]ScenarioResponse, len(scenarios))
	for i := range scenarios {
		out[i] = s.scenarioResponse(&scenarios[i])
	}

	c.JSON(http.StatusOK, out)
}

// @Router /api/scenarios/{id} [get]
// @Success 200 {object} ScenarioResponse
func (s *Server) getScenario(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var scenario models.Scenario
	if err := models.FindByID(s.db, id, &scenario); err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Scenario not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, s.scenarioResponse(&scenario))
}

// @Router /api/scenarios [post]
// @Success 201 {object} models.Scenario
func (s *Server) createScenario(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	var req CreateScenarioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	if err := s.validator.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid scenario name"})
		return
	}

	// The referenced workload and platform must both exist
	var workload models.Workload
	var platform models.Platform
	if err := models.FindByID(s.db, req.WorkloadID, &workload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid scenario: workload not found"})
		return
	}
	if err := models.FindByID(s.db, req.PlatformID, &platform); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid scenario: platform not found"})
		return
	}

	scenario := &models.Scenario{
		Name:        req.Name,
		Description: req.Description,
		WorkloadID:  req.WorkloadID,
		PlatformID:  req.PlatformID,
		CreatedBy:   sessionData.UserID,
	}

	if err := s.db.Create(scenario).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to create scenario")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to create scenario"})
		return
	}

	s.logger.Info().Uint("scenario_id", scenario.ID).Str("name", scenario.Name).Msg("Scenario created")

	c.JSON(http.StatusCreated, scenario)
}

// @Router /api/scenarios/{id} [put]
// @Success 200 {object} models.Scenario
func (s *Server) updateScenario(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var scenario models.Scenario
	if err := models.FindByID(s.db, id, &scenario); err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Scenario not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	if !s.requireOwnership(c, scenario.CreatedBy) {
		return
	}

	var req UpdateScenarioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	if req.Name != nil {
		scenario.Name = *req.Name
	}
	if req.Description != nil {
		scenario.Description = *req.Description
	}
	if req.WorkloadID != nil {
		var workload models.Workload
		if err := models.FindByID(s.db, *req.WorkloadID, &workload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid scenario: workload not found"})
			return
		}
		scenario.WorkloadID = *req.WorkloadID
	}
	if req.PlatformID != nil {
		var platform models.Platform
		if err := models.FindByID(s.db, *req.PlatformID, &platform); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid scenario: platform not found"})
			return
		}
		scenario.PlatformID = *req.PlatformID
	}
	scenario.Touch()

	if err := s.db.Save(&scenario).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to update scenario")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to update scenario"})
		return
	}

	c.JSON(http.StatusOK, scenario)
}

// @Router /api/scenarios/{id} [delete]
// @Success 200 {object} messageResponse
func (s *Server) deleteScenario(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var scenario models.Scenario
	if err := models.FindByID(s.db, id, &scenario); err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Scenario not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	if !s.requireOwnership(c, scenario.CreatedBy) {
		return
	}

	if err := s.db.Delete(&scenario).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to delete scenario")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to delete scenario"})
		return
	}

	c.JSON(http.StatusOK, messageResponse{Message: "Scenario deleted successfully"})
}
