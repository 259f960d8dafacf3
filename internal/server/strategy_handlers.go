package server

import (
	"encoding/json"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/hpcc-hcmut/batsim-web-portal/internal/models"
	"github.com/hpcc-hcmut/batsim-web-portal/internal/storage"
)

// StrategyResponse enriches a strategy with its creator's username
type StrategyResponse struct {
	models.Strategy
	CreatorUsername string `json:"creator_username,omitempty"`
}

// UpdateStrategyRequest carries metadata-only updates
type UpdateStrategyRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	MainEntry   *string `json:"main_entry"`
}

func (s *Server) strategyResponse(st *models.Strategy) StrategyResponse {
	return StrategyResponse{
		Strategy:        *st,
		CreatorUsername: s.usernameByID(st.CreatedBy),
	}
}

// setStrategyFileInfo records the uploaded script as the strategy's single
// bundled file and entry point
func setStrategyFileInfo(strategy *models.Strategy, fileName string) {
	strategy.NbFiles = 1
	strategy.MainEntry = fileName
	if names, err := json.Marshal([]string{fileName}); err == nil {
		strategy.StrategyFiles = string(names)
	}
}

// @Router /api/strategies [get]
// @Success 200 {array} StrategyResponse
func (s *Server) listStrategies(c *gin.Context) {
	params := parseListParams(c)

	var strategies []models.Strategy
	if err := s.db.Offset(params.Skip).Limit(params.Limit).Find(&strategies).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list strategies")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	out := make([]StrategyResponse, len(strategies))
	for i := range strategies {
		out[i] = s.strategyResponse(&strategies[i])
	}

	c.JSON(http.StatusOK, out)
}

// @Router /api/strategies/{id} [get]
// @Success 200 {object} StrategyResponse
func (s *Server) getStrategy(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var strategy models.Strategy
	if err := models.FindByID(s.db, id, &strategy); err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Strategy not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, s.strategyResponse(&strategy))
}

// @Router /api/strategies [post]
// @Success 201 {object} models.Strategy
func (s *Server) createStrategy(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	name := c.PostForm("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "name is required"})
		return
	}
	description := c.PostForm("description")

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "file is required"})
		return
	}

	var count int64
	if err := s.db.Model(&models.Strategy{}).Where("name = ?", name).Count(&count).Error; err == nil && count > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Strategy with this name already exists"})
		return
	}

	saved, err := s.store.SaveUpload(storage.KindStrategy, name, fileHeader)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to store strategy file")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to store file"})
		return
	}

	strategy := &models.Strategy{
		Name:        name,
		Description: description,
		FileAsset: models.FileAsset{
			FilePath:  saved.Path,
			FileSize:  saved.Size,
			FileType:  saved.MIME,
			CreatedBy: sessionData.UserID,
		},
	}

	setStrategyFileInfo(strategy, filepath.Base(fileHeader.Filename))

	if err := s.db.Create(strategy).Error; err != nil {
		_ = s.store.Remove(saved.Path)
		s.logger.Error().Err(err).Msg("Failed to create strategy")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to create strategy"})
		return
	}

	s.logger.Info().Uint("strategy_id", strategy.ID).Str("name", strategy.Name).Msg("Strategy created")

	c.JSON(http.StatusCreated, strategy)
}

// @Router /api/strategies/{id} [put]
// @Success 200 {object} models.Strategy
func (s *Server) updateStrategy(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var strategy models.Strategy
	if err := models.FindByID(s.db, id, &strategy); err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Strategy not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	if !s.requireOwnership(c, strategy.CreatedBy) {
		return
	}

	var req UpdateStrategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	if req.Name != nil {
		strategy.Name = *req.Name
	}
	if req.Description != nil {
		strategy.Description = *req.Description
	}
	if req.MainEntry != nil {
		strategy.MainEntry = *req.MainEntry
	}
	strategy.Touch()

	if err := s.db.Save(&strategy).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to update strategy")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to update strategy"})
		return
	}

	c.JSON(http.StatusOK, strategy)
}

// @Router /api/strategies/{id}/file [put]
// @Success 200 {object} models.Strategy
func (s *Server) replaceStrategyFile(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var strategy models.Strategy
	if err := models.FindByID(s.db, id, &strategy); err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Strategy not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	if !s.requireOwnership(c, strategy.CreatedBy) {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "file is required"})
		return
	}

	saved, err := s.store.SaveUpload(storage.KindStrategy, strategy.Name, fileHeader)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to store strategy file")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to store file"})
		return
	}

	oldPath := strategy.FilePath
	strategy.FilePath = saved.Path
	strategy.FileSize = saved.Size
	strategy.FileType = saved.MIME
	setStrategyFileInfo(&strategy, filepath.Base(fileHeader.Filename))
	strategy.Touch()

	if err := s.db.Save(&strategy).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to update strategy")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to update strategy"})
		return
	}

	if oldPath != saved.Path {
		_ = s.store.Remove(oldPath)
	}

	c.JSON(http.StatusOK, strategy)
}

// @Router /api/strategies/{id} [delete]
// @Success 200 {object} messageResponse
func (s *Server) deleteStrategy(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var strategy models.Strategy
	if err := models.FindByID(s.db, id, &strategy); err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Strategy not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	if !s.requireOwnership(c, strategy.CreatedBy) {
		return
	}

	if err := s.db.Delete(&strategy).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to delete strategy")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to delete strategy"})
		return
	}

	_ = s.store.Remove(strategy.FilePath)

	c.JSON(http.StatusOK, messageResponse{Message: "Strategy deleted successfully"})
}

// @Router /api/strategies/{id}/download [get]
// @Success 200 {object} downloadResponse
func (s *Server) downloadStrategy(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var strategy models.Strategy
	if err := models.FindByID(s.db, id, &strategy); err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Strategy not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, downloadResponse{
		FilePath: strategy.FilePath,
		FileName: filepath.Base(strategy.FilePath),
	})
}
