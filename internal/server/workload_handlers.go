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

// WorkloadResponse enriches a workload with its creator's username
type WorkloadResponse struct {
	models.Workload
	CreatorUsername string `json:"creator_username,omitempty"`
}

// UpdateWorkloadRequest carries metadata-only updates
type UpdateWorkloadRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// workloadFileSummary is the subset of a workload JSON document the portal
// extracts at upload time
type workloadFileSummary struct {
	NbRes    int             `json:"nb_res"`
	Jobs     json.RawMessage `json:"jobs"`
	Profiles json.RawMessage `json:"profiles"`
}

func (s *Server) workloadResponse(w *models.Workload) WorkloadResponse {
	return WorkloadResponse{
		Workload:        *w,
		CreatorUsername: s.usernameByID(w.CreatedBy),
	}
}

// @Router /api/workloads [get]
// @Success 200 {array} WorkloadResponse
func (s *Server) listWorkloads(c *gin.Context) {
	params := parseListParams(c)

	var workloads []models.Workload
	if err := s.db.Offset(params.Skip).Limit(params.Limit).Find(&workloads).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list workloads")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	out := make([]WorkloadResponse, len(workloads))
	for i := range workloads {
		out[i] = s.workloadResponse(&workloads[i])
	}

	c.JSON(http.StatusOK, out)
}

// @Router /api/workloads/{id} [get]
// @Success 200 {object} WorkloadResponse
func (s *Server) getWorkload(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var workload models.Workload
	if err := models.FindByID(s.db, id, &workload); err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Workload not found"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to find workload")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, s.workloadResponse(&workload))
}

// @Router /api/workloads [post]
// @Success 201 {object} models.Workload
func (s *Server) createWorkload(c *gin.Context) {
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
	if err := s.db.Model(&models.Workload{}).Where("name = ?", name).Count(&count).Error; err == nil && count > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Workload with this name already exists"})
		return
	}

	saved, err := s.store.SaveUpload(storage.KindWorkload, name, fileHeader)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to store workload file")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to store file"})
		return
	}

	workload := &models.Workload{
		Name:        name,
		Description: description,
		FileAsset: models.FileAsset{
			FilePath:  saved.Path,
			FileSize:  saved.Size,
			FileType:  saved.MIME,
			CreatedBy: sessionData.UserID,
		},
	}

	s.summarizeWorkloadFile(workload, saved.Path)

	if err := s.db.Create(workload).Error; err != nil {
		_ = s.store.Remove(saved.Path)
		s.logger.Error().Err(err).Msg("Failed to create workload")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to create workload"})
		return
	}

	s.logger.Info().Uint("workload_id", workload.ID).Str("name", workload.Name).Msg("Workload created")

	c.JSON(http.StatusCreated, workload)
}

// summarizeWorkloadFile extracts nb_res, jobs and profiles from the uploaded
// JSON document; malformed documents are stored as-is without a summary
func (s *Server) summarizeWorkloadFile(workload *models.Workload, path string) {
	data, err := s.store.ReadFile(path)
	if err != nil {
		return
	}

	var summary workloadFileSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		s.logger.Debug().Str("path", path).Msg("Workload file is not parseable JSON, skipping summary")
		return
	}

	workload.NbRes = summary.NbRes
	workload.Jobs = string(summary.Jobs)
	workload.Profiles = string(summary.Profiles)
}

// @Router /api/workloads/{id} [put]
// @Success 200 {object} models.Workload
func (s *Server) updateWorkload(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var workload models.Workload
	if err := models.FindByID(s.db, id, &workload); err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Workload not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	if !s.requireOwnership(c, workload.CreatedBy) {
		return
	}

	var req UpdateWorkloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	if req.Name != nil {
		workload.Name = *req.Name
	}
	if req.Description != nil {
		workload.Description = *req.Description
	}
	workload.Touch()

	if err := s.db.Save(&workload).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to update workload")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to update workload"})
		return
	}

	c.JSON(http.StatusOK, workload)
}

// @Router /api/workloads/{id}/file [put]
// @Success 200 {object} models.Workload
func (s *Server) replaceWorkloadFile(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var workload models.Workload
	if err := models.FindByID(s.db, id, &workload); err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Workload not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	if !s.requireOwnership(c, workload.CreatedBy) {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "file is required"})
		return
	}

	saved, err := s.store.SaveUpload(storage.KindWorkload, workload.Name, fileHeader)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to store workload file")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to store file"})
		return
	}

	oldPath := workload.FilePath
	workload.FilePath = saved.Path
	workload.FileSize = saved.Size
	workload.FileType = saved.MIME
	s.summarizeWorkloadFile(&workload, saved.Path)
	workload.Touch()

	if err := s.db.Save(&workload).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to update workload")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to update workload"})
		return
	}

	if oldPath != saved.Path {
		_ = s.store.Remove(oldPath)
	}

	c.JSON(http.StatusOK, workload)
}

// @Router /api/workloads/{id} [delete]
// @Success 200 {object} messageResponse
func (s *Server) deleteWorkload(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var workload models.Workload
	if err := models.FindByID(s.db, id, &workload); err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Workload not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	if !s.requireOwnership(c, workload.CreatedBy) {
		return
	}

	if err := s.db.Delete(&workload).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to delete workload")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to delete workload"})
		return
	}

	_ = s.store.Remove(workload.FilePath)

	c.JSON(http.StatusOK, messageResponse{Message: "Workload deleted successfully"})
}

// @Router /api/workloads/{id}/download [get]
// @Success 200 {object} downloadResponse
func (s *Server) downloadWorkload(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var workload models.Workload
	if err := models.FindByID(s.db, id, &workload); err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Workload not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, downloadResponse{
		FilePath: workload.FilePath,
		FileName: filepath.Base(workload.FilePath),
	})
}
