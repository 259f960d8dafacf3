package server

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/hpcc-hcmut/batsim-web-portal/internal/models"
	"github.com/hpcc-hcmut/batsim-web-portal/internal/storage"
)

// PlatformResponse enriches a platform with its creator's username
type PlatformResponse struct {
	models.Platform
	CreatorUsername string `json:"creator_username,omitempty"`
}

// UpdatePlatformRequest carries metadata-only updates
type UpdatePlatformRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (s *Server) platformResponse(p *models.Platform) PlatformResponse {
	return PlatformResponse{
		Platform:        *p,
		CreatorUsername: s.usernameByID(p.CreatedBy),
	}
}

// @Router /api/platforms [get]
// @Success 200 {array} PlatformResponse
func (s *Server) listPlatforms(c *gin.Context) {
	params := parseListParams(c)

	var platforms []models.Platform
	if err := s.db.Offset(params.Skip).Limit(params.Limit).Find(&platforms).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list platforms")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	out := make([]PlatformResponse, len(platforms))
	for i := range platforms {
		out[i] = s.platformResponse(&platforms[i])
	}

	c.JSON(http.StatusOK, out)
}

// @Router /api/platforms/{id} [get]
// @Success 200 {object} PlatformResponse
func (s *Server) getPlatform(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var platform models.Platform
	if err := models.FindByID(s.db, id, &platform); err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Platform not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, s.platformResponse(&platform))
}

// @Router /api/platforms [post]
// @Success 201 {object} models.Platform
func (s *Server) createPlatform(c *gin.Context) {
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
	if err := s.db.Model(&models.Platform{}).Where("name = ?", name).Count(&count).Error; err == nil && count > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Platform with this name already exists"})
		return
	}

	saved, err := s.store.SaveUpload(storage.KindPlatform, name, fileHeader)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to store platform file")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to store file"})
		return
	}

	platform := &models.Platform{
		Name:        name,
		Description: description,
		FileAsset: models.FileAsset{
			FilePath:  saved.Path,
			FileSize:  saved.Size,
			FileType:  saved.MIME,
			CreatedBy: sessionData.UserID,
		},
	}

	s.summarizePlatformFile(platform, saved.Path)

	if err := s.db.Create(platform).Error; err != nil {
		_ = s.store.Remove(saved.Path)
		s.logger.Error().Err(err).Msg("Failed to create platform")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to create platform"})
		return
	}

	s.logger.Info().Uint("platform_id", platform.ID).Str("name", platform.Name).Msg("Platform created")

	c.JSON(http.StatusCreated, platform)
}

// summarizePlatformFile extracts host and cluster counts from the uploaded
// XML topology; non-XML uploads are stored without a summary
func (s *Server) summarizePlatformFile(platform *models.Platform, path string) {
	data, err := s.store.ReadFile(path)
	if err != nil {
		return
	}

	doc := string(data)
	if !strings.Contains(doc, "<platform") {
		s.logger.Debug().Str("path", path).Msg("Platform file has no <platform> element, skipping summary")
		return
	}

	platform.PlatformConfig = doc
	platform.NbHosts = strings.Count(doc, "<host ")
	platform.NbClusters = strings.Count(doc, "<cluster ")
}

// @Router /api/platforms/{id} [put]
// @Success 200 {object} models.Platform
func (s *Server) updatePlatform(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var platform models.Platform
	if err := models.FindByID(s.db, id, &platform); err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Platform not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	if !s.requireOwnership(c, platform.CreatedBy) {
		return
	}

	var req UpdatePlatformRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	if req.Name != nil {
		platform.Name = *req.Name
	}
	if req.Description != nil {
		platform.Description = *req.Description
	}
	platform.Touch()

	if err := s.db.Save(&platform).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to update platform")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to update platform"})
		return
	}

	c.JSON(http.StatusOK, platform)
}

// @Router /api/platforms/{id}/file [put]
// @Success 200 {object} models.Platform
func (s *Server) replacePlatformFile(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var platform models.Platform
	if err := models.FindByID(s.db, id, &platform); err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Platform not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	if !s.requireOwnership(c, platform.CreatedBy) {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "file is required"})
		return
	}

	saved, err := s.store.SaveUpload(storage.KindPlatform, platform.Name, fileHeader)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to store platform file")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to store file"})
		return
	}

	oldPath := platform.FilePath
	platform.FilePath = saved.Path
	platform.FileSize = saved.Size
	platform.FileType = saved.MIME
	s.summarizePlatformFile(&platform, saved.Path)
	platform.Touch()

	if err := s.db.Save(&platform).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to update platform")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to update platform"})
		return
	}

	if oldPath != saved.Path {
		_ = s.store.Remove(oldPath)
	}

	c.JSON(http.StatusOK, platform)
}

// @Router /api/platforms/{id} [delete]
// @Success 200 {object} messageResponse
func (s *Server) deletePlatform(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var platform models.Platform
	if err := models.FindByID(s.db, id, &platform); err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Platform not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	if !s.requireOwnership(c, platform.CreatedBy) {
		return
	}

	if err := s.db.Delete(&platform).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to delete platform")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to delete platform"})
		return
	}

	_ = s.store.Remove(platform.FilePath)

	c.JSON(http.StatusOK, messageResponse{Message: "Platform deleted successfully"})
}

// @Router /api/platforms/{id}/download [get]
// @Success 200 {object} downloadResponse
func (s *Server) downloadPlatform(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var platform models.Platform
	if err := models.FindByID(s.db, id, &platform); err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Platform not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, downloadResponse{
		FilePath: platform.FilePath,
		FileName: filepath.Base(platform.FilePath),
	})
}
