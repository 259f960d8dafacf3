package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hpcc-hcmut/batsim-web-portal/internal/models"
)

// listParams holds the pagination query parameters shared by list endpoints
type listParams struct {
	Skip  int
	Limit int
}

func parseListParams(c *gin.Context) listParams {
	skip, err := strconv.Atoi(c.DefaultQuery("skip", "0"))
	if err != nil || skip < 0 {
		skip = 0
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 || limit > 1000 {
		limit = 100
	}
	return listParams{Skip: skip, Limit: limit}
}

// parseIDParam parses the :id path parameter, responding 400 on failure
func parseIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid id"})
		return 0, false
	}
	return uint(id), true
}

// usernameByID resolves a creator username, returning "" when unknown
func (s *Server) usernameByID(id uint) string {
	if id == 0 {
		return ""
	}
	var user models.User
	if err := s.db.Select("username").Where("id = ?", id).First(&user).Error; err != nil {
		return ""
	}
	return user.Username
}

// requireOwnership rejects the request unless the session user created the
// entity or is an admin
func (s *Server) requireOwnership(c *gin.Context, createdBy uint) bool {
	sessionData, exists := GetSessionData(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Unauthorized"})
		return false
	}
	if createdBy != sessionData.UserID && !sessionData.IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"detail": "Not enough permissions"})
		return false
	}
	return true
}

// downloadResponse is the shape returned by the file download endpoints
type downloadResponse struct {
	FilePath string `json:"file_path"`
	FileName string `json:"file_name"`
}

// messageResponse is the shape returned by delete and lifecycle endpoints
type messageResponse struct {
	Message string `json:"message"`
}
