package server

import (
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/hpcc-hcmut/batsim-web-portal/internal/models"
)

// ResultResponse enriches a result with its experiment context
type ResultResponse struct {
	models.Result
	ExperimentName string `json:"experiment_name,omitempty"`
	ScenarioName   string `json:"scenario_name,omitempty"`
	StrategyName   string `json:"strategy_name,omitempty"`
}

// AnalyticsEntry is one bucket in a grouped analytics series
type AnalyticsEntry struct {
	Name  string `json:"name,omitempty"`
	Date  string `json:"date,omitempty"`
	Count int    `json:"count"`
}

// AnalyticsResponse aggregates metrics across results
type AnalyticsResponse struct {
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

func (s *Server) resultResponse(r *models.Result) ResultResponse {
	resp := ResultResponse{Result: *r}

	var experiment models.Experiment
	if err := models.FindByID(s.db, r.ExperimentID, &experiment); err != nil {
		return resp
	}
	resp.ExperimentName = experiment.Name

	var scenario models.Scenario
	if err := s.db.Select("name").Where("id = ?", experiment.ScenarioID).First(&scenario).Error; err == nil {
		resp.ScenarioName = scenario.Name
	}
	var strategy models.Strategy
	if err := s.db.Select("name").Where("id = ?", experiment.StrategyID).First(&strategy).Error; err == nil {
		resp.StrategyName = strategy.Name
	}

	return resp
}

// @Router /api/results [get]
// @Success 200 {array} ResultResponse
func (s *Server) listResults(c *gin.Context) {
	params := parseListParams(c)

	var results []models.Result
	if err := s.db.Order("created_at DESC").Offset(params.Skip).Limit(params.Limit).Find(&results).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list results")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	out := make([]ResultResponse, len(results))
	for i := range results {
		out[i] = s.resultResponse(&results[i])
	}

	c.JSON(http.StatusOK, out)
}

// @Router /api/results/{id} [get]
// @Success 200 {object} ResultResponse
func (s *Server) getResult(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var result models.Result
	if err := models.FindByID(s.db, id, &result); err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Result not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, s.resultResponse(&result))
}

// @Router /api/results/experiment/{id} [get]
// @Success 200 {array} ResultResponse
func (s *Server) getResultsByExperiment(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var results []models.Result
	if err := s.db.Where("experiment_id = ?", id).Order("created_at DESC").Find(&results).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list results for experiment")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	out := make([]ResultResponse, len(results))
	for i := range results {
		out[i] = s.resultResponse(&results[i])
	}

	c.JSON(http.StatusOK, out)
}

// @Router /api/results/{id} [delete]
// @Success 200 {object} messageResponse
func (s *Server) deleteResult(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var result models.Result
	if err := models.FindByID(s.db, id, &result); err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Result not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	if err := s.db.Delete(&result).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to delete result")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to delete result"})
		return
	}

	_ = s.store.Remove(result.ResultFilePath)
	_ = s.store.Remove(result.LogFilePath)

	c.JSON(http.StatusOK, messageResponse{Message: "Result deleted successfully"})
}

// @Router /api/results/analytics [get]
// @Param start_date query string false "Start date (YYYY-MM-DD)"
// @Param end_date query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} AnalyticsResponse
func (s *Server) getResultAnalytics(c *gin.Context) {
	query := s.db.Model(&models.Result{})

	if startDate := c.Query("start_date"); startDate != "" {
		start, err := time.Parse("2006-01-02", startDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid start_date format"})
			return
		}
		query = query.Where("created_at >= ?", start)
	}

	if endDate := c.Query("end_date"); endDate != "" {
		end, err := time.Parse("2006-01-02", endDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid end_date format"})
			return
		}
		// End date is inclusive
		query = query.Where("created_at < ?", end.AddDate(0, 0, 1))
	}

	var results []models.Result
	if err := query.Find(&results).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to query results for analytics")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, s.computeAnalytics(results))
}

func (s *Server) computeAnalytics(results []models.Result) AnalyticsResponse {
	resp := AnalyticsResponse{
		ResultsByDate: []AnalyticsEntry{},
		TopStrategies: []AnalyticsEntry{},
		TopScenarios:  []AnalyticsEntry{},
	}
	if len(results) == 0 {
		return resp
	}

	resp.TotalResults = len(results)

	experiments := map[uint]struct{}{}
	var makespanSum, makespanN float64
	var waitingSum, waitingN float64
	var turnaroundSum, turnaroundN float64
	var utilizationSum, utilizationN float64
	byDate := map[string]int{}
	byStrategy := map[string]int{}
	byScenario := map[string]int{}

	for i := range results {
		r := &results[i]
		experiments[r.ExperimentID] = struct{}{}

		// Averages exclude zero (absent) metric values
		if r.Makespan > 0 {
			makespanSum += r.Makespan
			makespanN++
		}
		if r.AverageWaitingTime > 0 {
			waitingSum += r.AverageWaitingTime
			waitingN++
		}
		if r.AverageTurnaroundTime > 0 {
			turnaroundSum += r.AverageTurnaroundTime
			turnaroundN++
		}
		if r.ResourceUtilization > 0 {
			utilizationSum += r.ResourceUtilization
			utilizationN++
		}

		resp.TotalJobs += r.TotalJobs
		resp.CompletedJobs += r.CompletedJobs
		resp.FailedJobs += r.FailedJobs

		byDate[r.CreatedAt.UTC().Format("2006-01-02")]++

		enriched := s.resultResponse(r)
		if enriched.StrategyName != "" {
			byStrategy[enriched.StrategyName]++
		}
		if enriched.ScenarioName != "" {
			byScenario[enriched.ScenarioName]++
		}
	}

	resp.TotalExperiments = len(experiments)
	if makespanN > 0 {
		resp.AvgMakespan = round2(makespanSum / makespanN)
	}
	if waitingN > 0 {
		resp.AvgWaitingTime = round2(waitingSum / waitingN)
	}
	if turnaroundN > 0 {
		resp.AvgTurnaroundTime = round2(turnaroundSum / turnaroundN)
	}
	if utilizationN > 0 {
		resp.AvgResourceUtilization = round2(utilizationSum / utilizationN)
	}
	if resp.TotalJobs > 0 {
		resp.SuccessRate = round2(float64(resp.CompletedJobs) / float64(resp.TotalJobs) * 100)
	}

	resp.ResultsByDate = sortedDateEntries(byDate)
	resp.TopStrategies = topEntries(byStrategy, 5)
	resp.TopScenarios = topEntries(byScenario, 5)

	return resp
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

func sortedDateEntries(counts map[string]int) []AnalyticsEntry {
	entries := make([]AnalyticsEntry, 0, len(counts))
	for date, count := range counts {
		entries = append(entries, AnalyticsEntry{Date: date, Count: count})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Date < entries[j].Date })
	return entries
}

func topEntries(counts map[string]int, n int) []AnalyticsEntry {
	entries := make([]AnalyticsEntry, 0, len(counts))
	for name, count := range counts {
		entries = append(entries, AnalyticsEntry{Name: name, Count: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Name < entries[j].Name
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}
