package models

import (
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// User roles
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Experiment statuses
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusPaused    = "paused"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// BaseModel provides common fields for all models
type BaseModel struct {
	ID        uint       `json:"id" gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt *time.Time `json:"updated_at,omitempty" gorm:"autoUpdateTime:false"`
}

// Touch sets the updated timestamp
func (b *BaseModel) Touch() {
	now := time.Now().UTC()
	b.UpdatedAt = &now
}

// User represents a portal user account
type User struct {
	BaseModel
	Username     string `json:"username" gorm:"unique;not null"`
	Email        string `json:"email" gorm:"unique;not null"`
	PasswordHash string `json:"-" gorm:"not null"`
	Role         string `json:"role" gorm:"not null;default:user"`
	IsActive     bool   `json:"is_active" gorm:"not null;default:true"`
}

// FileAsset holds fields shared by the uploaded-file entities
type FileAsset struct {
	FilePath  string `json:"file_path" gorm:"not null"`
	FileSize  int64  `json:"file_size,omitempty"`
	FileType  string `json:"file_type,omitempty"`
	CreatedBy uint   `json:"created_by,omitempty"`
}

// Workload represents an uploaded workload description (jobs + profiles JSON)
type Workload struct {
	BaseModel
	Name        string `json:"name" gorm:"unique;not null"`
	Description string `json:"description,omitempty"`
	FileAsset
	NbRes    int    `json:"nb_res,omitempty"`    // resource count declared by the workload
	Jobs     string `json:"jobs,omitempty"`      // JSON array of job definitions
	Profiles string `json:"profiles,omitempty"`  // JSON object of job profiles

	Creator *User `json:"-" gorm:"foreignKey:CreatedBy;references:ID;constraint:OnDelete:SET NULL"`
}

// Platform represents an uploaded platform topology description (XML)
type Platform struct {
	BaseModel
	Name        string `json:"name" gorm:"unique;not null"`
	Description string `json:"description,omitempty"`
	FileAsset
	NbHosts        int    `json:"nb_hosts,omitempty"`
	NbClusters     int    `json:"nb_clusters,omitempty"`
	PlatformConfig string `json:"platform_config,omitempty"` // raw XML document

	Creator *User `json:"-" gorm:"foreignKey:CreatedBy;references:ID;constraint:OnDelete:SET NULL"`
}

// Scenario pairs one workload with one platform
type Scenario struct {
	BaseModel
	Name        string `json:"name" gorm:"unique;not null"`
	Description string `json:"description,omitempty"`
	WorkloadID  uint   `json:"workload_id" gorm:"not null"`
	PlatformID  uint   `json:"platform_id" gorm:"not null"`
	CreatedBy   uint   `json:"created_by,omitempty"`

	Workload *Workload `json:"-" gorm:"foreignKey:WorkloadID;constraint:OnDelete:CASCADE"`
	Platform *Platform `json:"-" gorm:"foreignKey:PlatformID;constraint:OnDelete:CASCADE"`
	Creator  *User     `json:"-" gorm:"foreignKey:CreatedBy;references:ID;constraint:OnDelete:SET NULL"`
}

// Strategy represents an uploaded scheduling-policy script
type Strategy struct {
	BaseModel
	Name        string `json:"name" gorm:"unique;not null"`
	Description string `json:"description,omitempty"`
	FileAsset
	NbFiles       int    `json:"nb_files,omitempty"`
	MainEntry     string `json:"main_entry,omitempty"`     // entry-point file within the script bundle
	StrategyFiles string `json:"strategy_files,omitempty"` // JSON array of bundled file names

	Creator *User `json:"-" gorm:"foreignKey:CreatedBy;references:ID;constraint:OnDelete:SET NULL"`
}

// Experiment is one execution instance combining a scenario and a strategy
type Experiment struct {
	BaseModel
	Name        string `json:"name" gorm:"unique;not null"`
	Description string `json:"description,omitempty"`
	ScenarioID  uint   `json:"scenario_id" gorm:"not null"`
	StrategyID  uint   `json:"strategy_id" gorm:"not null"`
	Status      string `json:"status" gorm:"not null;default:pending"`

	// Simulation run identifiers (assigned by the worker when the run starts)
	SimRunID   string `json:"sim_run_id,omitempty" gorm:"type:varchar(26)"`
	SchedRunID string `json:"sched_run_id,omitempty" gorm:"type:varchar(26)"`

	// Timing
	StartTime         *time.Time `json:"start_time,omitempty"`
	EndTime           *time.Time `json:"end_time,omitempty"`
	EstimatedDuration int        `json:"estimated_duration,omitempty"` // seconds

	// Progress tracking
	TotalJobs          int `json:"total_jobs,omitempty"`
	CompletedJobs      int `json:"completed_jobs" gorm:"default:0"`
	ProgressPercentage int `json:"progress_percentage" gorm:"default:0"`

	// Configuration and execution details
	Config        string `json:"config,omitempty"`         // JSON blob submitted at creation
	SimulationDir string `json:"simulation_dir,omitempty"` // directory holding run artifacts
	RunLogs       string `json:"run_logs,omitempty"`

	CreatedBy uint `json:"created_by,omitempty"`

	Scenario *Scenario `json:"-" gorm:"foreignKey:ScenarioID;constraint:OnDelete:CASCADE"`
	Strategy *Strategy `json:"-" gorm:"foreignKey:StrategyID;constraint:OnDelete:CASCADE"`
	Creator  *User     `json:"-" gorm:"foreignKey:CreatedBy;references:ID;constraint:OnDelete:SET NULL"`
	Results  []Result  `json:"-" gorm:"foreignKey:ExperimentID"`
}

// IsTerminal reports whether the experiment has reached a final status
func (e *Experiment) IsTerminal() bool {
	switch e.Status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Result holds the metrics produced by a completed experiment
type Result struct {
	BaseModel
	ExperimentID uint `json:"experiment_id" gorm:"not null"`

	SimulationTime        float64 `json:"simulation_time,omitempty"`
	TotalJobs             int     `json:"total_jobs,omitempty"`
	CompletedJobs         int     `json:"completed_jobs,omitempty"`
	FailedJobs            int     `json:"failed_jobs" gorm:"default:0"`
	Makespan              float64 `json:"makespan,omitempty"`
	AverageWaitingTime    float64 `json:"average_waiting_time,omitempty"`
	AverageTurnaroundTime float64 `json:"average_turnaround_time,omitempty"`
	ResourceUtilization   float64 `json:"resource_utilization,omitempty"`

	Config          string `json:"config,omitempty"`
	Metrics         string `json:"metrics,omitempty"` // JSON blob of computed metrics
	Logs            string `json:"logs,omitempty"`
	ResultFilePath  string `json:"result_file_path,omitempty"`
	LogFilePath     string `json:"log_file_path,omitempty"`
	JobsData        string `json:"jobs_data,omitempty"`     // per-job CSV
	ScheduleData    string `json:"schedule_data,omitempty"` // schedule CSV
	ComputedMetrics string `json:"computed_metrics,omitempty"`

	Experiment *Experiment `json:"-" gorm:"foreignKey:ExperimentID;constraint:OnDelete:CASCADE"`
}

// ServerConfig is the persisted singleton server configuration
// (only one row should exist)
type ServerConfig struct {
	BaseModel
	JWTSecret string `json:"-" gorm:"type:varchar(64);not null"` // Auto-generated on first startup (64 hex chars)
}

// NewRunID generates a ULID used to identify a simulation run
func NewRunID() string {
	return ulid.Make().String()
}

// GenerateRunDirName generates a simulation directory name with UTC datetime format
// Returns: run_YYYYMMDDHHmmss (e.g., run_20251017143202)
func GenerateRunDirName() string {
	return fmt.Sprintf("run_%s", time.Now().UTC().Format("20060102150405"))
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	models := []interface{}{
		&User{}, &ServerConfig{}, &Workload{}, &Platform{},
		&Scenario{}, &Strategy{}, &Experiment{}, &Result{},
	}

	return db.AutoMigrate(models...)
}

// FindByID safely finds a record by numeric ID
func FindByID[T any](db *gorm.DB, id uint, model *T) error {
	return db.Where("id = ?", id).First(model).Error
}
