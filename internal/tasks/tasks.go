package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	// Experiment lifecycle tasks
	TypeExperimentRun = "experiment:run"

	// Result retention sweep
	TypeResultRetention = "result:retention"
)

// ExperimentPayload is the payload for experiment tasks
type ExperimentPayload struct {
	ExperimentID uint `json:"experiment_id"`
}

// NewExperimentRunTask creates a task to execute an experiment's simulation run
func NewExperimentRunTask(experimentID uint) (*asynq.Task, error) {
	payload, err := json.Marshal(ExperimentPayload{
		ExperimentID: experimentID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeExperimentRun, payload), nil
}

// NewResultRetentionTask creates a task to prune results past the retention window
func NewResultRetentionTask() *asynq.Task {
	return asynq.NewTask(TypeResultRetention, nil)
}

// ParseExperimentPayload parses an experiment payload from an Asynq task
func ParseExperimentPayload(task *asynq.Task) (ExperimentPayload, error) {
	var payload ExperimentPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return payload, nil
}
