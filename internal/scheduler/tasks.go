// Package scheduler runs integrity sweeps on a schedule through asynq, so a
// fleet of API instances can share one sweep queue.
package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskIntegritySweep = "integrity.sweep"

// IntegritySweepPayload parameterizes one sweep run.
type IntegritySweepPayload struct {
	RequestedBy string `json:"requestedBy,omitempty"`
}

func NewIntegritySweepTask(payload IntegritySweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIntegritySweep, data), nil
}

func ParseIntegritySweepPayload(task *asynq.Task) (IntegritySweepPayload, error) {
	var payload IntegritySweepPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return IntegritySweepPayload{}, err
	}
	return payload, nil
}
