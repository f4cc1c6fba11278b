package tasks

import (
	"encoding/json"
	"time"

	"zapagenda/models"

	"github.com/hibiken/asynq"
)

const TypeHoldExpiry = "hold:expire"

// NewHoldExpiryTask schedules the check that abandons an unpaid hold.
func NewHoldExpiryTask(payload models.HoldExpiryPayload, delay time.Duration) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeHoldExpiry, b)
	opts := []asynq.Option{asynq.ProcessIn(delay)}

	return task, opts, nil
}
