package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Queue интерфейс очереди
type Queue interface {
	Publish(ctx context.Context, task *Task) error
	Subscribe(ctx context.Context, handler func(*Task) error) error
	Close() error
}

type TaskType string

const (
	TaskTypeSendNotification TaskType = "send_notification"
)

// Task represents a unit of work in the queue. Payload carries the
// JSON-encoded job body.
type Task struct {
	ID         string          `json:"id"`
	Type       TaskType        `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	ExecuteAt  time.Time       `json:"execute_at"`
	CreatedAt  time.Time       `json:"created_at"`
	Attempts   int             `json:"attempts"`
	MaxRetries int             `json:"max_retries"`
}

// NewTask marshals payload into a fresh task of the given type.
func NewTask(taskType TaskType, payload interface{}) (*Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task payload: %w", err)
	}
	return &Task{
		ID:        uuid.NewString(),
		Type:      taskType,
		Payload:   data,
		CreatedAt: time.Now(),
	}, nil
}

// Validate checks if the task is valid
func (t *Task) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("task ID is required")
	}
	if strings.TrimSpace(string(t.Type)) == "" {
		return fmt.Errorf("task type is required")
	}
	return nil
}

// Decode unmarshals the payload into v.
func (t *Task) Decode(v interface{}) error {
	if len(t.Payload) == 0 {
		return fmt.Errorf("task %s has empty payload", t.ID)
	}
	if err := json.Unmarshal(t.Payload, v); err != nil {
		return fmt.Errorf("invalid payload for task %s: %w", t.ID, err)
	}
	return nil
}
