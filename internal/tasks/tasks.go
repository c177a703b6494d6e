package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	TypePruneRecent   = "recent:prune"
	TypePurgeSessions = "sessions:purge"
)

// Queue names, weighted by the worker
const (
	QueueDefault = "default"
	QueueLow     = "low"
)

// PruneRecentPayload identifies the recently-used list to trim
type PruneRecentPayload struct {
	UserID string `json:"user_id"`
	Type   string `json:"type"`
	Keep   int    `json:"keep"`
}

// NewPruneRecentTask creates a task trimming a user's recently-used list of one type.
// Identical prune tasks are deduplicated for a minute.
func NewPruneRecentTask(userID, kind string, keep int) (*asynq.Task, error) {
	payload, err := json.Marshal(PruneRecentPayload{
		UserID: userID,
		Type:   kind,
		Keep:   keep,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypePruneRecent, payload,
		asynq.Queue(QueueLow),
		asynq.Unique(time.Minute),
		asynq.MaxRetry(3),
	), nil
}

// NewPurgeSessionsTask creates a task deleting expired refresh tokens
func NewPurgeSessionsTask() *asynq.Task {
	return asynq.NewTask(TypePurgeSessions, nil,
		asynq.Queue(QueueDefault),
		asynq.Unique(5*time.Minute),
	)
}

// ParsePruneRecentPayload parses the payload of a prune task
func ParsePruneRecentPayload(task *asynq.Task) (PruneRecentPayload, error) {
	var payload PruneRecentPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	if payload.UserID == "" || payload.Type == "" {
		return payload, fmt.Errorf("prune payload requires user_id and type")
	}
	return payload, nil
}
