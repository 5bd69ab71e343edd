package domain

import (
	"time"

	"github.com/google/uuid"
)

type ExecutionStatus string

const (
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
)

// ExecutionRecord is the history row for one accepted execution request.
type ExecutionRecord struct {
	ID uuid.UUID

	TriggerName string
	JobName     string
	Key         string // canonical execution key

	ScheduledAt time.Time
	FiredAt     time.Time
	Status      ExecutionStatus

	RequestsRecovery bool

	CreatedAt time.Time
}
