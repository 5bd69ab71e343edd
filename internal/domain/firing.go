package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/gonggit/spring-batch-quartz/batch"
)

// FiringEvent is emitted by the scheduler each time a trigger fires. The
// embedded request was materialized for this firing only and carries a key
// the execution engine has never seen.
type FiringEvent struct {
	FiringID    uuid.UUID
	TriggerName string

	Request batch.ExecutionRequest

	Durable          bool
	RequestsRecovery bool

	ScheduledAt time.Time // intended fire time (UTC)
	FiredAt     time.Time // actual emission time

	CreatedAt time.Time
}
