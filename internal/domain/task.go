package domain

import (
	"encoding/json"
	"time"
)

// TaskStatus is the lifecycle state of a queued unit of work.
type TaskStatus string

const (
	TaskScheduled TaskStatus = "scheduled"
	TaskRunning TaskStatus = "running"
	TaskStopping TaskStatus = "stopping"
	TaskCancelled TaskStatus = "cancelled"
	TaskSuccess TaskStatus = "success"
	TaskFailed TaskStatus = "failed"
)

// IsTerminal reports whether a task in this status will never transition
// again.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskSuccess || s == TaskFailed || s == TaskCancelled
}

// IsLive reports whether a task in this status has not reached a terminal
// state. The (queue_name, idempotency_key) uniqueness index covers only
// scheduled and running tasks, so a stopping task does not hold that slot.
// Warehouse deletion does not check for live tasks.
func (s TaskStatus) IsLive() bool {
	return s == TaskScheduled || s == TaskRunning || s == TaskStopping
}

// QueueName identifies a registered task handler.
type QueueName string

const (
	QueueTabularExpiration QueueName = "tabular_expiration"
	QueueTabularPurge QueueName = "tabular_purge"
	QueueStats QueueName = "stats"
	QueueTaskLogCleanup QueueName = "task_log_cleanup"
)

// Task is a durable unit of deferred work.
type Task struct {
	ID string
	QueueName QueueName
	IdempotencyKey string
	ProjectID string
	WarehouseID *string
	EntityID *string
	Status TaskStatus
	Attempt int
	ScheduledFor time.Time
	PickedUpAt *time.Time
	HeartbeatAt *time.Time
	ParentTaskID *string
	Payload json.RawMessage
	ExecutionDetails json.RawMessage
	CronSchedule *string
	MaxRetries int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TaskInput is the caller-supplied half of Enqueue.
type TaskInput struct {
	ProjectID string
	WarehouseID *string
	EntityID *string
	IdempotencyKey string
	ScheduledFor time.Time
	Payload json.RawMessage
	CronSchedule *string
	MaxRetries int
	ParentTaskID *string
}

// TaskCheckState is the cooperative cancellation signal returned from
// Heartbeat.
type TaskCheckState string

const (
	TaskCheckContinue TaskCheckState = "continue"
	TaskCheckStop TaskCheckState = "stop"
)

// TaskLogOutcome records how a terminal attempt ended.
type TaskLogOutcome string

const (
	TaskLogSuccess TaskLogOutcome = "success"
	TaskLogFailure TaskLogOutcome = "failure"
)

// TaskLog is an append-only record of one task attempt.
type TaskLog struct {
	TaskID string
	Attempt int
	StartedAt time.Time
	FinishedAt time.Time
	Outcome TaskLogOutcome
	Message string
}
