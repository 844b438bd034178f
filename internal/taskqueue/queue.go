// Package taskqueue implements a durable, at-least-once job queue embedded
// in the catalog's own postgres database, leased via
// `SELECT ... FOR UPDATE SKIP LOCKED`. It follows the same postgres
// repository idiom (database/sql with hand-written SQL) used elsewhere in this
// codebase rather than adding a message-broker dependency for background
// work.
package taskqueue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/ironlake-data/catalog/internal/domain"
	"github.com/ironlake-data/catalog/internal/platform/otelx"
	"github.com/ironlake-data/catalog/internal/platform/postgres"
)

// backoffBase and backoffCap set the exponential retry backoff schedule for
// failed tasks.
const (
	backoffBase = 125 * time.Millisecond
	backoffCap = 6 * time.Hour
)

// Queue is the postgres-backed durable task store.
type Queue struct {
	conn *postgres.Connection
}

func New(conn *postgres.Connection) *Queue {
	return &Queue{conn: conn}
}

// Enqueue upserts a task on (queue_name, idempotency_key): if a live task
// (scheduled or running) already occupies that slot, Enqueue returns
// ("", false, nil) rather than creating a duplicate.
func (q *Queue) Enqueue(ctx context.Context, queueName domain.QueueName, in domain.TaskInput) (id string, created bool, err error) {
	ctx, span := otelx.Start(ctx, "taskqueue.enqueue")
	defer span.End()

	db, err := q.conn.DB(ctx)
	if err != nil {
		otelx.RecordError(span, "get connection", err)
		return "", false, err
	}

	var existing string

	row := db.QueryRowContext(ctx, `
		SELECT id FROM task
		WHERE queue_name = $1 AND idempotency_key = $2 AND status IN ('scheduled', 'running')`,
		queueName, in.IdempotencyKey)

	switch err := row.Scan(&existing); {
	case err == nil:
		return "", false, nil
	case !errors.Is(err, sql.ErrNoRows):
		otelx.RecordError(span, "check existing task", err)
		return "", false, domain.BackendUnavailableError{Backend: "postgres", Message: "enqueue task", Err: err}
	}

	taskID := uuid.NewString()
	maxRetries := in.MaxRetries

	if maxRetries == 0 {
		maxRetries = 5
	}

	payload := in.Payload
	if payload == nil {
		payload = json.RawMessage("{}")
	}

	now := time.Now().UTC()

	_, err = db.ExecContext(ctx, `
		INSERT INTO task
			(id, queue_name, idempotency_key, project_id, warehouse_id, entity_id, status,
			 attempt, scheduled_for, parent_task_id, payload, execution_details, cron_schedule,
			 max_retries, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,'scheduled',0,$7,$8,$9,'{}',$10,$11,$12,$12)`,
		taskID, queueName, in.IdempotencyKey, in.ProjectID, in.WarehouseID, in.EntityID,
		in.ScheduledFor, in.ParentTaskID, payload, in.CronSchedule, maxRetries, now,
	)
	if err != nil {
		otelx.RecordError(span, "insert task", err)

		if isUniqueViolation(err) {
			// lost the race against a concurrent Enqueue for the same slot.
			return "", false, nil
		}

		return "", false, domain.BackendUnavailableError{Backend: "postgres", Message: "enqueue task", Err: err}
	}

	return taskID, true, nil
}

// Pick leases one pickable task for queueName: scheduled and due, or
// abandoned (running with a stale heartbeat). Returns (nil, false, nil)
// when nothing is pickable.
func (q *Queue) Pick(ctx context.Context, queueName domain.QueueName, maxSinceHeartbeat time.Duration) (*domain.Task, bool, error) {
	ctx, span := otelx.Start(ctx, "taskqueue.pick")
	defer span.End()

	db, err := q.conn.DB(ctx)
	if err != nil {
		otelx.RecordError(span, "get connection", err)
		return nil, false, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		otelx.RecordError(span, "begin pick transaction", err)
		return nil, false, domain.BackendUnavailableError{Backend: "postgres", Message: "pick task", Err: err}
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	staleBefore := now.Add(-maxSinceHeartbeat)

	row := tx.QueryRowContext(ctx, `
		SELECT id FROM task
		WHERE queue_name = $1
		 AND ((status = 'scheduled' AND scheduled_for <= $2)
		 OR (status = 'running' AND heartbeat_at < $3))
		ORDER BY scheduled_for
		LIMIT 1
		FOR UPDATE SKIP LOCKED`,
		queueName, now, staleBefore)

	var taskID string
	if err := row.Scan(&taskID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}

		otelx.RecordError(span, "select pickable task", err)

		return nil, false, domain.BackendUnavailableError{Backend: "postgres", Message: "pick task", Err: err}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE task SET status = 'running', heartbeat_at = $1, picked_up_at = $1,
		 attempt = attempt + 1, updated_at = $1
		WHERE id = $2`, now, taskID); err != nil {
		otelx.RecordError(span, "lease task", err)
		return nil, false, domain.BackendUnavailableError{Backend: "postgres", Message: "lease task", Err: err}
	}

	leased, err := scanTaskByID(ctx, tx, taskID)
	if err != nil {
		return nil, false, err
	}

	if err := tx.Commit(); err != nil {
		otelx.RecordError(span, "commit pick transaction", err)
		return nil, false, domain.BackendUnavailableError{Backend: "postgres", Message: "pick task", Err: err}
	}

	return leased, true, nil
}

// Get loads one task by id, for the management API's task-details
// endpoint.
func (q *Queue) Get(ctx context.Context, taskID string) (*domain.Task, error) {
	db, err := q.conn.DB(ctx)
	if err != nil {
		return nil, err
	}

	return scanTaskByID(ctx, db, taskID)
}

// List returns tasks in a project, optionally narrowed to one queue and/or
// one status, newest-scheduled first.
func (q *Queue) List(ctx context.Context, projectID string, queueName *domain.QueueName, status *domain.TaskStatus, page Page) ([]*domain.Task, error) {
	ctx, span := otelx.Start(ctx, "taskqueue.list")
	defer span.End()

	db, err := q.conn.DB(ctx)
	if err != nil {
		otelx.RecordError(span, "get connection", err)
		return nil, err
	}

	query := `
		SELECT id, queue_name, idempotency_key, project_id, warehouse_id, entity_id, status,
		 attempt, scheduled_for, picked_up_at, heartbeat_at, parent_task_id, payload,
		 execution_details, cron_schedule, max_retries, created_at, updated_at
		FROM task WHERE project_id = $1`
	args := []any{projectID}

	if queueName != nil {
		args = append(args, *queueName)
		query += fmt.Sprintf(" AND queue_name = $%d", len(args))
	}

	if status != nil {
		args = append(args, string(*status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}

	limit := page.Limit
	if limit <= 0 {
		limit = 50
	}

	args = append(args, limit, page.Offset)
	query += fmt.Sprintf(" ORDER BY scheduled_for DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		otelx.RecordError(span, "list tasks", err)
		return nil, domain.BackendUnavailableError{Backend: "postgres", Message: "list tasks", Err: err}
	}
	defer rows.Close()

	var out []*domain.Task

	for rows.Next() {
		t := &domain.Task{}

		var (
			qn string
			st string
		)

		if err := rows.Scan(
			&t.ID, &qn, &t.IdempotencyKey, &t.ProjectID, &t.WarehouseID, &t.EntityID, &st,
			&t.Attempt, &t.ScheduledFor, &t.PickedUpAt, &t.HeartbeatAt, &t.ParentTaskID, &t.Payload,
			&t.ExecutionDetails, &t.CronSchedule, &t.MaxRetries, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, domain.BackendUnavailableError{Backend: "postgres", Message: "scan task", Err: err}
		}

		t.QueueName = domain.QueueName(qn)
		t.Status = domain.TaskStatus(st)
		out = append(out, t)
	}

	return out, rows.Err()
}

// Page is the list cursor for task introspection, mirroring
// catalogstore.Page rather than importing it (taskqueue must not depend on
// catalogstore).
type Page struct {
	Limit int64
	Offset int64
}

// Heartbeat updates heartbeat_at and execution_details for a running task,
// reporting whether the worker should keep going or stop cooperatively.
func (q *Queue) Heartbeat(ctx context.Context, taskID string, executionDetails json.RawMessage) (domain.TaskCheckState, error) {
	ctx, span := otelx.Start(ctx, "taskqueue.heartbeat")
	defer span.End()

	db, err := q.conn.DB(ctx)
	if err != nil {
		otelx.RecordError(span, "get connection", err)
		return domain.TaskCheckStop, err
	}

	if executionDetails == nil {
		executionDetails = json.RawMessage("{}")
	}

	var status string

	row := db.QueryRowContext(ctx, `
		UPDATE task SET heartbeat_at = now(), execution_details = $1, updated_at = now()
		WHERE id = $2
		RETURNING status`, executionDetails, taskID)

	if err := row.Scan(&status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.TaskCheckStop, domain.NotFoundError{EntityType: "Task", Message: "task not found"}
		}

		otelx.RecordError(span, "heartbeat task", err)

		return domain.TaskCheckStop, domain.BackendUnavailableError{Backend: "postgres", Message: "heartbeat task", Err: err}
	}

	if domain.TaskStatus(status) == domain.TaskStopping {
		return domain.TaskCheckStop, nil
	}

	return domain.TaskCheckContinue, nil
}

// RecordSuccess transitions a task to success, appends a TaskLog row, and —
// if the task has a cron_schedule — enqueues its successor.
func (q *Queue) RecordSuccess(ctx context.Context, t *domain.Task, message string) error {
	if err := q.finish(ctx, t, domain.TaskSuccess, domain.TaskLogSuccess, message); err != nil {
		return err
	}

	if t.CronSchedule == nil {
		return nil
	}

	next, err := nextFireTime(*t.CronSchedule, time.Now().UTC())
	if err != nil {
		return domain.ValidationError{Message: fmt.Sprintf("invalid cron schedule %q", *t.CronSchedule), Err: err}
	}

	_, _, err = q.Enqueue(ctx, t.QueueName, domain.TaskInput{
		ProjectID: t.ProjectID,
		WarehouseID: t.WarehouseID,
		EntityID: t.EntityID,
		IdempotencyKey: t.IdempotencyKey,
		ScheduledFor: next,
		Payload: t.Payload,
		CronSchedule: t.CronSchedule,
		MaxRetries: t.MaxRetries,
	})

	return err
}

// RecordFailure transitions the failed attempt to failed and, while attempts
// remain (Attempt < MaxRetries), schedules a retry row that carries the
// attempt count forward, delayed by exponential backoff.
func (q *Queue) RecordFailure(ctx context.Context, t *domain.Task, message string) error {
	if err := q.finish(ctx, t, domain.TaskFailed, domain.TaskLogFailure, message); err != nil {
		return err
	}

	if t.Attempt >= t.MaxRetries {
		return nil
	}

	delay := backoff(t.Attempt)

	id, created, err := q.Enqueue(ctx, t.QueueName, domain.TaskInput{
		ProjectID: t.ProjectID,
		WarehouseID: t.WarehouseID,
		EntityID: t.EntityID,
		IdempotencyKey: t.IdempotencyKey,
		ScheduledFor: time.Now().UTC().Add(delay),
		Payload: t.Payload,
		CronSchedule: t.CronSchedule,
		MaxRetries: t.MaxRetries,
		ParentTaskID: &t.ID,
	})
	if err != nil || !created {
		return err
	}

	db, err := q.conn.DB(ctx)
	if err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, `UPDATE task SET attempt = $1 WHERE id = $2`, t.Attempt, id); err != nil {
		return domain.BackendUnavailableError{Backend: "postgres", Message: "carry task attempt", Err: err}
	}

	return nil
}

func (q *Queue) finish(ctx context.Context, t *domain.Task, status domain.TaskStatus, outcome domain.TaskLogOutcome, message string) error {
	ctx, span := otelx.Start(ctx, "taskqueue.finish")
	defer span.End()

	db, err := q.conn.DB(ctx)
	if err != nil {
		otelx.RecordError(span, "get connection", err)
		return err
	}

	now := time.Now().UTC()

	if _, err := db.ExecContext(ctx, `UPDATE task SET status = $1, updated_at = $2 WHERE id = $3`, status, now, t.ID); err != nil {
		otelx.RecordError(span, "finish task", err)
		return domain.BackendUnavailableError{Backend: "postgres", Message: "finish task", Err: err}
	}

	startedAt := now
	if t.PickedUpAt != nil {
		startedAt = *t.PickedUpAt
	}

	if _, err := db.ExecContext(ctx, `
		INSERT INTO task_log (task_id, attempt, started_at, finished_at, outcome, message)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		t.ID, t.Attempt, startedAt, now, outcome, message,
	); err != nil {
		otelx.RecordError(span, "insert task log", err)
		return domain.BackendUnavailableError{Backend: "postgres", Message: "record task log", Err: err}
	}

	return nil
}

// Cancel sets every scheduled task matching the filter to cancelled, and
// optionally transitions running tasks to stopping.
func (q *Queue) Cancel(ctx context.Context, queueName domain.QueueName, idempotencyKey string, includeRunning bool) error {
	ctx, span := otelx.Start(ctx, "taskqueue.cancel")
	defer span.End()

	db, err := q.conn.DB(ctx)
	if err != nil {
		otelx.RecordError(span, "get connection", err)
		return err
	}

	if _, err := db.ExecContext(ctx, `
		UPDATE task SET status = 'cancelled', updated_at = now()
		WHERE queue_name = $1 AND idempotency_key = $2 AND status = 'scheduled'`,
		queueName, idempotencyKey); err != nil {
		otelx.RecordError(span, "cancel scheduled tasks", err)
		return domain.BackendUnavailableError{Backend: "postgres", Message: "cancel task", Err: err}
	}

	if !includeRunning {
		return nil
	}

	return q.Stop(ctx, queueName, idempotencyKey)
}

// Stop transitions running tasks matching the filter to stopping; workers
// observe this the next time they heartbeat.
func (q *Queue) Stop(ctx context.Context, queueName domain.QueueName, idempotencyKey string) error {
	ctx, span := otelx.Start(ctx, "taskqueue.stop")
	defer span.End()

	db, err := q.conn.DB(ctx)
	if err != nil {
		otelx.RecordError(span, "get connection", err)
		return err
	}

	if _, err := db.ExecContext(ctx, `
		UPDATE task SET status = 'stopping', updated_at = now()
		WHERE queue_name = $1 AND idempotency_key = $2 AND status = 'running'`,
		queueName, idempotencyKey); err != nil {
		otelx.RecordError(span, "stop running tasks", err)
		return domain.BackendUnavailableError{Backend: "postgres", Message: "stop task", Err: err}
	}

	return nil
}

// CleanupLogs deletes TaskLog rows for terminal tasks older than retention.
func (q *Queue) CleanupLogs(ctx context.Context, olderThan time.Duration) (int64, error) {
	ctx, span := otelx.Start(ctx, "taskqueue.cleanup_logs")
	defer span.End()

	db, err := q.conn.DB(ctx)
	if err != nil {
		otelx.RecordError(span, "get connection", err)
		return 0, err
	}

	cutoff := time.Now().UTC().Add(-olderThan)

	res, err := db.ExecContext(ctx, `
		DELETE FROM task_log
		WHERE finished_at < $1
		 AND task_id IN (SELECT id FROM task WHERE status IN ('success', 'failed', 'cancelled'))`,
		cutoff)
	if err != nil {
		otelx.RecordError(span, "cleanup task logs", err)
		return 0, domain.BackendUnavailableError{Backend: "postgres", Message: "cleanup task logs", Err: err}
	}

	return res.RowsAffected()
}

func backoff(attempt int) time.Duration {
	d := time.Duration(float64(backoffBase) * math.Pow(2, float64(attempt)))
	if d > backoffCap {
		return backoffCap
	}

	return d
}

func nextFireTime(schedule string, after time.Time) (time.Time, error) {
	sched, err := cron.ParseStandard(schedule)
	if err != nil {
		return time.Time{}, err
	}

	return sched.Next(after), nil
}
