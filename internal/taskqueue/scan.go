package taskqueue

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ironlake-data/catalog/internal/domain"
)

// rowQuerier is satisfied by dbresolver.DB and *sql.Tx alike.
type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scanTaskByID(ctx context.Context, q rowQuerier, id string) (*domain.Task, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, queue_name, idempotency_key, project_id, warehouse_id, entity_id, status,
		       attempt, scheduled_for, picked_up_at, heartbeat_at, parent_task_id, payload,
		       execution_details, cron_schedule, max_retries, created_at, updated_at
		FROM task WHERE id = $1`, id)

	t := &domain.Task{}

	var (
		queueName string
		status    string
	)

	if err := row.Scan(
		&t.ID, &queueName, &t.IdempotencyKey, &t.ProjectID, &t.WarehouseID, &t.EntityID, &status,
		&t.Attempt, &t.ScheduledFor, &t.PickedUpAt, &t.HeartbeatAt, &t.ParentTaskID, &t.Payload,
		&t.ExecutionDetails, &t.CronSchedule, &t.MaxRetries, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundError{EntityType: "Task", Message: "task not found"}
		}

		return nil, domain.BackendUnavailableError{Backend: "postgres", Message: "scan task", Err: err}
	}

	t.QueueName = domain.QueueName(queueName)
	t.Status = domain.TaskStatus(status)

	return t, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	return false
}
