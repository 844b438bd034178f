package taskqueue

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/ironlake-data/catalog/internal/domain"
	"github.com/ironlake-data/catalog/internal/platform/applog"
)

// Handler executes one task attempt. It should heartbeat periodically via
// the supplied Heartbeater for long-running work and respect
// domain.TaskCheckStop.
type Handler func(ctx context.Context, task *domain.Task, hb Heartbeater) error

// Heartbeater lets a Handler report progress and learn whether it has been
// asked to stop.
type Heartbeater interface {
	Heartbeat(ctx context.Context, details json.RawMessage) (domain.TaskCheckState, error)
}

type taskHeartbeater struct {
	queue *Queue
	taskID string
}

func (h *taskHeartbeater) Heartbeat(ctx context.Context, details json.RawMessage) (domain.TaskCheckState, error) {
	return h.queue.Heartbeat(ctx, h.taskID, details)
}

// Registry maps queue_name to the handler that processes it.
type Registry struct {
	mu sync.RWMutex
	handlers map[domain.QueueName]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[domain.QueueName]Handler)}
}

func (r *Registry) Register(name domain.QueueName, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[name] = h
}

func (r *Registry) lookup(name domain.QueueName) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[name]

	return h, ok
}

// WorkerPool runs one independent polling loop per queue passed to Run.
type WorkerPool struct {
	queue *Queue
	registry *Registry
	log applog.Logger
	pollInterval time.Duration
	heartbeatTimeout time.Duration
	wg sync.WaitGroup
}

func NewWorkerPool(queue *Queue, registry *Registry, log applog.Logger, pollInterval, heartbeatTimeout time.Duration) *WorkerPool {
	return &WorkerPool{
		queue: queue,
		registry: registry,
		log: log,
		pollInterval: pollInterval,
		heartbeatTimeout: heartbeatTimeout,
	}
}

// Run starts a polling goroutine per entry of queues and blocks
// until ctx is cancelled, then waits (up to drainDeadline) for in-flight
// tasks to finish before returning.
func (p *WorkerPool) Run(ctx context.Context, queues []domain.QueueName, drainDeadline time.Duration) {
	for _, q := range queues {
		p.wg.Add(1)

		go p.pollLoop(ctx, q)
	}

	<-ctx.Done()

	done := make(chan struct{})

	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(drainDeadline):
		p.log.Warn("task worker pool drain deadline exceeded, returning with work in flight")
	}
}

func (p *WorkerPool) pollLoop(ctx context.Context, queueName domain.QueueName) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pollOnce(ctx, queueName)
		}
	}
}

func (p *WorkerPool) pollOnce(ctx context.Context, queueName domain.QueueName) {
	handler, ok := p.registry.lookup(queueName)
	if !ok {
		return
	}

	task, found, err := p.queue.Pick(ctx, queueName, p.heartbeatTimeout)
	if err != nil {
		p.log.Errorf("pick failed for queue %s: %v", queueName, err)
		return
	}

	if !found {
		return
	}

	hb := &taskHeartbeater{queue: p.queue, taskID: task.ID}

	if err := handler(ctx, task, hb); err != nil {
		p.log.Warnf("task %s (queue %s, attempt %d) failed: %v", task.ID, queueName, task.Attempt, err)

		if recErr := p.queue.RecordFailure(ctx, task, err.Error()); recErr != nil {
			p.log.Errorf("failed to record task failure for %s: %v", task.ID, recErr)
		}

		return
	}

	if recErr := p.queue.RecordSuccess(ctx, task, "completed"); recErr != nil {
		p.log.Errorf("failed to record task success for %s: %v", task.ID, recErr)
	}
}
