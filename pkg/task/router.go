package task

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/small-frappuccino/guildkit/pkg/logging"
)

// TaskHandler processes the payload of one task.
type TaskHandler func(ctx context.Context, payload any) error

// TaskOptions controls how a task is queued.
type TaskOptions struct {
	// GroupKey serializes tasks that share it. Tasks without one share a
	// global group.
	GroupKey string

	// IdempotencyKey keeps a second task with the same key out of the queue
	// while the first one is queued or running.
	IdempotencyKey string
}

// Task is a unit of work for the router.
type Task struct {
	Type    string
	Payload any
	Options TaskOptions
}

// RouterConfig tunes the router loops.
type RouterConfig struct {
	// GroupBuffer is the queue length of each group.
	GroupBuffer int

	// GroupIdleTTL stops the worker of a group that has been empty this long.
	GroupIdleTTL time.Duration

	// CleanupInterval is how often idle groups are looked for.
	CleanupInterval time.Duration

	// CronResolution is how often scheduled jobs are checked. A job may
	// start up to one resolution late.
	CronResolution time.Duration
}

// Defaults returns the configuration the bot runs with.
func Defaults() RouterConfig {
	return RouterConfig{
		GroupBuffer:     16,
		GroupIdleTTL:    10 * time.Minute,
		CleanupInterval: 5 * time.Minute,
		CronResolution:  time.Second,
	}
}

var (
	ErrRouterClosed    = errors.New("task router is closed")
	ErrUnknownTaskType = errors.New("unknown task type")
	ErrDuplicateTask   = errors.New("task with the same idempotency key is pending")
	ErrQueueFull       = errors.New("task queue is full")
)

const globalGroup = "_global"

// TaskRouter runs tasks in the background, one at a time per group.
// Handlers receive a context that Close cancels. A failed task is logged and
// dropped; periodic jobs simply run again on their next tick.
type TaskRouter struct {
	mu       sync.Mutex
	handlers map[string]TaskHandler
	groups   map[string]*groupWorker
	pending  map[string]struct{}
	closed   bool

	cfg    RouterConfig
	logger *logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	cronMu   sync.Mutex
	cronJobs map[*cronJob]struct{}
}

type groupWorker struct {
	key    string
	ch     chan Task
	queued int // queued or running tasks, guarded by TaskRouter.mu
	idle   time.Time
}

type cronJob struct {
	interval time.Duration
	task     Task
	next     time.Time
}

// NewRouter starts a router. Zero fields of cfg take their Defaults value.
func NewRouter(cfg RouterConfig) *TaskRouter {
	def := Defaults()
	if cfg.GroupBuffer <= 0 {
		cfg.GroupBuffer = def.GroupBuffer
	}
	if cfg.GroupIdleTTL <= 0 {
		cfg.GroupIdleTTL = def.GroupIdleTTL
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}
	if cfg.CronResolution <= 0 {
		cfg.CronResolution = def.CronResolution
	}

	tr := &TaskRouter{
		handlers: make(map[string]TaskHandler),
		groups:   make(map[string]*groupWorker),
		pending:  make(map[string]struct{}),
		cfg:      cfg,
		logger:   logging.WithField("component", "task_router"),
		cronJobs: make(map[*cronJob]struct{}),
	}
	tr.ctx, tr.cancel = context.WithCancel(context.Background())

	tr.wg.Add(1)
	go tr.backgroundLoop()
	return tr
}

// RegisterHandler binds taskType to handler, replacing any earlier binding.
func (tr *TaskRouter) RegisterHandler(taskType string, handler TaskHandler) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.handlers[taskType] = handler
}

// Dispatch queues t on its group without blocking. It fails with
// ErrDuplicateTask while a task with the same idempotency key is pending.
func (tr *TaskRouter) Dispatch(ctx context.Context, t Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tr.mu.Lock()
	defer tr.mu.Unlock()

	if tr.closed {
		return ErrRouterClosed
	}
	if tr.handlers[t.Type] == nil {
		return ErrUnknownTaskType
	}
	key := t.Options.IdempotencyKey
	if key != "" {
		if _, ok := tr.pending[key]; ok {
			return ErrDuplicateTask
		}
	}

	gw := tr.groupLocked(t.Options.GroupKey)
	select {
	case gw.ch <- t:
	default:
		return ErrQueueFull
	}
	gw.queued++
	if key != "" {
		tr.pending[key] = struct{}{}
	}
	return nil
}

// ScheduleEvery dispatches t every interval, starting one interval from now.
// The returned func stops the schedule.
func (tr *TaskRouter) ScheduleEvery(interval time.Duration, t Task) func() {
	job := &cronJob{interval: interval, task: t, next: time.Now().Add(interval)}
	tr.cronMu.Lock()
	tr.cronJobs[job] = struct{}{}
	tr.cronMu.Unlock()

	return func() {
		tr.cronMu.Lock()
		delete(tr.cronJobs, job)
		tr.cronMu.Unlock()
	}
}

// Close stops the router and waits for its goroutines. Running handlers see
// their context cancelled and queued tasks are dropped. Close is idempotent.
func (tr *TaskRouter) Close() {
	tr.mu.Lock()
	if tr.closed {
		tr.mu.Unlock()
		return
	}
	tr.closed = true
	for key, gw := range tr.groups {
		close(gw.ch)
		delete(tr.groups, key)
	}
	tr.mu.Unlock()

	tr.cancel()
	tr.wg.Wait()
}

// groupLocked returns the worker of key, starting one if needed.
func (tr *TaskRouter) groupLocked(key string) *groupWorker {
	if key == "" {
		key = globalGroup
	}
	if gw, ok := tr.groups[key]; ok {
		return gw
	}
	gw := &groupWorker{key: key, ch: make(chan Task, tr.cfg.GroupBuffer), idle: time.Now()}
	tr.groups[key] = gw
	tr.wg.Add(1)
	go tr.groupLoop(gw)
	return gw
}

func (tr *TaskRouter) groupLoop(gw *groupWorker) {
	defer tr.wg.Done()

	for t := range gw.ch {
		if tr.ctx.Err() != nil {
			tr.finish(gw, t)
			continue
		}
		tr.mu.Lock()
		handler := tr.handlers[t.Type]
		tr.mu.Unlock()

		if err := handler(tr.ctx, t.Payload); err != nil {
			tr.logger.WithFields(map[string]any{"type": t.Type, "group": gw.key}).WithError(err).Warn("Task failed")
		}

		tr.finish(gw, t)
	}
}

func (tr *TaskRouter) finish(gw *groupWorker, t Task) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if t.Options.IdempotencyKey != "" {
		delete(tr.pending, t.Options.IdempotencyKey)
	}
	gw.queued--
	gw.idle = time.Now()
}

func (tr *TaskRouter) backgroundLoop() {
	defer tr.wg.Done()
	cleanup := time.NewTicker(tr.cfg.CleanupInterval)
	defer cleanup.Stop()
	cron := time.NewTicker(tr.cfg.CronResolution)
	defer cron.Stop()
	for {
		select {
		case <-tr.ctx.Done():
			return
		case now := <-cleanup.C:
			tr.stopIdleGroups(now)
		case now := <-cron.C:
			tr.runDueJobs(now)
		}
	}
}

// stopIdleGroups closes the queue of every group that has had nothing queued
// or running for GroupIdleTTL. A later Dispatch starts a fresh worker.
func (tr *TaskRouter) stopIdleGroups(now time.Time) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	for key, gw := range tr.groups {
		if gw.queued == 0 && now.Sub(gw.idle) >= tr.cfg.GroupIdleTTL {
			close(gw.ch)
			delete(tr.groups, key)
		}
	}
}

func (tr *TaskRouter) runDueJobs(now time.Time) {
	tr.cronMu.Lock()
	defer tr.cronMu.Unlock()
	for job := range tr.cronJobs {
		if now.Before(job.next) {
			continue
		}
		job.next = now.Add(job.interval)
		err := tr.Dispatch(tr.ctx, job.task)
		switch {
		case err == nil, errors.Is(err, ErrDuplicateTask):
		default:
			tr.logger.WithField("type", job.task.Type).WithError(err).Warn("Scheduled task not dispatched")
		}
	}
}
