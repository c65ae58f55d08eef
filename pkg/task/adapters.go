package task

import (
	"context"
	"time"

	"github.com/small-frappuccino/guildkit/pkg/discord/commands/poll"
	"github.com/small-frappuccino/guildkit/pkg/logging"
)

// TaskTypeSweepPolls closes polls whose duration has elapsed.
const TaskTypeSweepPolls = "poll.sweep"

// PollSweeper is satisfied by *poll.Sweeper.
type PollSweeper interface {
	Sweep(ctx context.Context) (poll.SweepResult, error)
}

// PollAdapters binds the poll sweep to the router.
type PollAdapters struct {
	Router  *TaskRouter
	Sweeper PollSweeper
	logger  *logging.Logger
}

func NewPollAdapters(router *TaskRouter, sweeper PollSweeper) *PollAdapters {
	ad := &PollAdapters{
		Router:  router,
		Sweeper: sweeper,
		logger:  logging.WithField("component", "poll_sweep"),
	}
	ad.RegisterHandlers()
	return ad
}

func (a *PollAdapters) RegisterHandlers() {
	a.Router.RegisterHandler(TaskTypeSweepPolls, a.handleSweep)
}

// sweepTask is keyed so a tick that lands while a sweep is still queued or
// running is dropped. A failed sweep waits for the next tick.
func sweepTask() Task {
	return Task{
		Type: TaskTypeSweepPolls,
		Options: TaskOptions{
			GroupKey:       TaskTypeSweepPolls,
			IdempotencyKey: TaskTypeSweepPolls,
		},
	}
}

// ScheduleSweep sweeps every interval until the returned cancel is called.
func (a *PollAdapters) ScheduleSweep(interval time.Duration) func() {
	return a.Router.ScheduleEvery(interval, sweepTask())
}

// EnqueueSweep requests an immediate sweep, for instance right after startup.
// It returns ErrDuplicateTask when a sweep is already pending.
func (a *PollAdapters) EnqueueSweep(ctx context.Context) error {
	return a.Router.Dispatch(ctx, sweepTask())
}

func (a *PollAdapters) handleSweep(ctx context.Context, _ any) error {
	res, err := a.Sweeper.Sweep(ctx)
	fields := map[string]any{"closed": res.Closed, "pruned": res.Pruned, "failed": res.Failed}
	if err != nil {
		a.logger.WithFields(fields).WithError(err).Warn("Poll sweep aborted")
		return err
	}
	if res != (poll.SweepResult{}) {
		a.logger.WithFields(fields).Info("Poll sweep finished")
	}
	return nil
}
