package poll

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/small-frappuccino/guildkit/pkg/discord/anchor"
	"github.com/small-frappuccino/guildkit/pkg/errors"
	"github.com/small-frappuccino/guildkit/pkg/storage"
)

// Due reports whether the poll has run for its full duration at now.
func (f Form) Due(now time.Time) (bool, error) {
	if f.Anchor == nil {
		return false, fmt.Errorf("poll of %s is not anchored", f.User)
	}
	sent, err := f.Anchor.CreatedAt()
	if err != nil {
		return false, err
	}
	deadline := sent.UnixMilli() + f.Content.Hours*int64(time.Hour/time.Millisecond)
	return now.UnixMilli() >= deadline, nil
}

// SweepResult summarizes one sweep.
type SweepResult struct {
	Closed int
	Pruned int
	Failed int
}

// Sweeper closes polls whose duration has elapsed.
type Sweeper struct {
	svc *Service
}

func NewSweeper(svc *Service) *Sweeper {
	return &Sweeper{svc: svc}
}

// staleEntry is an index entry to prune. A non-empty message limits the
// prune to a poll still published as that message.
type staleEntry struct {
	key     ActiveKey
	message string
}

// Sweep closes every due poll in the Active index and prunes entries whose
// poll or channel no longer resolves. A poll that fails to close for any
// other reason stays indexed and is retried on the next sweep.
func (sw *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	svc := sw.svc

	keys, err := svc.ActivePolls(ctx)
	if err != nil {
		return res, err
	}

	var stale []staleEntry
	now := svc.now()
	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		logger := svc.logger.WithFields(map[string]any{"guild": k.Guild, "user": k.User})

		f, err := storage.Read(ctx, svc.store, DraftReq(k.Guild, k.User))
		if stderrors.Is(err, storage.ErrNotFound) {
			stale = append(stale, staleEntry{key: k})
			continue
		}
		if err != nil {
			res.Failed++
			logger.WithError(err).Warn("Unable to read active poll")
			continue
		}
		due, err := f.Due(now)
		if err != nil {
			stale = append(stale, staleEntry{key: k})
			continue
		}
		if !due {
			continue
		}

		if _, err := svc.Close(ctx, k.Guild, k.User); err != nil {
			if anchor.IsGone(err) {
				stale = append(stale, staleEntry{key: k, message: f.Anchor.Message})
				logger.WithError(err).Warn("Expired poll channel is gone")
				continue
			}
			res.Failed++
			logger.WithError(err).Warn("Unable to close expired poll")
			continue
		}
		res.Closed++
	}

	if len(stale) > 0 {
		pruned, err := sw.prune(ctx, stale)
		res.Pruned = pruned
		if err != nil {
			return res, err
		}
		svc.logger.WithField("count", pruned).Info("Pruned stale active polls")
	}
	return res, nil
}

// prune drops index entries whose poll still does not resolve once its
// lock is held, so a poll published during the sweep is kept.
func (sw *Sweeper) prune(ctx context.Context, entries []staleEntry) (int, error) {
	pruned := 0
	for _, e := range entries {
		unlock := sw.svc.lockDraft(e.key.Guild, e.key.User, true)
		drop, err := sw.unresolved(ctx, e)
		if err == nil && drop {
			err = sw.svc.unindex(ctx, e.key)
			if err == nil {
				pruned++
			}
		}
		unlock()
		if err != nil {
			return pruned, err
		}
	}
	return pruned, nil
}

// unresolved expects the entry's lock to be held.
func (sw *Sweeper) unresolved(ctx context.Context, e staleEntry) (bool, error) {
	svc := sw.svc
	f, err := storage.Read(ctx, svc.store, DraftReq(e.key.Guild, e.key.User))
	if stderrors.Is(err, storage.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, errors.Store("read active poll", err)
	}
	if e.message == "" {
		_, derr := f.Due(svc.now())
		return derr != nil, nil
	}
	if f.Anchor == nil || f.Anchor.Message != e.message {
		return false, nil
	}
	_, err = f.Anchor.Resolve(svc.client)
	return anchor.IsGone(err), nil
}
