package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rgupta1997/fanverse-live/internal/commentary"
	"github.com/rgupta1997/fanverse-live/internal/domain"
	"github.com/rgupta1997/fanverse-live/internal/metrics"
	"github.com/rgupta1997/fanverse-live/internal/platform/correlation"
)

// handleMainTick runs on the loop for scheduled ticks and force polls. The
// fetch itself happens off-loop; ticks are deliberately not serialized
// against each other (a slow cycle may overlap the next one).
func (e *Engine) handleMainTick(c mainTickCmd) {
	if _, exists := e.matches[c.matchID]; !exists {
		if c.reply != nil {
			c.reply <- domain.ErrUnknownMatch
		}
		return
	}
	e.spawnMainFetch(c.matchID, c.reply)
}

func (e *Engine) handleCommentaryTick(c commentaryTickCmd) {
	entry, exists := e.matches[c.matchID]
	if !exists {
		if c.reply != nil {
			c.reply <- domain.ErrUnknownMatch
		}
		return
	}

	inning := c.inning
	if inning < 1 {
		inning = entry.currentInning()
	}
	e.spawnCommentaryFetch(c.matchID, inning, c.reply)
}

// spawnMainFetch runs one fetch-and-persist cycle in its own goroutine and
// feeds the outcome back into the loop.
func (e *Engine) spawnMainFetch(matchID string, reply chan error) {
	ctx := correlation.WithID(context.Background(), correlation.NewID())

	go func() {
		start := e.clock.Now()
		snap, err := e.fetchAndPersistMain(ctx, matchID)
		metrics.PollDuration.WithLabelValues("main").Observe(e.clock.Since(start).Seconds())

		_ = e.enqueue(mainFetchDoneCmd{
			ctx:     ctx,
			matchID: matchID,
			snap:    snap,
			err:     err,
			reply:   reply,
		})
	}()
}

func (e *Engine) spawnCommentaryFetch(matchID string, inning int, reply chan error) {
	ctx := correlation.WithID(context.Background(), correlation.NewID())

	go func() {
		start := e.clock.Now()
		snap, err := e.fetchAndPersistCommentary(ctx, matchID, inning)
		metrics.PollDuration.WithLabelValues("commentary").Observe(e.clock.Since(start).Seconds())

		_ = e.enqueue(commentaryFetchDoneCmd{
			ctx:     ctx,
			matchID: matchID,
			inning:  inning,
			snap:    snap,
			err:     err,
			reply:   reply,
		})
	}()
}

// fetchAndPersistMain performs the outbound request and durably stores the
// result. Any failure is recorded as an error snapshot and returned wrapped
// in ErrFetchFailed; it never propagates past the engine.
func (e *Engine) fetchAndPersistMain(ctx context.Context, matchID string) (*domain.MatchSnapshot, error) {
	data, sourceURL, err := e.feed.FetchMatch(ctx, matchID)
	fetchedAt := e.clock.Now()

	if err != nil {
		metrics.PollsTotal.WithLabelValues("main", "failure").Inc()
		e.recordFetchError(ctx, &domain.FetchErrorRecord{
			MatchID:   matchID,
			Error:     err.Error(),
			FetchedAt: fetchedAt,
			SourceURL: sourceURL,
		}, false)
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}

	snap := &domain.MatchSnapshot{
		MatchID:   matchID,
		FetchedAt: fetchedAt,
		SourceURL: sourceURL,
		Data:      data,
	}
	if err := e.store.WriteMain(snap); err != nil {
		// broadcast must never reference data that failed to persist
		metrics.SnapshotWriteErrors.Inc()
		metrics.PollsTotal.WithLabelValues("main", "failure").Inc()
		slog.ErrorContext(ctx, "Failed to persist main snapshot", "match_id", matchID, "error", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}

	metrics.PollsTotal.WithLabelValues("main", "success").Inc()
	return snap, nil
}

func (e *Engine) fetchAndPersistCommentary(ctx context.Context, matchID string, inning int) (*domain.CommentarySnapshot, error) {
	data, sourceURL, err := e.feed.FetchCommentary(ctx, matchID, inning)
	fetchedAt := e.clock.Now()

	if err != nil {
		metrics.PollsTotal.WithLabelValues("commentary", "failure").Inc()
		e.recordFetchError(ctx, &domain.FetchErrorRecord{
			MatchID:   matchID,
			Inning:    inning,
			Error:     err.Error(),
			FetchedAt: fetchedAt,
			SourceURL: sourceURL,
		}, true)
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}

	snap := &domain.CommentarySnapshot{
		MatchID:   matchID,
		Inning:    inning,
		FetchedAt: fetchedAt,
		SourceURL: sourceURL,
		Data:      data,
	}
	if err := e.store.WriteCommentary(snap); err != nil {
		metrics.SnapshotWriteErrors.Inc()
		metrics.PollsTotal.WithLabelValues("commentary", "failure").Inc()
		slog.ErrorContext(ctx, "Failed to persist commentary snapshot", "match_id", matchID, "inning", inning, "error", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}

	metrics.PollsTotal.WithLabelValues("commentary", "success").Inc()
	return snap, nil
}

func (e *Engine) recordFetchError(ctx context.Context, rec *domain.FetchErrorRecord, isCommentary bool) {
	var err error
	if isCommentary {
		err = e.store.WriteCommentaryError(rec)
	} else {
		err = e.store.WriteMainError(rec)
	}
	if err != nil {
		metrics.SnapshotWriteErrors.Inc()
		slog.WarnContext(ctx, "Failed to write fetch error record", "match_id", rec.MatchID, "error", err)
	}
}

// handleMainFetchDone applies a completed main cycle: update timestamps,
// broadcast, answer a waiting force poll. A completion for a match removed
// mid-flight is discarded rather than reviving the entry.
func (e *Engine) handleMainFetchDone(c mainFetchDoneCmd) {
	entry, exists := e.matches[c.matchID]
	if !exists {
		slog.DebugContext(c.ctx, "Discarding fetch result for removed match", "match_id", c.matchID)
		if c.reply != nil {
			c.reply <- domain.ErrUnknownMatch
		}
		return
	}

	if c.err != nil {
		// the timer stays armed; the next tick retries independently
		slog.WarnContext(c.ctx, "Main poll cycle failed", "match_id", c.matchID, "error", c.err)
		if c.reply != nil {
			c.reply <- c.err
		}
		return
	}

	entry.lastUpdate = c.snap.FetchedAt
	entry.lastMain = c.snap
	e.broadcastMainUpdate(c.ctx, entry, c.snap)

	if c.reply != nil {
		c.reply <- nil
	}
}

func (e *Engine) handleCommentaryFetchDone(c commentaryFetchDoneCmd) {
	entry, exists := e.matches[c.matchID]
	if !exists {
		slog.DebugContext(c.ctx, "Discarding commentary result for removed match", "match_id", c.matchID)
		if c.reply != nil {
			c.reply <- domain.ErrUnknownMatch
		}
		return
	}

	if c.err != nil {
		slog.WarnContext(c.ctx, "Commentary poll cycle failed", "match_id", c.matchID, "inning", c.inning, "error", c.err)
		if c.reply != nil {
			c.reply <- c.err
		}
		return
	}

	digest := commentary.ExtractLatestBall(c.snap)
	entry.commentary.digest = &digest
	e.broadcastCommentaryUpdate(c.ctx, entry, c.snap, digest)

	if c.reply != nil {
		c.reply <- nil
	}
}
