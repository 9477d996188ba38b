package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/rgupta1997/fanverse-live/internal/domain"
	"github.com/rgupta1997/fanverse-live/internal/metrics"
)

// Wire payload shapes. Every message carries a type tag so clients can
// demultiplex without inspecting the body.
type matchUpdatePayload struct {
	Type        string                `json:"type"`
	LastUpdated time.Time             `json:"lastUpdated"`
	Snapshot    *domain.MatchSnapshot `json:"snapshot"`
}

type statusUpdatePayload struct {
	Type        string    `json:"type"`
	LastUpdated time.Time `json:"lastUpdated"`
	Status      string    `json:"status"`
}

type commentaryInfoPayload struct {
	Type          string    `json:"type"`
	LastUpdated   time.Time `json:"lastUpdated"`
	CurrentInning int       `json:"currentInning"`
	Status        string    `json:"status"`
}

type commentaryUpdatePayload struct {
	Type        string                     `json:"type"`
	Snapshot    *domain.CommentarySnapshot `json:"snapshot"`
	Latest      *domain.BallEvent          `json:"latest,omitempty"`
	RecentBalls []domain.RecentBall        `json:"recentBalls"`
	Summary     domain.CommentarySummary   `json:"summary"`
}

type ballUpdatePayload struct {
	Type       string `json:"type"`
	Over       int    `json:"over"`
	Ball       int    `json:"ball"`
	Runs       int    `json:"runs"`
	Commentary string `json:"commentary"`
}

const (
	typeMatchUpdate      = "match_update"
	typeStatusUpdate     = "status_update"
	typeCommentaryInfo   = "commentary_info"
	typeCommentaryUpdate = "commentary_update"
	typeBallUpdate       = "ball_update"
)

// broadcastMainUpdate fans a fresh main snapshot out to every viewer on the
// match, selecting the payload shape by role. It runs on the loop strictly
// after the snapshot write completed.
func (e *Engine) broadcastMainUpdate(ctx context.Context, entry *matchEntry, snap *domain.MatchSnapshot) {
	full := matchUpdatePayload{
		Type:        typeMatchUpdate,
		LastUpdated: snap.FetchedAt,
		Snapshot:    snap,
	}
	reduced := statusUpdatePayload{
		Type:        typeStatusUpdate,
		LastUpdated: snap.FetchedAt,
		Status:      matchStatusText(snap),
	}
	info := commentaryInfoPayload{
		Type:          typeCommentaryInfo,
		LastUpdated:   snap.FetchedAt,
		CurrentInning: entry.currentInning(),
		Status:        matchStatusText(snap),
	}

	var slow []string
	for connectionID, v := range entry.viewers {
		var payload any
		var payloadType string

		switch v.Role {
		case domain.RoleMatchData:
			payload, payloadType = full, typeMatchUpdate
		case domain.RoleGeneric, domain.RoleChat:
			payload, payloadType = reduced, typeStatusUpdate
		case domain.RoleCommentary:
			payload, payloadType = info, typeCommentaryInfo
		default:
			// unrecognized role: full snapshot is the safe default
			payload, payloadType = full, typeMatchUpdate
		}

		if v.sender.TrySend(payload) {
			metrics.BroadcastMessagesTotal.WithLabelValues(payloadType).Inc()
		} else {
			slow = append(slow, connectionID)
		}
	}
	e.evictSlow(ctx, entry, slow)

	e.mirror(ctx, entry.id, full)
}

// broadcastCommentaryUpdate sends the composite commentary payload to
// commentary viewers and a lighter ball indicator to generic/chat viewers.
func (e *Engine) broadcastCommentaryUpdate(ctx context.Context, entry *matchEntry, snap *domain.CommentarySnapshot, digest domain.CommentaryDigest) {
	composite := commentaryUpdatePayload{
		Type:        typeCommentaryUpdate,
		Snapshot:    snap,
		Latest:      digest.Latest,
		RecentBalls: digest.RecentBalls,
		Summary:     digest.Summary,
	}

	var ball *ballUpdatePayload
	if digest.Latest != nil {
		ball = &ballUpdatePayload{
			Type:       typeBallUpdate,
			Over:       digest.Latest.Over,
			Ball:       digest.Latest.Ball,
			Runs:       digest.Latest.Runs,
			Commentary: digest.Latest.Commentary,
		}
	}

	var slow []string
	for connectionID, v := range entry.viewers {
		switch v.Role {
		case domain.RoleCommentary:
			if v.sender.TrySend(composite) {
				metrics.BroadcastMessagesTotal.WithLabelValues(typeCommentaryUpdate).Inc()
			} else {
				slow = append(slow, connectionID)
			}
		case domain.RoleGeneric, domain.RoleChat:
			if ball == nil {
				continue
			}
			if v.sender.TrySend(*ball) {
				metrics.BroadcastMessagesTotal.WithLabelValues(typeBallUpdate).Inc()
			} else {
				slow = append(slow, connectionID)
			}
		case domain.RoleMatchData:
			// match-data viewers follow main cycles only
		}
	}
	e.evictSlow(ctx, entry, slow)

	e.mirror(ctx, entry.id, composite)
}

// evictSlow drops viewers whose send buffer was full. Eviction follows the
// same lifecycle path as a voluntary leave.
func (e *Engine) evictSlow(ctx context.Context, entry *matchEntry, connectionIDs []string) {
	for _, connectionID := range connectionIDs {
		slog.WarnContext(ctx, "Evicting slow viewer", "match_id", entry.id, "connection_id", connectionID)
		e.removeViewer(entry, connectionID, true)
	}
}

// mirror publishes the payload for external consumers, off-loop and
// best-effort.
func (e *Engine) mirror(ctx context.Context, matchID string, payload any) {
	go func() {
		if err := e.events.PublishMatchUpdate(ctx, matchID, payload); err != nil {
			metrics.EventPublishErrors.Inc()
			slog.WarnContext(ctx, "Failed to mirror match update", "match_id", matchID, "error", err)
		}
	}()
}

// matchStatusText pulls the human-readable match status out of a snapshot.
func matchStatusText(snap *domain.MatchSnapshot) string {
	for _, key := range []string{"matchStatus", "status"} {
		if s, ok := snap.Data[key].(string); ok && s != "" {
			return s
		}
	}
	return "Unknown"
}
