// Package commentary derives ball-by-ball summaries from raw commentary
// snapshots. Extraction is a pure transformation with no side effects.
package commentary

import (
	"github.com/rgupta1997/fanverse-live/internal/domain"
)

// maxRecentBalls bounds the rolling history kept per match.
const maxRecentBalls = 5

const unknownName = "Unknown"

// ExtractLatestBall scans the snapshot's delivery list (newest-first, as
// delivered by the feed) for legal balls and reduces them to a digest. A
// snapshot with no legal balls yields an empty digest rather than an error.
func ExtractLatestBall(snap *domain.CommentarySnapshot) domain.CommentaryDigest {
	digest := domain.CommentaryDigest{
		RecentBalls: []domain.RecentBall{},
		Summary: domain.CommentarySummary{
			InningNumber: snap.Inning,
			LastUpdate:   snap.FetchedAt,
		},
	}

	deliveries, ok := snap.Data["commentary"].([]any)
	if !ok {
		return digest
	}

	for _, raw := range deliveries {
		entry, ok := raw.(map[string]any)
		if !ok || !isLegalBall(entry) {
			continue
		}

		digest.Summary.TotalBalls++

		if digest.Latest == nil {
			digest.Latest = normalize(entry, snap)
			digest.Summary.CurrentOver = digest.Latest.Over
			digest.Summary.CurrentBall = digest.Latest.Ball
		}

		if len(digest.RecentBalls) < maxRecentBalls {
			digest.RecentBalls = append(digest.RecentBalls, domain.RecentBall{
				Over:       intField(entry, "over"),
				Ball:       intField(entry, "ball"),
				Runs:       intField(entry, "runs"),
				IsWicket:   boolField(entry, "isWicket", "wicket"),
				Commentary: stringField(entry, "", "commentary", "text"),
			})
		}
	}

	return digest
}

// normalize enriches the most recent legal ball with the full event shape.
func normalize(entry map[string]any, snap *domain.CommentarySnapshot) *domain.BallEvent {
	return &domain.BallEvent{
		Over:        intField(entry, "over"),
		Ball:        intField(entry, "ball"),
		Runs:        intField(entry, "runs"),
		BatsmanRuns: intField(entry, "batsmanRuns", "batRuns"),
		Extras:      intField(entry, "extras"),
		IsWicket:    boolField(entry, "isWicket", "wicket"),
		Commentary:  stringField(entry, "", "commentary", "text"),
		Striker:     stringField(entry, unknownName, "striker", "batsman", "batter"),
		Bowler:      stringField(entry, unknownName, "bowler", "bowlerName"),
		Timestamp:   snap.FetchedAt,
	}
}

func isLegalBall(entry map[string]any) bool {
	return boolField(entry, "isBall", "legal")
}

func intField(entry map[string]any, keys ...string) int {
	for _, key := range keys {
		switch v := entry[key].(type) {
		case float64:
			return int(v)
		case int:
			return v
		}
	}
	return 0
}

func boolField(entry map[string]any, keys ...string) bool {
	for _, key := range keys {
		if v, ok := entry[key].(bool); ok {
			return v
		}
	}
	return false
}

func stringField(entry map[string]any, fallback string, keys ...string) string {
	for _, key := range keys {
		if v, ok := entry[key].(string); ok && v != "" {
			return v
		}
	}
	return fallback
}
