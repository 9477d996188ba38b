package commentary

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgupta1997/fanverse-live/internal/domain"
)

func snapshotWith(deliveries []any) *domain.CommentarySnapshot {
	return &domain.CommentarySnapshot{
		MatchID:   "m1",
		Inning:    2,
		FetchedAt: time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC),
		Data:      map[string]any{"commentary": deliveries},
	}
}

func ball(over, ballNum, runs int, extra map[string]any) map[string]any {
	entry := map[string]any{
		"isBall": true,
		"over":   float64(over),
		"ball":   float64(ballNum),
		"runs":   float64(runs),
	}
	for k, v := range extra {
		entry[k] = v
	}
	return entry
}

func TestExtractLatestBall_EmptySnapshot(t *testing.T) {
	digest := ExtractLatestBall(snapshotWith([]any{}))

	assert.Nil(t, digest.Latest)
	assert.Empty(t, digest.RecentBalls)
	assert.Zero(t, digest.Summary.TotalBalls)
	assert.Equal(t, 2, digest.Summary.InningNumber)
}

func TestExtractLatestBall_MissingCommentaryKey(t *testing.T) {
	snap := &domain.CommentarySnapshot{MatchID: "m1", Inning: 1, Data: map[string]any{}}
	digest := ExtractLatestBall(snap)

	assert.Nil(t, digest.Latest)
	assert.NotNil(t, digest.RecentBalls)
}

func TestExtractLatestBall_SkipsNonLegalDeliveries(t *testing.T) {
	digest := ExtractLatestBall(snapshotWith([]any{
		map[string]any{"isBall": false, "commentary": "wide outside off"},
		"not even a map",
		ball(12, 4, 6, map[string]any{"striker": "V Kohli", "bowler": "M Starc", "commentary": "slog sweep for six"}),
		ball(12, 3, 0, nil),
	}))

	require.NotNil(t, digest.Latest)
	assert.Equal(t, 12, digest.Latest.Over)
	assert.Equal(t, 4, digest.Latest.Ball)
	assert.Equal(t, 6, digest.Latest.Runs)
	assert.Equal(t, "V Kohli", digest.Latest.Striker)
	assert.Equal(t, "M Starc", digest.Latest.Bowler)
	assert.Equal(t, "slog sweep for six", digest.Latest.Commentary)

	assert.Equal(t, 2, digest.Summary.TotalBalls)
	assert.Equal(t, 12, digest.Summary.CurrentOver)
	assert.Equal(t, 4, digest.Summary.CurrentBall)
	require.Len(t, digest.RecentBalls, 2)
	// newest first, as delivered by the feed
	assert.Equal(t, 4, digest.RecentBalls[0].Ball)
	assert.Equal(t, 3, digest.RecentBalls[1].Ball)
}

func TestExtractLatestBall_RecentBallsCapped(t *testing.T) {
	var deliveries []any
	for i := 8; i > 0; i-- {
		deliveries = append(deliveries, ball(3, i, 1, nil))
	}

	digest := ExtractLatestBall(snapshotWith(deliveries))

	assert.Equal(t, 8, digest.Summary.TotalBalls)
	require.Len(t, digest.RecentBalls, 5)
	assert.Equal(t, 8, digest.RecentBalls[0].Ball)
	assert.Equal(t, 4, digest.RecentBalls[4].Ball)
}

func TestExtractLatestBall_NameFallbacks(t *testing.T) {
	digest := ExtractLatestBall(snapshotWith([]any{
		ball(1, 1, 0, map[string]any{"batsman": "S Gill", "bowlerName": "T Boult"}),
	}))

	require.NotNil(t, digest.Latest)
	assert.Equal(t, "S Gill", digest.Latest.Striker)
	assert.Equal(t, "T Boult", digest.Latest.Bowler)
}

func TestExtractLatestBall_UnknownNamesAndTextField(t *testing.T) {
	digest := ExtractLatestBall(snapshotWith([]any{
		ball(1, 2, 1, map[string]any{"text": "pushed to mid-on"}),
	}))

	require.NotNil(t, digest.Latest)
	assert.Equal(t, "Unknown", digest.Latest.Striker)
	assert.Equal(t, "Unknown", digest.Latest.Bowler)
	assert.Equal(t, "pushed to mid-on", digest.Latest.Commentary)
}

func TestExtractLatestBall_WicketAndLegacyKeys(t *testing.T) {
	digest := ExtractLatestBall(snapshotWith([]any{
		map[string]any{
			"legal":      true,
			"over":       float64(19),
			"ball":       float64(6),
			"runs":       float64(0),
			"wicket":     true,
			"commentary": "bowled him!",
		},
	}))

	require.NotNil(t, digest.Latest)
	assert.True(t, digest.Latest.IsWicket)
	assert.Equal(t, 19, digest.Latest.Over)
	require.Len(t, digest.RecentBalls, 1)
	assert.True(t, digest.RecentBalls[0].IsWicket)
}
