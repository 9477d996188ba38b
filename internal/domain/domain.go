package domain

import (
	"context"
	"time"
)

// --- Model types ---

// Viewer is one connected consumer subscribed to a match.
type Viewer struct {
	ConnectionID string    `json:"connectionId"`
	DisplayName  string    `json:"displayName"`
	Role         Role      `json:"role"`
	JoinedAt     time.Time `json:"joinedAt"`
}

// MatchSnapshot is an immutable, timestamped copy of main feed data for one
// match. It is superseded by the next poll, never mutated in place.
type MatchSnapshot struct {
	MatchID   string         `json:"matchId"`
	FetchedAt time.Time      `json:"fetchedAt"`
	SourceURL string         `json:"sourceUrl"`
	Data      map[string]any `json:"data"`
}

// CommentarySnapshot is the commentary counterpart, keyed by match and inning.
type CommentarySnapshot struct {
	MatchID   string         `json:"matchId"`
	Inning    int            `json:"inning"`
	FetchedAt time.Time      `json:"fetchedAt"`
	SourceURL string         `json:"sourceUrl"`
	Data      map[string]any `json:"data"`
}

// FetchErrorRecord is written next to the snapshot a failed fetch would have
// produced, for diagnostics. Inning is zero for main-data fetches.
type FetchErrorRecord struct {
	MatchID   string    `json:"matchId"`
	Inning    int       `json:"inning,omitempty"`
	Error     string    `json:"error"`
	FetchedAt time.Time `json:"fetchedAt"`
	SourceURL string    `json:"sourceUrl"`
}

// BallEvent is the normalized shape of one legal delivery.
type BallEvent struct {
	Over        int       `json:"over"`
	Ball        int       `json:"ball"`
	Runs        int       `json:"runs"`
	BatsmanRuns int       `json:"batsmanRuns"`
	Extras      int       `json:"extras"`
	IsWicket    bool      `json:"isWicket"`
	Commentary  string    `json:"commentary"`
	Striker     string    `json:"striker"`
	Bowler      string    `json:"bowler"`
	Timestamp   time.Time `json:"timestamp"`
}

// RecentBall is the reduced per-delivery shape kept in the rolling history.
type RecentBall struct {
	Over       int    `json:"over"`
	Ball       int    `json:"ball"`
	Runs       int    `json:"runs"`
	IsWicket   bool   `json:"isWicket"`
	Commentary string `json:"commentary"`
}

// CommentarySummary aggregates counters over one commentary snapshot.
type CommentarySummary struct {
	TotalBalls   int       `json:"totalBalls"`
	LastUpdate   time.Time `json:"lastUpdate"`
	CurrentOver  int       `json:"currentOver"`
	CurrentBall  int       `json:"currentBall"`
	InningNumber int       `json:"inningNumber"`
}

// CommentaryDigest is the full extraction result cached per match for
// broadcast and point-in-time queries. Latest is nil when the snapshot
// contained no legal ball.
type CommentaryDigest struct {
	Latest      *BallEvent        `json:"latest,omitempty"`
	RecentBalls []RecentBall      `json:"recentBalls"`
	Summary     CommentarySummary `json:"summary"`
}

// MatchStatus is the read-only operational summary of one registry entry.
// LastUpdate stays the zero time until the match's first successful fetch and
// is always serialized, so callers can tell "never polled" from "stale".
type MatchStatus struct {
	MatchID           string       `json:"matchId"`
	Viewers           int          `json:"viewers"`
	RoleCounts        map[Role]int `json:"roleCounts"`
	MainPolling       bool         `json:"mainPolling"`
	CommentaryPolling bool         `json:"commentaryPolling"`
	LastUpdate        time.Time    `json:"lastUpdate"`
	CurrentInning     int          `json:"currentInning"`
	TotalBalls        int          `json:"totalBalls"`
}

// --- Capability interfaces ---

// FeedClient performs outbound fetches against the upstream live-score feed.
// Implementations return the parsed payload and the exact URL requested.
type FeedClient interface {
	FetchMatch(ctx context.Context, matchID string) (map[string]any, string, error)
	FetchCommentary(ctx context.Context, matchID string, inning int) (map[string]any, string, error)
}

// SnapshotStore persists snapshots and fetch-error records durably. Each key
// holds at most one snapshot; writes overwrite the previous one.
type SnapshotStore interface {
	WriteMain(snap *MatchSnapshot) error
	WriteMainError(rec *FetchErrorRecord) error
	WriteCommentary(snap *CommentarySnapshot) error
	WriteCommentaryError(rec *FetchErrorRecord) error
	ReadMain(matchID string) (*MatchSnapshot, error)
}

// Sender delivers one payload to one viewer connection. TrySend is
// non-blocking and reports false when the connection cannot keep up; the
// engine treats that as a disconnect. The concrete transport decides what
// "gone" means.
type Sender interface {
	TrySend(payload any) bool
	Close()
}

// EventPublisher mirrors broadcast payloads to interested external consumers
// (other FanVerse services). Publishing is best-effort.
type EventPublisher interface {
	PublishMatchUpdate(ctx context.Context, matchID string, payload any) error
}

// Engine is the contract the connection layer programs against.
type Engine interface {
	Join(matchID, connectionID, displayName string, role Role, sender Sender) (int, error)
	Leave(connectionID string) (string, bool)
	ListViewers(matchID string, roleFilter Role) []Viewer
	Status() []MatchStatus
	ForcePoll(matchID string) error
	ForcePollCommentary(matchID string, inning int) error
	Stop()
}
