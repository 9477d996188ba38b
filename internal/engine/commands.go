package engine

import (
	"context"

	"github.com/rgupta1997/fanverse-live/internal/domain"
)

// command is the command interface for the engine actor. Every registry
// mutation enters the loop as one of these, so no locking is needed.
type command interface{ isCommand() }

type baseCmd struct{}

func (baseCmd) isCommand() {}

type joinCmd struct {
	baseCmd
	matchID      string
	connectionID string
	displayName  string
	role         domain.Role
	sender       domain.Sender
	reply        chan joinReply
}

type joinReply struct {
	count int
	err   error
}

type leaveCmd struct {
	baseCmd
	connectionID string
	reply        chan leaveReply
}

type leaveReply struct {
	matchID string
	found   bool
}

type listViewersCmd struct {
	baseCmd
	matchID string
	role    domain.Role // empty = all roles
	reply   chan []domain.Viewer
}

type statusCmd struct {
	baseCmd
	reply chan []domain.MatchStatus
}

// mainTickCmd requests one main poll cycle. reply is nil for scheduled ticks
// and non-nil for force polls, which wait for the cycle outcome.
type mainTickCmd struct {
	baseCmd
	matchID string
	reply   chan error
}

// commentaryTickCmd requests one commentary poll cycle. inning 0 means
// "derive from the latest main snapshot".
type commentaryTickCmd struct {
	baseCmd
	matchID string
	inning  int
	reply   chan error
}

// mainFetchDoneCmd re-enters the loop when an async main fetch completes.
// ctx carries the cycle's correlation id for logging.
type mainFetchDoneCmd struct {
	baseCmd
	ctx     context.Context
	matchID string
	snap    *domain.MatchSnapshot
	err     error
	reply   chan error
}

type commentaryFetchDoneCmd struct {
	baseCmd
	ctx     context.Context
	matchID string
	inning  int
	snap    *domain.CommentarySnapshot
	err     error
	reply   chan error
}

type stopCmd struct {
	baseCmd
}
