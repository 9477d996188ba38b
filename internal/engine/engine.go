// Package engine implements the match-monitoring core: the registry of
// watched matches, the per-match polling lifecycle, and role-differentiated
// broadcast to connected viewers.
//
// All registry state is owned by a single goroutine fed through a command
// channel (the actor pattern), so joins, leaves, and poll completions never
// interleave mid-mutation. Only the outbound fetch and the snapshot write
// happen off-loop; their results re-enter the loop as commands.
package engine

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/jonboulle/clockwork"

	"github.com/rgupta1997/fanverse-live/internal/domain"
	"github.com/rgupta1997/fanverse-live/internal/metrics"
)

const (
	defaultPollInterval = 30 * time.Second
	defaultMaxViewers   = 200
	cmdBufferSize       = 256
	stopTimeout         = 10 * time.Second
	maxDisplayNameLen   = 64
	fallbackDisplayName = "Guest"
)

var matchIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Config tunes the engine. Zero values fall back to documented defaults.
type Config struct {
	PollInterval       time.Duration
	MaxViewersPerMatch int
}

// viewer pairs the registry record with the connection's sender.
type viewer struct {
	domain.Viewer
	sender domain.Sender
}

// commentaryState is embedded per match.
type commentaryState struct {
	timer  *timerHandle
	digest *domain.CommentaryDigest
}

// matchEntry exists in the registry iff the match has at least one viewer.
type matchEntry struct {
	id         string
	viewers    map[string]*viewer
	mainTimer  *timerHandle
	lastUpdate time.Time
	lastMain   *domain.MatchSnapshot
	commentary commentaryState
}

func (m *matchEntry) hasRole(role domain.Role) bool {
	for _, v := range m.viewers {
		if v.Role == role {
			return true
		}
	}
	return false
}

// currentInning derives the inning from the innings count of the latest main
// snapshot. This misreads a match where an innings entry exists before that
// inning has truly started, but the feed offers no better signal.
func (m *matchEntry) currentInning() int {
	if m.lastMain == nil {
		return 1
	}
	innings, ok := m.lastMain.Data["innings"].([]any)
	if !ok || len(innings) == 0 {
		return 1
	}
	return len(innings)
}

// Engine is the composition root's handle on the monitoring core. It
// implements domain.Engine.
type Engine struct {
	cmdCh        chan command
	clock        clockwork.Clock
	feed         domain.FeedClient
	store        domain.SnapshotStore
	events       domain.EventPublisher
	pollInterval time.Duration
	maxViewers   int

	// owned exclusively by the run goroutine
	matches map[string]*matchEntry

	done     chan struct{}
	stopOnce sync.Once
}

// New creates the engine and starts its loop. events may be a noop publisher.
func New(feed domain.FeedClient, store domain.SnapshotStore, events domain.EventPublisher, clock clockwork.Clock, cfg Config) *Engine {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.MaxViewersPerMatch <= 0 {
		cfg.MaxViewersPerMatch = defaultMaxViewers
	}

	e := &Engine{
		cmdCh:        make(chan command, cmdBufferSize),
		clock:        clock,
		feed:         feed,
		store:        store,
		events:       events,
		pollInterval: cfg.PollInterval,
		maxViewers:   cfg.MaxViewersPerMatch,
		matches:      make(map[string]*matchEntry),
		done:         make(chan struct{}),
	}
	go e.run()
	return e
}

// --- Public API (thin wrappers that round-trip through the loop) ---

// Join registers a viewer on a match, creating the registry entry and
// starting polling when this is the match's first viewer. Rejoining with the
// same connection id updates role and name in place. Returns the viewer
// count after the upsert.
func (e *Engine) Join(matchID, connectionID, displayName string, role domain.Role, sender domain.Sender) (int, error) {
	if !matchIDPattern.MatchString(matchID) {
		return 0, domain.ErrInvalidMatchID
	}

	reply := make(chan joinReply, 1)
	cmd := joinCmd{
		matchID:      matchID,
		connectionID: connectionID,
		displayName:  sanitizeDisplayName(displayName),
		role:         role,
		sender:       sender,
		reply:        reply,
	}
	if err := e.enqueue(cmd); err != nil {
		return 0, err
	}

	select {
	case r := <-reply:
		return r.count, r.err
	case <-e.done:
		return 0, domain.ErrEngineStopped
	}
}

// Leave removes the viewer owning connectionID. It reports the affected
// match id, or ("", false) when the connection was not registered.
func (e *Engine) Leave(connectionID string) (string, bool) {
	reply := make(chan leaveReply, 1)
	if err := e.enqueue(leaveCmd{connectionID: connectionID, reply: reply}); err != nil {
		return "", false
	}

	select {
	case r := <-reply:
		return r.matchID, r.found
	case <-e.done:
		return "", false
	}
}

// ListViewers returns a snapshot copy of the viewers on a match, optionally
// restricted to one role. Callers cannot mutate registry state through it.
func (e *Engine) ListViewers(matchID string, roleFilter domain.Role) []domain.Viewer {
	reply := make(chan []domain.Viewer, 1)
	if err := e.enqueue(listViewersCmd{matchID: matchID, role: roleFilter, reply: reply}); err != nil {
		return nil
	}

	select {
	case viewers := <-reply:
		return viewers
	case <-e.done:
		return nil
	}
}

// Status returns a read-only summary of every registry entry.
func (e *Engine) Status() []domain.MatchStatus {
	reply := make(chan []domain.MatchStatus, 1)
	if err := e.enqueue(statusCmd{reply: reply}); err != nil {
		return nil
	}

	select {
	case statuses := <-reply:
		return statuses
	case <-e.done:
		return nil
	}
}

// ForcePoll runs one immediate main fetch-and-broadcast cycle outside the
// timer schedule. It blocks until the cycle completes and surfaces fetch
// failure as an error rather than panicking the caller.
func (e *Engine) ForcePoll(matchID string) error {
	if !matchIDPattern.MatchString(matchID) {
		return domain.ErrInvalidMatchID
	}
	return e.requestCycle(mainTickCmd{matchID: matchID, reply: make(chan error, 1)})
}

// ForcePollCommentary runs one immediate commentary cycle. inning 0 derives
// the inning from the latest main snapshot.
func (e *Engine) ForcePollCommentary(matchID string, inning int) error {
	if !matchIDPattern.MatchString(matchID) {
		return domain.ErrInvalidMatchID
	}
	return e.requestCycle(commentaryTickCmd{matchID: matchID, inning: inning, reply: make(chan error, 1)})
}

func (e *Engine) requestCycle(cmd command) error {
	var reply chan error
	switch c := cmd.(type) {
	case mainTickCmd:
		reply = c.reply
	case commentaryTickCmd:
		reply = c.reply
	}

	if err := e.enqueue(cmd); err != nil {
		return err
	}

	select {
	case err := <-reply:
		return err
	case <-e.done:
		return domain.ErrEngineStopped
	}
}

// Stop cancels every timer, closes every viewer connection, and clears the
// registry. In-flight fetches are not awaited; their completions are
// discarded.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		if err := e.enqueue(stopCmd{}); err != nil {
			return // loop already gone
		}

		timer := e.clock.NewTimer(stopTimeout)
		defer timer.Stop()
		select {
		case <-e.done:
			slog.Info("Engine stopped")
		case <-timer.Chan():
			slog.Warn("Engine stop timeout exceeded", "timeout", stopTimeout)
		}
	})
}

func (e *Engine) enqueue(cmd command) error {
	select {
	case e.cmdCh <- cmd:
		return nil
	case <-e.done:
		return domain.ErrEngineStopped
	}
}

// --- Actor loop ---

func (e *Engine) run() {
	defer close(e.done)
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Engine panic recovered", "panic", r)
			metrics.EnginePanicsTotal.Inc()
			e.closeAll()
		}
	}()

	for cmd := range e.cmdCh {
		switch c := cmd.(type) {
		case joinCmd:
			e.handleJoin(c)
		case leaveCmd:
			e.handleLeave(c)
		case listViewersCmd:
			c.reply <- e.snapshotViewers(c.matchID, c.role)
		case statusCmd:
			c.reply <- e.snapshotStatus()
		case mainTickCmd:
			e.handleMainTick(c)
		case commentaryTickCmd:
			e.handleCommentaryTick(c)
		case mainFetchDoneCmd:
			e.handleMainFetchDone(c)
		case commentaryFetchDoneCmd:
			e.handleCommentaryFetchDone(c)
		case stopCmd:
			e.closeAll()
			return
		}
	}
}

func (e *Engine) handleJoin(c joinCmd) {
	entry, exists := e.matches[c.matchID]
	if !exists {
		entry = &matchEntry{
			id:      c.matchID,
			viewers: make(map[string]*viewer),
		}
		e.matches[c.matchID] = entry
		metrics.ActiveMatches.Set(float64(len(e.matches)))
	}

	existing, rejoin := entry.viewers[c.connectionID]
	if !rejoin && len(entry.viewers) >= e.maxViewers {
		c.reply <- joinReply{err: domain.ErrMatchFull}
		return
	}

	if rejoin {
		// same connection rejoining: update in place, never duplicate
		if existing.sender != c.sender && existing.sender != nil {
			existing.sender.Close()
		}
		prevRole := existing.Role
		existing.DisplayName = c.displayName
		existing.Role = c.role
		existing.sender = c.sender

		// a role change can remove the last commentary viewer
		if prevRole == domain.RoleCommentary && !entry.hasRole(domain.RoleCommentary) {
			e.stopCommentaryPolling(entry)
		}
	} else {
		entry.viewers[c.connectionID] = &viewer{
			Viewer: domain.Viewer{
				ConnectionID: c.connectionID,
				DisplayName:  c.displayName,
				Role:         c.role,
				JoinedAt:     e.clock.Now(),
			},
			sender: c.sender,
		}
		metrics.ConnectedViewers.Inc()
	}

	if entry.mainTimer == nil {
		e.startMainPolling(entry)
	}
	if c.role == domain.RoleCommentary && entry.commentary.timer == nil {
		e.startCommentaryPolling(entry)
	}

	slog.Info("Viewer joined match",
		"match_id", c.matchID,
		"connection_id", c.connectionID,
		"role", string(c.role),
		"viewers", len(entry.viewers))

	c.reply <- joinReply{count: len(entry.viewers)}
}

func (e *Engine) handleLeave(c leaveCmd) {
	// linear scan: the watched-match count stays small
	for _, entry := range e.matches {
		if _, ok := entry.viewers[c.connectionID]; ok {
			e.removeViewer(entry, c.connectionID, false)
			c.reply <- leaveReply{matchID: entry.id, found: true}
			return
		}
	}
	c.reply <- leaveReply{}
}

// removeViewer drops one viewer and applies the lifecycle consequences:
// last viewer out removes the match, last commentary viewer out stops only
// the commentary timer.
func (e *Engine) removeViewer(entry *matchEntry, connectionID string, evicted bool) {
	v, ok := entry.viewers[connectionID]
	if !ok {
		return
	}

	v.sender.Close()
	delete(entry.viewers, connectionID)
	metrics.ConnectedViewers.Dec()
	if evicted {
		metrics.SlowViewersEvicted.Inc()
	}

	if len(entry.viewers) == 0 {
		e.removeMatch(entry)
		slog.Info("Last viewer left, match removed", "match_id", entry.id)
		return
	}

	if v.Role == domain.RoleCommentary && !entry.hasRole(domain.RoleCommentary) {
		e.stopCommentaryPolling(entry)
	}

	slog.Info("Viewer left match",
		"match_id", entry.id,
		"connection_id", connectionID,
		"viewers", len(entry.viewers))
}

func (e *Engine) removeMatch(entry *matchEntry) {
	if entry.mainTimer != nil {
		entry.mainTimer.cancel()
		entry.mainTimer = nil
	}
	e.stopCommentaryPolling(entry)
	delete(e.matches, entry.id)
	metrics.ActiveMatches.Set(float64(len(e.matches)))
}

func (e *Engine) snapshotViewers(matchID string, roleFilter domain.Role) []domain.Viewer {
	entry, exists := e.matches[matchID]
	if !exists {
		return []domain.Viewer{}
	}

	viewers := make([]domain.Viewer, 0, len(entry.viewers))
	for _, v := range entry.viewers {
		if roleFilter != "" && v.Role != roleFilter {
			continue
		}
		viewers = append(viewers, v.Viewer)
	}
	sort.Slice(viewers, func(i, j int) bool { return viewers[i].ConnectionID < viewers[j].ConnectionID })
	return viewers
}

func (e *Engine) snapshotStatus() []domain.MatchStatus {
	statuses := make([]domain.MatchStatus, 0, len(e.matches))
	for _, entry := range e.matches {
		roleCounts := make(map[domain.Role]int)
		for _, v := range entry.viewers {
			roleCounts[v.Role]++
		}

		status := domain.MatchStatus{
			MatchID:           entry.id,
			Viewers:           len(entry.viewers),
			RoleCounts:        roleCounts,
			MainPolling:       entry.mainTimer != nil,
			CommentaryPolling: entry.commentary.timer != nil,
			LastUpdate:        entry.lastUpdate,
			CurrentInning:     entry.currentInning(),
		}
		if entry.commentary.digest != nil {
			status.TotalBalls = entry.commentary.digest.Summary.TotalBalls
		}
		statuses = append(statuses, status)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].MatchID < statuses[j].MatchID })
	return statuses
}

// closeAll cancels every timer and closes every viewer connection. Used on
// stop and after a panic.
func (e *Engine) closeAll() {
	for _, entry := range e.matches {
		if entry.mainTimer != nil {
			entry.mainTimer.cancel()
			entry.mainTimer = nil
		}
		if entry.commentary.timer != nil {
			entry.commentary.timer.cancel()
			entry.commentary.timer = nil
		}
		for connectionID, v := range entry.viewers {
			v.sender.Close()
			delete(entry.viewers, connectionID)
		}
		delete(e.matches, entry.id)
	}
	metrics.ActiveMatches.Set(0)
	metrics.ConnectedViewers.Set(0)
}

func sanitizeDisplayName(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	cleaned = strings.TrimSpace(cleaned)

	if cleaned == "" {
		return fallbackDisplayName
	}

	runes := []rune(cleaned)
	if len(runes) > maxDisplayNameLen {
		cleaned = string(runes[:maxDisplayNameLen])
	}
	return cleaned
}
