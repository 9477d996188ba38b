package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgupta1997/fanverse-live/internal/domain"
	"github.com/rgupta1997/fanverse-live/internal/platform/config"
)

// mockEngine returns canned values and records calls.
type mockEngine struct {
	mu sync.Mutex

	statuses []domain.MatchStatus
	viewers  []domain.Viewer

	joinErr      error
	forcePollErr error

	joins       []string
	leaves      []string
	forcePolls  []string
	commPolls   []string
	commInnings []int
}

func (m *mockEngine) Join(matchID, connectionID, _ string, _ domain.Role, _ domain.Sender) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.joinErr != nil {
		return 0, m.joinErr
	}
	m.joins = append(m.joins, matchID+"/"+connectionID)
	return len(m.joins), nil
}

func (m *mockEngine) Leave(connectionID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leaves = append(m.leaves, connectionID)
	return "m1", true
}

func (m *mockEngine) ListViewers(string, domain.Role) []domain.Viewer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewers
}

func (m *mockEngine) Status() []domain.MatchStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statuses
}

func (m *mockEngine) ForcePoll(matchID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.forcePollErr != nil {
		return m.forcePollErr
	}
	m.forcePolls = append(m.forcePolls, matchID)
	return nil
}

func (m *mockEngine) ForcePollCommentary(matchID string, inning int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.forcePollErr != nil {
		return m.forcePollErr
	}
	m.commPolls = append(m.commPolls, matchID)
	m.commInnings = append(m.commInnings, inning)
	return nil
}

func (m *mockEngine) Stop() {}

func (m *mockEngine) leaveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.leaves)
}

// mockSnapshotStore backs the snapshot inspection endpoint.
type mockSnapshotStore struct {
	snap    *domain.MatchSnapshot
	readErr error
}

func (m *mockSnapshotStore) WriteMain(*domain.MatchSnapshot) error            { return nil }
func (m *mockSnapshotStore) WriteMainError(*domain.FetchErrorRecord) error    { return nil }
func (m *mockSnapshotStore) WriteCommentary(*domain.CommentarySnapshot) error { return nil }
func (m *mockSnapshotStore) WriteCommentaryError(*domain.FetchErrorRecord) error {
	return nil
}

func (m *mockSnapshotStore) ReadMain(string) (*domain.MatchSnapshot, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	return m.snap, nil
}

func testServerWithStore(t *testing.T, engine *mockEngine, store *mockSnapshotStore) *httptest.Server {
	t.Helper()
	if engine == nil {
		engine = &mockEngine{}
	}
	if store == nil {
		store = &mockSnapshotStore{}
	}
	cfg := &config.Config{Port: "0", FeedBaseURL: "http://feed.test"}
	srv := NewServer(cfg, engine, store, nil)
	ts := httptest.NewServer(srv.echo)
	t.Cleanup(ts.Close)
	return ts
}

func testServer(t *testing.T, engine *mockEngine) *httptest.Server {
	t.Helper()
	return testServerWithStore(t, engine, nil)
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func postJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Post(url, "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func TestHandleStatus(t *testing.T) {
	engine := &mockEngine{statuses: []domain.MatchStatus{
		{MatchID: "m1", Viewers: 3, MainPolling: true, CurrentInning: 2},
	}}
	ts := testServer(t, engine)

	var body struct {
		Matches []domain.MatchStatus `json:"matches"`
		Count   int                  `json:"count"`
	}
	code := getJSON(t, ts.URL+"/api/status", &body)

	assert.Equal(t, 200, code)
	assert.Equal(t, 1, body.Count)
	require.Len(t, body.Matches, 1)
	assert.Equal(t, "m1", body.Matches[0].MatchID)
	assert.Equal(t, 2, body.Matches[0].CurrentInning)
}

func TestHandleStatus_AlwaysEmitsLastUpdate(t *testing.T) {
	// a never-polled match reports the zero time rather than omitting the field
	engine := &mockEngine{statuses: []domain.MatchStatus{
		{MatchID: "m1", Viewers: 1, MainPolling: true},
	}}
	ts := testServer(t, engine)

	var body struct {
		Matches []map[string]any `json:"matches"`
	}
	code := getJSON(t, ts.URL+"/api/status", &body)

	assert.Equal(t, 200, code)
	require.Len(t, body.Matches, 1)
	require.Contains(t, body.Matches[0], "lastUpdate")
	assert.Equal(t, "0001-01-01T00:00:00Z", body.Matches[0]["lastUpdate"])
}

func TestHandleViewers(t *testing.T) {
	engine := &mockEngine{viewers: []domain.Viewer{
		{ConnectionID: "c1", DisplayName: "first viewer", Role: domain.RoleGeneric},
	}}
	ts := testServer(t, engine)

	var body struct {
		MatchID string          `json:"matchId"`
		Viewers []domain.Viewer `json:"viewers"`
		Count   int             `json:"count"`
	}
	code := getJSON(t, ts.URL+"/api/matches/m1/viewers", &body)

	assert.Equal(t, 200, code)
	assert.Equal(t, "m1", body.MatchID)
	assert.Equal(t, 1, body.Count)
}

func TestHandleViewers_BadRole(t *testing.T) {
	ts := testServer(t, nil)

	var body map[string]any
	code := getJSON(t, ts.URL+"/api/matches/m1/viewers?role=director", &body)

	assert.Equal(t, 400, code)
	assert.Equal(t, "validation", body["type"])
}

func TestHandleSnapshot(t *testing.T) {
	store := &mockSnapshotStore{snap: &domain.MatchSnapshot{
		MatchID: "m1",
		Data:    map[string]any{"matchStatus": "In Progress"},
	}}
	ts := testServerWithStore(t, nil, store)

	var body domain.MatchSnapshot
	code := getJSON(t, ts.URL+"/api/matches/m1/snapshot", &body)

	assert.Equal(t, 200, code)
	assert.Equal(t, "m1", body.MatchID)
	assert.Equal(t, "In Progress", body.Data["matchStatus"])
}

func TestHandleSnapshot_Errors(t *testing.T) {
	tests := []struct {
		name     string
		readErr  error
		wantCode int
	}{
		{"invalid id", domain.ErrInvalidMatchID, 400},
		{"never fetched", os.ErrNotExist, 404},
		{"disk failure", errors.New("read error"), 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := testServerWithStore(t, nil, &mockSnapshotStore{readErr: tt.readErr})

			var body map[string]any
			code := getJSON(t, ts.URL+"/api/matches/m1/snapshot", &body)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

func TestHandleForcePoll(t *testing.T) {
	engine := &mockEngine{}
	ts := testServer(t, engine)

	var body map[string]any
	code := postJSON(t, ts.URL+"/api/matches/m1/poll", &body)

	assert.Equal(t, 200, code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, []string{"m1"}, engine.forcePolls)
}

func TestHandleForcePoll_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"unknown match", domain.ErrUnknownMatch, 404},
		{"invalid id", domain.ErrInvalidMatchID, 400},
		{"fetch failed", domain.ErrFetchFailed, 502},
		{"engine stopped", domain.ErrEngineStopped, 503},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := testServer(t, &mockEngine{forcePollErr: tt.err})

			var body map[string]any
			code := postJSON(t, ts.URL+"/api/matches/m1/poll", &body)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

func TestHandleForcePollCommentary(t *testing.T) {
	engine := &mockEngine{}
	ts := testServer(t, engine)

	var body map[string]any
	code := postJSON(t, ts.URL+"/api/matches/m1/poll/commentary?inning=2", &body)

	assert.Equal(t, 200, code)
	require.Equal(t, []string{"m1"}, engine.commPolls)
	assert.Equal(t, []int{2}, engine.commInnings)
}

func TestHandleForcePollCommentary_DefaultsInning(t *testing.T) {
	engine := &mockEngine{}
	ts := testServer(t, engine)

	var body map[string]any
	code := postJSON(t, ts.URL+"/api/matches/m1/poll/commentary", &body)

	assert.Equal(t, 200, code)
	assert.Equal(t, []int{0}, engine.commInnings)
}

func TestHandleForcePollCommentary_BadInning(t *testing.T) {
	ts := testServer(t, nil)

	for _, inning := range []string{"0", "-1", "two"} {
		var body map[string]any
		code := postJSON(t, ts.URL+"/api/matches/m1/poll/commentary?inning="+inning, &body)
		assert.Equal(t, 400, code, "inning %q", inning)
	}
}

func TestHealthEndpoints(t *testing.T) {
	ts := testServer(t, nil)

	var live map[string]any
	assert.Equal(t, 200, getJSON(t, ts.URL+"/health/live", &live))
	assert.Equal(t, "ok", live["status"])

	// readiness without redis configured skips the check
	var ready map[string]any
	assert.Equal(t, 200, getJSON(t, ts.URL+"/health/ready", &ready))
	assert.Equal(t, "ready", ready["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	ts := testServer(t, nil)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)
}

func TestWebSocket_JoinAndLeave(t *testing.T) {
	engine := &mockEngine{}
	ts := testServer(t, engine)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/matches/m1?role=commentary&name=test+viewer"
	conn, _, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		engine.mu.Lock()
		defer engine.mu.Unlock()
		return len(engine.joins) == 1
	}, time.Second, time.Millisecond)

	conn.Close()

	require.Eventually(t, func() bool {
		return engine.leaveCount() == 1
	}, time.Second, time.Millisecond)
}

func TestWebSocket_BadRole(t *testing.T) {
	ts := testServer(t, nil)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/matches/m1?role=director"
	_, resp, err := ws.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestWebSocket_JoinRejectedInBand(t *testing.T) {
	engine := &mockEngine{joinErr: domain.ErrMatchFull}
	ts := testServer(t, engine)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/matches/m1"
	conn, _, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// the handshake succeeds; the rejection arrives as the only frame
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg, &body))
	assert.Equal(t, "validation", body["type"])
}
