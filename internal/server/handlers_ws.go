package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/rgupta1997/fanverse-live/internal/domain"
	apperrors "github.com/rgupta1997/fanverse-live/internal/errors"
	"github.com/rgupta1997/fanverse-live/internal/wsadapter"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // viewers embed the stream from arbitrary origins
	},
}

// handleWebSocket upgrades the connection and registers the viewer on the
// match. The handler blocks in a read pump until the peer disconnects, then
// deregisters.
func (s *Server) handleWebSocket(c echo.Context) error {
	matchID := c.Param("id")
	displayName := c.QueryParam("name")

	role, err := domain.ParseRole(c.QueryParam("role"))
	if err != nil {
		return apperrors.ValidationError("unknown viewer role").WithContext("role", c.QueryParam("role"))
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade websocket: %w", err)
	}

	connectionID := uuid.NewString()
	writer := wsadapter.NewWriter(conn)

	count, err := s.engine.Join(matchID, connectionID, displayName, role, writer)
	if err != nil {
		// the connection is already upgraded, so report the rejection in-band;
		// the writer has nothing queued yet, so writing directly is safe
		structured := apperrors.FromDomain(err)
		if data, merr := json.Marshal(structured.ToResponse()); merr == nil {
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			_ = conn.WriteMessage(websocket.TextMessage, data)
		}
		writer.Close()
		return nil
	}

	slog.Info("Websocket viewer connected",
		"match_id", matchID,
		"connection_id", connectionID,
		"role", string(role),
		"viewers", count)

	// Read pump. Inbound frames are drained and ignored; the stream is
	// one-way.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.engine.Leave(connectionID)

	return nil
}
