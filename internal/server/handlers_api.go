package server

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/rgupta1997/fanverse-live/internal/domain"
	apperrors "github.com/rgupta1997/fanverse-live/internal/errors"
)

func (s *Server) handleStatus(c echo.Context) error {
	statuses := s.engine.Status()
	if err := c.JSON(200, map[string]any{
		"matches": statuses,
		"count":   len(statuses),
	}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleViewers(c echo.Context) error {
	matchID := c.Param("id")

	// an absent role parameter means "all roles", not the generic default
	var roleFilter domain.Role
	if raw := c.QueryParam("role"); raw != "" {
		parsed, err := domain.ParseRole(raw)
		if err != nil {
			return apperrors.ValidationError("unknown viewer role").WithContext("role", raw)
		}
		roleFilter = parsed
	}

	viewers := s.engine.ListViewers(matchID, roleFilter)
	if err := c.JSON(200, map[string]any{
		"matchId": matchID,
		"viewers": viewers,
		"count":   len(viewers),
	}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

// handleSnapshot serves the last durable main snapshot straight from the
// store, so operators can inspect what viewers were sent without a websocket.
func (s *Server) handleSnapshot(c echo.Context) error {
	matchID := c.Param("id")

	snap, err := s.store.ReadMain(matchID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidMatchID) {
			return apperrors.ValidationError("invalid match identifier").WithContext("match_id", matchID)
		}
		if errors.Is(err, os.ErrNotExist) {
			return apperrors.NotFoundError("no snapshot persisted for match").WithContext("match_id", matchID)
		}
		return apperrors.InternalError("failed to read snapshot", err).WithContext("match_id", matchID)
	}

	if err := c.JSON(200, snap); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleForcePoll(c echo.Context) error {
	matchID := c.Param("id")

	if err := s.engine.ForcePoll(matchID); err != nil {
		return apperrors.FromDomain(err).WithContext("match_id", matchID)
	}

	if err := c.JSON(200, map[string]string{"status": "ok", "matchId": matchID}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleForcePollCommentary(c echo.Context) error {
	matchID := c.Param("id")

	inning := 0
	if raw := c.QueryParam("inning"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return apperrors.ValidationError("inning must be a positive integer").WithContext("inning", raw)
		}
		inning = parsed
	}

	if err := s.engine.ForcePollCommentary(matchID, inning); err != nil {
		return apperrors.FromDomain(err).WithContext("match_id", matchID)
	}

	if err := c.JSON(200, map[string]string{"status": "ok", "matchId": matchID}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
