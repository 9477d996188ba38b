package errors

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// HTTPErrorHandler converts errors returned by handlers into JSON responses.
// Install via echo.Echo.HTTPErrorHandler.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	// Preserve echo's own HTTP errors (404 on unknown routes etc.)
	if he, ok := err.(*echo.HTTPError); ok {
		msg, _ := he.Message.(string)
		if msg == "" {
			msg = http.StatusText(he.Code)
		}
		_ = c.JSON(he.Code, ErrorResponse{Error: msg, Type: TypeInternal})
		return
	}

	structured := FromDomain(err)
	if structured.Type == TypeInternal {
		slog.ErrorContext(c.Request().Context(), "Request failed",
			"method", c.Request().Method,
			"path", c.Path(),
			"error", err)
	}

	_ = c.JSON(structured.HTTPStatus(), structured.ToResponse())
}
