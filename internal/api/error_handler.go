package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/api/handler"
	"github.com/99minutos/auth-service/internal/core/domain"
)

const genericErrorMessage = "Something went wrong"

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps domain error kinds to their HTTP status codes.
//   - Logs unexpected errors internally; the cause reaches the client only
//     when exposeDetail is set (every environment except production).
//   - Renders a consistent JSON envelope: {"status":"error","message":"..."}.
func NewHTTPErrorHandler(log zerolog.Logger, exposeDetail bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := resolveError(err, log, c, exposeDetail)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context, exposeDetail bool) (int, handler.ErrorBody) {
	body := handler.ErrorBody{Status: "error"}

	var derr *domain.Error
	if errors.As(err, &derr) {
		body.Message = derr.Message
		return statusForKind(derr.Kind), body
	}

	// Echo's own errors (router 404/405, body limits, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Code == http.StatusNotFound {
			body.Message = fmt.Sprintf("Can't find %s on this server!", c.Request().RequestURI)
		} else {
			body.Message = fmt.Sprintf("%v", he.Message)
		}
		return he.Code, body
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	body.Message = genericErrorMessage
	if exposeDetail {
		body.Detail = err.Error()
	}
	return http.StatusInternalServerError, body
}

func statusForKind(kind error) int {
	switch {
	case errors.Is(kind, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(kind, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(kind, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(kind, domain.ErrBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
