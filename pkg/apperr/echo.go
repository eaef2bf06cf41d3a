package apperr

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Message strips the sentinel prefix so "validation: price must be >= 0"
// becomes "price must be >= 0".
func Message(err error) string {
	msg := err.Error()
	for _, s := range []error{ErrValidation, ErrUnauthorized, ErrForbidden, ErrNotFound, ErrConflict, ErrTransport} {
		if rest, ok := strings.CutPrefix(msg, s.Error()+": "); ok {
			return rest
		}
	}
	return msg
}

// HTTPError converts a service error into an echo error with a body that is
// safe to show to users. Unknown errors never leak their text.
func HTTPError(err error) *echo.HTTPError {
	code := HTTPStatus(err)
	if code == http.StatusInternalServerError {
		return echo.NewHTTPError(code, Response{Status: "error", Message: "internal error"})
	}
	return echo.NewHTTPError(code, Response{Status: "error", Message: Message(err)})
}

// ErrorHandler renders echo errors as Response bodies.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if !errors.As(err, &he) {
		he = HTTPError(err)
	}

	body := he.Message
	if s, ok := body.(string); ok {
		body = Response{Status: "error", Message: s}
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(he.Code)
		return
	}
	_ = c.JSON(he.Code, body)
}
