package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/taipei-day-trip/internal/apperr"
	"github.com/iliyamo/taipei-day-trip/internal/middleware"
)

// writeError renders err as {"error": true, "code", "message"} with the
// status of its Kind.  Errors that are not *apperr.Error are logged and
// reported as a generic 500.
func writeError(c echo.Context, err error) error {
	var (
		kind = apperr.KindOf(err)
		msg  = "internal server error"
	)
	var ae *apperr.Error
	if errors.As(err, &ae) {
		msg = ae.Message
	} else {
		log.Error().Err(err).Str("path", c.Path()).Msg("unclassified handler error")
	}
	return c.JSON(apperr.Status(kind), echo.Map{
		"error":   true,
		"code":    kind,
		"message": msg,
	})
}

// currentMemberID returns the id set by middleware.RequireMember.  Routes
// that call it are always behind that middleware; a missing member means the
// route was wired without it.
func currentMemberID(c echo.Context) (uint64, error) {
	m, ok := middleware.MemberFrom(c)
	if !ok {
		return 0, apperr.New(apperr.KindAuthMissing, "sign in required")
	}
	return m.ID, nil
}

// ok writes {"ok": true}.
func ok(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}
