package middleware

// identity.go stores the authenticated member on the echo context and reads
// it back for handlers, the rate limiter and the request logger.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/taipei-day-trip/internal/model"
)

const memberContextKey = "member"

// SetMember records the authenticated member on c.
func SetMember(c echo.Context, m model.MemberSnapshot) { c.Set(memberContextKey, m) }

// MemberFrom returns the member set by RequireMember or OptionalMember.
func MemberFrom(c echo.Context) (model.MemberSnapshot, bool) {
	m, ok := c.Get(memberContextKey).(model.MemberSnapshot)
	return m, ok && m.ID != 0
}

// memberLabel identifies the caller for rate-limit keys and logs: the member
// id, or "anon".
func memberLabel(c echo.Context) string {
	if m, ok := MemberFrom(c); ok {
		return strconv.FormatUint(m.ID, 10)
	}
	return "anon"
}
