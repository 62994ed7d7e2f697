package middleware // reusable echo middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/taipei-day-trip/internal/apperr"
	"github.com/iliyamo/taipei-day-trip/internal/model"
	"github.com/iliyamo/taipei-day-trip/internal/utils"
)

// TokenVerifier verifies a raw member token.
type TokenVerifier interface {
	Verify(raw string) (model.MemberSnapshot, error)
}

// RequireMember rejects requests without a valid bearer token with 401 and
// the common error envelope; the code says whether the token was missing,
// expired or invalid.  On success the member is available via MemberFrom.
func RequireMember(tokens TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			m, err := authenticate(c, tokens)
			if err != nil {
				kind := authKind(err)
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error":   true,
					"code":    kind,
					"message": authMessage(kind),
				})
			}
			SetMember(c, m)
			return next(c)
		}
	}
}

// OptionalMember sets the member when a valid token is presented and
// otherwise lets the request through anonymously.
func OptionalMember(tokens TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m, err := authenticate(c, tokens); err == nil {
				SetMember(c, m)
			}
			return next(c)
		}
	}
}

func authenticate(c echo.Context, tokens TokenVerifier) (model.MemberSnapshot, error) {
	raw, err := utils.ParseBearer(c.Request().Header.Get(echo.HeaderAuthorization))
	if err != nil {
		return model.MemberSnapshot{}, err
	}
	return tokens.Verify(raw)
}

func authKind(err error) apperr.Kind {
	switch {
	case errors.Is(err, utils.ErrTokenMissing):
		return apperr.KindAuthMissing
	case errors.Is(err, utils.ErrTokenExpired):
		return apperr.KindAuthExpired
	default:
		return apperr.KindAuthInvalid
	}
}

func authMessage(kind apperr.Kind) string {
	switch kind {
	case apperr.KindAuthMissing:
		return "sign in required"
	case apperr.KindAuthExpired:
		return "session expired, please sign in again"
	default:
		return "invalid credentials"
	}
}
