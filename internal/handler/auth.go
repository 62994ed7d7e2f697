package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/taipei-day-trip/internal/middleware"
)

// MemberAuth is the signup/signin workflow (service.MemberService).
type MemberAuth interface {
	Signup(ctx context.Context, name, email, password string) (uint64, error)
	Signin(ctx context.Context, email, password string) (string, error)
}

// AuthHandler serves /api/user and /api/user/auth.
type AuthHandler struct {
	Members MemberAuth
}

func NewAuthHandler(members MemberAuth) *AuthHandler {
	return &AuthHandler{Members: members}
}

// Signup handles POST /api/user.  The site posts a form with signupName,
// signupEmail and signupPassword.
func (h *AuthHandler) Signup(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	_, err := h.Members.Signup(ctx,
		c.FormValue("signupName"),
		c.FormValue("signupEmail"),
		c.FormValue("signupPassword"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "message": "註冊成功"})
}

// Signin handles PUT /api/user/auth and returns {"token": ...}.
func (h *AuthHandler) Signin(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	token, err := h.Members.Signin(ctx, c.FormValue("signinEmail"), c.FormValue("signinPassword"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"token": token})
}

// Current handles GET /api/user/auth.  It sits behind OptionalMember and
// answers {"data": null} for any missing or unusable token.
func (h *AuthHandler) Current(c echo.Context) error {
	m, found := middleware.MemberFrom(c)
	if !found {
		return c.JSON(http.StatusOK, echo.Map{"data": nil})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": m})
}
