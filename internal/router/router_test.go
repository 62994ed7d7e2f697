package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/taipei-day-trip/internal/handler"
	"github.com/iliyamo/taipei-day-trip/internal/model"
	"github.com/iliyamo/taipei-day-trip/internal/utils"
)

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

func newTestServer() (*echo.Echo, *utils.TokenService) {
	tokens := utils.NewTokenService(map[string]string{"k1": "secret"}, "k1", 7*24*time.Hour)
	e := echo.New()
	RegisterRoutes(e, nil)
	api := API(e, tokens, passThrough)
	RegisterPublic(api, handler.NewAttractionHandler(nil), passThrough)
	RegisterAuth(api, handler.NewAuthHandler(nil))
	RegisterMember(api, handler.NewBookingHandler(nil), handler.NewOrderHandler(nil), tokens)
	return e, tokens
}

func TestRoutesRegistered(t *testing.T) {
	e, _ := newTestServer()
	var got []string
	for _, r := range e.Routes() {
		got = append(got, r.Method+" "+r.Path)
	}
	sort.Strings(got)
	want := []string{
		"DELETE /api/booking",
		"GET /api/attraction/:id",
		"GET /api/attractions",
		"GET /api/booking",
		"GET /api/mrts",
		"GET /api/order/:orderNumber",
		"GET /api/user/auth",
		"GET /healthz",
		"POST /api/booking",
		"POST /api/order",
		"POST /api/user",
		"PUT /api/user/auth",
	}
	for _, w := range want {
		assert.Contains(t, got, w)
	}
}

func TestMemberRoutesRequireToken(t *testing.T) {
	e, _ := newTestServer()
	for _, r := range []struct{ method, path string }{
		{http.MethodGet, "/api/booking"},
		{http.MethodPost, "/api/booking"},
		{http.MethodDelete, "/api/booking"},
		{http.MethodPost, "/api/order"},
		{http.MethodGet, "/api/order/202406011530070001"},
	} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(r.method, r.path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, r.path)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "AUTH_MISSING", body["code"])
	}
}

func TestSessionProbe(t *testing.T) {
	e, tokens := newTestServer()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/user/auth", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer garbage")
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":null}`, rec.Body.String())

	raw, _, err := tokens.Issue(model.MemberSnapshot{ID: 5, Name: "Ann", Email: "ann@example.com"})
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/user/auth", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+raw)
	e.ServeHTTP(rec, req)
	assert.JSONEq(t, `{"data":{"id":5,"name":"Ann","email":"ann@example.com"}}`, rec.Body.String())
}
