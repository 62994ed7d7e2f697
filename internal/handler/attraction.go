package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/taipei-day-trip/internal/apperr"
	"github.com/iliyamo/taipei-day-trip/internal/model"
	"github.com/iliyamo/taipei-day-trip/internal/repository"
)

// Catalog is the read-only attraction store (repository.AttractionRepo).
type Catalog interface {
	List(ctx context.Context, q repository.AttractionQuery) (repository.AttractionPage, error)
	GetByID(ctx context.Context, id uint64) (model.Attraction, error)
	ListMRTs(ctx context.Context) ([]string, error)
}

// AttractionHandler serves the public catalog endpoints.
type AttractionHandler struct {
	Catalog Catalog
}

func NewAttractionHandler(catalog Catalog) *AttractionHandler {
	return &AttractionHandler{Catalog: catalog}
}

// List handles GET /api/attractions?page=&keyword=.  Page defaults to 0.
// The response is {"nextPage": n|null, "data": [...]|null}; data is null
// when the page is empty.
func (h *AttractionHandler) List(c echo.Context) error {
	page := 0
	if raw := strings.TrimSpace(c.QueryParam("page")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return writeError(c, apperr.New(apperr.KindValidation, "page must be a non-negative integer"))
		}
		page = n
	}

	res, err := h.Catalog.List(c.Request().Context(), repository.AttractionQuery{
		Keyword: c.QueryParam("keyword"),
		Page:    page,
	})
	if err != nil {
		log.Error().Err(err).Int("page", page).Msg("attractions: list")
		return writeError(c, apperr.Wrap(apperr.KindStore, "could not load attractions", err))
	}

	var data any
	if len(res.Items) > 0 {
		data = res.Items
	}
	return c.JSON(http.StatusOK, echo.Map{"nextPage": res.NextPage, "data": data})
}

// Get handles GET /api/attraction/:id.  A malformed or unknown id is a 400,
// as the site's attraction page expects.
func (h *AttractionHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return writeError(c, apperr.New(apperr.KindValidation, "invalid attraction id"))
	}
	a, err := h.Catalog.GetByID(c.Request().Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		return writeError(c, apperr.New(apperr.KindValidation, "attraction does not exist"))
	}
	if err != nil {
		log.Error().Err(err).Uint64("attraction_id", id).Msg("attractions: get")
		return writeError(c, apperr.Wrap(apperr.KindStore, "could not load attraction", err))
	}
	return c.JSON(http.StatusOK, echo.Map{"data": a})
}

// MRTs handles GET /api/mrts.
func (h *AttractionHandler) MRTs(c echo.Context) error {
	names, err := h.Catalog.ListMRTs(c.Request().Context())
	if err != nil {
		log.Error().Err(err).Msg("attractions: list mrts")
		return writeError(c, apperr.Wrap(apperr.KindStore, "could not load MRT stations", err))
	}
	return c.JSON(http.StatusOK, echo.Map{"data": names})
}
