package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/taipei-day-trip/internal/model"
)

// AttractionPageSize is the number of attractions returned per page.
const AttractionPageSize = 12

// AttractionQuery filters and pages the attraction list.  Page is zero
// based.
type AttractionQuery struct {
	Keyword string
	Page    int
}

// AttractionPage is one page of attractions.  NextPage is nil on the last
// page.
type AttractionPage struct {
	NextPage *int
	Items    []model.Attraction
}

// AttractionRepo reads the read-only catalog tables `attractions` and
// `attractionImages`.
type AttractionRepo struct{ db *sql.DB }

// NewAttractionRepo returns an AttractionRepo bound to db.
func NewAttractionRepo(db *sql.DB) *AttractionRepo { return &AttractionRepo{db: db} }

const attractionColumns = `id, rownumber, name, category, description, address, transport, mrt, latitude, longitude`

// List returns the requested page ordered by id.  A keyword matches names
// containing it or an exact MRT station name.  One row past the page is
// fetched to decide whether a next page exists.
func (r *AttractionRepo) List(ctx context.Context, q AttractionQuery) (AttractionPage, error) {
	page := q.Page
	if page < 0 {
		page = 0
	}

	cond := "1=1"
	args := []any{}
	if kw := strings.TrimSpace(q.Keyword); kw != "" {
		cond = "(name LIKE ? OR mrt = ?)"
		args = append(args, "%"+kw+"%", kw)
	}
	args = append(args, AttractionPageSize+1, page*AttractionPageSize)

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+attractionColumns+` FROM attractions WHERE `+cond+` ORDER BY id LIMIT ? OFFSET ?`,
		args...)
	if err != nil {
		return AttractionPage{}, err
	}
	defer rows.Close()

	items := make([]model.Attraction, 0, AttractionPageSize+1)
	for rows.Next() {
		a, err := scanAttraction(rows)
		if err != nil {
			return AttractionPage{}, err
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return AttractionPage{}, err
	}

	var out AttractionPage
	if len(items) > AttractionPageSize {
		items = items[:AttractionPageSize]
		next := page + 1
		out.NextPage = &next
	}
	if err := r.attachImages(ctx, items); err != nil {
		return AttractionPage{}, err
	}
	out.Items = items
	return out, nil
}

// GetByID returns one attraction with all of its images, or ErrNotFound.
func (r *AttractionRepo) GetByID(ctx context.Context, id uint64) (model.Attraction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+attractionColumns+` FROM attractions WHERE id = ?`, id)
	a, err := scanAttraction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return a, ErrNotFound
	}
	if err != nil {
		return a, err
	}
	items := []model.Attraction{a}
	if err := r.attachImages(ctx, items); err != nil {
		return a, err
	}
	return items[0], nil
}

// ListMRTs returns the distinct MRT station names ordered by how many
// attractions sit near each, busiest first.  Attractions without a station
// are ignored.
func (r *AttractionRepo) ListMRTs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT mrt FROM attractions
		WHERE mrt IS NOT NULL AND mrt <> ''
		GROUP BY mrt
		ORDER BY COUNT(*) DESC, mrt ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// attachImages loads images for all items in one query keyed by row number.
func (r *AttractionRepo) attachImages(ctx context.Context, items []model.Attraction) error {
	if len(items) == 0 {
		return nil
	}
	byRow := make(map[uint64][]int, len(items))
	args := make([]any, 0, len(items))
	for i := range items {
		items[i].Images = []string{}
		rn := items[i].RowNumber
		if _, seen := byRow[rn]; !seen {
			args = append(args, rn)
		}
		byRow[rn] = append(byRow[rn], i)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(args)), ",")

	rows, err := r.db.QueryContext(ctx,
		`SELECT attractionRownumber, imageUrl FROM attractionImages WHERE attractionRownumber IN (`+placeholders+`)`,
		args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			rn  uint64
			url string
		)
		if err := rows.Scan(&rn, &url); err != nil {
			return err
		}
		for _, i := range byRow[rn] {
			items[i].Images = append(items[i].Images, url)
		}
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttraction(s rowScanner) (model.Attraction, error) {
	var (
		a   model.Attraction
		mrt sql.NullString
	)
	err := s.Scan(&a.ID, &a.RowNumber, &a.Name, &a.Category, &a.Description,
		&a.Address, &a.Transport, &mrt, &a.Lat, &a.Lng)
	if err != nil {
		return a, err
	}
	if mrt.Valid {
		a.MRT = &mrt.String
	}
	return a, nil
}
