package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/taipei-day-trip/internal/database"
	"github.com/iliyamo/taipei-day-trip/internal/model"
	"github.com/iliyamo/taipei-day-trip/internal/utils"
)

// MemberRepo provides access to the `membership` table.
type MemberRepo struct{ DB *sql.DB }

func NewMemberRepo(db *sql.DB) *MemberRepo { return &MemberRepo{DB: db} }

// Create hashes password and inserts a member, returning its ID.  Emails are
// normalized to lower case.  A duplicate email yields ErrEmailExists, whether
// caught by the pre-check or by the unique key.
func (r *MemberRepo) Create(ctx context.Context, name, email, password string, cost int) (uint64, error) {
	email = normalizeEmail(email)

	var exists int
	err := r.DB.QueryRowContext(ctx, "SELECT 1 FROM membership WHERE email=? LIMIT 1", email).Scan(&exists)
	switch {
	case err == nil:
		return 0, ErrEmailExists
	case !errors.Is(err, sql.ErrNoRows):
		return 0, err
	}

	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO membership (name, email, password) VALUES (?,?,?)",
		strings.TrimSpace(name), email, hash)
	if err != nil {
		if database.IsDuplicateKey(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a member by normalized email.
func (r *MemberRepo) GetByEmail(ctx context.Context, email string) (model.Member, error) {
	var m model.Member
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, name, email, password FROM membership WHERE email=? LIMIT 1",
		normalizeEmail(email)).Scan(&m.ID, &m.Name, &m.Email, &m.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return m, ErrNotFound
	}
	return m, err
}

// GetByID fetches a member by id.
func (r *MemberRepo) GetByID(ctx context.Context, id uint64) (model.Member, error) {
	var m model.Member
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, name, email, password FROM membership WHERE id=? LIMIT 1",
		id).Scan(&m.ID, &m.Name, &m.Email, &m.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return m, ErrNotFound
	}
	return m, err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
