package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/iliyamo/taipei-day-trip/internal/apperr"
	"github.com/iliyamo/taipei-day-trip/internal/model"
	"github.com/iliyamo/taipei-day-trip/internal/repository"
	"github.com/iliyamo/taipei-day-trip/internal/utils"
)

// MemberStore is the member persistence the auth workflow needs.
type MemberStore interface {
	Create(ctx context.Context, name, email, password string, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.Member, error)
}

// TokenIssuer signs member tokens.
type TokenIssuer interface {
	Issue(member model.MemberSnapshot) (string, time.Time, error)
}

// MemberService handles signup and signin.
type MemberService struct {
	Members    MemberStore
	Tokens     TokenIssuer
	BcryptCost int
}

// NewMemberService wires a MemberService.
func NewMemberService(members MemberStore, tokens TokenIssuer, bcryptCost int) *MemberService {
	return &MemberService{Members: members, Tokens: tokens, BcryptCost: bcryptCost}
}

// Signup registers a member.  Empty fields and malformed emails are
// validation errors; an email already registered is a validation error too,
// which the site shows next to the form.
func (s *MemberService) Signup(ctx context.Context, name, email, password string) (uint64, error) {
	name, email = strings.TrimSpace(name), strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" || password == "" {
		return 0, apperr.New(apperr.KindValidation, "name, email and password are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return 0, apperr.New(apperr.KindValidation, "email is not valid")
	}
	id, err := s.Members.Create(ctx, name, email, password, s.BcryptCost)
	if errors.Is(err, repository.ErrEmailExists) {
		return 0, apperr.Wrap(apperr.KindValidation, "email already registered", err)
	}
	if err != nil {
		log.Error().Err(err).Msg("member: signup")
		return 0, apperr.Wrap(apperr.KindStore, "could not create member", err)
	}
	log.Info().Uint64("member_id", id).Msg("member: signed up")
	return id, nil
}

// Signin checks the credentials and returns a fresh token.  Unknown emails
// and wrong passwords produce the same error.
func (s *MemberService) Signin(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", apperr.New(apperr.KindValidation, "email and password are required")
	}
	m, err := s.Members.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return "", apperr.New(apperr.KindValidation, "email or password is incorrect")
	}
	if err != nil {
		log.Error().Err(err).Msg("member: signin lookup")
		return "", apperr.Wrap(apperr.KindStore, "could not sign in", err)
	}
	if !utils.VerifyPassword(m.PasswordHash, password) {
		return "", apperr.New(apperr.KindValidation, "email or password is incorrect")
	}
	token, _, err := s.Tokens.Issue(m.Snapshot())
	if err != nil {
		log.Error().Err(err).Uint64("member_id", m.ID).Msg("member: issue token")
		return "", apperr.Wrap(apperr.KindInternal, "could not issue token", err)
	}
	return token, nil
}
