package utils // package utils provides token issuing/verification and password hashing

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/taipei-day-trip/internal/model"
)

// Verification failures.  Callers distinguish "no credential" from "bad
// credential" through these sentinels.
var (
	ErrTokenMissing   = errors.New("token missing")
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenExpired   = errors.New("token expired")
)

// MemberClaims is the payload of a member token.  The member snapshot lives
// under "data" so tokens stay compatible with the site's frontend.
type MemberClaims struct {
	Data *model.MemberSnapshot `json:"data"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 member tokens.  Tokens carry the id
// of the signing key in their "kid" header; any key in Keys verifies, only
// ActiveKID signs.  The service is stateless and safe for concurrent use.
type TokenService struct {
	Keys      map[string]string // kid -> secret
	ActiveKID string
	TTL       time.Duration
	Now       func() time.Time // defaults to time.Now
}

// NewTokenService returns a TokenService signing with keys[activeKID].
func NewTokenService(keys map[string]string, activeKID string, ttl time.Duration) *TokenService {
	return &TokenService{Keys: keys, ActiveKID: activeKID, TTL: ttl, Now: time.Now}
}

func (s *TokenService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Issue signs a token for member that expires TTL after the current time.
func (s *TokenService) Issue(member model.MemberSnapshot) (string, time.Time, error) {
	secret, ok := s.Keys[s.ActiveKID]
	if !ok || secret == "" {
		return "", time.Time{}, errors.New("active signing key not configured")
	}
	iat := s.now().UTC()
	exp := iat.Add(s.TTL)
	claims := MemberClaims{
		Data: &member,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(iat),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	t.Header["kid"] = s.ActiveKID
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify validates raw and returns the embedded member snapshot.  It returns
// ErrTokenMissing for an empty token, ErrTokenExpired when the expiry has
// passed and ErrTokenMalformed for every other problem.
func (s *TokenService) Verify(raw string) (model.MemberSnapshot, error) {
	if strings.TrimSpace(raw) == "" {
		return model.MemberSnapshot{}, ErrTokenMissing
	}
	claims := &MemberClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return model.MemberSnapshot{}, ErrTokenExpired
		}
		return model.MemberSnapshot{}, ErrTokenMalformed
	}
	if !tok.Valid || claims.Data == nil || claims.Data.ID == 0 {
		return model.MemberSnapshot{}, ErrTokenMalformed
	}
	return *claims.Data, nil
}

func (s *TokenService) keyFunc(t *jwt.Token) (interface{}, error) {
	kid, _ := t.Header["kid"].(string)
	if kid == "" {
		kid = s.ActiveKID
	}
	secret, ok := s.Keys[kid]
	if !ok || secret == "" {
		return nil, errors.New("unknown signing key")
	}
	return []byte(secret), nil
}

// ParseBearer extracts the token from an Authorization header of the form
// "Bearer <token>".  The scheme is case-insensitive; any other shape is
// treated as no credential at all.
func ParseBearer(header string) (string, error) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", ErrTokenMissing
	}
	return parts[1], nil
}
