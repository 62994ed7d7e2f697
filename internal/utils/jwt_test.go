package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/taipei-day-trip/internal/model"
)

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func newTestTokens(now time.Time) *TokenService {
	s := NewTokenService(map[string]string{"k1": "first-secret"}, "k1", 7*24*time.Hour)
	s.Now = fixedClock(now)
	return s
}

var alice = model.MemberSnapshot{ID: 7, Name: "Alice", Email: "alice@example.com"}

func TestTokenService_IssueAndVerify(t *testing.T) {
	issued := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestTokens(issued)

	raw, exp, err := svc.Issue(alice)
	require.NoError(t, err)
	assert.Equal(t, issued.Add(7*24*time.Hour), exp)

	got, err := svc.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, alice, got)
}

func TestTokenService_ExpiryWindow(t *testing.T) {
	issued := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestTokens(issued)
	raw, _, err := svc.Issue(alice)
	require.NoError(t, err)

	svc.Now = fixedClock(issued.Add(6*24*time.Hour + 23*time.Hour))
	_, err = svc.Verify(raw)
	assert.NoError(t, err)

	svc.Now = fixedClock(issued.Add(7*24*time.Hour + time.Hour))
	_, err = svc.Verify(raw)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenService_Malformed(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestTokens(now)

	_, err := svc.Verify("not-a-jwt")
	assert.ErrorIs(t, err, ErrTokenMalformed)

	_, err = svc.Verify("")
	assert.ErrorIs(t, err, ErrTokenMissing)

	// signed with a different secret
	other := newTestTokens(now)
	other.Keys = map[string]string{"k1": "someone-else"}
	raw, _, err := other.Issue(alice)
	require.NoError(t, err)
	_, err = svc.Verify(raw)
	assert.ErrorIs(t, err, ErrTokenMalformed)

	// no member payload
	bare := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	})
	bare.Header["kid"] = "k1"
	rawBare, err := bare.SignedString([]byte("first-secret"))
	require.NoError(t, err)
	_, err = svc.Verify(rawBare)
	assert.ErrorIs(t, err, ErrTokenMalformed)

	// alg=none is refused
	none := jwt.NewWithClaims(jwt.SigningMethodNone, MemberClaims{Data: &alice,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))}})
	rawNone, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.Verify(rawNone)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestTokenService_KeyRotation(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	old := newTestTokens(now)
	raw, _, err := old.Issue(alice)
	require.NoError(t, err)

	rotated := NewTokenService(map[string]string{"k1": "first-secret", "k2": "second-secret"}, "k2", 7*24*time.Hour)
	rotated.Now = fixedClock(now)

	got, err := rotated.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	fresh, _, err := rotated.Issue(alice)
	require.NoError(t, err)
	parsed, _, err := jwt.NewParser().ParseUnverified(fresh, &MemberClaims{})
	require.NoError(t, err)
	assert.Equal(t, "k2", parsed.Header["kid"])

	// once k1 is retired its tokens stop verifying
	retired := NewTokenService(map[string]string{"k2": "second-secret"}, "k2", 7*24*time.Hour)
	retired.Now = fixedClock(now)
	_, err = retired.Verify(raw)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestTokenService_IssueWithoutActiveKey(t *testing.T) {
	svc := NewTokenService(map[string]string{}, "k9", time.Hour)
	_, _, err := svc.Issue(alice)
	assert.Error(t, err)
}

func TestParseBearer(t *testing.T) {
	tok, err := ParseBearer("Bearer abc.def.ghi")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", tok)

	tok, err = ParseBearer("bearer abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	for _, h := range []string{"", "Bearer", "Basic abc", "Bearer a b", "abc"} {
		_, err := ParseBearer(h)
		assert.ErrorIs(t, err, ErrTokenMissing, h)
	}
}
