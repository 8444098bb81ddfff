package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func signClaims(t *testing.T, method jwt.SigningMethod, claims jwt.Claims, key any) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func validClaims(now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "7",
			Issuer:    Issuer,
			Audience:  jwt.ClaimStrings{Audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Username: "alice",
	}
}

func TestTokenService_IssueAndVerify(t *testing.T) {
	svc := NewTokenService(testSecret, 0)
	assert.Equal(t, time.Hour, svc.TTL())

	token, err := svc.Issue(42, "alice")
	require.NoError(t, err)

	id, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), id.UserID)
	assert.Equal(t, "alice", id.Username)
	assert.NotEmpty(t, id.TokenID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), id.ExpiresAt, 5*time.Second)
}

func TestTokenService_IssueRejectsZeroUser(t *testing.T) {
	_, err := NewTokenService(testSecret, time.Hour).Issue(0, "ghost")
	assert.Error(t, err)
}

func TestTokenService_UniqueTokenIDs(t *testing.T) {
	svc := NewTokenService(testSecret, time.Hour)
	a, err := svc.Issue(1, "a")
	require.NoError(t, err)
	b, err := svc.Issue(1, "a")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestTokenService_Expired(t *testing.T) {
	svc := NewTokenService(testSecret, time.Hour)
	past := time.Now().Add(-2 * time.Hour)
	token := signClaims(t, jwt.SigningMethodHS256, validClaims(past), []byte(testSecret))

	_, err := svc.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenService_ExpiresAfterTTL(t *testing.T) {
	svc := NewTokenService(testSecret, time.Hour)
	token, err := svc.Issue(3, "carol")
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(61 * time.Minute) }
	_, err = svc.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenService_Invalid(t *testing.T) {
	svc := NewTokenService(testSecret, time.Hour)
	now := time.Now()

	wrongIssuer := validClaims(now)
	wrongIssuer.Issuer = "someone-else"

	wrongAudience := validClaims(now)
	wrongAudience.Audience = jwt.ClaimStrings{"other-client"}

	badSubject := validClaims(now)
	badSubject.Subject = "not-a-number"

	zeroSubject := validClaims(now)
	zeroSubject.Subject = "0"

	noExpiry := validClaims(now)
	noExpiry.ExpiresAt = nil

	good := signClaims(t, jwt.SigningMethodHS256, validClaims(now), []byte(testSecret))
	parts := strings.Split(good, ".")
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.token"},
		{"two segments", "abc.def"},
		{"tampered signature", tampered},
		{"wrong secret", signClaims(t, jwt.SigningMethodHS256, validClaims(now), []byte("another-secret"))},
		{"wrong algorithm", signClaims(t, jwt.SigningMethodHS512, validClaims(now), []byte(testSecret))},
		{"none algorithm", signClaims(t, jwt.SigningMethodNone, validClaims(now), jwt.UnsafeAllowNoneSignatureType)},
		{"wrong issuer", signClaims(t, jwt.SigningMethodHS256, wrongIssuer, []byte(testSecret))},
		{"wrong audience", signClaims(t, jwt.SigningMethodHS256, wrongAudience, []byte(testSecret))},
		{"non numeric subject", signClaims(t, jwt.SigningMethodHS256, badSubject, []byte(testSecret))},
		{"zero subject", signClaims(t, jwt.SigningMethodHS256, zeroSubject, []byte(testSecret))},
		{"missing expiry", signClaims(t, jwt.SigningMethodHS256, noExpiry, []byte(testSecret))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Verify(tt.token)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrTokenInvalid)
			assert.NotErrorIs(t, err, ErrTokenExpired)
		})
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("pw123")
	require.NoError(t, err)
	assert.NotEqual(t, "pw123", hash)

	ok, err := CheckPassword(hash, "pw123")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CheckPassword(hash, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = CheckPassword("not-a-bcrypt-hash", "pw123")
	assert.Error(t, err)
}
