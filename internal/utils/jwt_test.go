package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIssuer() *TokenIssuer {
	return NewTokenIssuer("secret-key-for-tests", "contenthub", "contenthub-clients", 15*time.Minute, 7*24*time.Hour)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	ti := testIssuer()
	at, err := ti.IssueAccessToken(Subject{ID: "u-1", Username: "alice", Email: "alice@example.com", Role: "Admin"})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), at.Exp, 5*time.Second)

	claims, err := ti.ParseAccessToken(at.Token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID())
	assert.Equal(t, "alice", claims.Name)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, "Admin", claims.Role)
}

func TestAccessTokenRejected(t *testing.T) {
	ti := testIssuer()
	at, err := ti.IssueAccessToken(Subject{ID: "u-1", Role: "User"})
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenIssuer("another-secret", "contenthub", "contenthub-clients", time.Minute, time.Hour)
		_, err := other.ParseAccessToken(at.Token)
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})

	t.Run("wrong audience", func(t *testing.T) {
		other := NewTokenIssuer("secret-key-for-tests", "contenthub", "someone-else", time.Minute, time.Hour)
		_, err := other.ParseAccessToken(at.Token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewTokenIssuer("secret-key-for-tests", "elsewhere", "contenthub-clients", time.Minute, time.Hour)
		_, err := other.ParseAccessToken(at.Token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		later := ti.WithClock(func() time.Time { return time.Now().Add(time.Hour) })
		_, err := later.ParseAccessToken(at.Token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("none algorithm", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
			"sub": "u-1", "iss": "contenthub", "aud": "contenthub-clients",
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		raw, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = ti.ParseAccessToken(raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ti.ParseAccessToken("not.a.jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestRefreshTokenShape(t *testing.T) {
	ti := testIssuer()
	a, err := ti.IssueRefreshToken()
	require.NoError(t, err)
	b, err := ti.IssueRefreshToken()
	require.NoError(t, err)

	assert.Len(t, a.Raw, 96)
	assert.NotEqual(t, a.Raw, b.Raw)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), a.Exp, 5*time.Second)

	h := HashRefreshToken(a.Raw)
	assert.Len(t, h, 64)
	assert.Equal(t, h, HashRefreshToken(a.Raw))
	assert.NotEqual(t, h, HashRefreshToken(b.Raw))
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("s3cret!", 4)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "s3cret!"))
	assert.False(t, VerifyPassword(hash, "S3cret!"))
	assert.False(t, VerifyPassword("not-a-hash", "s3cret!"))
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Hello, World!":           "hello-world",
		"Rock & Roll":             "rock-and-roll",
		"C# in 10 minutes":        "csharp-in-10-minutes",
		"  --Spaces  around--  ":  "spaces-around",
		"100% Pure":               "100percent-pure",
		"Ёлка":                    "елка",
		"a+b=c":                   "aplusbequalsc",
		"(?!)":                    "",
		"Mail me @ home: \"now\"": "mail-me-at-home-now",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestFallbackSlug(t *testing.T) {
	ts := time.Unix(0, 42)
	assert.Equal(t, "book-42", FallbackSlug("book", ts))
}
