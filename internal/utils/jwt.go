package utils // package utils provides helper functions for token creation and hashing

import (
    "crypto/rand"   // secure random number generation
    "crypto/sha256" // SHA‑256 hashing for refresh tokens
    "encoding/hex"  // hex encoding and decoding functions
    "errors"
    "fmt"
    "time" // time utilities for generating expirations

    "github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// refreshTokenBytes is the amount of entropy in a refresh token (384 bits).
const refreshTokenBytes = 48

// ErrInvalidToken is returned by ParseAccessToken for any token that
// fails signature, expiry, issuer or audience checks.
var ErrInvalidToken = errors.New("invalid token")

// AccessToken represents a signed JWT access token along with its expiry.
// The Token field contains the JWT string.  Exp stores the expiration
// timestamp as a time.Time.  Access tokens are short‑lived and encoded
// in the Authorization header when calling protected endpoints.
type AccessToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// RefreshToken represents a long‑lived token used to obtain new access tokens.
// The Raw field contains the raw token string returned to the client.  The Exp
// field records when it expires.  In the database only a SHA‑256 hash of the
// raw string is stored.
type RefreshToken struct {
    Raw string    // raw token string returned to the client
    Exp time.Time // UTC expiration time
}

// Subject is what the issuer needs to know about a user to mint an
// access token.
type Subject struct {
    ID       string
    Username string
    Email    string
    Role     string
}

// Claims is the payload of an access token.  The subject (sub) carries
// the user id; name, email and role are copied from the user at issue
// time.
type Claims struct {
    Name  string `json:"name"`
    Email string `json:"email"`
    Role  string `json:"role"`
    jwt.RegisteredClaims
}

// UserID returns the subject claim.
func (c *Claims) UserID() string { return c.Subject }

// TokenIssuer signs and verifies access tokens and mints refresh tokens.
// One issuer is built at startup from configuration and shared.
type TokenIssuer struct {
    secret     []byte
    issuer     string
    audience   string
    accessTTL  time.Duration
    refreshTTL time.Duration
    now        func() time.Time
}

// NewTokenIssuer builds an issuer.  accessTTL and refreshTTL must be positive.
func NewTokenIssuer(secret, issuer, audience string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
    return &TokenIssuer{
        secret:     []byte(secret),
        issuer:     issuer,
        audience:   audience,
        accessTTL:  accessTTL,
        refreshTTL: refreshTTL,
        now:        func() time.Time { return time.Now().UTC() },
    }
}

// WithClock replaces the time source; tests use it to step past expiry.
func (ti *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
    cp := *ti
    cp.now = now
    return &cp
}

// Now returns the issuer's current time.
func (ti *TokenIssuer) Now() time.Time { return ti.now() }

// IssueAccessToken builds and signs an HS256 JWT for a user.  The JWT
// includes the standard claims subject (sub), issuer (iss), audience
// (aud), expiration (exp) and issued at (iat) next to name, email and role.
func (ti *TokenIssuer) IssueAccessToken(s Subject) (AccessToken, error) {
    // Calculate the expiration time by adding the TTL to the current UTC time.
    iat := ti.now()
    exp := iat.Add(ti.accessTTL)
    claims := Claims{
        Name:  s.Username,
        Email: s.Email,
        Role:  s.Role,
        RegisteredClaims: jwt.RegisteredClaims{
            Subject:   s.ID,
            Issuer:    ti.issuer,
            Audience:  jwt.ClaimStrings{ti.audience},
            IssuedAt:  jwt.NewNumericDate(iat),
            ExpiresAt: jwt.NewNumericDate(exp),
        },
    }
    // Create a new token object specifying the signing method (HS256) and
    // include the claims.
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    // Sign the token with the secret and obtain the string form.
    signed, err := t.SignedString(ti.secret)
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}

// IssueRefreshToken returns a cryptographically secure random token (raw)
// and its expiration time.  The token carries no claims; it only means
// something through its hashed row in refresh_tokens.
func (ti *TokenIssuer) IssueRefreshToken() (RefreshToken, error) {
    // Generate a random 48‑byte string and encode it as hex (96 characters).
    raw, err := randomHex(refreshTokenBytes)
    if err != nil {
        return RefreshToken{}, err
    }
    return RefreshToken{
        Raw: raw,
        Exp: ti.now().Add(ti.refreshTTL),
    }, nil
}

// ParseAccessToken verifies signature (HMAC only), expiry, issuer and
// audience and returns the claims.
func (ti *TokenIssuer) ParseAccessToken(raw string) (*Claims, error) {
    claims := &Claims{}
    tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
        // Reject anything that is not HMAC so an attacker cannot switch
        // to "none" or an asymmetric algorithm.
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
        }
        return ti.secret, nil
    },
        jwt.WithIssuer(ti.issuer),
        jwt.WithAudience(ti.audience),
        jwt.WithExpirationRequired(),
        jwt.WithTimeFunc(ti.now),
    )
    if err != nil || !tok.Valid {
        return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
    }
    if claims.Subject == "" {
        return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
    }
    return claims, nil
}

// HashRefreshToken returns the SHA‑256 hash of the raw refresh token as a
// hex string.  It is the lookup key stored in refresh_tokens.token_hash.
func HashRefreshToken(raw string) string {
    // Compute the SHA‑256 digest of the raw bytes.
    sum := sha256.Sum256([]byte(raw))
    // Convert the binary digest to a hex string.
    return hex.EncodeToString(sum[:])
}

// randomHex returns a hex‑encoded string generated from n bytes of
// cryptographically secure random data.  If the random number generator
// fails, an error is returned.
func randomHex(n int) (string, error) {
    // Allocate a slice of n bytes.
    buf := make([]byte, n)
    // Fill the slice with secure random data.
    if _, err := rand.Read(buf); err != nil {
        return "", err
    }
    // Convert the random bytes to a hex string and return.
    return hex.EncodeToString(buf), nil
}
