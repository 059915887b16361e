package model

import "time"

// Role is the permission tier of a user.  The set is closed; the
// `roles` table only exists so that users.role can reference seeded
// reference data.
type Role string

const (
    RoleAdmin Role = "Admin"
    RoleUser  Role = "User"
)

// DefaultRole is assigned to every self-registered account.
const DefaultRole = RoleUser

// ParseRole maps a stored role name onto the enum.  Unknown names are
// reported as not ok so callers never widen privileges by accident.
func ParseRole(s string) (Role, bool) {
    switch Role(s) {
    case RoleAdmin:
        return RoleAdmin, true
    case RoleUser:
        return RoleUser, true
    }
    return "", false
}

// User represents an application user record as stored in the
// `users` table.
//
// Fields:
//  ID           – UUID primary key.
//  Username     – unique display/login name.
//  Email        – unique, lower-cased email address.
//  PasswordHash – bcrypt hash.
//  AvatarID     – blob id of the avatar image (nil when unset).
//  Role         – name of the role (references roles.name).
type User struct {
    ID           string    // users.id
    Username     string    // users.username
    Email        string    // users.email
    PasswordHash string    // users.password_hash
    AvatarID     *string   // users.avatar_id (nullable)
    Role         Role      // users.role
    CreatedOn    time.Time // users.created_on
    ModifiedOn   time.Time // users.modified_on
}

// IsAdmin reports whether the user carries the Admin role.
func (u *User) IsAdmin() bool { return u != nil && u.Role == RoleAdmin }

// RefreshToken models an entry in the `refresh_tokens` table.  The
// plain token is never stored; only its SHA‑256 hash.  A row moves from
// active to used (rotation) or revoked (logout) exactly once.
type RefreshToken struct {
    ID         string    // refresh_tokens.id
    UserID     string    // refresh_tokens.user_id
    TokenHash  string    // refresh_tokens.token_hash
    ExpiresAt  time.Time // refresh_tokens.expires_at
    IsUsed     bool      // refresh_tokens.is_used
    IsRevoked  bool      // refresh_tokens.is_revoked
    CreatedOn  time.Time // refresh_tokens.created_on
    ModifiedOn time.Time // refresh_tokens.modified_on
}

// Expired reports whether the token is past its expiry at now.
func (t *RefreshToken) Expired(now time.Time) bool {
    return !now.Before(t.ExpiresAt)
}

// Active reports whether the token can still be exchanged at now.
func (t *RefreshToken) Active(now time.Time) bool {
    return !t.IsUsed && !t.IsRevoked && !t.Expired(now)
}
