package repository

import (
	"context"
	"time"

	"github.com/iliyamo/contenthub/internal/model"
)

// TokenRepo persists refresh tokens.  Only the SHA-256 hash of a token is
// stored ('token_hash' column); lookups go through the hash.
type TokenRepo struct{ DB DBTX }

func NewTokenRepo(db DBTX) *TokenRepo { return &TokenRepo{DB: db} }

const tokenColumns = "id,user_id,token_hash,expires_at,is_used,is_revoked,created_on,modified_on"

func scanToken(row rowScanner) (model.RefreshToken, error) {
	var t model.RefreshToken
	err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.IsUsed, &t.IsRevoked, &t.CreatedOn, &t.ModifiedOn)
	if err != nil {
		return model.RefreshToken{}, mapErr(err)
	}
	return t, nil
}

// Store inserts an active refresh token row for userID.
func (r *TokenRepo) Store(ctx context.Context, userID, tokenHash string, exp time.Time) (model.RefreshToken, error) {
	t := model.RefreshToken{
		ID:        newID(),
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: exp.UTC().Truncate(time.Microsecond),
		CreatedOn: now(),
	}
	t.ModifiedOn = t.CreatedOn
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens ("+tokenColumns+") VALUES (?,?,?,?,?,?,?,?)",
		t.ID, t.UserID, t.TokenHash, t.ExpiresAt, false, false, t.CreatedOn, t.ModifiedOn)
	if err != nil {
		return model.RefreshToken{}, mapErr(err)
	}
	return t, nil
}

// FindByHash returns the row for tokenHash whatever its state.
func (r *TokenRepo) FindByHash(ctx context.Context, tokenHash string) (model.RefreshToken, error) {
	return scanToken(r.DB.QueryRowContext(ctx,
		"SELECT "+tokenColumns+" FROM refresh_tokens WHERE token_hash=? LIMIT 1", tokenHash))
}

// ClaimUnused flips an active row to used.  It returns false when
// another caller already consumed or revoked it; the conditional
// update is what serialises concurrent refreshes.
func (r *TokenRepo) ClaimUnused(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET is_used=1, modified_on=? WHERE id=? AND is_used=0 AND is_revoked=0",
		now(), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// RevokeForUser revokes the one non-revoked token matching both userID
// and tokenHash.  Reports whether a row changed.
func (r *TokenRepo) RevokeForUser(ctx context.Context, userID, tokenHash string) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET is_revoked=1, modified_on=? WHERE user_id=? AND token_hash=? AND is_revoked=0",
		now(), userID, tokenHash)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// RevokeAllForUser revokes all user's active tokens.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET is_revoked=1, modified_on=? WHERE user_id=? AND is_revoked=0 AND is_used=0",
		now(), userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteForUser removes every token row of userID.
func (r *TokenRepo) DeleteForUser(ctx context.Context, userID string) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE user_id=?", userID)
	return err
}

// CountForUser counts token rows of userID, whatever their state.
func (r *TokenRepo) CountForUser(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM refresh_tokens WHERE user_id=?", userID).Scan(&n)
	return n, err
}

// ListForUser returns all token rows of userID, newest first.
func (r *TokenRepo) ListForUser(ctx context.Context, userID string) ([]model.RefreshToken, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+tokenColumns+" FROM refresh_tokens WHERE user_id=? ORDER BY created_on DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.RefreshToken
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
