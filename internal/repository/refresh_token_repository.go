package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/prodicts/prodicts-backend/internal/model"
)

// RefreshTokenRepo persists refresh-token records and enforces the
// rotation and revocation invariants in `refresh_tokens`.
type RefreshTokenRepo struct {
	DB      *sql.DB
	TTLDays int // lifetime of newly issued tokens
}

func NewRefreshTokenRepo(db *sql.DB, ttlDays int) *RefreshTokenRepo {
	return &RefreshTokenRepo{DB: db, TTLDays: ttlDays}
}

const refreshColumns = `id,user_id,token,jwt_id,device_id,is_used,is_revoked,created_at,expires_at,
used_at,revoked_at,revoked_by_ip,replaced_by_token`

// Issue inserts a new active record for the given opaque token value.
func (r *RefreshTokenRepo) Issue(ctx context.Context, userID, tokenValue, jwtID string, deviceID *string) (*model.RefreshToken, error) {
	now := time.Now().UTC()
	rt := &model.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		Token:     tokenValue,
		JWTID:     jwtID,
		DeviceID:  deviceID,
		CreatedAt: now,
		ExpiresAt: now.AddDate(0, 0, r.TTLDays),
	}
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO refresh_tokens (id,user_id,token,jwt_id,device_id,is_used,is_revoked,created_at,expires_at)
		 VALUES (?,?,?,?,?,0,0,?,?)`,
		rt.ID, rt.UserID, rt.Token, rt.JWTID, rt.DeviceID, rt.CreatedAt, rt.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("insert refresh token: %w", err)
	}
	return rt, nil
}

// Lookup fetches a record by its opaque token value. ErrNotFound is
// distinct from a found-but-inactive record, which the caller detects
// via IsActive and treats as a possible replay.
func (r *RefreshTokenRepo) Lookup(ctx context.Context, tokenValue string) (*model.RefreshToken, error) {
	var rt model.RefreshToken
	err := r.DB.QueryRowContext(ctx,
		`SELECT `+refreshColumns+` FROM refresh_tokens WHERE token=? LIMIT 1`, tokenValue).
		Scan(&rt.ID, &rt.UserID, &rt.Token, &rt.JWTID, &rt.DeviceID, &rt.IsUsed, &rt.IsRevoked,
			&rt.CreatedAt, &rt.ExpiresAt, &rt.UsedAt, &rt.RevokedAt, &rt.RevokedByIP, &rt.ReplacedByToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rt, nil
}

// Rotate consumes old and inserts its replacement in one transaction.
// The conditional update is the atomicity hot spot: if another call
// already consumed the token, zero rows match and the rotation fails
// with ErrConflict instead of minting a second valid descendant.
func (r *RefreshTokenRepo) Rotate(ctx context.Context, old *model.RefreshToken, newTokenValue, newJWTID string) (*model.RefreshToken, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`UPDATE refresh_tokens SET is_used=1, used_at=?, replaced_by_token=?
		 WHERE token=? AND is_used=0 AND is_revoked=0`,
		now, newTokenValue, old.Token)
	if err != nil {
		return nil, fmt.Errorf("consume refresh token: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrConflict
	}

	rt := &model.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    old.UserID,
		Token:     newTokenValue,
		JWTID:     newJWTID,
		DeviceID:  old.DeviceID,
		CreatedAt: now,
		ExpiresAt: now.AddDate(0, 0, r.TTLDays),
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO refresh_tokens (id,user_id,token,jwt_id,device_id,is_used,is_revoked,created_at,expires_at)
		 VALUES (?,?,?,?,?,0,0,?,?)`,
		rt.ID, rt.UserID, rt.Token, rt.JWTID, rt.DeviceID, rt.CreatedAt, rt.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("insert replacement token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	old.IsUsed = true
	old.UsedAt = &now
	old.ReplacedByToken = &rt.Token
	return rt, nil
}

// RevokeOne marks a single token revoked. Revoking an inactive or
// unknown token is a no-op, not an error.
func (r *RefreshTokenRepo) RevokeOne(ctx context.Context, tokenValue string, ip *string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE refresh_tokens SET is_revoked=1, revoked_at=?, revoked_by_ip=?
		 WHERE token=? AND is_revoked=0`,
		time.Now().UTC(), ip, tokenValue)
	return err
}

// RevokeAllForUser revokes every active token owned by the user.
func (r *RefreshTokenRepo) RevokeAllForUser(ctx context.Context, userID string, ip *string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE refresh_tokens SET is_revoked=1, revoked_at=?, revoked_by_ip=?
		 WHERE user_id=? AND is_revoked=0 AND is_used=0 AND expires_at > ?`,
		time.Now().UTC(), ip, userID, time.Now().UTC())
	return err
}

// RevokeAllForDevice revokes every active token issued to a device.
func (r *RefreshTokenRepo) RevokeAllForDevice(ctx context.Context, deviceID string, ip *string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE refresh_tokens SET is_revoked=1, revoked_at=?, revoked_by_ip=?
		 WHERE device_id=? AND is_revoked=0 AND is_used=0 AND expires_at > ?`,
		time.Now().UTC(), ip, deviceID, time.Now().UTC())
	return err
}

// Sweep deletes records that expired more than seven days ago.
// Housekeeping only; correctness never depends on it running.
func (r *RefreshTokenRepo) Sweep(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at < ?`,
		time.Now().UTC().AddDate(0, 0, -7))
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}
