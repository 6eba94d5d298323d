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

// AnonymousUserRepo persists device-scoped sessions in the
// `anonymous_users` table.
type AnonymousUserRepo struct{ DB *sql.DB }

func NewAnonymousUserRepo(db *sql.DB) *AnonymousUserRepo { return &AnonymousUserRepo{DB: db} }

const anonColumns = `id,device_id,device_type,app_version,sync_data,is_upgraded,upgraded_user_id,
last_sync_at,last_active_at,is_active,created_at`

// Create inserts a fresh anonymous record for a device.
func (r *AnonymousUserRepo) Create(ctx context.Context, a *model.AnonymousUser) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	a.CreatedAt, a.LastActiveAt, a.LastSyncAt = now, now, now
	a.IsActive = true
	if a.DeviceType == "" {
		a.DeviceType = "Unknown"
	}

	syncData, err := marshalJSON(a.SyncData)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO anonymous_users (`+anonColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		a.ID, a.DeviceID, a.DeviceType, a.AppVersion, syncData, a.IsUpgraded, a.UpgradedUserID,
		a.LastSyncAt, a.LastActiveAt, a.IsActive, a.CreatedAt)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert anonymous user: %w", err)
	}
	return nil
}

func (r *AnonymousUserRepo) scan(row *sql.Row) (*model.AnonymousUser, error) {
	var (
		a        model.AnonymousUser
		syncData []byte
	)
	err := row.Scan(&a.ID, &a.DeviceID, &a.DeviceType, &a.AppVersion, &syncData, &a.IsUpgraded,
		&a.UpgradedUserID, &a.LastSyncAt, &a.LastActiveAt, &a.IsActive, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := unmarshalJSON(syncData, &a.SyncData); err != nil {
		return nil, fmt.Errorf("decode sync data: %w", err)
	}
	return &a, nil
}

// GetByDeviceID fetches the active anonymous record for a device.
func (r *AnonymousUserRepo) GetByDeviceID(ctx context.Context, deviceID string) (*model.AnonymousUser, error) {
	return r.scan(r.DB.QueryRowContext(ctx,
		`SELECT `+anonColumns+` FROM anonymous_users WHERE device_id=? AND is_active=1 LIMIT 1`,
		deviceID))
}

// Update rewrites the sync payload and activity timestamps.
func (r *AnonymousUserRepo) Update(ctx context.Context, a *model.AnonymousUser) error {
	syncData, err := marshalJSON(a.SyncData)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx,
		`UPDATE anonymous_users SET device_type=?, app_version=?, sync_data=?, last_sync_at=?,
		 last_active_at=?, is_active=? WHERE id=?`,
		a.DeviceType, a.AppVersion, syncData, a.LastSyncAt, a.LastActiveAt, a.IsActive, a.ID)
	if err != nil {
		return fmt.Errorf("update anonymous user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Touch bumps last_active_at for a device without rewriting the
// payload.
func (r *AnonymousUserRepo) Touch(ctx context.Context, deviceID string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE anonymous_users SET last_active_at=? WHERE device_id=? AND is_active=1`,
		time.Now().UTC(), deviceID)
	return err
}

// MarkUpgraded freezes the record as upgraded and links the user it
// became. The is_upgraded guard makes the migration one-way: a second
// attempt affects no rows and returns ErrConflict.
func (r *AnonymousUserRepo) MarkUpgraded(ctx context.Context, deviceID, userID string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE anonymous_users SET is_upgraded=1, upgraded_user_id=?, last_active_at=?
		 WHERE device_id=? AND is_active=1 AND is_upgraded=0`,
		userID, time.Now().UTC(), deviceID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrConflict
	}
	return nil
}
