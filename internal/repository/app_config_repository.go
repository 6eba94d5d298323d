package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/prodicts/prodicts-backend/internal/model"
)

// AppConfigRepo reads and writes the single `app_config` row.
type AppConfigRepo struct{ DB *sql.DB }

func NewAppConfigRepo(db *sql.DB) *AppConfigRepo { return &AppConfigRepo{DB: db} }

const appConfigColumns = `id,app_name,ios_package_name,ios_version,ios_build_number,
android_package_name,android_version,android_build_number,created_at,updated_at`

// Get returns the current configuration document, or ErrNotFound when
// it has never been seeded.
func (r *AppConfigRepo) Get(ctx context.Context) (*model.AppConfig, error) {
	var c model.AppConfig
	err := r.DB.QueryRowContext(ctx,
		`SELECT `+appConfigColumns+` FROM app_config ORDER BY updated_at DESC LIMIT 1`).
		Scan(&c.ID, &c.AppName, &c.IOSPackageName, &c.IOSVersion, &c.IOSBuildNumber,
			&c.AndroidPackageName, &c.AndroidVersion, &c.AndroidBuildNumber, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// Upsert replaces the configuration document, inserting it on first
// write.
func (r *AppConfigRepo) Upsert(ctx context.Context, c *model.AppConfig) error {
	now := time.Now().UTC()
	c.UpdatedAt = now

	existing, err := r.Get(ctx)
	switch {
	case errors.Is(err, ErrNotFound):
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		c.CreatedAt = now
		_, err = r.DB.ExecContext(ctx,
			`INSERT INTO app_config (`+appConfigColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?)`,
			c.ID, c.AppName, c.IOSPackageName, c.IOSVersion, c.IOSBuildNumber,
			c.AndroidPackageName, c.AndroidVersion, c.AndroidBuildNumber, c.CreatedAt, c.UpdatedAt)
		return err
	case err != nil:
		return err
	}

	c.ID = existing.ID
	c.CreatedAt = existing.CreatedAt
	_, err = r.DB.ExecContext(ctx,
		`UPDATE app_config SET app_name=?, ios_package_name=?, ios_version=?, ios_build_number=?,
		 android_package_name=?, android_version=?, android_build_number=?, updated_at=? WHERE id=?`,
		c.AppName, c.IOSPackageName, c.IOSVersion, c.IOSBuildNumber,
		c.AndroidPackageName, c.AndroidVersion, c.AndroidBuildNumber, c.UpdatedAt, c.ID)
	return err
}
