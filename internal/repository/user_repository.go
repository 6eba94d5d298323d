package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/prodicts/prodicts-backend/internal/model"
)

// UserRepo persists registered accounts in the `users` table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = `id,first_name,last_name,email,password_hash,profile_picture_url,email_verified,
providers,device_ids,anonymous_user_id,role,subscription_provider,provider_user_id,
current_subscription_plan,subscription_expires_at,is_active,created_at,updated_at`

// Create inserts the user and fills in id and timestamps. Email
// uniqueness is enforced by the unique index; violations surface as
// ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.CurrentSubscriptionPlan == "" {
		u.CurrentSubscriptionPlan = "Free"
	}
	if u.Role == "" {
		u.Role = "User"
	}
	u.IsActive = true

	providers, err := marshalJSON(u.Providers)
	if err != nil {
		return err
	}
	deviceIDs, err := marshalJSON(u.DeviceIDs)
	if err != nil {
		return err
	}

	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		u.ID, u.FirstName, u.LastName, u.Email, u.PasswordHash, u.ProfilePictureURL, u.EmailVerified,
		providers, deviceIDs, u.AnonymousUserID, u.Role, u.SubscriptionProvider, u.ProviderUserID,
		u.CurrentSubscriptionPlan, u.SubscriptionExpiresAt, u.IsActive, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepo) scanUser(row *sql.Row) (*model.User, error) {
	var (
		u         model.User
		providers []byte
		deviceIDs []byte
	)
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &u.ProfilePictureURL,
		&u.EmailVerified, &providers, &deviceIDs, &u.AnonymousUserID, &u.Role, &u.SubscriptionProvider,
		&u.ProviderUserID, &u.CurrentSubscriptionPlan, &u.SubscriptionExpiresAt, &u.IsActive,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := unmarshalJSON(providers, &u.Providers); err != nil {
		return nil, fmt.Errorf("decode providers: %w", err)
	}
	if err := unmarshalJSON(deviceIDs, &u.DeviceIDs); err != nil {
		return nil, fmt.Errorf("decode device ids: %w", err)
	}
	return &u, nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.scanUser(r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id=? LIMIT 1`, id))
}

// GetByEmail fetches an active user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scanUser(r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email=? AND is_active=1 LIMIT 1`, email))
}

// GetByProvider fetches the user owning the given provider link. At
// most one user holds a (providerName, providerId) pair system-wide.
// Matching on a two-key JSON_OBJECT ignores the token and timestamp
// fields stored alongside each provider entry.
func (r *UserRepo) GetByProvider(ctx context.Context, providerName, providerID string) (*model.User, error) {
	return r.scanUser(r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE JSON_CONTAINS(providers, JSON_OBJECT('providerName', ?, 'providerId', ?)) AND is_active=1
		 LIMIT 1`,
		providerName, providerID))
}

// EmailExists reports whether an active user already holds the email.
func (r *UserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var n int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE email=? AND is_active=1`, email).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Update rewrites the mutable columns of the user row.
func (r *UserRepo) Update(ctx context.Context, u *model.User) error {
	u.UpdatedAt = time.Now().UTC()

	providers, err := marshalJSON(u.Providers)
	if err != nil {
		return err
	}
	deviceIDs, err := marshalJSON(u.DeviceIDs)
	if err != nil {
		return err
	}

	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET first_name=?, last_name=?, profile_picture_url=?, email_verified=?,
		 providers=?, device_ids=?, anonymous_user_id=?, role=?, subscription_provider=?,
		 provider_user_id=?, current_subscription_plan=?, subscription_expires_at=?, is_active=?,
		 updated_at=? WHERE id=?`,
		u.FirstName, u.LastName, u.ProfilePictureURL, u.EmailVerified,
		providers, deviceIDs, u.AnonymousUserID, u.Role, u.SubscriptionProvider, u.ProviderUserID,
		u.CurrentSubscriptionPlan, u.SubscriptionExpiresAt, u.IsActive, u.UpdatedAt, u.ID)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete soft-deletes the account, freeing its email for re-use.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET is_active=0, updated_at=? WHERE id=? AND is_active=1`,
		time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
