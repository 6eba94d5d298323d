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

// FlashCardGroupRepo persists decks in `flashcard_groups`. Group
// names are unique per owner, enforced by the (owner_id, name) index.
type FlashCardGroupRepo struct{ DB *sql.DB }

func NewFlashCardGroupRepo(db *sql.DB) *FlashCardGroupRepo { return &FlashCardGroupRepo{DB: db} }

const groupColumns = `id,owner_id,name,description,source_language,target_language,is_active,created_at,updated_at`

func (r *FlashCardGroupRepo) Create(ctx context.Context, g *model.FlashCardGroup) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	g.CreatedAt, g.UpdatedAt = now, now
	g.IsActive = true

	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO flashcard_groups (`+groupColumns+`) VALUES (?,?,?,?,?,?,?,?,?)`,
		g.ID, g.OwnerID, g.Name, g.Description, g.SourceLanguage, g.TargetLanguage,
		g.IsActive, g.CreatedAt, g.UpdatedAt)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert flashcard group: %w", err)
	}
	return nil
}

func (r *FlashCardGroupRepo) GetByID(ctx context.Context, id string) (*model.FlashCardGroup, error) {
	var g model.FlashCardGroup
	err := r.DB.QueryRowContext(ctx,
		`SELECT `+groupColumns+` FROM flashcard_groups WHERE id=? AND is_active=1 LIMIT 1`, id).
		Scan(&g.ID, &g.OwnerID, &g.Name, &g.Description, &g.SourceLanguage, &g.TargetLanguage,
			&g.IsActive, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

// ListByOwner returns an owner's active groups, newest first. The
// owner id is a user id or an anonymous device id; the query does not
// distinguish the two.
func (r *FlashCardGroupRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.FlashCardGroup, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+groupColumns+` FROM flashcard_groups WHERE owner_id=? AND is_active=1
		 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.FlashCardGroup
	for rows.Next() {
		var g model.FlashCardGroup
		if err := rows.Scan(&g.ID, &g.OwnerID, &g.Name, &g.Description, &g.SourceLanguage,
			&g.TargetLanguage, &g.IsActive, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *FlashCardGroupRepo) Update(ctx context.Context, g *model.FlashCardGroup) error {
	g.UpdatedAt = time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		`UPDATE flashcard_groups SET name=?, description=?, source_language=?, target_language=?,
		 updated_at=? WHERE id=? AND is_active=1`,
		g.Name, g.Description, g.SourceLanguage, g.TargetLanguage, g.UpdatedAt, g.ID)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrConflict
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete soft-deletes the group and its cards together so a deleted
// deck never leaves orphaned due cards behind.
func (r *FlashCardGroupRepo) Delete(ctx context.Context, id string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`UPDATE flashcard_groups SET is_active=0, updated_at=? WHERE id=? AND is_active=1`, now, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM flashcards WHERE group_id=?`, id); err != nil {
		return err
	}
	return tx.Commit()
}
