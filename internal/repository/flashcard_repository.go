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

// FlashCardRepo persists individual cards in `flashcards`.
type FlashCardRepo struct{ DB *sql.DB }

func NewFlashCardRepo(db *sql.DB) *FlashCardRepo { return &FlashCardRepo{DB: db} }

const cardColumns = `id,group_id,owner_id,source_word,target_word,current_step,next_review_date,
first_learning_date,review_dates,is_completed,created_at,updated_at`

func (r *FlashCardRepo) Create(ctx context.Context, c *model.FlashCard) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	if c.NextReviewDate.IsZero() {
		c.NextReviewDate = now
	}
	reviews, err := marshalJSON(c.ReviewDates)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO flashcards (`+cardColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		c.ID, c.GroupID, c.OwnerID, c.SourceWord, c.TargetWord, c.CurrentStep, c.NextReviewDate,
		c.FirstLearningDate, reviews, c.IsCompleted, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert flashcard: %w", err)
	}
	return nil
}

func (r *FlashCardRepo) GetByID(ctx context.Context, id string) (*model.FlashCard, error) {
	var (
		c       model.FlashCard
		reviews []byte
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT `+cardColumns+` FROM flashcards WHERE id=? LIMIT 1`, id).
		Scan(&c.ID, &c.GroupID, &c.OwnerID, &c.SourceWord, &c.TargetWord, &c.CurrentStep,
			&c.NextReviewDate, &c.FirstLearningDate, &reviews, &c.IsCompleted, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := unmarshalJSON(reviews, &c.ReviewDates); err != nil {
		return nil, fmt.Errorf("decode review dates: %w", err)
	}
	return &c, nil
}

func (r *FlashCardRepo) list(ctx context.Context, query string, args ...any) ([]model.FlashCard, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.FlashCard
	for rows.Next() {
		var (
			c       model.FlashCard
			reviews []byte
		)
		if err := rows.Scan(&c.ID, &c.GroupID, &c.OwnerID, &c.SourceWord, &c.TargetWord,
			&c.CurrentStep, &c.NextReviewDate, &c.FirstLearningDate, &reviews, &c.IsCompleted,
			&c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		if err := unmarshalJSON(reviews, &c.ReviewDates); err != nil {
			return nil, fmt.Errorf("decode review dates: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *FlashCardRepo) ListByGroup(ctx context.Context, groupID string) ([]model.FlashCard, error) {
	return r.list(ctx,
		`SELECT `+cardColumns+` FROM flashcards WHERE group_id=? ORDER BY created_at`, groupID)
}

// ListDue returns the owner's cards due for review at the given
// instant, oldest due date first.
func (r *FlashCardRepo) ListDue(ctx context.Context, ownerID string, now time.Time) ([]model.FlashCard, error) {
	return r.list(ctx,
		`SELECT `+cardColumns+` FROM flashcards
		 WHERE owner_id=? AND is_completed=0 AND next_review_date<=?
		 ORDER BY next_review_date`, ownerID, now.UTC())
}

// Update persists the card's review state after Advance has been
// applied in memory.
func (r *FlashCardRepo) Update(ctx context.Context, c *model.FlashCard) error {
	c.UpdatedAt = time.Now().UTC()
	reviews, err := marshalJSON(c.ReviewDates)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx,
		`UPDATE flashcards SET source_word=?, target_word=?, current_step=?, next_review_date=?,
		 first_learning_date=?, review_dates=?, is_completed=?, updated_at=? WHERE id=?`,
		c.SourceWord, c.TargetWord, c.CurrentStep, c.NextReviewDate, c.FirstLearningDate,
		reviews, c.IsCompleted, c.UpdatedAt, c.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *FlashCardRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM flashcards WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
