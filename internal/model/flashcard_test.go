package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvanceCorrectAnswersWalkTheSchedule(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	card := &FlashCard{SourceWord: "hund", TargetWord: "dog"}

	wantDays := []int{2, 4, 7, 14, 30, 60}
	for i, days := range wantDays {
		card.Advance(true, now)
		require.Equal(t, i+1, card.CurrentStep)
		assert.Equal(t, now.Add(time.Duration(days)*24*time.Hour), card.NextReviewDate)
		assert.False(t, card.IsCompleted)
		now = card.NextReviewDate
	}

	// Correct at the last step completes the card.
	card.Advance(true, now)
	assert.True(t, card.IsCompleted)
	assert.Equal(t, 6, card.CurrentStep)
	assert.Len(t, card.ReviewDates, 7)
}

func TestAdvanceIncorrectResetsToStepZero(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	card := &FlashCard{CurrentStep: 4}

	card.Advance(false, now)

	assert.Equal(t, 0, card.CurrentStep)
	assert.Equal(t, now.Add(24*time.Hour), card.NextReviewDate)
	assert.False(t, card.IsCompleted)
}

func TestAdvanceRecordsFirstLearningDateOnce(t *testing.T) {
	first := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	card := &FlashCard{}

	card.Advance(false, first)
	require.NotNil(t, card.FirstLearningDate)
	assert.Equal(t, first, *card.FirstLearningDate)

	card.Advance(true, first.Add(24*time.Hour))
	assert.Equal(t, first, *card.FirstLearningDate)
	assert.Len(t, card.ReviewDates, 2)
}
