package model

import "time"

// FlashCardGroup is a named deck of flashcards in the
// `flashcard_groups` table. Group names are unique per owner.
type FlashCardGroup struct {
	ID             string    // flashcard_groups.id
	OwnerID        string    // flashcard_groups.owner_id (user or device id)
	Name           string    // flashcard_groups.name
	Description    *string   // flashcard_groups.description (nullable)
	SourceLanguage string    // flashcard_groups.source_language
	TargetLanguage string    // flashcard_groups.target_language
	IsActive       bool      // flashcard_groups.is_active
	CreatedAt      time.Time // flashcard_groups.created_at
	UpdatedAt      time.Time // flashcard_groups.updated_at
}

// FlashCard is a single word pair in the `flashcards` table moving
// through spaced-repetition steps 0..6. Step 0 is a new card; a card
// past step 6 is completed.
//
// Fields:
//  OwnerID           – user id or anonymous device id; both identity
//                      kinds share this code path.
//  CurrentStep       – 0..6 review stage.
//  NextReviewDate    – when the card is due again.
//  FirstLearningDate – set on the first successful review.
//  ReviewDates       – history of review timestamps (JSON column).
type FlashCard struct {
	ID                string      // flashcards.id
	GroupID           string      // flashcards.group_id
	OwnerID           string      // flashcards.owner_id
	SourceWord        string      // flashcards.source_word
	TargetWord        string      // flashcards.target_word
	CurrentStep       int         // flashcards.current_step
	NextReviewDate    time.Time   // flashcards.next_review_date
	FirstLearningDate *time.Time  // flashcards.first_learning_date (nullable)
	ReviewDates       []time.Time // flashcards.review_dates (JSON)
	IsCompleted       bool        // flashcards.is_completed
	CreatedAt         time.Time   // flashcards.created_at
	UpdatedAt         time.Time   // flashcards.updated_at
}

// reviewIntervals maps the current step to the delay before the next
// review. Index 0 applies when a new card is first answered.
var reviewIntervals = []time.Duration{
	24 * time.Hour,       // step 0 -> review tomorrow
	2 * 24 * time.Hour,   // step 1
	4 * 24 * time.Hour,   // step 2
	7 * 24 * time.Hour,   // step 3
	14 * 24 * time.Hour,  // step 4
	30 * 24 * time.Hour,  // step 5
	60 * 24 * time.Hour,  // step 6
}

// Advance applies one review result at the given time. A correct
// answer moves the card up a step and schedules the next review; an
// incorrect one resets it to step 0 and makes it due tomorrow. The
// card is completed after a correct answer at the last step.
func (f *FlashCard) Advance(correct bool, now time.Time) {
	f.ReviewDates = append(f.ReviewDates, now)
	if f.FirstLearningDate == nil {
		first := now
		f.FirstLearningDate = &first
	}
	if !correct {
		f.CurrentStep = 0
		f.NextReviewDate = now.Add(reviewIntervals[0])
		return
	}
	if f.CurrentStep >= len(reviewIntervals)-1 {
		f.IsCompleted = true
		f.CurrentStep = len(reviewIntervals) - 1
		return
	}
	f.CurrentStep++
	f.NextReviewDate = now.Add(reviewIntervals[f.CurrentStep])
}
