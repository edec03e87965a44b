package models

import "time"

const (
	DefaultEaseFactor = 2.5
	MinEaseFactor     = 1.3
)

type Card struct {
	ID            int64     `json:"id" db:"id"`
	SetID         int64     `json:"set_id" db:"set_id"`
	Front         string    `json:"front" db:"front"`
	Back          string    `json:"back" db:"back"`
	Level         int       `json:"level" db:"level"`
	EaseFactor    float64   `json:"ease_factor" db:"ease_factor"`
	LastInterval  int       `json:"last_interval" db:"last_interval"`
	NextReview    time.Time `json:"next_review" db:"next_review"`
	PracticeWrong bool      `json:"practice_wrong" db:"practice_wrong"`
	ShuffleOrder  *int      `json:"shuffle_order,omitempty" db:"shuffle_order"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// Schedule holds the fields owned by the scheduler.
type Schedule struct {
	Level        int       `json:"level"`
	LastInterval int       `json:"last_interval"`
	EaseFactor   float64   `json:"ease_factor"`
	NextReview   time.Time `json:"next_review"`
}

func (c Card) Schedule() Schedule {
	return Schedule{
		Level:        c.Level,
		LastInterval: c.LastInterval,
		EaseFactor:   c.EaseFactor,
		NextReview:   c.NextReview,
	}
}

func (c Card) WithSchedule(s Schedule) Card {
	c.Level = s.Level
	c.LastInterval = s.LastInterval
	c.EaseFactor = s.EaseFactor
	c.NextReview = s.NextReview
	return c
}

// Clone returns a deep copy of the card.
func (c Card) Clone() Card {
	if c.ShuffleOrder != nil {
		order := *c.ShuffleOrder
		c.ShuffleOrder = &order
	}
	return c
}

func (c Card) IsDue(now time.Time) bool {
	return !c.NextReview.After(now)
}

type ReviewHistory struct {
	ID         int64     `json:"id" db:"id"`
	CardID     int64     `json:"card_id" db:"card_id"`
	Quality    int       `json:"quality" db:"quality"`
	ReviewedAt time.Time `json:"reviewed_at" db:"reviewed_at"`
}

// RatingResult describes the effect of a single rating on a card.
type RatingResult struct {
	Card         Card `json:"card"`
	OldLevel     int  `json:"old_level"`
	NewLevel     int  `json:"new_level"`
	IntervalDays int  `json:"interval_days"`
}
