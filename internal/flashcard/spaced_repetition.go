package flashcard

import (
	"math"
	"time"

	"github.com/vytor/verve/internal/models"
)

// PassingQuality is the lowest quality that counts as a successful recall.
const PassingQuality = 3

// Result is the outcome of scheduling a single rating.
type Result struct {
	Level      int
	Interval   int
	EaseFactor float64
}

// Schedule computes the next level, interval (days) and ease factor for a
// card using the SM-2 rules. quality is 0..5, level >= 1, ease >= 1.3;
// behaviour outside those bounds is not defined.
//
// Intervals past level 2 are rounded with math.Round (half away from zero).
func Schedule(quality, level, lastInterval int, ease float64) Result {
	if quality < PassingQuality {
		return Result{Level: 1, Interval: 1, EaseFactor: ease}
	}

	var interval int
	switch level {
	case 1:
		interval = 1
	case 2:
		interval = 6
	default:
		interval = int(math.Round(float64(lastInterval) * ease))
	}

	miss := float64(5 - quality)
	ease += 0.1 - miss*(0.08+miss*0.02)
	if ease < models.MinEaseFactor {
		ease = models.MinEaseFactor
	}

	return Result{Level: level + 1, Interval: interval, EaseFactor: ease}
}

// ApplyReview schedules card for the given quality and sets its next
// review relative to now.
func ApplyReview(card models.Card, quality int, now time.Time) models.Card {
	lastInterval := card.LastInterval
	if lastInterval <= 0 {
		lastInterval = DefaultIntervalForLevel(card.Level)
	}
	ease := card.EaseFactor
	if ease == 0 {
		ease = models.DefaultEaseFactor
	}

	res := Schedule(quality, card.Level, lastInterval, ease)
	card.Level = res.Level
	card.LastInterval = res.Interval
	card.EaseFactor = res.EaseFactor
	card.NextReview = NextReview(now, res.Interval)
	return card
}

// NextReview returns now shifted by the given number of days.
func NextReview(now time.Time, intervalDays int) time.Time {
	return now.Add(time.Duration(intervalDays) * 24 * time.Hour)
}

// DefaultIntervalForLevel is used for cards that have no recorded interval.
func DefaultIntervalForLevel(level int) int {
	switch {
	case level <= 1:
		return 1
	case level == 2:
		return 6
	default:
		return 10
	}
}
