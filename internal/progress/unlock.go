package progress

import (
	"time"

	"github.com/example/dailylove/pkg/models"
)

// Day is the unlock period of the elapsed-time policy
const Day = 24 * time.Hour

// UnlockedDay returns the highest day unlocked by elapsed time: one day at StartedAt, one more
// per full 24 hours since, never more than maxDay. A clock behind StartedAt still unlocks day 1.
func UnlockedDay(rec models.ProgressRecord, now time.Time, maxDay int) int {
	day := 1
	if elapsed := now.Sub(rec.StartedAt); elapsed > 0 {
		day = int(elapsed/Day) + 1
	}
	if maxDay >= 1 && day > maxDay {
		day = maxDay
	}
	return day
}

// ClampDay limits a navigation target to [1, horizon]
func ClampDay(day, horizon int) int {
	if horizon < 1 {
		horizon = 1
	}
	if day < 1 {
		return 1
	}
	if day > horizon {
		return horizon
	}
	return day
}

// DaysUntilUnlock returns how many more days must pass before day unlocks; 0 if it already has.
// Days beyond maxDay never unlock and report -1.
func DaysUntilUnlock(rec models.ProgressRecord, day int, now time.Time, maxDay int) int {
	if maxDay >= 1 && day > maxDay {
		return -1
	}
	unlocked := UnlockedDay(rec, now, maxDay)
	if day <= unlocked {
		return 0
	}
	return day - unlocked
}
