// Package timing holds the availability and countdown arithmetic for timed quizzes.
package timing

import (
	"fmt"
	"math"
	"time"
)

const (
	// WarningThreshold marks the last five minutes of an attempt.
	WarningThreshold = 5 * time.Minute
	// CriticalThreshold marks the last minute of an attempt.
	CriticalThreshold = time.Minute
)

// Countdown is the remaining-time view of an attempt at a given instant.
type Countdown struct {
	Untimed bool `json:"untimed"`
	// RemainingSeconds is math.MaxInt64 for untimed quizzes.
	RemainingSeconds int64 `json:"remainingSeconds"`
	IsExpired        bool  `json:"isExpired"`
	IsWarning        bool  `json:"isWarning"`
	IsCritical       bool  `json:"isCritical"`
	// Deadline is the instant the combined window closes; nil for untimed quizzes.
	Deadline *time.Time `json:"deadline,omitempty"`
}

// IsWithinAvailability reports availableFrom <= now <= availableTo.
func IsWithinAvailability(now, availableFrom, availableTo time.Time) bool {
	return !now.Before(availableFrom) && !now.After(availableTo)
}

// AllowedSeconds returns the combined time limit and submission window in seconds.
// ok is false for untimed quizzes.
func AllowedSeconds(timeLimitMinutes *int, submissionWindowMinutes int) (seconds int64, ok bool) {
	if timeLimitMinutes == nil {
		return 0, false
	}
	return int64(*timeLimitMinutes+submissionWindowMinutes) * 60, true
}

// RemainingTime computes the countdown for an attempt started at startedAt.
func RemainingTime(startedAt time.Time, timeLimitMinutes *int, submissionWindowMinutes int, now time.Time) Countdown {
	total, timed := AllowedSeconds(timeLimitMinutes, submissionWindowMinutes)
	if !timed {
		return Countdown{Untimed: true, RemainingSeconds: math.MaxInt64}
	}

	elapsed := int64(now.Sub(startedAt) / time.Second)
	remaining := total - elapsed
	if remaining < 0 {
		remaining = 0
	}

	expired := remaining <= 0
	deadline, _ := Deadline(startedAt, timeLimitMinutes, submissionWindowMinutes)
	return Countdown{
		RemainingSeconds: remaining,
		IsExpired:        expired,
		IsWarning:        !expired && remaining <= int64(WarningThreshold/time.Second),
		IsCritical:       !expired && remaining <= int64(CriticalThreshold/time.Second),
		Deadline:         &deadline,
	}
}

// Deadline returns the instant the combined window closes. ok is false for untimed quizzes.
func Deadline(startedAt time.Time, timeLimitMinutes *int, submissionWindowMinutes int) (time.Time, bool) {
	total, timed := AllowedSeconds(timeLimitMinutes, submissionWindowMinutes)
	if !timed {
		return time.Time{}, false
	}
	return startedAt.Add(time.Duration(total) * time.Second), true
}

// FormatRemaining renders a countdown as m:ss, or h:mm:ss past one hour.
func FormatRemaining(c Countdown) string {
	if c.Untimed {
		return "untimed"
	}
	s := c.RemainingSeconds
	if s >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", s/3600, (s%3600)/60, s%60)
	}
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}
