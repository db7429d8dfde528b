package models

import "time"

// Lockout tracks consecutive failed sign-ins. It is only mutated through RecordFailure and RecordSuccess.
type Lockout struct {
	FailedAttempts int        `gorm:"column:failed_attempts;default:0"`
	LockedUntil    *time.Time `gorm:"column:locked_until"`
}

// Active reports whether the lockout is in force at now.
func (l Lockout) Active(now time.Time) bool {
	return l.LockedUntil != nil && now.Before(*l.LockedUntil)
}

// RecordFailure counts a failed attempt and locks once max failures accumulate.
// A lapsed lockout starts a fresh count. It reports whether this failure engaged the lock.
func (l *Lockout) RecordFailure(now time.Time, max int, duration time.Duration) bool {
	if l.LockedUntil != nil && !now.Before(*l.LockedUntil) {
		l.FailedAttempts = 0
		l.LockedUntil = nil
	}

	l.FailedAttempts++
	if max > 0 && l.FailedAttempts >= max {
		until := now.Add(duration)
		l.LockedUntil = &until
		return true
	}
	return false
}

// RecordSuccess clears the failure count and any lock.
func (l *Lockout) RecordSuccess() {
	l.FailedAttempts = 0
	l.LockedUntil = nil
}

// AttemptsLeft is max minus the current failure count, never negative.
func (l Lockout) AttemptsLeft(max int) int {
	left := max - l.FailedAttempts
	if left < 0 {
		return 0
	}
	return left
}
