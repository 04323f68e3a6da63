package logic

import (
	"fmt"
	"time"
)

// allowBump applies the alarm rate limit and records a forwarded bump.
func (s *State) allowBump(now time.Time) bool {
	if !s.Bump.LastBumpAt.IsZero() && now.Sub(s.Bump.LastBumpAt) <= BumpInterval {
		return false
	}
	s.Bump.LastBumpAt = now
	return true
}

// FormatPosition renders an accelerometer reading the way consumers expect it.
func FormatPosition(u AccelUpdate) string {
	return fmt.Sprintf("X:%f\tY:%f\tZ:%f", u.X, u.Y, u.Z)
}
