package logic

import "time"

// pollDoor compares a sampled level with the tracked state.
// It returns the edge and true only when the level changed.
func (s *State) pollDoor(closed bool, now time.Time) (Edge, bool) {
	if closed == s.Door.IsClosed {
		return "", false
	}
	s.Door.IsClosed = closed
	s.Door.ChangedAt = now
	if closed {
		return EdgeClosed, true
	}
	// Opening the door always ends the occupancy, regardless of motion.
	s.Occupancy.Occupied = false
	return EdgeOpened, true
}
