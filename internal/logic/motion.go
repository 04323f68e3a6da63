package logic

import "time"

// onMotion records a motion notification. It reports whether this starts a
// new episode and whether the door rule changed the occupancy.
func (s *State) onMotion(now time.Time) (newEpisode, occupancyChanged bool) {
	last := s.Motion.LastMotionAt
	newEpisode = last.IsZero() || now.Sub(last) > MinMoveTime
	s.Motion.LastMotionAt = now
	s.Motion.Active = true

	// Motion right after the door moved is the door swinging, not a person.
	if !s.Door.IsClosed && now.Sub(s.Door.ChangedAt) > NoMoveDebounce {
		occupancyChanged = s.setOccupied(true)
	}
	return newEpisode, occupancyChanged
}

// motionEnded reports, once per episode, that the activity predicate has
// dropped since the last observation.
func (s *State) motionEnded(now time.Time) bool {
	if !s.Motion.Active || now.Sub(s.Motion.LastMotionAt) <= MinMoveTime {
		return false
	}
	s.Motion.Active = false
	return true
}

func (s *State) setOccupied(v bool) bool {
	if s.Occupancy.Occupied == v {
		return false
	}
	s.Occupancy.Occupied = v
	return true
}
