package logic

import "time"

// DoorState tracks the last sampled door level.
type DoorState struct {
	IsClosed bool
	// Time of the last observed transition. Zero until the first edge.
	ChangedAt time.Time
}

// MotionState tracks motion recency.
type MotionState struct {
	// Zero until the first motion notification.
	LastMotionAt time.Time
	// Active is the value of the activity predicate as last observed by the
	// engine. It lets a tick notice the active -> inactive transition.
	Active bool
}

// ActiveAt reports whether motion is still considered current at now.
func (m MotionState) ActiveAt(now time.Time) bool {
	return !m.LastMotionAt.IsZero() && now.Sub(m.LastMotionAt) < MinMoveTime
}

// OccupancyState holds the confirmed presence decision.
type OccupancyState struct {
	Occupied bool
}

// BumpState tracks the last forwarded accelerometer alarm.
type BumpState struct {
	LastBumpAt time.Time
}

// State is the whole mutable context shared by the trackers.
// It is owned by a single Engine and never touched concurrently.
type State struct {
	Door      DoorState
	Motion    MotionState
	Occupancy OccupancyState
	Bump      BumpState
	// LastSentAt is when the status was last published.
	LastSentAt time.Time
}

// Compose computes the composite status at now.
func (s *State) Compose(now time.Time) Status {
	var v Status
	if s.Occupancy.Occupied {
		v |= StatusOccupied
	}
	if s.Door.IsClosed {
		v |= StatusDoorClosed
		last := s.Motion.LastMotionAt
		// Motion after the close inside the window: someone is still
		// inside, or the sensor is being tampered with.
		if !last.IsZero() && s.Door.ChangedAt.Before(last) && now.Sub(last) < GameplayWindow {
			v |= StatusActivity
		}
	} else if s.Motion.ActiveAt(now) {
		v |= StatusActivity
	}
	return v
}
