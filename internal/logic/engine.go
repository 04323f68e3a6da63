package logic

import (
	"fmt"
	"time"
)

// Engine owns the occupancy state and decides what to publish.
// It is not safe for concurrent use; drive it from a single goroutine.
type Engine struct {
	state       State
	env         map[Channel]*DeltaPublisher
	counts      PublishCounts
	buttonCount int
	startTime   time.Time
	nodeID      string
}

// NewEngine creates an engine with the door assumed open and nothing
// occupied. The keepalive deadline starts counting from startTime.
func NewEngine(startTime time.Time) *Engine {
	env := make(map[Channel]*DeltaPublisher, len(Channels))
	for _, c := range Channels {
		env[c] = NewDeltaPublisher(c.Threshold(), NoChangeInterval)
	}
	return &Engine{
		state:     State{LastSentAt: startTime},
		env:       env,
		startTime: startTime,
	}
}

// triggers collects the publish reasons raised while handling one input.
type triggers map[Trigger]bool

// primary returns the highest-priority trigger raised, or "" if none.
func (t triggers) primary() Trigger {
	for _, tr := range Triggers {
		if t[tr] {
			return tr
		}
	}
	return ""
}

// Tick runs one periodic evaluation. door is the level sampled this cycle,
// or nil when it could not be read.
func (e *Engine) Tick(now time.Time, door *DoorSample) Result {
	var res Result
	tr := triggers{}

	if door != nil {
		e.pollDoor(&res, tr, door.Closed, now)
	}
	if e.state.motionEnded(now) {
		tr[TriggerMotionEnded] = true
	}
	if len(tr) == 0 && now.Sub(e.state.LastSentAt) >= StateUpdateInterval {
		tr[TriggerKeepalive] = true
	}

	e.publishStatus(&res, tr, now)
	return res
}

// Dispatch handles one sensor event.
func (e *Engine) Dispatch(ev Event, now time.Time) (Result, error) {
	var res Result
	tr := triggers{}

	switch ev := ev.(type) {
	case DoorSample:
		e.pollDoor(&res, tr, ev.Closed, now)

	case MotionDetected:
		newEpisode, occupancyChanged := e.state.onMotion(now)
		if newEpisode {
			tr[TriggerMotion] = true
		}
		if occupancyChanged {
			tr[TriggerOccupancy] = true
		}
		res.pulse(PulseMessage)

	case MotionError:
		res.add(Message{Timestamp: now, Topic: TopicStatus, Kind: KindDiagnostic, Value: MotionErrorText})

	case AccelUpdate:
		res.add(Message{Timestamp: now, Topic: TopicAccelPosition, Kind: KindPosition, Value: FormatPosition(ev)})

	case AccelAlarm:
		if !e.state.allowBump(now) {
			e.counts.BumpsDropped++
			break
		}
		res.add(Message{Timestamp: now, Topic: TopicAccelAlarm, Kind: KindBump, Value: "1"})
		res.pulse(PulseMessage)

	case AccelError:
		res.add(Message{Timestamp: now, Topic: TopicAccelError, Kind: KindAccelError, Value: ""})

	case EnvReading:
		p, ok := e.env[ev.Channel]
		if !ok {
			return res, fmt.Errorf("unknown channel %q", ev.Channel)
		}
		if p.Offer(ev.Value, now) {
			res.add(Message{Timestamp: now, Topic: ev.Channel.Topic(), Kind: KindEnvironment, Value: ev.Value, Channel: ev.Channel})
		}

	case ButtonPress:
		e.buttonCount++
		res.add(Message{Timestamp: now, Topic: TopicButtonCount, Kind: KindButton, Value: e.buttonCount})
		res.pulse(PulseMessage)

	case ButtonHold:
		res.add(e.PairingRequest(now))
		res.pulse(PulsePairing)

	default:
		return res, fmt.Errorf("unhandled event %T", ev)
	}

	e.publishStatus(&res, tr, now)
	return res, nil
}

// SetNodeID sets the node id announced in pairing requests.
func (e *Engine) SetNodeID(id string) {
	e.nodeID = id
}

// PairingRequest builds the pairing announcement.
func (e *Engine) PairingRequest(now time.Time) Message {
	return Message{
		Timestamp: now,
		Topic:     TopicPairing,
		Kind:      KindPairing,
		Value:     Pairing{Name: AppName, Version: AppVersion, NodeID: e.nodeID},
	}
}

func (e *Engine) pollDoor(res *Result, tr triggers, closed bool, now time.Time) {
	if _, ok := e.state.pollDoor(closed, now); !ok {
		return
	}
	tr[TriggerDoor] = true
	res.pulse(PulseDoor)
}

// publishStatus sends the composite value once if any trigger fired.
// The value is never compared with what was sent before.
func (e *Engine) publishStatus(res *Result, tr triggers, now time.Time) {
	primary := tr.primary()
	if primary == "" {
		return
	}
	e.state.LastSentAt = now
	e.counts.count(primary)
	res.add(Message{
		Timestamp: now,
		Topic:     TopicStatus,
		Kind:      KindStatus,
		Value:     e.state.Compose(now),
		Trigger:   primary,
	})
}

// View is a read-only copy of the engine state for diagnostics.
type View struct {
	DoorClosed    bool
	DoorChangedAt time.Time
	Occupied      bool
	MotionActive  bool
	LastMotionAt  time.Time
	LastBumpAt    time.Time
	LastSentAt    time.Time
	Status        Status
	Counts        PublishCounts
	ButtonCount   int
	// Environment holds the last published value per channel.
	Environment map[Channel]float64
}

// View returns the state as seen at now.
func (e *Engine) View(now time.Time) View {
	env := make(map[Channel]float64, len(e.env))
	for c, p := range e.env {
		if v, ok := p.Last(); ok {
			env[c] = v
		}
	}
	return View{
		DoorClosed:    e.state.Door.IsClosed,
		DoorChangedAt: e.state.Door.ChangedAt,
		Occupied:      e.state.Occupancy.Occupied,
		MotionActive:  e.state.Motion.ActiveAt(now),
		LastMotionAt:  e.state.Motion.LastMotionAt,
		LastBumpAt:    e.state.Bump.LastBumpAt,
		LastSentAt:    e.state.LastSentAt,
		Status:        e.state.Compose(now),
		Counts:        e.counts,
		ButtonCount:   e.buttonCount,
		Environment:   env,
	}
}

// StartTime returns the time the engine was created.
func (e *Engine) StartTime() time.Time {
	return e.startTime
}
