package main

import (
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/VictoriaMetrics/metrics"

	"github.com/sweeney/occupancy-sensor/internal/gpio"
	"github.com/sweeney/occupancy-sensor/internal/logic"
	"github.com/sweeney/occupancy-sensor/internal/mqtt"
	"github.com/sweeney/occupancy-sensor/internal/schedule"
	"github.com/sweeney/occupancy-sensor/internal/status"
)

var (
	eventsDropped = metrics.NewCounter("occupancy_events_dropped_total")
	bumpsDropped  = metrics.NewCounter("occupancy_bumps_dropped_total")
	publishErrors = metrics.NewCounter("occupancy_publish_errors_total")
	doorErrors    = metrics.NewCounter("occupancy_door_read_errors_total")
)

func publishedCounter(m logic.Message) *metrics.Counter {
	switch m.Kind {
	case logic.KindStatus:
		return metrics.GetOrCreateCounter(fmt.Sprintf(`occupancy_status_publishes_total{trigger=%q}`, m.Trigger))
	case logic.KindEnvironment:
		return metrics.GetOrCreateCounter(fmt.Sprintf(`occupancy_env_publishes_total{channel=%q}`, m.Channel))
	}
	return metrics.GetOrCreateCounter(fmt.Sprintf(`occupancy_messages_published_total{kind=%q}`, m.Kind))
}

// eventQueue carries sensor events from edge handlers and pollers to the loop.
type eventQueue struct {
	ch      chan logic.Event
	dropped atomic.Int64
}

func newEventQueue(size int) *eventQueue {
	return &eventQueue{ch: make(chan logic.Event, size)}
}

// push enqueues ev without blocking. A full queue drops the event.
func (q *eventQueue) push(ev logic.Event) {
	select {
	case q.ch <- ev:
	default:
		q.dropped.Add(1)
		eventsDropped.Inc()
		slog.Warn("event queue full, dropping event", "event", logic.EventName(ev))
	}
}

func (q *eventQueue) C() <-chan logic.Event {
	return q.ch
}

func (q *eventQueue) Dropped() int {
	return int(q.dropped.Load())
}

// loop owns the engine. All of its methods run on one goroutine.
type loop struct {
	engine    *logic.Engine
	door      gpio.DoorReader
	publisher mqtt.Publisher
	conn      mqtt.ConnectionStatus // may be nil
	tracker   *status.Tracker       // may be nil
	indicator gpio.Indicator
	events    *eventQueue
	now       func() time.Time
}

// start publishes the STARTUP event and the initial pairing request.
func (l *loop) start() {
	now := l.now()
	l.refreshTracker(now)

	event := mqtt.SystemEvent{
		Timestamp: now,
		Event:     "STARTUP",
		Retained:  true,
	}
	if l.tracker != nil {
		event.RawPayload = status.FormatStatusEvent(l.tracker.Snapshot(), "STARTUP", "")
	}
	if err := l.publisher.PublishSystem(event); err != nil {
		slog.Warn("failed to publish startup event", "err", err)
	} else {
		slog.Info("published startup event")
	}

	l.apply(logic.Result{
		Messages: []logic.Message{l.engine.PairingRequest(now)},
		Pulse:    logic.PulsePairing,
	}, now)
}

// run handles ticks and events until a signal arrives.
func (l *loop) run(ticker schedule.Ticker, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			l.shutdown(s)
			return nil

		case ev := <-l.events.C():
			l.handleEvent(ev)

		case <-ticker.C():
			l.handleTick(ticker)
		}
	}
}

// handleTick samples the door and runs the periodic evaluation.
// The ticker is re-armed on every return path.
func (l *loop) handleTick(ticker schedule.Ticker) {
	defer ticker.Rearm()

	now := l.now()
	var sample *logic.DoorSample
	closed, err := l.door.Read()
	if err != nil {
		doorErrors.Inc()
		slog.Warn("door read error", "err", err)
	} else {
		sample = &logic.DoorSample{Closed: closed}
	}

	l.apply(l.engine.Tick(now, sample), now)
}

func (l *loop) handleEvent(ev logic.Event) {
	now := l.now()
	res, err := l.engine.Dispatch(ev, now)
	if err != nil {
		slog.Error("dispatch failed", "event", logic.EventName(ev), "err", err)
		return
	}
	l.apply(res, now)
}

// apply publishes the result, fires the indicator and refreshes the tracker.
func (l *loop) apply(res logic.Result, now time.Time) {
	for _, m := range res.Messages {
		l.logMessage(m)
		if m.Kind == logic.KindStatus && m.Trigger == logic.TriggerKeepalive && l.tracker != nil {
			if net := readNetworkInfo(); net != nil {
				l.tracker.SetNetwork(net)
			}
		}
		if err := l.publisher.Publish(m); err != nil {
			publishErrors.Inc()
			slog.Error("publish error", "topic", m.Topic, "err", err)
			continue
		}
		publishedCounter(m).Inc()
	}
	if res.Pulse > 0 {
		l.indicator.Pulse(res.Pulse)
	}
	l.refreshTracker(now)
}

func (l *loop) logMessage(m logic.Message) {
	switch m.Kind {
	case logic.KindStatus:
		s := m.Value.(logic.Status)
		slog.Info("status", "trigger", m.Trigger, "value", uint8(s), "label", s.Label())
	case logic.KindEnvironment:
		slog.Debug("environment", "channel", m.Channel, "value", m.Value)
	case logic.KindPosition:
		slog.Debug("position", "value", m.Value)
	default:
		slog.Info("message", "kind", m.Kind, "topic", m.Topic, "value", m.Value)
	}
}

func (l *loop) refreshTracker(now time.Time) {
	view := l.engine.View(now)
	bumpsDropped.Set(uint64(view.Counts.BumpsDropped))
	if l.tracker == nil {
		return
	}
	l.tracker.Update(view)
	l.tracker.SetEventsDropped(l.events.Dropped())
	if l.conn != nil {
		l.tracker.SetMQTTConnected(l.conn.IsConnected())
		l.tracker.SetMQTTBuffered(l.conn.Buffered())
	}
}

func (l *loop) shutdown(s os.Signal) {
	slog.Info("shutting down", "signal", s)
	signalName := "UNKNOWN"
	if s == syscall.SIGINT {
		signalName = "SIGINT"
	} else if s == syscall.SIGTERM {
		signalName = "SIGTERM"
	}

	now := l.now()
	event := mqtt.SystemEvent{
		Timestamp: now,
		Event:     "SHUTDOWN",
		Reason:    signalName,
		Retained:  true,
	}
	if l.tracker != nil {
		l.refreshTracker(now)
		event.RawPayload = status.FormatStatusEvent(l.tracker.Snapshot(), "SHUTDOWN", signalName)
	}
	if err := l.publisher.PublishSystem(event); err != nil {
		slog.Warn("failed to publish shutdown event", "err", err)
	} else {
		slog.Info("published shutdown event")
	}
}
