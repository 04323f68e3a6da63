package logic

import (
	"math"
	"time"
)

// DeltaPublisher suppresses redundant publishes of a slowly varying reading.
// A reading is published when it moved by at least Threshold since the last
// published value, or when Interval has passed since the last publish.
type DeltaPublisher struct {
	Threshold float64
	Interval  time.Duration

	last         float64
	nextForcedAt time.Time
	published    bool
}

// NewDeltaPublisher creates a publisher whose first reading always publishes.
func NewDeltaPublisher(threshold float64, interval time.Duration) *DeltaPublisher {
	return &DeltaPublisher{Threshold: threshold, Interval: interval}
}

// Offer reports whether value should be published at now, and records it if so.
func (p *DeltaPublisher) Offer(value float64, now time.Time) bool {
	if math.Abs(value-p.last) < p.Threshold && now.Before(p.nextForcedAt) {
		return false
	}
	p.last = value
	p.nextForcedAt = now.Add(p.Interval)
	p.published = true
	return true
}

// Last returns the last published value and whether anything was published yet.
func (p *DeltaPublisher) Last() (float64, bool) {
	return p.last, p.published
}
