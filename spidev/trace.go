package spidev

import (
	"sync"
	"time"

	"github.com/gammazero/deque"
)

// Record describes one completed transfer submission.
type Record struct {
	Op     string // "read", "write" or "exchange"
	Device string
	Len    int
	Err    error
	When   time.Time
}

// Tracer receives a Record after every transfer submission on a device it is
// attached to. Implementations decide what to keep or emit; the device itself
// never writes to a fixed stream.
type Tracer interface {
	Trace(Record)
}

// Ring retains the most recent transfer records, oldest evicted first. It is
// safe for concurrent use, so one Ring can observe several devices.
type Ring struct {
	mu      sync.Mutex
	maxSize int
	records deque.Deque[Record]
}

// NewRing creates a Ring keeping at most maxSize records.
func NewRing(maxSize int) *Ring {
	if maxSize <= 0 {
		maxSize = 64
	}
	return &Ring{maxSize: maxSize}
}

func (r *Ring) Trace(rec Record) {
	if rec.When.IsZero() {
		rec.When = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.records.Len() == r.maxSize {
		r.records.PopFront()
	}
	r.records.PushBack(rec)
}

// Records returns the retained transfers, oldest first.
func (r *Ring) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Record, r.records.Len())
	for i := 0; i < r.records.Len(); i++ {
		out[i] = r.records.At(i)
	}
	return out
}
