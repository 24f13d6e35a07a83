// timer/ticker.go
package timer

import (
	"sync"
	"time"
)

// Updatable is anything driven by an external tick with measured
// elapsed time, such as a state machine.
type Updatable interface {
	Update(dt time.Duration)
}

// Ticker is the external tick driver. It wakes at a fixed interval,
// measures the real elapsed time since the previous tick, and fans it
// out to every attached target. Targets hold no timing logic of their
// own.
type Ticker struct {
	mu       sync.Mutex
	targets  []Updatable
	interval time.Duration
	stop     chan struct{}
	stopOnce sync.Once
	started  bool
}

func NewTicker(interval time.Duration) *Ticker {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &Ticker{
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Attach adds targets to the fan-out set.
func (t *Ticker) Attach(targets ...Updatable) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.targets = append(t.targets, targets...)
}

// Detach removes a target if attached.
func (t *Ticker) Detach(target Updatable) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, existing := range t.targets {
		if existing == target {
			t.targets = append(t.targets[:i], t.targets[i+1:]...)
			return
		}
	}
}

// Start launches the tick loop on its own goroutine. Calling Start
// twice is a no-op.
func (t *Ticker) Start() {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return
	}
	t.started = true
	t.mu.Unlock()
	go t.loop()
}

// Stop halts the loop. Attached targets receive no further updates.
func (t *Ticker) Stop() {
	t.stopOnce.Do(func() { close(t.stop) })
}

func (t *Ticker) loop() {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			t.tick(dt)
		case <-t.stop:
			return
		}
	}
}

func (t *Ticker) tick(dt time.Duration) {
	t.mu.Lock()
	targets := make([]Updatable, len(t.targets))
	copy(targets, t.targets)
	t.mu.Unlock()

	for _, target := range targets {
		target.Update(dt)
	}
}
