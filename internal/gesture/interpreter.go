// Package gesture turns continuous input (pointer drags, key presses and scripted
// commit animations) into discrete triage intents. It never touches session state;
// callers apply the returned intents.
package gesture

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"
)

// Intent is the discrete outcome of one interaction.
type Intent int

const (
	None Intent = iota
	Keep
	Drop
	Undo
)

func (i Intent) String() string {
	switch i {
	case Keep:
		return "keep"
	case Drop:
		return "drop"
	case Undo:
		return "undo"
	default:
		return "none"
	}
}

var (
	// ErrBusy is returned by Play when another scripted run is in flight.
	ErrBusy = errors.New("gesture: scripted commit already in flight")
	// ErrCancelled is returned by Play when its run was cancelled by another caller.
	ErrCancelled = errors.New("gesture: scripted commit cancelled")
)

// Config holds the commit threshold and scripted-run timing. Positive displacement
// means keep, negative means drop.
type Config struct {
	Threshold float64
	Margin    float64
	Step      float64
	Interval  time.Duration
}

// DefaultConfig mirrors the swipe feel of the card UI: commit at 120 units, scripted
// runs travel to 300 in steps of 60.
func DefaultConfig() Config {
	return Config{Threshold: 120, Margin: 180, Step: 60, Interval: 44 * time.Millisecond}
}

// Target is the magnitude a scripted run must reach before it commits.
func (c Config) Target() float64 { return c.Threshold + c.Margin }

// Displacement is the scripted-run offset after elapsed time. It grows by Step every
// Interval and is capped at Target.
func Displacement(cfg Config, d Intent, elapsed time.Duration) float64 {
	if elapsed < 0 || cfg.Interval <= 0 {
		return 0
	}
	steps := float64(elapsed / cfg.Interval)
	mag := math.Min(steps*cfg.Step, cfg.Target())
	return sign(d) * mag
}

func sign(d Intent) float64 {
	switch d {
	case Keep:
		return 1
	case Drop:
		return -1
	}
	return 0
}

// Run identifies one scripted commit.
type Run struct {
	ID      uint64
	Intent  Intent
	Started time.Time
}

// Frame is the result of advancing a scripted run.
type Frame struct {
	X      float64
	Done   bool
	Intent Intent
	// Stale is set when the run was cancelled or has already completed.
	Stale bool
}

// Interpreter holds the live displacement and the reentrancy guard.
type Interpreter struct {
	mu      sync.Mutex
	cfg     Config
	x       float64
	pressed bool
	run     *Run
	nextID  uint64
}

// New returns an interpreter at rest.
func New(cfg Config) *Interpreter {
	return &Interpreter{cfg: cfg}
}

func (i *Interpreter) Config() Config { return i.cfg }

// Offset is the current displacement.
func (i *Interpreter) Offset() float64 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.x
}

// InFlight reports whether a scripted run is active.
func (i *Interpreter) InFlight() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.run != nil
}

// SuppressExit reports whether exit visuals must be skipped for the current card.
// Scripted runs animate the card themselves.
func (i *Interpreter) SuppressExit() bool { return i.InFlight() }

// Dragging reports whether a press is being held.
func (i *Interpreter) Dragging() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.pressed
}

// Press starts a drag. Ignored while a scripted run is in flight.
func (i *Interpreter) Press() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.run != nil {
		return false
	}
	i.pressed = true
	i.x = 0
	return true
}

// Move updates the live displacement of a held drag.
func (i *Interpreter) Move(x float64) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.pressed || i.run != nil {
		return
	}
	i.x = x
}

// Release ends a drag. A displacement of at least Threshold in either direction
// commits; anything shorter cancels. The offset always returns to 0.
func (i *Interpreter) Release() Intent {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.pressed || i.run != nil {
		return None
	}
	i.pressed = false
	x := i.x
	i.x = 0
	switch {
	case x >= i.cfg.Threshold:
		return Keep
	case x <= -i.cfg.Threshold:
		return Drop
	}
	return None
}

// Key emits a discrete intent immediately, bypassing the threshold. A held drag is
// abandoned so its release cannot commit a second time.
func (i *Interpreter) Key(in Intent) Intent {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.run != nil || in == None {
		return None
	}
	i.pressed = false
	i.x = 0
	return in
}

// Start begins a scripted commit for Keep or Drop. It fails while another run is in
// flight.
func (i *Interpreter) Start(d Intent, now time.Time) (Run, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.run != nil || (d != Keep && d != Drop) {
		return Run{}, false
	}
	i.nextID++
	i.pressed = false
	i.x = 0
	r := Run{ID: i.nextID, Intent: d, Started: now}
	i.run = &r
	return r, true
}

// Advance moves run to its displacement at now. When the target magnitude is
// reached the run finishes, the offset returns to 0 and the frame carries the intent.
func (i *Interpreter) Advance(r Run, now time.Time) Frame {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.run == nil || i.run.ID != r.ID {
		return Frame{Stale: true}
	}
	x := Displacement(i.cfg, r.Intent, now.Sub(r.Started))
	if math.Abs(x) >= i.cfg.Target() {
		i.run = nil
		i.x = 0
		return Frame{X: 0, Done: true, Intent: r.Intent}
	}
	i.x = x
	return Frame{X: x}
}

// Cancel discards any scripted run or held drag and returns the offset to 0.
func (i *Interpreter) Cancel() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.run = nil
	i.pressed = false
	i.x = 0
}

func (i *Interpreter) cancelRun(r Run) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.run != nil && i.run.ID == r.ID {
		i.run = nil
		i.x = 0
	}
}

// Play drives a scripted run on a ticker until it commits or ctx is done. A cancelled
// run cannot be resumed; its displacement is discarded.
func (i *Interpreter) Play(ctx context.Context, d Intent, onFrame func(Frame)) (Intent, error) {
	run, ok := i.Start(d, time.Now())
	if !ok {
		return None, ErrBusy
	}
	ticker := time.NewTicker(i.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			i.cancelRun(run)
			return None, ctx.Err()
		case now := <-ticker.C:
			f := i.Advance(run, now)
			if f.Stale {
				return None, ErrCancelled
			}
			if onFrame != nil {
				onFrame(f)
			}
			if f.Done {
				return f.Intent, nil
			}
		}
	}
}

// Tint maps a displacement to [-1, 1] relative to the threshold, for colouring.
func (i *Interpreter) Tint(x float64) float64 {
	if i.cfg.Threshold <= 0 {
		return 0
	}
	return math.Max(-1, math.Min(1, x/i.cfg.Threshold))
}

// Indicator returns the keep and drop label opacities for x: each fades in between
// 50 and 150 units in its own direction.
func Indicator(x float64) (keep, drop float64) {
	ramp := func(v float64) float64 { return math.Max(0, math.Min(1, (v-50)/100)) }
	return ramp(x), ramp(-x)
}
