package gateway

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"mqtt2dmx/internal/dmx"
	"mqtt2dmx/internal/logger"
)

// State of a transition.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateSuperseded
	StateCanceled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateSuperseded:
		return "superseded"
	case StateCanceled:
		return "canceled"
	}
	return "unknown"
}

// Transition is a running fade of one channel group. The first channel of
// the group is its key: a newer transition with the same key supersedes it.
type Transition struct {
	key      int
	gen      uint64
	channels []int
	original []byte
	target   []byte
	frames   int
	interval time.Duration
	sendNow  bool

	state   atomic.Int32
	applied atomic.Int32
	done    chan struct{}
	cancel  context.CancelFunc
}

// Frames returns the planned number of frames.
func (t *Transition) Frames() int { return t.frames }

// Applied returns the number of frames executed so far.
func (t *Transition) Applied() int { return int(t.applied.Load()) }

func (t *Transition) State() State { return State(t.state.Load()) }

// Done is closed when the frame loop has exited.
func (t *Transition) Done() <-chan struct{} { return t.done }

// Wait blocks until the loop exits and returns the final state.
func (t *Transition) Wait() State {
	<-t.done
	return t.State()
}

// Cancel stops the transition before its next frame. Values already
// written stay.
func (t *Transition) Cancel() {
	t.cancel()
}

func (t *Transition) finish(s State) {
	t.state.CompareAndSwap(int32(StateRunning), int32(s))
}

// frameCount returns max(floor(duration*frameRate), 1). Whole seconds and
// the remainder are multiplied separately so long durations do not overflow.
func frameCount(duration time.Duration, frameRate int) int {
	if duration <= 0 {
		return 1
	}
	fps := int64(frameRate)
	n := int64(duration/time.Second)*fps + int64(duration%time.Second)*fps/int64(time.Second)
	if n < 1 {
		return 1
	}
	return int(n)
}

// BeginTransition fades channels from their current values to values
// over duration. It supersedes any transition running on the same group.
// frameRate 0 uses the gateway default.
func (g *Gateway) BeginTransition(channels []int, values []byte, duration time.Duration, frameRate int, sendNow bool) (*Transition, error) {
	if len(channels) == 0 {
		return nil, dmx.ErrNoValues
	}
	target, err := dmx.Expand(values, len(channels))
	if err != nil {
		return nil, err
	}
	if frameRate <= 0 {
		frameRate = g.frameRate
	}

	ctx, cancel := context.WithCancel(g.ctx)
	t := &Transition{
		key:      channels[0],
		channels: append([]int(nil), channels...),
		target:   target,
		frames:   frameCount(duration, frameRate),
		interval: time.Second / time.Duration(frameRate),
		sendNow:  sendNow,
		done:     make(chan struct{}),
		cancel:   cancel,
	}

	g.mu.Lock()
	if err := g.buf.CheckAll(channels); err != nil {
		g.mu.Unlock()
		cancel()
		return nil, err
	}
	if ctx.Err() != nil {
		g.mu.Unlock()
		cancel()
		return nil, context.Canceled
	}
	g.generations[t.key]++
	t.gen = g.generations[t.key]
	t.original = make([]byte, len(channels))
	for i, ch := range channels {
		t.original[i], _ = g.buf.Get(ch)
	}
	t.state.Store(int32(StateRunning))
	g.wg.Add(1)
	g.mu.Unlock()

	g.transitionLog(t).Debugf("begin %v -> %v in %d frames", t.original, t.target, t.frames)
	go g.runTransition(ctx, t)
	return t, nil
}

func (g *Gateway) transitionLog(t *Transition) *logger.Log {
	return g.log.With(logger.Fields{"module": "transition", "universe": g.name, "group": t.key})
}

func (g *Gateway) runTransition(ctx context.Context, t *Transition) {
	defer g.wg.Done()
	defer close(t.done)
	defer t.cancel()

	timer := time.NewTimer(t.interval)
	defer timer.Stop()

	for i := 1; i <= t.frames; i++ {
		if !g.applyFrame(t, i) {
			t.finish(StateSuperseded)
			g.transitionLog(t).Debugf("superseded before frame %d/%d", i, t.frames)
			return
		}
		if i > 1 {
			timer.Reset(t.interval)
		}
		select {
		case <-ctx.Done():
			t.finish(StateCanceled)
			g.transitionLog(t).Debugf("canceled after frame %d/%d", i, t.frames)
			return
		case <-timer.C:
		}
	}

	if !g.current(t) {
		t.finish(StateSuperseded)
		return
	}
	t.finish(StateCompleted)
}

func (g *Gateway) current(t *Transition) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.generations[t.key] == t.gen
}

// applyFrame writes frame i of t. The generation check and the writes
// happen under one lock so a superseded loop never writes after its
// successor took its snapshot. The last frame writes the exact target.
func (g *Gateway) applyFrame(t *Transition, i int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.generations[t.key] != t.gen {
		return false
	}

	changed := false
	for x, ch := range t.channels {
		next := interpolate(t.original[x], t.target[x], i, t.frames)
		if cur, _ := g.buf.Get(ch); cur != next {
			_ = g.buf.Set(ch, next)
			changed = true
		}
	}
	t.applied.Add(1)

	if changed && t.sendNow {
		_ = g.sendLocked()
	}
	return true
}

// interpolate returns round(from + (to-from)/frames*i), half away from
// zero, and exactly to on the last frame.
func interpolate(from, to byte, i, frames int) byte {
	if i >= frames {
		return to
	}
	increment := (float64(to) - float64(from)) / float64(frames)
	return byte(math.Round(float64(from) + increment*float64(i)))
}
