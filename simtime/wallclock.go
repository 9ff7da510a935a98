package simtime

import "time"

// WallClock is a real-time Scheduler for standalone deployments (see
// cmd/ofswitch, cmd/ofcontroller): the rest of this module assumes a
// single-threaded, non-preemptive caller, but a live process has at least
// one goroutine per TCP connection reading off the wire. WallClock keeps
// that single-threaded assumption true for everything downstream of it by
// running every scheduled callback, and every injected one, on the one
// goroutine that calls Run.
type WallClock struct {
	start    time.Time
	injectCh chan func()
	stopCh   chan struct{}
	nextID   EventID
	timers   map[EventID]*time.Timer
}

// NewWallClock builds a scheduler whose zero time is the moment of
// construction.
func NewWallClock() *WallClock {
	return &WallClock{
		start:    time.Now(),
		injectCh: make(chan func(), 64),
		stopCh:   make(chan struct{}),
		timers:   make(map[EventID]*time.Timer),
	}
}

// Now returns nanoseconds elapsed since the scheduler was constructed.
func (w *WallClock) Now() Time {
	return Time(time.Since(w.start))
}

// ScheduleAfter arranges for fn to run on Run's goroutine after d elapses.
// Must be called from Run's goroutine (i.e. from within another scheduled
// or injected callback), matching every other Scheduler in this module.
func (w *WallClock) ScheduleAfter(d Duration, fn func()) EventID {
	if d < 0 {
		d = 0
	}
	w.nextID++
	id := w.nextID
	w.timers[id] = time.AfterFunc(time.Duration(d), func() {
		w.Inject(fn)
	})
	return id
}

// Cancel stops a pending timer. Must be called from Run's goroutine.
func (w *WallClock) Cancel(id EventID) {
	if t, ok := w.timers[id]; ok {
		t.Stop()
		delete(w.timers, id)
	}
}

// Inject hands fn to Run's goroutine for execution, the same way a real
// net.Conn's reader goroutine hands a decoded message to a Connection
// without calling into it directly. Safe to call from any goroutine.
func (w *WallClock) Inject(fn func()) {
	select {
	case w.injectCh <- fn:
	case <-w.stopCh:
	}
}

// Run drains injected and fired-timer callbacks until Stop is called,
// executing each to completion before accepting the next — the real-time
// analogue of Queue.Run's cooperative loop.
func (w *WallClock) Run() {
	for {
		select {
		case fn := <-w.injectCh:
			fn()
		case <-w.stopCh:
			return
		}
	}
}

// Stop ends Run's loop. Idempotent.
func (w *WallClock) Stop() {
	select {
	case <-w.stopCh:
	default:
		close(w.stopCh)
	}
}
