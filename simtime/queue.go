package simtime

import "container/heap"

// pendingEvent is one entry in the event heap.
type pendingEvent struct {
	at       Time
	seq      uint64 // tiebreaks equal-time events in submission order
	id       EventID
	fn       func()
	cancelled bool
}

type eventHeap []*pendingEvent

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].at != h[j].at {
		return h[i].at < h[j].at
	}
	return h[i].seq < h[j].seq
}
func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *eventHeap) Push(x interface{}) {
	*h = append(*h, x.(*pendingEvent))
}
func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// Queue is the default Scheduler: a single-threaded, deterministic
// discrete-event loop over a time-ordered priority queue, exactly as
// describes the (externally provided) ns-3 scheduler. It exists
// so the rest of the module is independently testable; a real embedding
// would substitute ns-3's own scheduler behind the same Scheduler
// interface.
type Queue struct {
	now    Time
	seq    uint64
	nextID EventID
	heap   eventHeap
	byID   map[EventID]*pendingEvent
}

// NewQueue creates an empty scheduler at time 0.
func NewQueue() *Queue {
	return &Queue{byID: make(map[EventID]*pendingEvent)}
}

func (q *Queue) Now() Time { return q.now }

func (q *Queue) ScheduleAfter(d Duration, fn func()) EventID {
	if d < 0 {
		d = 0
	}
	q.nextID++
	ev := &pendingEvent{
		at:  q.now + Time(d),
		seq: q.seq,
		id:  q.nextID,
		fn:  fn,
	}
	q.seq++
	heap.Push(&q.heap, ev)
	q.byID[ev.id] = ev
	return ev.id
}

func (q *Queue) Cancel(id EventID) {
	if ev, ok := q.byID[id]; ok {
		ev.cancelled = true
		delete(q.byID, id)
	}
}

// Step pops and runs the single next uncancelled event, advancing virtual
// time to its instant. Reports whether an event ran.
func (q *Queue) Step() bool {
	for q.heap.Len() > 0 {
		ev := heap.Pop(&q.heap).(*pendingEvent)
		if ev.cancelled {
			continue
		}
		delete(q.byID, ev.id)
		q.now = ev.at
		ev.fn()
		return true
	}
	return false
}

// Run drains the queue entirely. Handlers that schedule further events
// keep the loop going, as in any cooperative discrete-event simulator.
func (q *Queue) Run() {
	for q.Step() {
	}
}

// RunUntil drains events up to and including deadline.
func (q *Queue) RunUntil(deadline Time) {
	for q.heap.Len() > 0 && q.heap[0].at <= deadline {
		q.Step()
	}
	q.now = deadline
}

// Pending reports how many uncancelled events remain queued.
func (q *Queue) Pending() int {
	return len(q.byID)
}
