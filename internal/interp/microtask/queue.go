// Package microtask implements the job queue promise reactions and
// async-function continuations are scheduled onto, per spec.md
// section 9's resolved open question: microtasks drain at script
// "turn" boundaries (internal/vm drains after top-level script
// completion), not eagerly as each promise settles. The one other
// drain is an await outside any coroutine, which drains while it waits
// for its promise to settle. The teacher has no async analogue to ground this on
// directly; the FIFO/mutex shape instead follows the single-lock
// discipline internal/jsvalue's intern table and internal/jsgc's
// Registry both use for their own shared queues.
package microtask

import "sync"

// Job is one queued microtask: a promise reaction callback or an
// async-function resumption, represented as a thunk so the queue
// itself stays independent of internal/interp's Closure/Frame types.
type Job func()

// Queue is a FIFO job queue drained between script turns.
type Queue struct {
	mu   sync.Mutex
	jobs []Job
}

func NewQueue() *Queue { return &Queue{} }

// Enqueue schedules job to run on the next drain.
func (q *Queue) Enqueue(job Job) {
	q.mu.Lock()
	q.jobs = append(q.jobs, job)
	q.mu.Unlock()
}

// Drain runs every queued job, including ones newly enqueued by jobs
// that ran earlier in the same drain (a job's own promise reactions),
// until the queue is empty - matching the "drain to exhaustion, not
// just one pass" requirement for correct promise-chaining order.
func (q *Queue) Drain() {
	for {
		q.mu.Lock()
		if len(q.jobs) == 0 {
			q.mu.Unlock()
			return
		}
		job := q.jobs[0]
		q.jobs = q.jobs[1:]
		q.mu.Unlock()
		job()
	}
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}
