package interp

import "github.com/octofhir/otter-vm/internal/jsvalue"

// PromiseState is one of the three states spec.md section 4.E's
// suspension notes require Await to resolve against.
type PromiseState uint8

const (
	PromisePending PromiseState = iota
	PromiseFulfilled
	PromiseRejected
)

// settleCallback is notified once a Promise settles, carrying the
// fulfillment value or rejection reason and which one it was. Used
// internally to drive OpAwait continuations (coroutine.go) and, through
// SubscribePromise, for the user-level reactions internal/intrinsics'
// Promise.prototype.then/catch/finally register.
type settleCallback func(value jsvalue.Value, rejected bool)

// Promise is the heap payload backing a Promise cell (spec.md section
// 4.E: "Await suspends ... until its operand promise settles").
type Promise struct {
	State    PromiseState
	Value    jsvalue.Value // fulfillment value or rejection reason, once settled
	onSettle []settleCallback
}

func NewPromise() *Promise { return &Promise{} }

func (p *Promise) IsSettled() bool       { return p.State != PromisePending }
func (p *Promise) Status() PromiseState  { return p.State }
func (p *Promise) Result() jsvalue.Value { return p.Value }

// settlePromise transitions a pending promise to fulfilled/rejected and fires
// every queued callback via t's microtask queue, matching the "promise
// reactions are jobs, not immediate calls" requirement.
func (t *VmThread) settlePromise(promiseVal jsvalue.Value, value jsvalue.Value, rejected bool) {
	p, ok := t.Heap.Promise(promiseVal)
	if !ok || p.IsSettled() {
		return
	}
	if rejected {
		p.State = PromiseRejected
	} else {
		p.State = PromiseFulfilled
	}
	p.Value = value
	callbacks := p.onSettle
	p.onSettle = nil
	for _, cb := range callbacks {
		cb := cb
		release := t.pin(value)
		t.Microtasks.Enqueue(func() {
			release()
			cb(value, rejected)
		})
	}
}

// subscribePromise registers cb to run (as a microtask) once v
// settles. If v isn't actually a Promise cell, Await's coercion rule
// applies: treat it as an already-fulfilled value, scheduled on the
// next microtask tick rather than called synchronously, matching
// "Await always yields at least one microtask turn" even for
// non-promise operands.
//
// pins are values cb closes over (a reaction handler, a derived
// promise) that the GC tracer cannot see inside the Go closure; they
// are rooted until cb has run.
func (t *VmThread) subscribePromise(v jsvalue.Value, cb settleCallback, pins ...jsvalue.Value) {
	release := t.pin(append(pins, v)...)
	wrapped := func(value jsvalue.Value, rejected bool) {
		release()
		cb(value, rejected)
	}
	p, ok := t.Heap.Promise(v)
	if !ok {
		t.Microtasks.Enqueue(func() { wrapped(v, false) })
		return
	}
	if p.IsSettled() {
		value, rejected := p.Value, p.State == PromiseRejected
		t.Microtasks.Enqueue(func() { wrapped(value, rejected) })
		return
	}
	p.onSettle = append(p.onSettle, wrapped)
}

// SettlePromise and SubscribePromise export the two operations
// internal/intrinsics' Promise constructor/prototype need (resolve/
// reject executor arguments, and .then/.catch/.finally reactions)
// without duplicating the FIFO-microtask settlement logic above.
func (t *VmThread) SettlePromise(promiseVal, value jsvalue.Value, rejected bool) {
	t.settlePromise(promiseVal, value, rejected)
}

func (t *VmThread) SubscribePromise(v jsvalue.Value, onSettled func(value jsvalue.Value, rejected bool), pins ...jsvalue.Value) {
	t.subscribePromise(v, onSettled, pins...)
}
