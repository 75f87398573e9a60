package interp

import (
	"github.com/octofhir/otter-vm/internal/jsobject"
	"github.com/octofhir/otter-vm/internal/jsvalue"
)

// pauseKind tags why a coroutine goroutine handed control back to its
// driver (generator.next()'s caller, or the async call site).
type pauseKind uint8

const (
	pauseYield pauseKind = iota
	pauseAwait
	pauseDone
	pauseThrown
)

type pauseMsg struct {
	kind  pauseKind
	value jsvalue.Value
}

type resumeMsg struct {
	value  jsvalue.Value
	thrown bool
}

// Coroutine is the rendezvous channel pair a generator or async
// function's Frame blocks on at OpYield/OpAwait, per spec.md section
// 4.E's suspension design note. Exactly one of {the goroutine running
// t.run(frame), whoever last sent on resumeCh} is ever live at a time:
// a send on one channel is always immediately followed by a blocking
// receive on the other, so the single-writer-per-thread discipline
// VmThread's doc comment requires still holds even though two
// goroutines exist.
type Coroutine struct {
	resumeCh chan resumeMsg
	pauseCh  chan pauseMsg
}

func newCoroutine() *Coroutine {
	return &Coroutine{resumeCh: make(chan resumeMsg), pauseCh: make(chan pauseMsg)}
}

// advance hands resumeVal (or a thrown exception) to the parked
// goroutine and blocks until it pauses or finishes.
func (c *Coroutine) advance(resumeVal jsvalue.Value, thrown bool) pauseMsg {
	c.resumeCh <- resumeMsg{value: resumeVal, thrown: thrown}
	return <-c.pauseCh
}

// runBody starts frame's body on a dedicated goroutine, parked
// immediately until the first advance() call, so construction alone
// never executes any of the function's bytecode (a generator's body
// doesn't run until the first .next()).
func (t *VmThread) runBody(frame *Frame) {
	// The frame's registers/locals live on the parked goroutine, not
	// on t.frames; root them until the coroutine finishes (the driver
	// untracks on pauseDone/pauseThrown).
	t.coroFrames[frame] = struct{}{}
	coro := frame.gen
	go func() {
		first := <-coro.resumeCh
		if first.thrown {
			coro.pauseCh <- pauseMsg{kind: pauseThrown, value: first.value}
			return
		}
		var result jsvalue.Value
		var callErr error
		func() {
			defer recoverException(&callErr, &result)
			result = t.run(frame)
		}()
		if callErr != nil {
			coro.pauseCh <- pauseMsg{kind: pauseThrown, value: result}
			return
		}
		coro.pauseCh <- pauseMsg{kind: pauseDone, value: result}
	}()
}

// yield implements OpYield from inside the running coroutine goroutine:
// hand the yielded value to whoever is driving us, then block until
// resumed, re-throwing if resumed via generator.throw().
func (t *VmThread) yield(frame *Frame, v jsvalue.Value) jsvalue.Value {
	if frame.gen == nil {
		t.throwTypeError("yield used outside a generator")
	}
	frame.gen.pauseCh <- pauseMsg{kind: pauseYield, value: v}
	rv := <-frame.gen.resumeCh
	if rv.thrown {
		throwValue(rv.value)
	}
	return rv.value
}

// await implements OpAwait. Inside a coroutine-backed async function
// it suspends the same way yield does, except the driver (stepAsync)
// resumes it once the awaited promise settles rather than on an
// external .next() call. Outside any coroutine (e.g. a synchronous
// top-level await some hosts allow) there is nothing to hand control
// back to, so it busy-drains the microtask queue until v settles -
// correct in this engine because nothing but a microtask-scheduled
// reaction can ever settle a promise (spec.md's Non-goals exclude
// timers/real async I/O).
func (t *VmThread) await(frame *Frame, v jsvalue.Value) jsvalue.Value {
	if frame.gen != nil {
		frame.gen.pauseCh <- pauseMsg{kind: pauseAwait, value: v}
		rv := <-frame.gen.resumeCh
		if rv.thrown {
			throwValue(rv.value)
		}
		return rv.value
	}
	p, ok := t.Heap.Promise(v)
	if !ok {
		return v
	}
	for !p.IsSettled() && t.Microtasks.Len() > 0 {
		t.Microtasks.Drain()
	}
	if p.State == PromiseRejected {
		throwValue(p.Value)
	}
	return p.Value
}

// startGenerator implements calling a `function*`: returns a generator
// object immediately, with a bound `next` method, without running any
// of the function body yet.
func (t *VmThread) startGenerator(cl *Closure, this jsvalue.Value, args []jsvalue.Value, newTarget jsvalue.Value) jsvalue.Value {
	frame := newFrame(cl, args, this, newTarget)
	frame.gen = newCoroutine()
	t.runBody(frame)

	genVal := t.Heap.NewObject(t.Graph, t.ObjectPrototype)
	genObj, _ := t.Heap.Object(genVal)

	done := false
	coro := frame.gen
	nextFn := &Closure{Native: func(t *VmThread, this jsvalue.Value, nargs []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		if done {
			return t.iterResult(jsvalue.Undefined, true), nil
		}
		resumeVal := jsvalue.Undefined
		if len(nargs) > 0 {
			resumeVal = nargs[0]
		}
		msg := coro.advance(resumeVal, false)
		if msg.kind == pauseThrown {
			done = true
			delete(t.coroFrames, frame)
			return jsvalue.Undefined, ThrownValue{Value: msg.value}
		}
		if msg.kind == pauseDone {
			done = true
			delete(t.coroFrames, frame)
		}
		return t.iterResult(msg.value, msg.kind == pauseDone), nil
	}}
	nextVal := t.Heap.NewClosure(nextFn)
	_ = jsobject.DefineProperty(genObj, jsobject.StringKey(jsvalue.Intern("next")), jsobject.PropertyDescriptor{
		Value: nextVal, Writable: true, Configurable: true,
	})
	return genVal
}

// iterResult builds the plain {value, done} object the iterator
// protocol (iterator.go) and generator.next() both hand back.
func (t *VmThread) iterResult(value jsvalue.Value, done bool) jsvalue.Value {
	v := t.Heap.NewObject(t.Graph, t.ObjectPrototype)
	obj, _ := t.Heap.Object(v)
	_ = jsobject.DefineProperty(obj, jsobject.StringKey(jsvalue.Intern("value")), jsobject.PropertyDescriptor{Value: value, Writable: true, Enumerable: true, Configurable: true})
	_ = jsobject.DefineProperty(obj, jsobject.StringKey(jsvalue.Intern("done")), jsobject.PropertyDescriptor{Value: jsvalue.Boolean(done), Writable: true, Enumerable: true, Configurable: true})
	return v
}

// startAsync implements calling an `async function`: runs the body's
// synchronous prefix immediately (up to its first await, or to
// completion) and returns a Promise, exactly like every other engine's
// async/await desugars to a generator driven by a trampoline.
func (t *VmThread) startAsync(cl *Closure, this jsvalue.Value, args []jsvalue.Value, newTarget jsvalue.Value) jsvalue.Value {
	frame := newFrame(cl, args, this, newTarget)
	frame.gen = newCoroutine()
	t.runBody(frame)

	promiseVal := t.Heap.NewPromise(NewPromise())
	t.stepAsync(frame.gen, promiseVal, jsvalue.Undefined, false)
	return promiseVal
}

// stepAsync drives one leg of an async function's execution: resume
// the coroutine, then either settle the result promise or subscribe to
// the awaited promise so the next leg runs as a later microtask.
func (t *VmThread) stepAsync(coro *Coroutine, promiseVal jsvalue.Value, resumeVal jsvalue.Value, thrown bool) {
	msg := coro.advance(resumeVal, thrown)
	switch msg.kind {
	case pauseDone:
		t.untrackCoroutine(coro)
		t.settlePromise(promiseVal, msg.value, false)
	case pauseThrown:
		t.untrackCoroutine(coro)
		t.settlePromise(promiseVal, msg.value, true)
	case pauseAwait:
		t.subscribePromise(msg.value, func(v jsvalue.Value, rejected bool) {
			t.stepAsync(coro, promiseVal, v, rejected)
		}, promiseVal)
	case pauseYield:
		// await/yield don't mix in one function; a generator function
		// can't also be async in this engine's bytecode model.
		t.untrackCoroutine(coro)
		t.settlePromise(promiseVal, msg.value, false)
	}
}

// untrackCoroutine drops the finished coroutine's frame from the GC
// root set; a linear scan is fine at the rate coroutines complete.
func (t *VmThread) untrackCoroutine(coro *Coroutine) {
	for f := range t.coroFrames {
		if f.gen == coro {
			delete(t.coroFrames, f)
			return
		}
	}
}
