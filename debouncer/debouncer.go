// Package debouncer delays invoking an action until a quiet period has
// elapsed since the last call to Apply. Repeated calls within the quiet
// period reset the delay; only the arguments of the most recent call
// are used when the action eventually runs.
//
// Each Debouncer owns a single goroutine that serializes every
// operation against its state, so no locks are exposed to callers. The
// action itself always runs on a separate, fire-and-forget worker: a
// slow or panicking action can never block or corrupt the debouncer.
package debouncer

import (
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/michalmuskala/debounce/logger"
)

// DefaultCallTimeout bounds how long an operation waits for the actor
// goroutine before giving up with ErrCallTimeout.
const DefaultCallTimeout = 5 * time.Second

var (
	// ErrInvalidAction is returned when an Action has no function.
	ErrInvalidAction = errors.New("debouncer: invalid action")
	// ErrNegativeTimeout is returned for a timeout below zero.
	ErrNegativeTimeout = errors.New("debouncer: negative timeout")
	// ErrCallTimeout is returned when the actor did not answer within
	// the call timeout. The actor itself is unaffected.
	ErrCallTimeout = errors.New("debouncer: call timed out")
	// ErrStopped is returned by operations on a stopped debouncer.
	ErrStopped = errors.New("debouncer: stopped")
	// ErrBadRequest terminates the actor when it receives a request it
	// does not recognize.
	ErrBadRequest = errors.New("debouncer: unrecognized request")
	// ErrBadNotification terminates the actor when it receives an
	// asynchronous message it does not recognize.
	ErrBadNotification = errors.New("debouncer: unrecognized notification")
)

type command interface {
	replyCh() chan error
}

type applyCmd struct {
	args  []any
	reply chan error
}

type cancelCmd struct {
	reply chan error
}

type flushCmd struct {
	args  []any
	reply chan error
}

type changeFunctionCmd struct {
	action Action
	reply  chan error
}

type changeTimeoutCmd struct {
	timeout time.Duration
	reply   chan error
}

type stopCmd struct {
	reply chan error
}

func (c applyCmd) replyCh() chan error          { return c.reply }
func (c cancelCmd) replyCh() chan error         { return c.reply }
func (c flushCmd) replyCh() chan error          { return c.reply }
func (c changeFunctionCmd) replyCh() chan error { return c.reply }
func (c changeTimeoutCmd) replyCh() chan error  { return c.reply }
func (c stopCmd) replyCh() chan error           { return c.reply }

// timerFired is delivered by the scheduler's fire callback. The token
// identifies the arming instance that scheduled it; a mismatch means
// the timer was canceled or replaced after the fire was already on its
// way, and the notification is discarded.
type timerFired struct {
	token uint64
}

type invocation struct {
	action Action
	args   []any
}

// Debouncer is a handle to one running debouncer actor. All methods are
// safe for concurrent use; each blocks until the actor has processed
// the request, bounded by the configured call timeout.
type Debouncer struct {
	cmds   chan command
	notify chan any
	done   chan struct{}

	callTimeout time.Duration
	sched       Scheduler
	launcher    Launcher
	log         logger.Logger

	// termErr is written by the actor goroutine before done is closed
	// and read by callers only after done is closed.
	termErr error
}

type options struct {
	callTimeout time.Duration
	sched       Scheduler
	launcher    Launcher
	log         logger.Logger
	name        string
}

// Option configures a Debouncer at creation time.
type Option func(*options)

// WithCallTimeout sets the bound on how long each operation waits for
// the actor, including Stop waiting for termination.
func WithCallTimeout(d time.Duration) Option {
	return func(o *options) { o.callTimeout = d }
}

// WithScheduler replaces the timer facility. Mainly useful in tests.
func WithScheduler(s Scheduler) Option {
	return func(o *options) { o.sched = s }
}

// WithLauncher replaces the worker launcher used to run actions.
func WithLauncher(l Launcher) Option {
	return func(o *options) { o.launcher = l }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(log logger.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithName labels the debouncer's log output. Name-based lookup of
// instances is a separate concern, see the registry package.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// New starts a debouncer in the idle state with the given action and
// quiet period. The timeout must be non-negative and the action must
// have been built with Func or Bind.
func New(action Action, timeout time.Duration, opts ...Option) (*Debouncer, error) {
	if !action.valid() {
		return nil, ErrInvalidAction
	}
	if timeout < 0 {
		return nil, ErrNegativeTimeout
	}

	o := options{
		callTimeout: DefaultCallTimeout,
		sched:       wallScheduler{},
		log:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.name != "" {
		o.log = o.log.WithPrefix(o.name)
	}
	if o.launcher == nil {
		o.launcher = goLauncher{log: o.log}
	}

	d := &Debouncer{
		cmds:        make(chan command),
		notify:      make(chan any),
		done:        make(chan struct{}),
		callTimeout: o.callTimeout,
		sched:       o.sched,
		launcher:    o.launcher,
		log:         o.log,
	}

	go d.run(&loopState{action: action, timeout: timeout})

	return d, nil
}

// Apply arms (or re-arms) the timer for the current quiet period,
// binding the current action and args as the pending invocation. When
// Apply returns, the timer is armed and any previous one is dead.
func (d *Debouncer) Apply(args ...any) error {
	return d.call(applyCmd{args: args, reply: make(chan error, 1)})
}

// Cancel disarms a pending timer, if any. The pending invocation is
// dropped and will never run. Canceling an idle debouncer is a no-op.
func (d *Debouncer) Cancel() error {
	return d.call(cancelCmd{reply: make(chan error, 1)})
}

// Flush immediately invokes the current action with args, disarming any
// pending timer. The pending invocation is dropped, not fired: Flush is
// an immediate bypass with fresh arguments, not "fire early".
func (d *Debouncer) Flush(args ...any) error {
	return d.call(flushCmd{args: args, reply: make(chan error, 1)})
}

// ChangeFunction replaces the current action. A pending invocation
// already bound to an armed timer keeps the action it was armed with.
func (d *Debouncer) ChangeFunction(action Action) error {
	if !action.valid() {
		return ErrInvalidAction
	}
	return d.call(changeFunctionCmd{action: action, reply: make(chan error, 1)})
}

// ChangeTimeout replaces the quiet period used by subsequent Apply
// calls. The duration of an already armed timer is unaffected.
func (d *Debouncer) ChangeTimeout(timeout time.Duration) error {
	if timeout < 0 {
		return ErrNegativeTimeout
	}
	return d.call(changeTimeoutCmd{timeout: timeout, reply: make(chan error, 1)})
}

// Stop terminates the debouncer and blocks until the actor goroutine
// has exited. A pending invocation is dropped, never invoked. Further
// operations return ErrStopped.
func (d *Debouncer) Stop() error {
	if err := d.call(stopCmd{reply: make(chan error, 1)}); err != nil {
		return err
	}

	select {
	case <-d.done:
		return nil
	case <-time.After(d.callTimeout):
		return ErrCallTimeout
	}
}

func (d *Debouncer) call(c command) error {
	timer := time.NewTimer(d.callTimeout)
	defer timer.Stop()

	select {
	case d.cmds <- c:
	case <-d.done:
		return d.termErr
	case <-timer.C:
		return ErrCallTimeout
	}

	select {
	case err := <-c.replyCh():
		return err
	case <-d.done:
		// The reply is buffered and sent before termination, so a
		// caller racing with actor death still sees its real reply.
		select {
		case err := <-c.replyCh():
			return err
		default:
			return d.termErr
		}
	case <-timer.C:
		return ErrCallTimeout
	}
}

// loopState is owned exclusively by the actor goroutine.
type loopState struct {
	action  Action
	timeout time.Duration
	armed   bool
	pending invocation
	token   uint64
	cancel  func()
}

func (d *Debouncer) run(st *loopState) {
	defer func() {
		if st.armed {
			st.cancel()
		}
		close(d.done)
	}()

	for {
		select {
		case c := <-d.cmds:
			if stop := d.handleCommand(st, c); stop {
				return
			}
		case n := <-d.notify:
			if stop := d.handleNotify(st, n); stop {
				return
			}
		}
	}
}

func (d *Debouncer) handleCommand(st *loopState, c command) bool {
	switch c := c.(type) {
	case applyCmd:
		d.arm(st, c.args)
		c.reply <- nil
	case cancelCmd:
		d.disarm(st)
		c.reply <- nil
	case flushCmd:
		d.disarm(st)
		d.launcher.Launch(st.action, c.args)
		c.reply <- nil
	case changeFunctionCmd:
		st.action = c.action
		c.reply <- nil
	case changeTimeoutCmd:
		st.timeout = c.timeout
		c.reply <- nil
	case stopCmd:
		d.log.Debug("stopping")
		d.termErr = ErrStopped
		c.reply <- nil
		return true
	default:
		d.log.Error("unrecognized request, terminating",
			logger.String("request", fmt.Sprintf("%T", c)))
		d.termErr = ErrBadRequest
		c.replyCh() <- ErrBadRequest
		return true
	}

	return false
}

func (d *Debouncer) handleNotify(st *loopState, n any) bool {
	switch n := n.(type) {
	case timerFired:
		if !st.armed || n.token != st.token {
			d.log.Debug("stale timer fire discarded",
				logger.Uint64("token", n.token))
			return false
		}

		st.armed = false
		st.cancel = nil
		inv := st.pending
		st.pending = invocation{}
		d.launcher.Launch(inv.action, inv.args)
	default:
		d.log.Error("unrecognized notification, terminating",
			logger.String("notification", fmt.Sprintf("%T", n)))
		d.termErr = ErrBadNotification
		return true
	}

	return false
}

// arm cancels any outstanding timer and schedules a new one, so at most
// one timer is ever live. The pending invocation captures the action
// and args as of now; later configuration changes do not touch it.
func (d *Debouncer) arm(st *loopState, args []any) {
	if st.armed {
		st.cancel()
	}

	st.token++
	token := st.token
	st.pending = invocation{action: st.action, args: args}
	st.armed = true
	st.cancel = d.sched.Schedule(st.timeout, func() {
		select {
		case d.notify <- timerFired{token: token}:
		case <-d.done:
		}
	})
}

func (d *Debouncer) disarm(st *loopState) {
	if !st.armed {
		return
	}

	st.cancel()
	st.cancel = nil
	st.armed = false
	st.pending = invocation{}
}
