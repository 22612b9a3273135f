package debouncer

// Action is the work a debouncer invokes once its quiet period elapses.
// An Action is either a closure built with Func, which receives the
// arguments of the Apply or Flush call that triggered it, or a bound
// call built with Bind, which carries its own argument list.
//
// Actions are immutable value types. The actor captures the Action at
// arming time; replacing it later with ChangeFunction never alters an
// invocation that is already scheduled.
type Action struct {
	fn    func(args ...any)
	bound []any
}

// Func returns a closure Action. The arguments passed to Apply or Flush
// become the closure's argument list.
func Func(fn func(args ...any)) Action {
	return Action{fn: fn}
}

// Bind returns a bound-call Action. The bound arguments come first;
// arguments passed to Apply or Flush are appended after them.
func Bind(fn func(args ...any), bound ...any) Action {
	return Action{fn: fn, bound: bound}
}

func (a Action) valid() bool {
	return a.fn != nil
}

func (a Action) invoke(extra []any) {
	if len(a.bound) == 0 {
		a.fn(extra...)
		return
	}

	args := make([]any, 0, len(a.bound)+len(extra))
	args = append(args, a.bound...)
	args = append(args, extra...)
	a.fn(args...)
}
