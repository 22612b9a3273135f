package debouncer

import (
	"fmt"

	"github.com/michalmuskala/debounce/logger"
)

// Launcher starts isolated, fire-and-forget execution of an action.
// Launch must not block, and a failure inside the action must stay
// contained: the actor never learns the invocation's outcome.
type Launcher interface {
	Launch(action Action, args []any)
}

type goLauncher struct {
	log logger.Logger
}

func (l goLauncher) Launch(action Action, args []any) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				l.log.Error("action panicked",
					logger.String("panic", fmt.Sprint(r)))
			}
		}()

		action.invoke(args)
	}()
}
