package goroutine

import (
	"context"
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

// Logger is the subset of logrus used to report recovered panics.
type Logger interface {
	Errorf(format string, args ...interface{})
}

// RecoveryHandler runs goroutines that must not take the process down.
type RecoveryHandler struct {
	logger Logger
}

func NewRecoveryHandler(logger Logger) *RecoveryHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RecoveryHandler{logger: logger}
}

// SafeGoWithContext starts fn in a goroutine and logs a panic instead of
// crashing. fn is expected to return once ctx is done.
func (rh *RecoveryHandler) SafeGoWithContext(ctx context.Context, fn func(context.Context)) {
	go func() {
		defer rh.recover("goroutine")
		fn(ctx)
	}()
}

// Call runs fn synchronously and reports whether it panicked.
func (rh *RecoveryHandler) Call(fn func()) (panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			rh.logger.Errorf("Panic in callback: %v\nStack trace:\n%s", r, debug.Stack())
		}
	}()
	fn()
	return false
}

func (rh *RecoveryHandler) recover(where string) {
	if r := recover(); r != nil {
		rh.logger.Errorf("Panic in %s: %v\nStack trace:\n%s", where, r, debug.Stack())
	}
}
