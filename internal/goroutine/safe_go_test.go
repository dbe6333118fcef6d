package goroutine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) Errorf(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.lines)
}

func TestCall_RecoversPanic(t *testing.T) {
	log := &recordingLogger{}
	rh := NewRecoveryHandler(log)

	assert.True(t, rh.Call(func() { panic("boom") }))
	assert.False(t, rh.Call(func() {}))

	require.Equal(t, 1, log.count())
	assert.Contains(t, log.lines[0], "Panic in callback: boom")
}

func TestSafeGoWithContext_RecoversPanic(t *testing.T) {
	log := &recordingLogger{}
	rh := NewRecoveryHandler(log)

	rh.SafeGoWithContext(context.Background(), func(context.Context) {
		panic("loop died")
	})

	assert.Eventually(t, func() bool { return log.count() == 1 }, time.Second, 5*time.Millisecond)
}
