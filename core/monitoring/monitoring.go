// Package monitoring is the process-wide error reporter. Packages report
// failures through the package functions; the CLI installs a concrete
// Monitor at startup.
package monitoring

import (
	"fmt"
	"sync"
	"time"
)

// Monitor defines methods used for error reporting.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	Recover()
	Flush(timeout time.Duration)
}

type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) Recover()                                  {}
func (NopMonitor) Flush(time.Duration)                       {}

var (
	mu      sync.RWMutex
	current Monitor = NopMonitor{}
)

// Init sets the global monitor implementation. A nil monitor restores the
// no-op one.
func Init(m Monitor) {
	mu.Lock()
	defer mu.Unlock()
	if m == nil {
		m = NopMonitor{}
	}
	current = m
}

func get() Monitor {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// CaptureException records the error with optional tags.
func CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	get().CaptureException(err, tags)
}

// CaptureStage records a pipeline stage failure tagged with the stage name
// and run id.
func CaptureStage(err error, stage, runID string) {
	CaptureException(err, map[string]string{"stage": stage, "run_id": runID})
}

// Recover reports a panic then re-raises it. It must be deferred directly.
func Recover() {
	if r := recover(); r != nil {
		m := get()
		m.CaptureException(fmt.Errorf("panic: %v", r), map[string]string{"panic": "true"})
		m.Flush(2 * time.Second)
		panic(r)
	}
}

// Flush flushes buffered events.
func Flush(d time.Duration) {
	get().Flush(d)
}
