package api

import (
	"sync"
	"time"
)

const readinessStarting = "starting"

// Readiness tracks whether the service can accept traffic. It starts not
// ready and is flipped by the process once its dependencies are up.
type Readiness struct {
	mu     sync.RWMutex
	ready  bool
	reason string
	since  time.Time
}

type ReadinessStatus struct {
	Ready  bool
	Reason string
	Since  time.Time
}

func NewReadiness() *Readiness {
	return &Readiness{reason: readinessStarting, since: time.Now()}
}

func (readiness *Readiness) MarkReady() {
	readiness.mu.Lock()
	defer readiness.mu.Unlock()
	if readiness.ready {
		return
	}
	readiness.ready = true
	readiness.reason = ""
	readiness.since = time.Now()
}

func (readiness *Readiness) MarkNotReady(reason string) {
	readiness.mu.Lock()
	defer readiness.mu.Unlock()
	readiness.ready = false
	readiness.reason = reason
	readiness.since = time.Now()
}

func (readiness *Readiness) Ready() bool {
	return readiness.Status().Ready
}

func (readiness *Readiness) Status() ReadinessStatus {
	readiness.mu.RLock()
	defer readiness.mu.RUnlock()
	return ReadinessStatus{Ready: readiness.ready, Reason: readiness.reason, Since: readiness.since}
}
