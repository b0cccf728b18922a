package goaccount

import (
	"sync/atomic"
)

// MetricID defines a public type used by goaccount APIs.
//
// MetricID instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricID uint16

const (
	// MetricSignUpSuccess is an exported constant or variable used by the account engine.
	MetricSignUpSuccess MetricID = iota
	// MetricSignUpFailure is an exported constant or variable used by the account engine.
	MetricSignUpFailure
	// MetricOnboardingSuccess is an exported constant or variable used by the account engine.
	MetricOnboardingSuccess
	// MetricOnboardingFailure is an exported constant or variable used by the account engine.
	MetricOnboardingFailure
	// MetricLoginSuccess is an exported constant or variable used by the account engine.
	MetricLoginSuccess
	// MetricLoginFailure is an exported constant or variable used by the account engine.
	MetricLoginFailure
	// MetricLogout is an exported constant or variable used by the account engine.
	MetricLogout
	// MetricAccountDeleted is an exported constant or variable used by the account engine.
	MetricAccountDeleted
	// MetricAccountDeleteFailure is an exported constant or variable used by the account engine.
	MetricAccountDeleteFailure
	// MetricProfileUpdateSuccess is an exported constant or variable used by the account engine.
	MetricProfileUpdateSuccess
	// MetricProfileUpdateFailure is an exported constant or variable used by the account engine.
	MetricProfileUpdateFailure
	// MetricPasswordChangeSuccess is an exported constant or variable used by the account engine.
	MetricPasswordChangeSuccess
	// MetricPasswordChangeFailure is an exported constant or variable used by the account engine.
	MetricPasswordChangeFailure
	// MetricPasswordResetRequest is an exported constant or variable used by the account engine.
	MetricPasswordResetRequest
	// MetricReauthSuccess is an exported constant or variable used by the account engine.
	MetricReauthSuccess
	// MetricReauthFailure is an exported constant or variable used by the account engine.
	MetricReauthFailure
	// MetricReauthRequired is an exported constant or variable used by the account engine.
	MetricReauthRequired
	// MetricUsernameConflict is an exported constant or variable used by the account engine.
	MetricUsernameConflict
	// MetricIdentityNotification is an exported constant or variable used by the account engine.
	MetricIdentityNotification
	// MetricOperationRejectedBusy is an exported constant or variable used by the account engine.
	MetricOperationRejectedBusy
	metricIDCount
)

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics defines a public type used by goaccount APIs.
//
// Metrics instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// MetricsSnapshot defines a public type used by goaccount APIs.
//
// MetricsSnapshot instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// NewMetrics describes the newmetrics operation and its observable behavior.
//
// NewMetrics does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Enabled describes the enabled operation and its observable behavior.
//
// Enabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc describes the inc operation and its observable behavior.
//
// Inc does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Value describes the value operation and its observable behavior.
//
// Value does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot describes the snapshot operation and its observable behavior.
//
// Snapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}

	s := MetricsSnapshot{
		Counters: make(map[MetricID]uint64, int(metricIDCount)),
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return s
}
