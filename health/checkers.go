package health

import (
	"context"
	"time"
)

// PipelineState is the slice of the consumer supervisor the health checks
// read: the loop-is-running liveness signal and the broker-connected
// readiness signal.
type PipelineState interface {
	Running() bool
	Connected() bool
}

// LivenessChecker reports whether the supervision loop is running.
type LivenessChecker struct {
	state PipelineState
}

// NewLivenessChecker creates a liveness checker over the pipeline state.
func NewLivenessChecker(state PipelineState) *LivenessChecker {
	return &LivenessChecker{state: state}
}

func (c *LivenessChecker) Name() string {
	return "consumer_loop"
}

func (c *LivenessChecker) Check(ctx context.Context) CheckResult {
	result := CheckResult{Name: c.Name(), Timestamp: time.Now().UTC()}
	if c.state.Running() {
		result.Status = StatusHealthy
		result.Message = "consume loop is running"
	} else {
		result.Status = StatusUnhealthy
		result.Message = "consume loop is not running"
	}
	return result
}

// ReadinessChecker reports whether a broker connection is established.
type ReadinessChecker struct {
	state PipelineState
}

// NewReadinessChecker creates a readiness checker over the pipeline state.
func NewReadinessChecker(state PipelineState) *ReadinessChecker {
	return &ReadinessChecker{state: state}
}

func (c *ReadinessChecker) Name() string {
	return "broker_connection"
}

func (c *ReadinessChecker) Check(ctx context.Context) CheckResult {
	result := CheckResult{Name: c.Name(), Timestamp: time.Now().UTC()}
	if c.state.Connected() {
		result.Status = StatusHealthy
		result.Message = "broker connection established"
	} else {
		result.Status = StatusUnhealthy
		result.Message = "broker connection down"
	}
	return result
}
