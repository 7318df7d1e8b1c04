package observability

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DispatchMetrics tracks request volume, failure counts, and latency for one
// module's dispatch surface (createEscrow, placeBid, bondReputation, ...),
// mirroring the teacher's ModuleMetrics shape but scoped per marketplace
// module instead of per JSON-RPC namespace.
type DispatchMetrics struct {
	operations *prometheus.CounterVec
	errors     *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

func newDispatchMetrics(subsystem string) *DispatchMetrics {
	m := &DispatchMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ainur",
			Subsystem: subsystem,
			Name:      "dispatch_total",
			Help:      fmt.Sprintf("Total %s dispatch calls segmented by operation and outcome.", subsystem),
		}, []string{"operation", "outcome"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ainur",
			Subsystem: subsystem,
			Name:      "dispatch_errors_total",
			Help:      fmt.Sprintf("Total %s dispatch failures segmented by operation and error.", subsystem),
		}, []string{"operation", "reason"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ainur",
			Subsystem: subsystem,
			Name:      "dispatch_duration_seconds",
			Help:      fmt.Sprintf("Latency distribution for %s dispatch calls.", subsystem),
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	prometheus.MustRegister(m.operations, m.errors, m.latency)
	return m
}

// Observe records one dispatch call's outcome and latency. err is nil on
// success; a non-nil err also increments the error counter keyed by its
// message so dashboards can break down failures by reason.
func (m *DispatchMetrics) Observe(operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	op := strings.TrimSpace(operation)
	if op == "" {
		op = "unknown"
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
		reason := strings.TrimSpace(err.Error())
		if reason == "" {
			reason = "unknown"
		}
		m.errors.WithLabelValues(op, reason).Inc()
	}
	m.operations.WithLabelValues(op, outcome).Inc()
	m.latency.WithLabelValues(op).Observe(duration.Seconds())
}

var (
	identityOnce    sync.Once
	identityMetrics *DispatchMetrics

	registryOnce    sync.Once
	registryMetrics *DispatchMetrics

	reputationOnce    sync.Once
	reputationMetrics *DispatchMetrics

	escrowOnce    sync.Once
	escrowMetrics *DispatchMetrics

	auctionOnce    sync.Once
	auctionMetrics *DispatchMetrics
)

// Identity returns the singleton dispatch metrics registry for the DID
// registry module (createDid/updateKey/revokeDid).
func Identity() *DispatchMetrics {
	identityOnce.Do(func() { identityMetrics = newDispatchMetrics("identity") })
	return identityMetrics
}

// Registry returns the singleton dispatch metrics registry for the agent
// registry module (registerAgent/updateAgent/deregisterAgent).
func Registry() *DispatchMetrics {
	registryOnce.Do(func() { registryMetrics = newDispatchMetrics("agentregistry") })
	return registryMetrics
}

// Reputation returns the singleton dispatch metrics registry for the
// reputation and staking module.
func Reputation() *DispatchMetrics {
	reputationOnce.Do(func() { reputationMetrics = newDispatchMetrics("reputation") })
	return reputationMetrics
}

// Escrow returns the singleton dispatch metrics registry for the escrow
// engine, by far the largest dispatch surface (createEscrow through
// batchDisputeEscrow).
func Escrow() *DispatchMetrics {
	escrowOnce.Do(func() { escrowMetrics = newDispatchMetrics("escrow") })
	return escrowMetrics
}

// Auction returns the singleton dispatch metrics registry for the VCG
// auction module.
func Auction() *DispatchMetrics {
	auctionOnce.Do(func() { auctionMetrics = newDispatchMetrics("auction") })
	return auctionMetrics
}
