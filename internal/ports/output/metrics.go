package output

import "time"

// MetricsCollector defines the secondary port for metrics collection.
type MetricsCollector interface {
	// IncPrimitivesCreated increments the created primitives counter.
	IncPrimitivesCreated(kind string)

	// IncPrimitivesRemoved increments the removed primitives counter.
	IncPrimitivesRemoved(kind string)

	// SetTrackedResults sets the number of individually rendered results.
	SetTrackedResults(count int)

	// SetClusters sets the number of rendered clusters.
	SetClusters(count int)

	// ObserveRecomputeDuration records the duration of a cluster recompute.
	ObserveRecomputeDuration(duration time.Duration)

	// IncLayerInitFailures increments the failed layer counter.
	IncLayerInitFailures(layerType string)

	// IncMapEvents increments the pointer event counter.
	IncMapEvents(kind string)

	// IncResultLoads increments the result load counter.
	IncResultLoads(source string, success bool)

	// IncStorageOperations increments storage operation counter.
	IncStorageOperations(operation string, success bool)

	// ObserveStorageDuration records storage operation duration.
	ObserveStorageDuration(operation string, duration time.Duration)
}

// NoOpMetrics is a no-op implementation of MetricsCollector.
type NoOpMetrics struct{}

// IncPrimitivesCreated implements MetricsCollector.
func (n *NoOpMetrics) IncPrimitivesCreated(_ string) {}

// IncPrimitivesRemoved implements MetricsCollector.
func (n *NoOpMetrics) IncPrimitivesRemoved(_ string) {}

// SetTrackedResults implements MetricsCollector.
func (n *NoOpMetrics) SetTrackedResults(_ int) {}

// SetClusters implements MetricsCollector.
func (n *NoOpMetrics) SetClusters(_ int) {}

// ObserveRecomputeDuration implements MetricsCollector.
func (n *NoOpMetrics) ObserveRecomputeDuration(_ time.Duration) {}

// IncLayerInitFailures implements MetricsCollector.
func (n *NoOpMetrics) IncLayerInitFailures(_ string) {}

// IncMapEvents implements MetricsCollector.
func (n *NoOpMetrics) IncMapEvents(_ string) {}

// IncResultLoads implements MetricsCollector.
func (n *NoOpMetrics) IncResultLoads(_ string, _ bool) {}

// IncStorageOperations implements MetricsCollector.
func (n *NoOpMetrics) IncStorageOperations(_ string, _ bool) {}

// ObserveStorageDuration implements MetricsCollector.
func (n *NoOpMetrics) ObserveStorageDuration(_ string, _ time.Duration) {}
