// Package metrics defines the sinks that observe simulation runs. A sink
// must record per-cycle diagnostics; it may also implement the optional
// recorder interfaces for summaries and run events. Sinks are built from
// configuration through the registry in factory.go and combined with
// NewMultiSink when more than one is configured.
package metrics
