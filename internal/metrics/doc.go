// Package metrics records build metrics for bookbuilder.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no nil checks are needed at call sites:
//
//	c := compiler.New(b, t, compiler.WithRecorder(metrics.NoopRecorder{}))
//
// PrometheusRecorder backs the interface with client_golang collectors on a
// private registry. A one-shot CLI has no scrape endpoint, so the registry is
// exported in the node_exporter textfile format with WriteTextfile.
package metrics
