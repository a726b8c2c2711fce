// Package metrics holds the Prometheus collectors shared by the binaries:
// stored fact gauges per run mode and database query and pool metrics.
// HTTP metrics live with the HTTP middleware; generation metrics live with
// the pipeline.
//
//	metrics.UpdateFactsTotal("production", 412)
//	metrics.RecordDBQuery("insert", time.Since(start), err)
package metrics
