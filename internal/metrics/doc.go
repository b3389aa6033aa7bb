// Package metrics records upload activity as Prometheus collectors.
//
// reelup is a short-lived CLI, so metrics are not served over HTTP. When
// metrics.textfile_path is configured the registry is written in the
// node_exporter textfile format after each run.
package metrics
