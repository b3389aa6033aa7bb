// Package notifications delivers upload events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and degrades to a no-op when notifications are disabled. The
// enumerated events cover upload completion, failure, playlist attach
// failure, batch summaries, and the test message so commands emit consistent
// messages without duplicating HTTP glue.
package notifications
