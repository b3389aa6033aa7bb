// Package logs reads the per-run JSON log files written by reelup.
//
// It locates the newest run log, returns its last N lines with bounded
// memory, follows it for new lines, and renders JSON records as compact
// console lines for `reelup logs`.
package logs
