// Package history records upload attempts in SQLite.
//
// Each invocation of `reelup upload` writes one row per source file when the
// upload starts and completes it with the outcome: resource id, playlist,
// error kind and message, retries, and bytes sent. The ledger is an audit
// trail only. Resumable session state is never stored, so an interrupted run
// starts a fresh upload session.
//
// AcquireSourceLock guards a source path with an advisory file lock so two
// reelup processes never upload the same file at the same time.
package history
