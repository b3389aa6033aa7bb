// Package upload drives resumable chunked uploads to a remote media service.
//
// A Session owns the cursor of one transfer and advances it one chunk at a
// time through an injected ChunkSender. The Driver repeats Session.Advance,
// classifying each failure with Classify: transient network faults and the
// 500/502/503/504 statuses are retried after a jittered exponential Backoff,
// everything else ends the run immediately. The retry budget is per failure
// streak; any forward progress resets it.
//
// Uploader.UploadResumable is the caller-facing entry point. It opens the
// source, runs the driver, and when the upload completes and a collection id
// was supplied, attaches the new resource exactly once. The returned Outcome
// always keeps the resource id of a completed upload, so callers can tell an
// attachment failure apart from an upload failure.
//
// Nothing here sleeps on the wall clock in tests: the sleeper, random source,
// and attempt budget are all injectable through Option values.
package upload
