// Package ffprobe inspects upload sources with ffprobe before any bytes are
// sent.
//
// Inspect runs ffprobe and decodes its JSON report into Result. Validate
// applies the configured rules (a video stream must be present and the
// duration may be capped) and returns errors tagged as validation failures
// so the CLI reports them as usage problems rather than upload failures.
package ffprobe
