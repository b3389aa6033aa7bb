// Package textutil normalizes user-facing text before it is sent as video
// metadata.
//
// Titles are cleaned to what the upload endpoint accepts: no angle brackets,
// no control characters, collapsed whitespace, and at most 100 characters.
// Keywords arrive as one comma-separated string and leave as a deduplicated
// tag list. InferTitle derives a readable title from a file name when the
// caller gave none.
package textutil
