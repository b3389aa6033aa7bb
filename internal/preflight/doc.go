// Package preflight provides readiness checks for the local paths,
// credentials, and external tools reelup depends on.
//
// These checks run in two contexts:
//   - The upload command calls RunAll before starting a batch. If any
//     check fails, the batch stops before a single byte is sent.
//   - The CLI "reelup doctor" command prints every result, and can add
//     CheckYouTubeAPI to confirm the stored token is accepted.
//
// Checks for optional features are gated by their config toggle.
package preflight
