// Package youtube connects the upload driver to the YouTube Data API.
//
// ResumableTransport speaks the resumable upload protocol directly over an
// authorized *http.Client so that every chunk is a single step the driver can
// classify and retry. PlaylistAttacher uses the generated youtube/v3 client
// for the one-shot playlist insert. The auth helpers load installed-app
// client secrets, run the loopback consent flow, and persist refreshed
// tokens next to the configuration.
package youtube
