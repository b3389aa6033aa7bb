// Package config loads, normalizes, and validates reelup configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads a local .env file, and honours
// environment fallbacks such as REELUP_CLIENT_SECRETS. The Config type
// centralizes every knob the CLI needs so credentials, upload defaults, and
// state directories are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
