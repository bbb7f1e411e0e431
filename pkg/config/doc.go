// Package config loads the provider host's configuration. The host reads a
// YAML file naming the plugin, where to listen, where to keep checkpoint
// state, and how to emit telemetry; every field has a sensible default so a
// missing file is not an error.
package config
