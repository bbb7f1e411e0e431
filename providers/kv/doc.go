// Package kv implements a key/value resource provider. It manages
// kv:index:Pair resources backed by the checkpoint store, serves the
// kv:index:lookup function, and constructs kv:index:Namespace components
// that register one Pair per entry through the resource monitor.
package kv
