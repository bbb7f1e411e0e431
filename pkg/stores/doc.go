// Package stores persists resource checkpoints for the provider host. It
// includes SQLite-based storage with WAL mode, connection pooling, embedded
// schema migrations, and an append-only log of provider operations.
package stores
