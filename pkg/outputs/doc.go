// Package outputs implements the asynchronous value primitive used by
// component providers. An Output is a one-shot cell that resolves exactly
// once with a value, a known flag, a secret flag, a dependency set, and an
// error. Outputs are created and tracked by a Join, which carries the
// preview flag for apply semantics and lets a server drain outstanding work
// before answering an RPC.
package outputs
