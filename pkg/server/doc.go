// Package server hosts a provider implementation behind the newline-framed
// JSON RPC protocol. The servicer decodes request envelopes, translates the
// wire property model into the provider's property values, invokes the
// provider, and maps failures onto structured wire errors. Serving follows
// the engine handshake: the bound TCP port is printed to stdout before any
// request is accepted.
package server
