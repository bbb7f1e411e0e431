// Package wire defines the provider protocol's wire format: the closed
// value model exchanged inside property bags, the reserved signature keys
// used to tag special struct shapes, the newline-delimited JSON message
// framing, and the request/response payload types for every RPC.
package wire
