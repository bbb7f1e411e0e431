// Package monitor implements the client side of the resource monitor
// protocol. Component providers use it during Construct to register the
// child resources they create: the engine hands the provider a monitor
// endpoint, the provider dials it, and resource registrations flow back
// over the same newline-framed envelope format the provider itself serves.
//
// A Client multiplexes concurrent calls over one connection. Requests are
// correlated with responses by envelope ID, so callers can issue
// registrations from multiple goroutines.
package monitor
