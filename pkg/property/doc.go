// Package property implements the immutable property value model that
// crosses the provider wire protocol: primitives, collections, assets,
// archives, secrets, resource references, output references with dependency
// metadata, and the computed (not yet known) marker, together with the
// bidirectional codec between property values and wire values.
package property
