// Package ir provides the typed value layer used on the wire to the
// accounting system.
//
// Every field sent in a batch part is an ir.Value. Objects keep their keys in
// insertion order so that encoding the same request twice yields the same
// bytes, which the wire golden files rely on.
//
// Key design constraints:
//   - NO float types anywhere - amounts are Decimal (fixed point), counts are Int
//   - Objects serialize in insertion order, never in Go map order
//   - Strings are NFC normalized at the serialization boundary
//   - ir imports nothing internal; every other package may import ir
package ir
