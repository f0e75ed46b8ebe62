// Package interp provides interpolation primitives for fractional-position
// sample lookup.
//
// [Hermite4] is the 4-point cubic Hermite kernel. [SampleHermite] evaluates
// it at an arbitrary position inside a block with clamped edges, and
// [ResampleHermiteInto] reads a block at a fixed fractional step.
package interp
