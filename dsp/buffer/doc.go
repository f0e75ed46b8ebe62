// Package buffer provides fixed-capacity sample stores for streaming DSP.
// Storage is allocated once at construction; no method allocates, so the
// types are safe to drive from a real-time audio callback.
//
//   - Ring: circular history of the most recent samples.
//   - OverlapAdd: accumulator for windowed overlap-add synthesis.
package buffer
