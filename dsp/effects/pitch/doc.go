// Package pitch provides phase-vocoder pitch shifters for mono blocks.
//
// Included processors:
//   - StreamShifter: streaming shifter whose analysis frame spans several
//     blocks. History lives in fixed rings allocated at construction.
//   - BlockShifter: processes every block independently with an STFT time
//     stretch followed by Hermite resampling.
//   - Shifter: shared interface for both.
//
// A ratio of exactly 1 is a sample-exact passthrough in both processors.
package pitch
