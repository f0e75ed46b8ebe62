// Package spectrum provides lightweight spectral analysis of mono blocks.
//
// [Analyzer] estimates the dominant frequency of a block with a windowed
// FFT and parabolic peak interpolation. [Goertzel] evaluates the power of a
// single frequency without computing a full transform.
package spectrum
