// Package formant reshapes the spectral envelope of a block by a Fourier
// resampling round trip.
//
// A block of n samples is resampled to round(n*ratio) samples and back to
// n. Both steps use the frequency-domain resampler: the real spectrum is
// truncated or zero-extended, the shared Nyquist bin is split or joined,
// and the result is scaled by the length ratio. A ratio above 1 round-trips
// exactly; a ratio below 1 removes content above the intermediate Nyquist
// frequency.
//
// The transform is block-local and keeps no state between blocks.
package formant
