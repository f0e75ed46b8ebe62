// Package frame converts between interleaved device blocks and the mono
// working blocks processed by the effect stages.
//
// Only mono and stereo layouts are supported. Stereo input is reduced by
// keeping the first (left) channel; the second channel is discarded rather
// than averaged. Stereo output duplicates the mono signal into both
// channels.
package frame
