package frame

import (
	"fmt"

	"github.com/cwbudde/voxshift/dsp/core"
)

// Sample is a device or working sample type.
type Sample interface {
	~float32 | ~float64
}

// ValidateLayout reports whether channels is a supported layout.
func ValidateLayout(channels int) error {
	if channels != 1 && channels != 2 {
		return fmt.Errorf("frame: %d channels: %w", channels, core.ErrUnsupportedChannelLayout)
	}
	return nil
}

// Frames returns the number of frames in an interleaved block of samples.
func Frames(samples, channels int) (int, error) {
	if err := ValidateLayout(channels); err != nil {
		return 0, err
	}
	if samples < 0 || samples%channels != 0 {
		return 0, fmt.Errorf("frame: %d samples is not a whole number of %d-channel frames: %w",
			samples, channels, core.ErrInvalidParameter)
	}
	return samples / channels, nil
}

// ToMono returns the mono working block for an interleaved raw block.
func ToMono[S Sample](in []S, channels int) ([]float64, error) {
	frames, err := Frames(len(in), channels)
	if err != nil {
		return nil, err
	}
	out := make([]float64, frames)
	if err := ToMonoInto(out, in, channels); err != nil {
		return nil, err
	}
	return out, nil
}

// ToMonoInto writes the mono reduction of in into dst, which must hold
// exactly len(in)/channels samples.
func ToMonoInto[S Sample](dst []float64, in []S, channels int) error {
	frames, err := Frames(len(in), channels)
	if err != nil {
		return err
	}
	if len(dst) != frames {
		return fmt.Errorf("frame: mono buffer holds %d samples, need %d: %w",
			len(dst), frames, core.ErrInvalidParameter)
	}

	if channels == 1 {
		for i, v := range in {
			dst[i] = float64(v)
		}
		return nil
	}
	for i := range dst {
		dst[i] = float64(in[i*2])
	}
	return nil
}

// FromMono expands a mono block into an interleaved block of the given
// channel count.
func FromMono[S Sample](mono []float64, channels int) ([]S, error) {
	if err := ValidateLayout(channels); err != nil {
		return nil, err
	}
	out := make([]S, len(mono)*channels)
	if err := FromMonoInto(out, mono, channels); err != nil {
		return nil, err
	}
	return out, nil
}

// FromMonoInto writes the channel expansion of mono into dst, which must hold
// exactly len(mono)*channels samples.
func FromMonoInto[S Sample](dst []S, mono []float64, channels int) error {
	if err := ValidateLayout(channels); err != nil {
		return err
	}
	if len(dst) != len(mono)*channels {
		return fmt.Errorf("frame: raw buffer holds %d samples, need %d: %w",
			len(dst), len(mono)*channels, core.ErrInvalidParameter)
	}

	if channels == 1 {
		for i, v := range mono {
			dst[i] = S(v)
		}
		return nil
	}
	for i, v := range mono {
		s := S(v)
		dst[2*i] = s
		dst[2*i+1] = s
	}
	return nil
}
