package device

import (
	"fmt"
	"strings"
)

// Selection is the pair of devices a stream will be opened on.
type Selection struct {
	Input  Info
	Output Info
}

// Select picks the input and output devices for p from devs. Named devices
// match exactly first, then case-insensitively by substring. An empty name
// selects the host default, or the first capable device when the host has
// none. The chosen devices must offer the requested channel counts.
func Select(devs []Info, p Params) (Selection, error) {
	if len(devs) == 0 {
		return Selection{}, fmt.Errorf("%w: %w", ErrBinding, ErrNoDevices)
	}

	in, err := pick(devs, p.InputDevice, "input",
		func(d Info) bool { return d.DefaultInput },
		func(d Info) bool { return d.MaxInputChannels > 0 })
	if err != nil {
		return Selection{}, err
	}
	out, err := pick(devs, p.OutputDevice, "output",
		func(d Info) bool { return d.DefaultOutput },
		func(d Info) bool { return d.MaxOutputChannels > 0 })
	if err != nil {
		return Selection{}, err
	}

	if in.MaxInputChannels < 1 {
		return Selection{}, fmt.Errorf("%w: input device %q has no input channels", ErrBinding, in.Name)
	}
	if out.MaxOutputChannels < 1 {
		return Selection{}, fmt.Errorf("%w: output device %q has no output channels", ErrBinding, out.Name)
	}
	if p.InputChannels > in.MaxInputChannels {
		return Selection{}, fmt.Errorf("%w: input device %q supports %d channels, need %d",
			ErrBinding, in.Name, in.MaxInputChannels, p.InputChannels)
	}
	if p.OutputChannels > out.MaxOutputChannels {
		return Selection{}, fmt.Errorf("%w: output device %q supports %d channels, need %d",
			ErrBinding, out.Name, out.MaxOutputChannels, p.OutputChannels)
	}

	return Selection{Input: in, Output: out}, nil
}

func pick(devs []Info, name, kind string, isDefault, capable func(Info) bool) (Info, error) {
	if name == "" {
		for _, d := range devs {
			if isDefault(d) {
				return d, nil
			}
		}
		for _, d := range devs {
			if capable(d) {
				return d, nil
			}
		}
		return Info{}, fmt.Errorf("%w: no %s device available", ErrBinding, kind)
	}

	for _, d := range devs {
		if d.Name == name {
			return d, nil
		}
	}
	lower := strings.ToLower(name)
	for _, d := range devs {
		if strings.Contains(strings.ToLower(d.Name), lower) {
			return d, nil
		}
	}
	return Info{}, fmt.Errorf("%w: %s device %q not found", ErrBinding, kind, name)
}
