package core

import "errors"

var (
	// ErrInvalidParameter reports a malformed ratio, gain, size or rate.
	// It is a configuration-time error; stages never produce it for a
	// correctly configured block.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrUnsupportedChannelLayout reports a channel count outside {1, 2}.
	ErrUnsupportedChannelLayout = errors.New("unsupported channel layout")
)
