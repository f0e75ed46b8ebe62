package window

import "errors"

var (
	errEmptyCoeffs      = errors.New("window coefficients must not be empty")
	errZeroGain         = errors.New("window overlap-add gain is zero")
	errMismatchedLength = errors.New("samples and coefficients must have same length")
	errUnknownType      = errors.New("unknown window type")
)
