package core

// Zero sets all values in buf to 0.
func Zero(buf []float64) {
	for i := range buf {
		buf[i] = 0
	}
}

// Fill sets all values in buf to v.
func Fill(buf []float64, v float64) {
	for i := range buf {
		buf[i] = v
	}
}

// ZeroFloat32 sets all values in a device-format buffer to 0.
func ZeroFloat32(buf []float32) {
	for i := range buf {
		buf[i] = 0
	}
}
