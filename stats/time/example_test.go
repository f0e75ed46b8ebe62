package time_test

import (
	"fmt"

	timestats "github.com/cwbudde/voxshift/stats/time"
)

func ExampleMeasure() {
	l := timestats.Measure([]float64{1.2, -0.6, 0.3, -1})
	fmt.Printf("peak=%.1f hot=%d\n", l.Peak, l.Hot)

	// Output:
	// peak=1.2 hot=1
}
