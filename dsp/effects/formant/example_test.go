package formant_test

import (
	"fmt"

	"github.com/cwbudde/voxshift/dsp/effects/formant"
)

func ExampleShifter() {
	s, err := formant.NewShifter(1024, 1.2)
	if err != nil {
		panic(err)
	}
	fmt.Println(s.Len(), s.IntermediateLen())
	// Output: 1024 1229
}
