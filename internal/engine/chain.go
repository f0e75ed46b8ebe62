package engine

import "fmt"

// Stage is one mono processing step. Process must accept dst and src
// aliasing the same slice.
type Stage interface {
	Process(dst, src []float64) error
}

type namedStage struct {
	name  string
	stage Stage
}

// chain runs its stages in order, in place, on one mono block.
type chain struct {
	stages []namedStage
}

func (c *chain) add(name string, s Stage) {
	c.stages = append(c.stages, namedStage{name: name, stage: s})
}

func (c *chain) process(block []float64) error {
	for _, s := range c.stages {
		if err := s.stage.Process(block, block); err != nil {
			return fmt.Errorf("engine: %s stage: %w", s.name, err)
		}
	}
	return nil
}

func (c *chain) names() []string {
	out := make([]string, len(c.stages))
	for i, s := range c.stages {
		out[i] = s.name
	}
	return out
}
