package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario configures the benchmarks. Zero fields fall back to the defaults.
type Scenario struct {
	Propagate PropagateConfig `yaml:"propagate"`
	Fanout    []FanoutConfig  `yaml:"fanout"`
}

type PropagateConfig struct {
	Widths     []int `yaml:"widths"`
	Heights    []int `yaml:"heights"`
	Iterations int   `yaml:"iterations"`
}

type FanoutConfig struct {
	Name       string `yaml:"name"`
	Width      int    `yaml:"width"`
	Depth      int    `yaml:"depth"`
	Iterations int    `yaml:"iterations"`
}

func defaultScenario() Scenario {
	return Scenario{
		Propagate: PropagateConfig{
			Widths:     []int{1, 10, 100},
			Heights:    []int{1, 10, 100},
			Iterations: 100,
		},
		Fanout: []FanoutConfig{
			{Name: "flat", Width: 100, Depth: 1, Iterations: 10_000},
			{Name: "bushy", Width: 10, Depth: 3, Iterations: 5_000},
			{Name: "deep", Width: 2, Depth: 10, Iterations: 1_000},
		},
	}
}

// loadScenario reads path, or returns the defaults when path is empty.
func loadScenario(path string) (Scenario, error) {
	s := defaultScenario()
	if path == "" {
		return s, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("read scenario: %w", err)
	}
	var loaded Scenario
	if err := yaml.Unmarshal(b, &loaded); err != nil {
		return s, fmt.Errorf("parse scenario %s: %w", path, err)
	}

	if len(loaded.Propagate.Widths) > 0 {
		s.Propagate.Widths = loaded.Propagate.Widths
	}
	if len(loaded.Propagate.Heights) > 0 {
		s.Propagate.Heights = loaded.Propagate.Heights
	}
	if loaded.Propagate.Iterations > 0 {
		s.Propagate.Iterations = loaded.Propagate.Iterations
	}
	if len(loaded.Fanout) > 0 {
		s.Fanout = loaded.Fanout
	}
	for i, f := range s.Fanout {
		if err := f.validate(); err != nil {
			return s, fmt.Errorf("fanout[%d]: %w", i, err)
		}
	}
	return s, nil
}

func (f FanoutConfig) validate() error {
	switch {
	case f.Width < 1:
		return fmt.Errorf("%s: width must be positive", f.Name)
	case f.Depth < 1:
		return fmt.Errorf("%s: depth must be positive", f.Name)
	case f.Iterations < 1:
		return fmt.Errorf("%s: iterations must be positive", f.Name)
	}
	return nil
}
