// Package config defines the YAML scenario format loaded by cmd/microsim
// and cmd/microsim-tui, mirroring the teacher's own Config/RuntimeConfig
// split: Config is exactly what UnmarshalStrict parses off the wire,
// RuntimeConfig is the post-validation object the rest of the program uses.
package config

import "fmt"

// NodeConfig describes one network.Road node before finalize. Kind selects
// which Road.Add*Node constructor to call.
type NodeConfig struct {
	ID    string  `yaml:"id"`
	Kind  string  `yaml:"kind"` // plain | spawn | despawn | edge | intersection
	X     float64 `yaml:"x"`
	Y     float64 `yaml:"y"`
	Yield string  `yaml:"yield,omitempty"` // right_of_way | roundabout, intersection only
}

// SegmentConfig describes one edge to add between two NodeConfig.ID values.
type SegmentConfig struct {
	From          string  `yaml:"from"`
	To            string  `yaml:"to"`
	SpeedLimit    float64 `yaml:"speed_limit"`
	Bidirectional bool    `yaml:"bidirectional,omitempty"`
}

// NetworkConfig is the scenario's topology, built via the constructor
// interface (§6) once the host parses it.
type NetworkConfig struct {
	Nodes    []NodeConfig    `yaml:"nodes"`
	Segments []SegmentConfig `yaml:"segments"`
}

// ControlStep mirrors the teacher's utils/config.ControlStep: the
// simulated time range and step size.
type ControlStep struct {
	Start    int32   `yaml:"start"`
	Total    int32   `yaml:"total"`
	Interval float64 `yaml:"interval"`
}

// Control mirrors the teacher's utils/config.Control.
type Control struct {
	Step ControlStep `yaml:"step"`
}

// Spawner configures one rate-based simulation.VehicleSpawner on the
// segment running from From to To (NodeConfig.ID values), since the
// builder hasn't assigned any SegmentID yet at parse time.
type Spawner struct {
	From  string  `yaml:"from"`
	To    string  `yaml:"to"`
	Rate  float64 `yaml:"rate"`
	Speed float64 `yaml:"speed"`
}

// Config is the YAML scenario root structure.
type Config struct {
	Seed     uint64    `yaml:"seed"`
	Control  Control   `yaml:"control"`
	Network  NetworkConfig `yaml:"network"`
	Spawners []Spawner `yaml:"spawners,omitempty"`
}

// RuntimeConfig is the validated, ready-to-run form of Config, following
// the teacher's NewRuntimeConfig pattern of filling in defaults rather than
// forcing every YAML file to spell them out.
type RuntimeConfig struct {
	All Config
	C   Control
}

// NewRuntimeConfig validates c and fills in defaults.
func NewRuntimeConfig(c Config) (*RuntimeConfig, error) {
	if c.Control.Step.Interval <= 0 {
		c.Control.Step.Interval = 0.1
	}
	if c.Control.Step.Total <= 0 {
		return nil, fmt.Errorf("control.step.total must be positive, got %d", c.Control.Step.Total)
	}
	if len(c.Network.Nodes) == 0 {
		return nil, fmt.Errorf("network.nodes must not be empty")
	}
	return &RuntimeConfig{All: c, C: c.Control}, nil
}
