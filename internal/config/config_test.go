package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v2"

	"github.com/fib-traffic/microsim/internal/config"
)

const sampleYAML = `
seed: 7
control:
  step:
    start: 0
    total: 100
    interval: 0.1
network:
  nodes:
    - {id: a, kind: spawn, x: 0, y: 0}
    - {id: b, kind: despawn, x: 50, y: 0}
  segments:
    - {from: a, to: b, speed_limit: 12}
spawners:
  - {from: a, to: b, rate: 0.2, speed: 5}
`

func TestUnmarshalStrictParsesSampleScenario(t *testing.T) {
	var c config.Config
	err := yaml.UnmarshalStrict([]byte(sampleYAML), &c)
	assert.NoError(t, err)
	assert.Equal(t, uint64(7), c.Seed)
	assert.Equal(t, int32(100), c.Control.Step.Total)
	assert.Len(t, c.Network.Nodes, 2)
	assert.Len(t, c.Spawners, 1)
}

func TestUnmarshalStrictRejectsUnknownField(t *testing.T) {
	var c config.Config
	err := yaml.UnmarshalStrict([]byte(sampleYAML+"\nbogus_field: true\n"), &c)
	assert.Error(t, err)
}

func TestNewRuntimeConfigFillsDefaultInterval(t *testing.T) {
	c := config.Config{
		Control: config.Control{Step: config.ControlStep{Total: 10}},
		Network: config.NetworkConfig{Nodes: []config.NodeConfig{{ID: "a"}}},
	}
	rc, err := config.NewRuntimeConfig(c)
	assert.NoError(t, err)
	assert.Equal(t, 0.1, rc.C.Step.Interval)
}

func TestNewRuntimeConfigRejectsZeroTotalSteps(t *testing.T) {
	c := config.Config{Network: config.NetworkConfig{Nodes: []config.NodeConfig{{ID: "a"}}}}
	_, err := config.NewRuntimeConfig(c)
	assert.Error(t, err)
}

func TestNewRuntimeConfigRejectsEmptyNetwork(t *testing.T) {
	c := config.Config{Control: config.Control{Step: config.ControlStep{Total: 10}}}
	_, err := config.NewRuntimeConfig(c)
	assert.Error(t, err)
}

func TestBuildRoadBuildsNodesSegmentsAndSpawnerLookup(t *testing.T) {
	net := config.NetworkConfig{
		Nodes: []config.NodeConfig{
			{ID: "a", Kind: "spawn", X: 0, Y: 0},
			{ID: "b", Kind: "despawn", X: 50, Y: 0},
		},
		Segments: []config.SegmentConfig{
			{From: "a", To: "b", SpeedLimit: 12},
		},
	}
	road, ids, segs, err := config.BuildRoad(net)
	assert.NoError(t, err)
	assert.Len(t, ids, 2)
	segID, ok := segs[config.ScenarioEnds{From: "a", To: "b"}]
	assert.True(t, ok)
	assert.InDelta(t, 50.0, road.Segments.Get(segID).Length, 1e-6)
}

func TestBuildRoadBidirectionalRegistersBothDirections(t *testing.T) {
	net := config.NetworkConfig{
		Nodes: []config.NodeConfig{
			{ID: "a", Kind: "spawn", X: 0, Y: 0},
			{ID: "b", Kind: "despawn", X: 50, Y: 0},
		},
		Segments: []config.SegmentConfig{
			{From: "a", To: "b", SpeedLimit: 12, Bidirectional: true},
		},
	}
	_, _, segs, err := config.BuildRoad(net)
	assert.NoError(t, err)
	assert.Len(t, segs, 2)
	_, fwdOK := segs[config.ScenarioEnds{From: "a", To: "b"}]
	_, backOK := segs[config.ScenarioEnds{From: "b", To: "a"}]
	assert.True(t, fwdOK)
	assert.True(t, backOK)
}

func TestBuildRoadUnknownNodeReferenceIsAnError(t *testing.T) {
	net := config.NetworkConfig{
		Nodes:    []config.NodeConfig{{ID: "a", Kind: "spawn"}},
		Segments: []config.SegmentConfig{{From: "a", To: "nonexistent", SpeedLimit: 10}},
	}
	_, _, _, err := config.BuildRoad(net)
	assert.Error(t, err)
}

func TestBuildRoadUnknownYieldResolverIsAnError(t *testing.T) {
	net := config.NetworkConfig{
		Nodes: []config.NodeConfig{{ID: "x", Kind: "intersection", Yield: "not_a_real_resolver"}},
	}
	_, _, _, err := config.BuildRoad(net)
	assert.Error(t, err)
}
