package config

import (
	"fmt"

	"github.com/fib-traffic/microsim/internal/geometry"
	"github.com/fib-traffic/microsim/internal/network"
)

// ScenarioEnds identifies a segment by the NodeConfig.ID pair it runs
// between, letting a Spawner name a segment before any SegmentID exists.
type ScenarioEnds struct{ From, To string }

// BuildRoad constructs and finalizes a *network.Road from a NetworkConfig,
// using the constructor interface (§6): add_node/add_spawn_node/
// add_despawn_node/add_edge_node/add_intersection_node, then add_segment or
// add_bidirectional per SegmentConfig, then finalize. It returns the id
// assigned to every named node, keyed by NodeConfig.ID, and every segment
// keyed by the (from, to) node-id pair it was declared with, for callers
// that need to resolve a Spawner.
func BuildRoad(net NetworkConfig) (*network.Road, map[string]network.NodeID, map[ScenarioEnds]network.SegmentID, error) {
	road := network.NewRoad()
	ids := make(map[string]network.NodeID, len(net.Nodes))
	segs := make(map[ScenarioEnds]network.SegmentID, len(net.Segments))

	for _, n := range net.Nodes {
		pos := geometry.Point{X: n.X, Y: n.Y}
		var id network.NodeID
		switch n.Kind {
		case "", "plain":
			id = road.AddNode(pos)
		case "spawn":
			id = road.AddSpawnNode(pos)
		case "despawn":
			id = road.AddDespawnNode(pos)
		case "edge":
			id = road.AddEdgeNode(pos)
		case "intersection":
			resolver, err := yieldResolver(n.Yield)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("node %q: %w", n.ID, err)
			}
			id = road.AddIntersectionNode(pos, resolver)
		default:
			return nil, nil, nil, fmt.Errorf("node %q: unknown kind %q", n.ID, n.Kind)
		}
		if _, dup := ids[n.ID]; dup {
			return nil, nil, nil, fmt.Errorf("duplicate node id %q", n.ID)
		}
		ids[n.ID] = id
	}

	for i, s := range net.Segments {
		from, ok := ids[s.From]
		if !ok {
			return nil, nil, nil, fmt.Errorf("segment %d: unknown from node %q", i, s.From)
		}
		to, ok := ids[s.To]
		if !ok {
			return nil, nil, nil, fmt.Errorf("segment %d: unknown to node %q", i, s.To)
		}
		if s.Bidirectional {
			fwd, back := road.AddBidirectional(from, to, s.SpeedLimit)
			segs[ScenarioEnds{s.From, s.To}] = fwd
			segs[ScenarioEnds{s.To, s.From}] = back
		} else {
			segs[ScenarioEnds{s.From, s.To}] = road.AddSegment(from, to, s.SpeedLimit)
		}
	}

	road.Finalize()
	return road, ids, segs, nil
}

func yieldResolver(name string) (network.YieldResolver, error) {
	switch name {
	case "", "right_of_way":
		return network.RightOfWay{}, nil
	case "roundabout":
		return network.Roundabout{}, nil
	default:
		return nil, fmt.Errorf("unknown yield resolver %q", name)
	}
}
