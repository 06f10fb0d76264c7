package network

// pathStep records how a node was first reached during BFS: which segment
// led into it and from which predecessor node.
type pathStep struct {
	node NodeID
	via  SegmentID
}

// FindPath returns the sequence of segments a vehicle must traverse to get
// from a spawn node to a despawn node, shortest by hop count. It returns
// (nil, false) if no path exists; networks are not guaranteed strongly
// connected, so callers must handle that case rather than treat it as a
// programming error.
func (r *Road) FindPath(from, to NodeID) ([]SegmentID, bool) {
	if from == to {
		return nil, true
	}

	cameFrom := map[NodeID]pathStep{}
	visited := map[NodeID]bool{from: true}
	queue := []NodeID{from}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, segID := range r.node(cur).Outgoing {
			seg := r.segment(segID)
			next := seg.To
			if visited[next] {
				continue
			}
			visited[next] = true
			cameFrom[next] = pathStep{node: cur, via: segID}
			if next == to {
				return reconstructPath(cameFrom, from, to), true
			}
			queue = append(queue, next)
		}
	}
	return nil, false
}

func reconstructPath(cameFrom map[NodeID]pathStep, from, to NodeID) []SegmentID {
	var path []SegmentID
	cur := to
	for cur != from {
		step := cameFrom[cur]
		path = append(path, step.via)
		cur = step.node
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
