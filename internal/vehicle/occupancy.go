package vehicle

import (
	"math"
	"sort"

	"github.com/fib-traffic/microsim/internal/network"
)

// Occupant is one vehicle's entry in a segment's occupancy list.
type Occupant struct {
	Vehicle  ID
	Progress float64
	Speed    float64
}

// Index is the per-tick occupancy index: every live vehicle, bucketed by
// current segment and sorted ascending by progress. It is rebuilt from
// scratch every tick (update_occupancy) rather than incrementally
// maintained, since vehicles change segment and the cost of a full rebuild
// at this scale is negligible next to the correctness risk of a stale
// incremental index.
type Index struct {
	bySegment map[network.SegmentID][]Occupant
}

// BuildIndex constructs a fresh Index from every live vehicle in w.
func BuildIndex(w *World) *Index {
	idx := &Index{bySegment: map[network.SegmentID][]Occupant{}}
	w.Iter(func(id ID, v *Vehicle) {
		idx.bySegment[v.Segment] = append(idx.bySegment[v.Segment], Occupant{
			Vehicle: id, Progress: v.Progress, Speed: v.Speed,
		})
	})
	for seg, list := range idx.bySegment {
		sort.Slice(list, func(i, j int) bool { return list[i].Progress < list[j].Progress })
		idx.bySegment[seg] = list
	}
	return idx
}

// On returns the sorted occupants of segment id, or nil if none.
func (idx *Index) On(seg network.SegmentID) []Occupant {
	return idx.bySegment[seg]
}

// maxFindNextHops bounds find_next's forward walk across segment
// boundaries; a vehicle with no route and no outgoing edge terminates the
// search immediately rather than looping forever on a dead end.
const maxFindNextHops = 10

// FindNext searches forward from self along its current segment (and, if
// nothing is found there, along successive segments) for the nearest
// vehicle ahead, returning its id and the world-space distance to it.
// Found is false if no vehicle is found within maxFindNextHops segment
// boundaries or the road runs out first.
//
// The cross-segment hop always continues along current.to.outgoing[0],
// never self's own route, a deliberate carried-over simplification: the
// search can end up looking ahead at a vehicle on a segment self will
// never actually take, whenever self's real route would pick a different
// branch than outgoing[0].
func (idx *Index) FindNext(self ID, v Vehicle, road *network.Road) (ID, float64, bool) {
	seg := v.Segment
	progress := v.Progress
	traveled := 0.0

	for hop := 0; hop < maxFindNextHops; hop++ {
		segment := road.Segments.Get(seg)

		bestIdx := -1
		bestProgress := math.Inf(1)
		for i, o := range idx.On(seg) {
			if o.Vehicle == self {
				continue
			}
			if o.Progress > progress && o.Progress < bestProgress {
				bestProgress = o.Progress
				bestIdx = i
			}
		}
		if bestIdx >= 0 {
			leader := idx.On(seg)[bestIdx]
			var dist float64
			if hop == 0 {
				dist = (leader.Progress - v.Progress) * segment.Length
			} else {
				dist = traveled + leader.Progress*segment.Length
			}
			return leader.Vehicle, dist, true
		}

		if hop == 0 {
			traveled += (1 - progress) * segment.Length
		} else {
			traveled += segment.Length
		}

		toNode := road.Nodes.Get(segment.To)
		if len(toNode.Outgoing) == 0 {
			break
		}
		seg = toNode.Outgoing[0]
		progress = math.Inf(-1)
	}
	return 0, 0, false
}
