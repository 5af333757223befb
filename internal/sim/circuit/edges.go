package circuit

import "amoebotsim.ai/internal/sim/grid"

// EdgeRef names one boundary edge of a particle shape: the occupied node it
// leaves from and its global direction.
type EdgeRef struct {
	OnHead bool
	Dir    grid.Dir
}

// EdgeLabels enumerates a shape's boundary edges in label order. Contracted
// shapes use the six cardinal directions directly. Expanded shapes label the
// head's five outward edges first, starting at the head direction and
// rotating counterclockwise, then the tail's five outward edges in the same
// rotation; the shared edge between head and tail carries no pins and gets
// no label.
func EdgeLabels(headDir int) []EdgeRef {
	if headDir < 0 {
		out := make([]EdgeRef, grid.NumDirs)
		for d := grid.Dir(0); d < grid.NumDirs; d++ {
			out[d] = EdgeRef{OnHead: false, Dir: d}
		}
		return out
	}
	d := grid.Dir(headDir)
	back := d.Opposite()
	out := make([]EdgeRef, 0, ExpandedEdges)
	for k := 0; k < grid.NumDirs; k++ {
		dir := d.Rotate60(k)
		if dir == back {
			continue
		}
		out = append(out, EdgeRef{OnHead: true, Dir: dir})
	}
	for k := 0; k < grid.NumDirs; k++ {
		dir := back.Rotate60(k)
		if dir == d {
			continue
		}
		out = append(out, EdgeRef{OnHead: false, Dir: dir})
	}
	return out
}

// LabelFor returns the edge label for (node, direction) under the given
// head direction, or false when the edge carries no pins.
func LabelFor(headDir int, onHead bool, dir grid.Dir) (int, bool) {
	for i, e := range EdgeLabels(headDir) {
		if e.OnHead == onHead && e.Dir == dir {
			return i, true
		}
	}
	return 0, false
}
