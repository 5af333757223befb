// Package grid provides integer axial addressing on the triangular lattice
// used by the simulation. Directions come in two granularities: six cardinal
// directions for contracted particles and twelve fine directions (each edge
// split into a primary and a secondary half) for expanded ones.
package grid

import "fmt"

// Node is an axial coordinate on the triangular lattice.
type Node struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Dir is one of the six cardinal directions, counted counterclockwise
// starting at east.
type Dir int

const (
	DirE Dir = iota
	DirNNE
	DirNNW
	DirW
	DirSSW
	DirSSE

	NumDirs = 6
)

// dirVecs matches the direction order of the original shape tooling.
var dirVecs = [NumDirs]Node{
	{1, 0},
	{0, 1},
	{-1, 1},
	{-1, 0},
	{0, -1},
	{1, -1},
}

var dirNames = [NumDirs]string{"E", "NNE", "NNW", "W", "SSW", "SSE"}

func (d Dir) Valid() bool { return d >= 0 && d < NumDirs }

func (d Dir) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Dir(%d)", int(d))
	}
	return dirNames[d]
}

// Opposite returns the direction rotated by 180 degrees.
func (d Dir) Opposite() Dir { return (d + 3) % NumDirs }

// Rotate60 rotates d counterclockwise by k sixths of a full turn.
// Negative k rotates clockwise.
func (d Dir) Rotate60(k int) Dir {
	r := (int(d) + k) % NumDirs
	if r < 0 {
		r += NumDirs
	}
	return Dir(r)
}

// Neighbor returns the lattice node adjacent to n in direction d.
func Neighbor(n Node, d Dir) Node {
	v := dirVecs[d]
	return Node{n.X + v.X, n.Y + v.Y}
}

// DirBetween returns the direction from a to b if the two nodes are lattice
// neighbors.
func DirBetween(a, b Node) (Dir, bool) {
	for d := Dir(0); d < NumDirs; d++ {
		if Neighbor(a, d) == b {
			return d, true
		}
	}
	return 0, false
}

// AreNeighbors reports whether a and b share a lattice edge.
func AreNeighbors(a, b Node) bool {
	_, ok := DirBetween(a, b)
	return ok
}

// Neighbors returns the six neighbors of n in direction order.
func Neighbors(n Node) [NumDirs]Node {
	var out [NumDirs]Node
	for d := Dir(0); d < NumDirs; d++ {
		out[d] = Neighbor(n, d)
	}
	return out
}

// Chirality is a particle's handedness. Counterclockwise particles follow
// the global direction order; clockwise ones mirror it.
type Chirality int

const (
	Counterclockwise Chirality = 1
	Clockwise        Chirality = -1
)

// LocalToGlobal maps a particle-local direction index to a global direction
// given the particle's compass offset and chirality. The compass offset is
// the global direction the particle calls local east.
func LocalToGlobal(local Dir, compass Dir, chir Chirality) Dir {
	if chir == Clockwise {
		local = Dir((NumDirs - int(local)) % NumDirs)
	}
	return compass.Rotate60(int(local))
}

// GlobalToLocal inverts LocalToGlobal.
func GlobalToLocal(global Dir, compass Dir, chir Chirality) Dir {
	local := Dir((int(global) - int(compass) + NumDirs) % NumDirs)
	if chir == Clockwise {
		local = Dir((NumDirs - int(local)) % NumDirs)
	}
	return local
}
