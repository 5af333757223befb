package grid

// FineDir is one of the twelve half-edge directions used by expanded
// particles. Each cardinal direction contributes a primary and a secondary
// half; the secondary half is the counterclockwise one.
type FineDir int

const NumFineDirs = 12

// Fine returns the fine direction for cardinal d. secondary selects the
// counterclockwise half of the subdivided edge.
func Fine(d Dir, secondary bool) FineDir {
	f := FineDir(int(d) * 2)
	if secondary {
		f++
	}
	return f
}

func (f FineDir) Valid() bool { return f >= 0 && f < NumFineDirs }

// Cardinal returns the cardinal direction the half-edge belongs to.
func (f FineDir) Cardinal() Dir { return Dir(int(f) / 2) }

// Secondary reports whether f is the counterclockwise half of its edge.
func (f FineDir) Secondary() bool { return int(f)%2 == 1 }

// Opposite returns the half-edge seen from the other side of the shared
// lattice edge. Opposing halves swap primary and secondary.
func (f FineDir) Opposite() FineDir {
	return Fine(f.Cardinal().Opposite(), !f.Secondary())
}
