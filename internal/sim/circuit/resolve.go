package circuit

import "sort"

// Message is a small immutable payload deliverable over a circuit.
type Message struct {
	Type  string `json:"type"`
	Value int64  `json:"value,omitempty"`
}

// SetKey identifies one partition set of one particle.
type SetKey struct {
	Particle string
	Set      int
}

// Resolver computes circuits: the transitive closure of "same edge,
// connected pin" across all particles' committed configurations. Circuits
// are derived data, rebuilt from scratch every round.
type Resolver struct {
	parent map[SetKey]SetKey
	rank   map[SetKey]int
	keys   []SetKey
}

func NewResolver() *Resolver {
	return &Resolver{
		parent: map[SetKey]SetKey{},
		rank:   map[SetKey]int{},
	}
}

// Register adds a partition set with no connections yet. Registering is
// idempotent.
func (r *Resolver) Register(k SetKey) {
	if _, ok := r.parent[k]; ok {
		return
	}
	r.parent[k] = k
	r.keys = append(r.keys, k)
}

func (r *Resolver) find(k SetKey) SetKey {
	for r.parent[k] != k {
		r.parent[k] = r.parent[r.parent[k]]
		k = r.parent[k]
	}
	return k
}

// Connect joins the circuits of a and b, registering both as needed.
func (r *Resolver) Connect(a, b SetKey) {
	r.Register(a)
	r.Register(b)
	ra, rb := r.find(a), r.find(b)
	if ra == rb {
		return
	}
	if r.rank[ra] < r.rank[rb] {
		ra, rb = rb, ra
	}
	r.parent[rb] = ra
	if r.rank[ra] == r.rank[rb] {
		r.rank[ra]++
	}
}

// SameCircuit reports whether two registered partition sets share a circuit.
func (r *Resolver) SameCircuit(a, b SetKey) bool {
	if _, ok := r.parent[a]; !ok {
		return false
	}
	if _, ok := r.parent[b]; !ok {
		return false
	}
	return r.find(a) == r.find(b)
}

// Deliver floods the staged beeps and messages over their circuits and
// returns what every registered partition set observes. When several
// messages meet on one circuit the lexically smallest (particle id, set id)
// sender wins, keeping delivery deterministic.
func (r *Resolver) Deliver(beeps map[SetKey]bool, msgs map[SetKey]Message) (map[SetKey]bool, map[SetKey]Message) {
	beeped := map[SetKey]bool{}
	for k, on := range beeps {
		if !on {
			continue
		}
		if _, ok := r.parent[k]; !ok {
			continue
		}
		beeped[r.find(k)] = true
	}

	senders := make([]SetKey, 0, len(msgs))
	for k := range msgs {
		if _, ok := r.parent[k]; ok {
			senders = append(senders, k)
		}
	}
	sort.Slice(senders, func(i, j int) bool {
		if senders[i].Particle != senders[j].Particle {
			return senders[i].Particle < senders[j].Particle
		}
		return senders[i].Set < senders[j].Set
	})
	carried := map[SetKey]Message{}
	for _, k := range senders {
		root := r.find(k)
		if _, ok := carried[root]; !ok {
			carried[root] = msgs[k]
		}
	}

	outBeeps := map[SetKey]bool{}
	outMsgs := map[SetKey]Message{}
	for _, k := range r.keys {
		root := r.find(k)
		if beeped[root] {
			outBeeps[k] = true
		}
		if m, ok := carried[root]; ok {
			outMsgs[k] = m
		}
	}
	return outBeeps, outMsgs
}
