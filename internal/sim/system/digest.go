package system

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"amoebotsim.ai/internal/sim/history"
)

// digestDoc is the canonical digest input. Field order and sorted ids keep
// the serialization stable across runs.
type digestDoc struct {
	SimID     string           `json:"sim_id"`
	Round     uint64           `json:"round"`
	Particles []digestParticle `json:"particles"`
}

type digestParticle struct {
	ID    string                   `json:"id"`
	Attrs map[string]history.Value `json:"attrs"`
}

// DigestAt returns the sha256 digest of the population state as committed
// at round. Two systems that made the same decisions produce the same
// digest for every round.
func (s *System) DigestAt(round uint64) string {
	doc := digestDoc{SimID: s.cfg.ID, Round: round}
	for _, id := range s.sortedIDs() {
		p := s.particles[id]
		dp := digestParticle{ID: id, Attrs: map[string]history.Value{}}
		for _, name := range p.Attrs.SortedNames() {
			a, _ := p.Attrs.Lookup(name)
			dp.Attrs[name] = a.ValueAt(round)
		}
		doc.Particles = append(doc.Particles, dp)
	}
	// encoding/json writes map keys in sorted order, so the document is
	// canonical as is.
	b, _ := json.Marshal(doc)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
