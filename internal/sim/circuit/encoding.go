package circuit

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// Pin assignments persist as base64(varint pairs): (set_id, run_len)
// repeated. Partition-set membership alone is enough to rebuild behavior,
// the full topology is re-derived from the particle's geometry at load.

// Encode returns the head direction and the run-length-encoded pin
// assignment of the configuration.
func (pc *PinConfig) Encode() (headDir int, encoded string) {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte

	i := 0
	for i < len(pc.setOf) {
		id := pc.setOf[i]
		run := 1
		for j := i + 1; j < len(pc.setOf) && pc.setOf[j] == id; j++ {
			run++
		}

		n := binary.PutUvarint(tmp[:], uint64(id))
		buf.Write(tmp[:n])
		n = binary.PutUvarint(tmp[:], uint64(run))
		buf.Write(tmp[:n])

		i += run
	}
	return pc.HeadDir, base64.StdEncoding.EncodeToString(buf.Bytes())
}

// Decode rebuilds a configuration from its persisted form. The decoded
// configuration reports membership only; partition sets cannot be extended
// further (it is a committed round's wiring, not a staging buffer).
func Decode(headDir, pinsPerEdge int, encoded string) (*PinConfig, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("circuit: bad pin encoding: %w", err)
	}
	pc := newConfig(headDir, pinsPerEdge)
	pos := 0
	buf := raw
	for len(buf) > 0 {
		id, n := binary.Uvarint(buf)
		if n <= 0 {
			return nil, fmt.Errorf("circuit: truncated set id at pin %d", pos)
		}
		buf = buf[n:]
		run, n := binary.Uvarint(buf)
		if n <= 0 {
			return nil, fmt.Errorf("circuit: truncated run length at pin %d", pos)
		}
		buf = buf[n:]
		if run == 0 || pos+int(run) > len(pc.setOf) {
			return nil, fmt.Errorf("circuit: pin run overflows %d pins", len(pc.setOf))
		}
		for k := 0; k < int(run); k++ {
			pc.setOf[pos] = int(id)
			pc.claimed[pos] = true
			pos++
		}
		pc.usedIDs[int(id)] = true
	}
	if pos != len(pc.setOf) {
		return nil, fmt.Errorf("circuit: pin encoding covers %d of %d pins", pos, len(pc.setOf))
	}
	return pc, nil
}
