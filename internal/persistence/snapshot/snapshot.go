// Package snapshot defines the versioned save-file format for a whole
// simulation: one record per particle carrying every attribute's break-point
// history, so any recorded round can be reconstructed after loading.
package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"amoebotsim.ai/internal/sim/history"
)

type Header struct {
	Version int    `json:"version"`
	SimID   string `json:"sim_id"`
	Round   uint64 `json:"round"`
}

// SaveV1 is the full persisted state of one simulation.
type SaveV1 struct {
	Header Header `json:"header"`

	Seed        int64 `json:"seed"`
	PinsPerEdge int   `json:"pins_per_edge"`

	// Operational parameters captured for deterministic replay/resume.
	SnapshotEveryRounds int `json:"snapshot_every_rounds,omitempty"`

	Particles []ParticleV1 `json:"particles"`
}

type ParticleV1 struct {
	ID        string `json:"id"`
	TailX     int    `json:"tail_x"`
	TailY     int    `json:"tail_y"`
	HeadDir   int    `json:"head_dir"` // -1 contracted
	Chirality int    `json:"chirality"`
	Compass   int    `json:"compass"`
	Algorithm string `json:"algorithm,omitempty"`

	Attrs []AttrV1 `json:"attrs"`
}

// AttrV1 persists one attribute history. Kind and the per-value tags are
// explicit so loading never relies on runtime type lookup; pin
// configurations arrive RLE-encoded inside their values.
type AttrV1 struct {
	Name      string               `json:"name"`
	Kind      history.Kind         `json:"kind"`
	EnumType  string               `json:"enum_type,omitempty"`
	Default   history.Value        `json:"default"`
	Points    []history.BreakPoint `json:"points"`
	LastRound uint64               `json:"last_round"`
}

// Validate checks structural invariants before any in-memory state is
// touched by a load.
func (s *SaveV1) Validate() error {
	if s.Header.Version != 1 {
		return fmt.Errorf("snapshot: unsupported version %d", s.Header.Version)
	}
	if s.PinsPerEdge < 1 {
		return fmt.Errorf("snapshot: pins_per_edge %d", s.PinsPerEdge)
	}
	seen := map[string]bool{}
	for _, p := range s.Particles {
		if p.ID == "" {
			return fmt.Errorf("snapshot: particle with empty id")
		}
		if seen[p.ID] {
			return fmt.Errorf("snapshot: duplicate particle id %s", p.ID)
		}
		seen[p.ID] = true
		if p.HeadDir < -1 || p.HeadDir > 5 {
			return fmt.Errorf("snapshot: particle %s: head_dir %d", p.ID, p.HeadDir)
		}
		for _, a := range p.Attrs {
			if !a.Kind.Valid() {
				return fmt.Errorf("snapshot: particle %s attr %s: bad kind %q", p.ID, a.Name, a.Kind)
			}
		}
	}
	return nil
}

// WriteSave writes a save file: zstd stream holding a plain JSON header
// line followed by the gob-encoded body.
func WriteSave(path string, save SaveV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 256*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(save.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&save); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

// ReadSave loads and validates a save file. On any error the returned save
// must be discarded; nothing is partially applied.
func ReadSave(path string) (SaveV1, error) {
	var save SaveV1
	f, err := os.Open(path)
	if err != nil {
		return save, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return save, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// Header line is informational; gob carries it too.
	_, _ = br.ReadBytes('\n')

	if err := gob.NewDecoder(br).Decode(&save); err != nil {
		return save, fmt.Errorf("gob decode: %w", err)
	}
	if err := save.Validate(); err != nil {
		return SaveV1{}, err
	}
	return save, nil
}

// PeekHeader reads only the JSON header line, for cheap inspection tools.
func PeekHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, err
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("snapshot header: %w", err)
	}
	return h, nil
}
