package history

import (
	"fmt"
	"log"
	"sort"
)

// Attr is one versioned attribute. Within an active round the current value
// may be overwritten any number of times; Get always reads the value as of
// the round start so algorithms can detect their own transitions.
type Attr struct {
	Name string

	reg   *Registry
	def   Value
	hist  *History
	cur   Value
	dirty bool
}

// Registry owns the ordered attribute set of one particle and gates writes
// to the active round. There are no process-wide registries; every particle
// carries its own.
type Registry struct {
	attrs  map[string]*Attr
	order  []string
	active bool
	round  uint64
	warnf  func(format string, args ...any)
}

func NewRegistry() *Registry {
	return &Registry{
		attrs: map[string]*Attr{},
		warnf: log.Printf,
	}
}

// SetWarnf replaces the warning sink used for recoverable misuse.
func (r *Registry) SetWarnf(f func(format string, args ...any)) {
	if f != nil {
		r.warnf = f
	}
}

// Create registers a new attribute with the given default value. The
// default is the value reported for every round before the first commit.
func (r *Registry) Create(name string, def Value) (*Attr, error) {
	if !def.Kind.Valid() {
		return nil, fmt.Errorf("attribute %q: invalid kind %q", name, def.Kind)
	}
	if _, ok := r.attrs[name]; ok {
		return nil, fmt.Errorf("attribute %q already exists", name)
	}
	a := &Attr{Name: name, reg: r, def: def, hist: &History{}}
	r.attrs[name] = a
	r.order = append(r.order, name)
	return a, nil
}

// Lookup returns a previously created attribute.
func (r *Registry) Lookup(name string) (*Attr, bool) {
	a, ok := r.attrs[name]
	return a, ok
}

// Names returns attribute names in creation order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// BeginRound opens round for writing.
func (r *Registry) BeginRound(round uint64) {
	r.active = true
	r.round = round
}

// CommitRound flushes every attribute's current value into its history and
// closes the round. Histories stay minimal: unchanged attributes only move
// their last-recorded marker.
func (r *Registry) CommitRound() error {
	if !r.active {
		return fmt.Errorf("commit outside an active round")
	}
	for _, name := range r.order {
		a := r.attrs[name]
		if err := a.hist.Record(r.round, a.currentValue()); err != nil {
			return fmt.Errorf("attribute %q: %w", name, err)
		}
		a.dirty = false
	}
	r.active = false
	return nil
}

// Round returns the active round number.
func (r *Registry) Round() uint64 { return r.round }

// Get reads the value committed at the start of the active round, ignoring
// writes made so far this round.
func (a *Attr) Get() Value {
	if v, ok := a.hist.Latest(); ok {
		return v
	}
	return a.def
}

// GetCurrent reads the latest value written this round, falling back to Get
// when nothing was written yet.
func (a *Attr) GetCurrent() Value {
	return a.currentValue()
}

func (a *Attr) currentValue() Value {
	if a.dirty {
		return a.cur
	}
	return a.Get()
}

// Set overwrites the current value for the active round; the last write
// before commit wins. Writes outside an active round or with a mismatched
// kind are rejected with a warning.
func (a *Attr) Set(v Value) error {
	if !a.reg.active {
		a.reg.warnf("attribute %q: write outside an active round ignored", a.Name)
		return fmt.Errorf("attribute %q: no active round", a.Name)
	}
	if v.Kind != a.def.Kind {
		a.reg.warnf("attribute %q: write of kind %q to %q attribute ignored", a.Name, v.Kind, a.def.Kind)
		return fmt.Errorf("attribute %q: kind mismatch", a.Name)
	}
	a.cur = v
	a.dirty = true
	return nil
}

// ValueAt reads the committed value as of round. Rounds outside the
// recorded range clamp to the nearest recorded value; an attribute that was
// never committed reports its default.
func (a *Attr) ValueAt(round uint64) Value {
	if v, ok := a.hist.ValueAt(round); ok {
		return v
	}
	return a.def
}

// Kind returns the attribute's value kind.
func (a *Attr) Kind() Kind { return a.def.Kind }

// Default returns the attribute's default value.
func (a *Attr) Default() Value { return a.def }

// HistoryPoints exposes the break-point log for persistence.
func (a *Attr) HistoryPoints() ([]BreakPoint, uint64) {
	return a.hist.Points(), a.hist.LastRound()
}

// RestoreHistory replaces the attribute's history with persisted data.
func (a *Attr) RestoreHistory(points []BreakPoint, lastRound uint64) error {
	h, err := FromPoints(points, lastRound)
	if err != nil {
		return fmt.Errorf("attribute %q: %w", a.Name, err)
	}
	for _, bp := range points {
		if bp.Value.Kind != a.def.Kind {
			return fmt.Errorf("attribute %q: persisted kind %q does not match %q", a.Name, bp.Value.Kind, a.def.Kind)
		}
	}
	a.hist = h
	a.dirty = false
	return nil
}

// EarliestRound returns the lowest round any attribute has recorded.
func (r *Registry) EarliestRound() (uint64, bool) {
	var best uint64
	found := false
	for _, name := range r.order {
		pts, _ := r.attrs[name].HistoryPoints()
		if len(pts) == 0 {
			continue
		}
		if !found || pts[0].Round < best {
			best = pts[0].Round
			found = true
		}
	}
	return best, found
}

// LatestRound returns the highest last-recorded round across attributes.
func (r *Registry) LatestRound() (uint64, bool) {
	var best uint64
	found := false
	for _, name := range r.order {
		pts, last := r.attrs[name].HistoryPoints()
		if len(pts) == 0 {
			continue
		}
		if !found || last > best {
			best = last
			found = true
		}
	}
	return best, found
}

// SortedNames returns attribute names in lexical order, used for
// deterministic digests.
func (r *Registry) SortedNames() []string {
	out := r.Names()
	sort.Strings(out)
	return out
}
