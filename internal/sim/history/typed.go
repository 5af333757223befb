package history

import "fmt"

// Typed handles wrap Attr with kind-safe accessors. Algorithms create these
// once at particle construction and use them for the rest of the run.

type Bool struct{ a *Attr }

func (r *Registry) Bool(name string, def bool) (*Bool, error) {
	a, err := r.Create(name, BoolValue(def))
	if err != nil {
		return nil, err
	}
	return &Bool{a}, nil
}

func (b *Bool) Get() bool        { return b.a.Get().Bool }
func (b *Bool) GetCurrent() bool { return b.a.GetCurrent().Bool }
func (b *Bool) Set(v bool) error { return b.a.Set(BoolValue(v)) }
func (b *Bool) Attr() *Attr      { return b.a }

type Int struct{ a *Attr }

func (r *Registry) Int(name string, def int64) (*Int, error) {
	a, err := r.Create(name, IntValue(def))
	if err != nil {
		return nil, err
	}
	return &Int{a}, nil
}

func (i *Int) Get() int64         { return i.a.Get().Int }
func (i *Int) GetCurrent() int64  { return i.a.GetCurrent().Int }
func (i *Int) Set(v int64) error  { return i.a.Set(IntValue(v)) }
func (i *Int) Attr() *Attr        { return i.a }

type Float struct{ a *Attr }

func (r *Registry) Float(name string, def float64) (*Float, error) {
	a, err := r.Create(name, FloatValue(def))
	if err != nil {
		return nil, err
	}
	return &Float{a}, nil
}

func (f *Float) Get() float64        { return f.a.Get().Float }
func (f *Float) GetCurrent() float64 { return f.a.GetCurrent().Float }
func (f *Float) Set(v float64) error { return f.a.Set(FloatValue(v)) }
func (f *Float) Attr() *Attr         { return f.a }

type String struct{ a *Attr }

func (r *Registry) String(name string, def string) (*String, error) {
	a, err := r.Create(name, StringValue(def))
	if err != nil {
		return nil, err
	}
	return &String{a}, nil
}

func (s *String) Get() string        { return s.a.Get().Str }
func (s *String) GetCurrent() string { return s.a.GetCurrent().Str }
func (s *String) Set(v string) error { return s.a.Set(StringValue(v)) }
func (s *String) Attr() *Attr        { return s.a }

// Enum is a closed-set string attribute. The type tag travels with every
// value so save files can be validated without runtime type lookup.
type Enum struct {
	a       *Attr
	typ     string
	allowed map[string]bool
}

func (r *Registry) Enum(name, typ, def string, values []string) (*Enum, error) {
	allowed := make(map[string]bool, len(values))
	for _, v := range values {
		allowed[v] = true
	}
	if !allowed[def] {
		return nil, fmt.Errorf("enum attribute %q: default %q not in value set", name, def)
	}
	a, err := r.Create(name, EnumValue(typ, def))
	if err != nil {
		return nil, err
	}
	return &Enum{a: a, typ: typ, allowed: allowed}, nil
}

func (e *Enum) Get() string        { return e.a.Get().Str }
func (e *Enum) GetCurrent() string { return e.a.GetCurrent().Str }

func (e *Enum) Set(v string) error {
	if !e.allowed[v] {
		return fmt.Errorf("enum attribute %q: value %q not in value set", e.a.Name, v)
	}
	return e.a.Set(EnumValue(e.typ, v))
}

func (e *Enum) Attr() *Attr { return e.a }

// PinConfig stores the encoded pin assignment for one round. The circuit
// package owns the encoding; history only versions the opaque form.
type PinConfig struct{ a *Attr }

func (r *Registry) PinConfig(name string) (*PinConfig, error) {
	a, err := r.Create(name, PinConfigValue(-1, ""))
	if err != nil {
		return nil, err
	}
	return &PinConfig{a}, nil
}

func (p *PinConfig) Get() (headDir int, encoded string) {
	v := p.a.Get()
	return v.HeadDir, v.Str
}

func (p *PinConfig) GetCurrent() (headDir int, encoded string) {
	v := p.a.GetCurrent()
	return v.HeadDir, v.Str
}

func (p *PinConfig) Set(headDir int, encoded string) error {
	return p.a.Set(PinConfigValue(headDir, encoded))
}

func (p *PinConfig) Attr() *Attr { return p.a }
