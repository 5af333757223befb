// Package history implements per-attribute change logs. Every particle
// attribute keeps a sparse break-point history so any recorded round can be
// read back without replaying, and save files can restore exact state.
package history

import "fmt"

// Kind discriminates the closed set of attribute value types. Persistence
// relies on this tag instead of runtime type inspection.
type Kind string

const (
	KindBool      Kind = "bool"
	KindInt       Kind = "int"
	KindFloat     Kind = "float"
	KindString    Kind = "string"
	KindEnum      Kind = "enum"
	KindPinConfig Kind = "pin_config"
)

func (k Kind) Valid() bool {
	switch k {
	case KindBool, KindInt, KindFloat, KindString, KindEnum, KindPinConfig:
		return true
	}
	return false
}

// Value is one tagged attribute value. Str carries the payload for string
// and enum kinds as well as the encoded pin assignment for pin configs;
// EnumType and HeadDir are populated only for their respective kinds.
type Value struct {
	Kind  Kind    `json:"kind"`
	Bool  bool    `json:"bool,omitempty"`
	Int   int64   `json:"int,omitempty"`
	Float float64 `json:"float,omitempty"`
	Str   string  `json:"str,omitempty"`

	// EnumType names the enumeration an enum value belongs to.
	EnumType string `json:"enum_type,omitempty"`

	// HeadDir is the head direction a pin configuration was built for
	// (-1 for a contracted particle).
	HeadDir int `json:"head_dir,omitempty"`
}

func BoolValue(b bool) Value      { return Value{Kind: KindBool, Bool: b} }
func IntValue(i int64) Value      { return Value{Kind: KindInt, Int: i} }
func FloatValue(f float64) Value  { return Value{Kind: KindFloat, Float: f} }
func StringValue(s string) Value  { return Value{Kind: KindString, Str: s} }
func EnumValue(typ, v string) Value {
	return Value{Kind: KindEnum, EnumType: typ, Str: v}
}

// PinConfigValue wraps an encoded pin-to-partition-set assignment.
func PinConfigValue(headDir int, encoded string) Value {
	return Value{Kind: KindPinConfig, HeadDir: headDir, Str: encoded}
}

// Equal reports whether two values are identical. Values of different kinds
// are never equal.
func (v Value) Equal(o Value) bool { return v == o }

func (v Value) String() string {
	switch v.Kind {
	case KindBool:
		return fmt.Sprintf("%v", v.Bool)
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindFloat:
		return fmt.Sprintf("%g", v.Float)
	case KindString:
		return v.Str
	case KindEnum:
		return v.EnumType + "." + v.Str
	case KindPinConfig:
		return fmt.Sprintf("pc(head=%d,%s)", v.HeadDir, v.Str)
	}
	return "invalid"
}
