// pkg/core/bitfield.go
package core

import "strings"

// Bitfield is a set of enum values, one bit per value.
type Bitfield uint64

// Bits builds a bitfield from enum values
func Bits[E ~int](values ...E) Bitfield {
	var b Bitfield
	for _, v := range values {
		b |= Bitfield(1) << uint(v)
	}
	return b
}

// Contains reports whether every bit of other is set in b
func (b Bitfield) Contains(other Bitfield) bool {
	return other != 0 && b&other == other
}

// Add returns b with the bits of other set
func (b Bitfield) Add(other Bitfield) Bitfield {
	return b | other
}

// Remove returns b with the bits of other cleared
func (b Bitfield) Remove(other Bitfield) Bitfield {
	return b &^ other
}

// Values lists the enum values set in b, lowest first
func Values[E ~int](b Bitfield) []E {
	var out []E
	for i := 0; i < 64; i++ {
		if b&(Bitfield(1)<<uint(i)) != 0 {
			out = append(out, E(i))
		}
	}
	return out
}

// Join renders the set values of b with their names, separated by ";"
func Join[E interface {
	~int
	String() string
}](b Bitfield) string {
	values := Values[E](b)
	names := make([]string, 0, len(values))
	for _, v := range values {
		names = append(names, v.String())
	}
	return strings.Join(names, ";")
}

// enumName looks up the name of an enum value, falling back to "unknown"
func enumName(names []string, v int) string {
	if v < 0 || v >= len(names) {
		return "unknown"
	}
	return names[v]
}

// enumValue looks up an enum value by name, returning 0 (unknown) on a miss
func enumValue(names []string, s string) int {
	for i, name := range names {
		if name == s {
			return i
		}
	}
	return 0
}
