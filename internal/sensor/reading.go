// Package sensor turns ipmi-sensors text output into readings for an
// allow-listed set of sensors.
package sensor

import (
	"sort"
	"strings"
)

// Unavailable is the collectd value used when a sensor could not be read.
const Unavailable = "U"

// Reading is one sensor value reported by one host in one cycle.
type Reading struct {
	Host   string
	Sensor string
	Value  float64
	Valid  bool   // false means the tool reported a non-numeric value
	Raw    string // numeric token exactly as printed by the tool
}

// ValueString returns the value as it goes on the wire: the tool's own
// numeric text, or Unavailable.
func (r Reading) ValueString() string {
	if !r.Valid {
		return Unavailable
	}
	return r.Raw
}

// Set is an allow-list of normalized sensor names.
type Set map[string]struct{}

// NewSet builds a Set, normalizing each name the same way parsed names are.
// Empty names are dropped.
func NewSet(names ...string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		n = NormalizeName(n)
		if n == "" {
			continue
		}
		s[n] = struct{}{}
	}
	return s
}

// Contains reports whether name is in the set. Exact match only.
func (s Set) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// Names returns the set members in sorted order.
func (s Set) Names() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// NormalizeName strips a parenthesized suffix, trims the result and joins
// whitespace-separated words with underscores:
//
//	"  CPU2 DIMM7 (Temperature)" -> "CPU2_DIMM7"
func NormalizeName(raw string) string {
	if i := strings.IndexByte(raw, '('); i >= 0 {
		raw = raw[:i]
	}
	return strings.Join(strings.Fields(raw), "_")
}
