// Package taxonomy implements the class taxonomy and problem-type registry:
// a total mapping from a stable string id to (family, syllable_count,
// n_classes, prior_strength), synthesizing descriptors for well-formed but
// unregistered ids rather than failing outright.
package taxonomy

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// ErrUnknownProblemType is returned when an id is neither registered nor
// parseable as "<known_family>_<positive_integer>". This is the one error
// the registry propagates; everything else is a successful lookup.
type ErrUnknownProblemType struct {
	ID string
}

func (e ErrUnknownProblemType) Error() string {
	return fmt.Sprintf("unknown problem type: %q", e.ID)
}

// Descriptor is the immutable record a problem-type id resolves to.
type Descriptor struct {
	ID            string
	Family        string
	SyllableCount int
	NClasses      int
	PriorStrength float64
}

// FamilyDefault carries the defaults used to synthesize a Descriptor for an
// unregistered but well-formed id of a known family.
type FamilyDefault struct {
	NClasses      int
	PriorStrength float64
}

// Registry is the class taxonomy. Safe for concurrent use: lookups that
// synthesize a new descriptor cache it under a lock, but registered
// descriptors are never mutated once inserted.
type Registry struct {
	mu          sync.RWMutex
	families    map[string]FamilyDefault
	descriptors map[string]Descriptor
}

// NewRegistry builds an empty registry. Callers register families and
// explicit descriptors before first use; the registry is immutable with
// respect to already-registered descriptors from then on.
func NewRegistry() *Registry {
	return &Registry{
		families:    make(map[string]FamilyDefault),
		descriptors: make(map[string]Descriptor),
	}
}

// RegisterFamily declares defaults for a drill family (e.g. "tone", 6
// classes; "vowel", 12 classes), enabling auto-synthesis of
// "<family>_<syllable_count>" ids on miss.
func (r *Registry) RegisterFamily(family string, def FamilyDefault) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.families[family] = def
}

// Register installs an explicit, immutable descriptor.
func (r *Registry) Register(d Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.descriptors[d.ID] = d
}

// Get resolves a problem-type id. On a registered hit it returns the
// installed descriptor. On miss, if the id parses as
// "<known_family>_<positive_integer>", it synthesizes and caches a
// descriptor from family defaults. Otherwise it returns
// ErrUnknownProblemType.
func (r *Registry) Get(id string) (Descriptor, error) {
	r.mu.RLock()
	if d, ok := r.descriptors[id]; ok {
		r.mu.RUnlock()
		return d, nil
	}
	r.mu.RUnlock()

	family, syllables, ok := parseID(id)
	if !ok {
		return Descriptor{}, ErrUnknownProblemType{ID: id}
	}

	r.mu.RLock()
	def, known := r.families[family]
	r.mu.RUnlock()
	if !known {
		return Descriptor{}, ErrUnknownProblemType{ID: id}
	}

	d := Descriptor{
		ID:            id,
		Family:        family,
		SyllableCount: syllables,
		NClasses:      def.NClasses,
		PriorStrength: def.PriorStrength,
	}

	r.mu.Lock()
	// Re-check under the write lock in case of a concurrent synthesis race;
	// first writer wins, both compute the same value so it is harmless.
	if existing, ok := r.descriptors[id]; ok {
		r.mu.Unlock()
		return existing, nil
	}
	r.descriptors[id] = d
	r.mu.Unlock()

	return d, nil
}

// MakeID builds the canonical "<family>_<syllable_count>" id.
func MakeID(family string, syllableCount int) string {
	return fmt.Sprintf("%s_%d", family, syllableCount)
}

func parseID(id string) (family string, syllables int, ok bool) {
	idx := strings.LastIndex(id, "_")
	if idx <= 0 || idx == len(id)-1 {
		return "", 0, false
	}
	family = id[:idx]
	n, err := strconv.Atoi(id[idx+1:])
	if err != nil || n <= 0 {
		return "", 0, false
	}
	return family, n, true
}

// Default builds a registry preloaded with the two families the catalog
// ships: tone (6 classes) and vowel (12 classes), matching the reference
// registry's pseudocount defaults.
func Default() *Registry {
	r := NewRegistry()
	r.RegisterFamily("tone", FamilyDefault{NClasses: 6, PriorStrength: 2.0})
	r.RegisterFamily("vowel", FamilyDefault{NClasses: 12, PriorStrength: 5.0})
	r.Register(Descriptor{ID: "tone_1", Family: "tone", SyllableCount: 1, NClasses: 6, PriorStrength: 2.0})
	r.Register(Descriptor{ID: "tone_2", Family: "tone", SyllableCount: 2, NClasses: 6, PriorStrength: 2.0})
	r.Register(Descriptor{ID: "vowel_1", Family: "vowel", SyllableCount: 1, NClasses: 12, PriorStrength: 5.0})
	r.Register(Descriptor{ID: "vowel_2", Family: "vowel", SyllableCount: 2, NClasses: 12, PriorStrength: 5.0})
	return r
}
