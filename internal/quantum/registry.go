package quantum

import "fmt"

// Pair is the semantic label of a register: the two basis labels of the
// qubit, ground state first. In the game these are emoji pairs, but the
// engine only ever treats them as opaque strings.
type Pair struct {
	Ground  string `json:"ground"`
	Excited string `json:"excited"`
}

// Key returns the canonical map key for the pair.
func (p Pair) Key() string {
	return p.Ground + "/" + p.Excited
}

// String implements fmt.Stringer.
func (p Pair) String() string {
	return p.Key()
}

// RegisterMap is the bidirectional mapping between labels and register
// indices within one region. Indices grow monotonically and are never reused
// while the region exists.
type RegisterMap struct {
	byKey  map[string]int
	labels []Pair
}

// NewRegisterMap creates an empty register map.
func NewRegisterMap() *RegisterMap {
	return &RegisterMap{byKey: make(map[string]int)}
}

// Register returns the index for the label, allocating the next free index
// on first registration. The second return reports whether a new register
// was created.
func (m *RegisterMap) Register(label Pair) (int, bool) {
	if idx, ok := m.byKey[label.Key()]; ok {
		return idx, false
	}
	idx := len(m.labels)
	m.byKey[label.Key()] = idx
	m.labels = append(m.labels, label)
	return idx, true
}

// Lookup returns the index for a known label.
func (m *RegisterMap) Lookup(label Pair) (int, error) {
	idx, ok := m.byKey[label.Key()]
	if !ok {
		return 0, fmt.Errorf("label %s: %w", label, ErrNotFound)
	}
	return idx, nil
}

// LabelFor is the inverse lookup.
func (m *RegisterMap) LabelFor(index int) (Pair, error) {
	if index < 0 || index >= len(m.labels) {
		return Pair{}, fmt.Errorf("register %d: %w", index, ErrNotFound)
	}
	return m.labels[index], nil
}

// Len returns the number of registered labels.
func (m *RegisterMap) Len() int {
	return len(m.labels)
}

// Labels returns all registered labels in index order.
func (m *RegisterMap) Labels() []Pair {
	out := make([]Pair, len(m.labels))
	copy(out, m.labels)
	return out
}
