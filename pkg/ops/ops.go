// Package ops defines the closed set of lattice-surgery operation kinds, the
// arena that stores placed operation records, and the per-cell occupancy
// collection of the spacetime grid.
//
// Operation ids are arena indices. Id 0 is reserved for the shared NOOP
// placeholder that every empty cell refers to, so a freshly allocated cell
// needs no record of its own.
package ops

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownKind is returned when parsing an operation kind name fails.
var ErrUnknownKind = errors.New("unknown operation kind")

// Kind is an operation kind.
type Kind uint8

const (
	Noop Kind = iota
	UseQubit
	UseAncilla
	UseDistillation
	UseSGate
	MovePatch
	Hadamard
	MeasureX
	MeasureZ

	numKinds
)

var kindNames = [numKinds]string{
	Noop:            "NOOP",
	UseQubit:        "USE_QUBIT",
	UseAncilla:      "USE_ANCILLA",
	UseDistillation: "USE_DISTILLATION",
	UseSGate:        "USE_S_GATE",
	MovePatch:       "MOVE_PATCH",
	Hadamard:        "HADAMARD_QUBIT",
	MeasureX:        "MX_QUBIT",
	MeasureZ:        "MZ_QUBIT",
}

// Kinds returns every kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, numKinds)
	for i := range out {
		out[i] = Kind(i)
	}
	return out
}

func (k Kind) String() string {
	if k < numKinds {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// ParseKind returns the kind with the given name.
func ParseKind(s string) (Kind, error) {
	for i, n := range kindNames {
		if strings.EqualFold(n, s) {
			return Kind(i), nil
		}
	}
	return Noop, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Traits describes how a kind occupies and renders.
type Traits struct {
	// Decorator kinds are instantaneous and may share a cell with one
	// non-decorator occupant.
	Decorator bool
	// Color is the render color of cells this kind occupies.
	Color string
	// Marker is the decorator marker in exported nodes, 0 for none.
	Marker int
}

// Traits is the single place kind-specific behavior is decided.
func (k Kind) Traits() Traits {
	switch k {
	case Noop:
		return Traits{Color: "white"}
	case UseQubit:
		return Traits{Color: "red"}
	case UseAncilla:
		return Traits{Color: "yellow"}
	case UseDistillation:
		return Traits{Color: "magenta"}
	case UseSGate:
		return Traits{Color: "green"}
	case MovePatch:
		return Traits{Color: "orange"}
	case Hadamard:
		return Traits{Decorator: true, Color: "cyan", Marker: 1}
	case MeasureX:
		return Traits{Decorator: true, Color: "blue", Marker: 2}
	case MeasureZ:
		return Traits{Decorator: true, Color: "purple", Marker: 3}
	}
	return Traits{Color: "black"}
}

// IsDecorator reports whether k is an instantaneous decorator.
func (k Kind) IsDecorator() bool { return k.Traits().Decorator }

// ID identifies an operation record in a [Registry].
type ID int32

// Placeholder is the id of the shared NOOP record.
const Placeholder ID = 0

// CellID identifies a 3D grid cell.
type CellID int

// Touch is a directed data-to-measurement relation between two cells.
type Touch struct {
	Data CellID `json:"data"`
	Meas CellID `json:"meas"`
}

// Record is a placed operation.
type Record struct {
	Kind    Kind     `json:"kind"`
	Span    []CellID `json:"span"`
	Touches []Touch  `json:"touches,omitempty"`
}

// Registry is the arena of operation records.
type Registry struct {
	records []Record
}

// NewRegistry returns a registry holding only the placeholder record.
func NewRegistry() *Registry {
	return &Registry{records: []Record{{Kind: Noop}}}
}

// Add stores rec and returns its id.
func (r *Registry) Add(rec Record) ID {
	r.records = append(r.records, rec)
	return ID(len(r.records) - 1)
}

// Get returns the record with the given id.
func (r *Registry) Get(id ID) *Record {
	return &r.records[id]
}

// Len returns the number of placed operations, excluding the placeholder.
func (r *Registry) Len() int { return len(r.records) - 1 }

// CountByKind returns the number of placed operations of each kind.
func (r *Registry) CountByKind() map[Kind]int {
	out := make(map[Kind]int)
	for _, rec := range r.records[1:] {
		out[rec.Kind]++
	}
	return out
}
