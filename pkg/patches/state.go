// Package patches tracks which named patches are live and how their
// boundaries are oriented.
package patches

import (
	"errors"
	"slices"

	oserrors "github.com/matzehuels/opensurgery/pkg/errors"
)

var (
	// ErrNotActive is returned when an operation names a patch that is not live.
	ErrNotActive = errors.New("patch not active")

	// ErrAlreadyActive is returned when a live patch is activated again.
	ErrAlreadyActive = errors.New("patch already active")
)

// Orientation records which pair of a patch's sides exposes the X operator.
type Orientation uint8

const (
	// Original is the orientation a patch is created with.
	Original Orientation = iota
	// Rotated is the orientation after one rotation.
	Rotated
)

func (o Orientation) String() string {
	if o == Rotated {
		return "ROTATED"
	}
	return "ORIGINAL"
}

// Face bits of the 6-bit exposed-faces mask.
const (
	FacePosX uint8 = 1 << iota
	FaceNegX
	FacePosY
	FaceNegY
	FacePosZ
	FaceNegZ

	// AllFaces is the default mask: no face hidden.
	AllFaces uint8 = 63
)

// Mask returns the exposed-faces mask painted for a patch in orientation o.
func (o Orientation) Mask() uint8 {
	if o == Rotated {
		return AllFaces &^ (FacePosY | FaceNegY)
	}
	return AllFaces &^ (FacePosX | FaceNegX)
}

// State is the set of live patches in activation order, with orientations.
// The zero value is an empty state ready for use.
type State struct {
	order       []string
	orientation map[string]Orientation
}

// New returns an empty state.
func New() *State {
	return &State{orientation: make(map[string]Orientation)}
}

// Activate makes name live with the given orientation.
func (s *State) Activate(name string, o Orientation) error {
	if s.orientation == nil {
		s.orientation = make(map[string]Orientation)
	}
	if _, ok := s.orientation[name]; ok {
		return oserrors.Wrap(oserrors.ErrCodeLiveness, ErrAlreadyActive, "activate %q", name)
	}
	s.order = append(s.order, name)
	s.orientation[name] = o
	return nil
}

// Deactivate removes name from the live set.
func (s *State) Deactivate(name string) error {
	if _, ok := s.orientation[name]; !ok {
		return oserrors.Wrap(oserrors.ErrCodeLiveness, ErrNotActive, "deactivate %q", name)
	}
	delete(s.orientation, name)
	s.order = slices.DeleteFunc(s.order, func(n string) bool { return n == name })
	return nil
}

// IsActive reports whether name is live.
func (s *State) IsActive(name string) bool {
	_, ok := s.orientation[name]
	return ok
}

// Active returns the live names in activation order.
func (s *State) Active() []string {
	return slices.Clone(s.order)
}

// Len returns the number of live patches.
func (s *State) Len() int { return len(s.order) }

// Toggle flips the orientation of a live patch.
func (s *State) Toggle(name string) error {
	o, ok := s.orientation[name]
	if !ok {
		return oserrors.Wrap(oserrors.ErrCodeLiveness, ErrNotActive, "rotate %q", name)
	}
	if o == Original {
		s.orientation[name] = Rotated
	} else {
		s.orientation[name] = Original
	}
	return nil
}

// Orientation returns the orientation of a live patch.
func (s *State) Orientation(name string) (Orientation, error) {
	o, ok := s.orientation[name]
	if !ok {
		return Original, oserrors.Wrap(oserrors.ErrCodeLiveness, ErrNotActive, "orientation of %q", name)
	}
	return o, nil
}

// Mask returns the exposed-faces mask for a live patch.
func (s *State) Mask(name string) (uint8, error) {
	o, err := s.Orientation(name)
	if err != nil {
		return 0, err
	}
	return o.Mask(), nil
}

// Except returns the live names in activation order, skipping those in skip.
func (s *State) Except(skip ...string) []string {
	out := make([]string, 0, len(s.order))
	for _, n := range s.order {
		if !slices.Contains(skip, n) {
			out = append(out, n)
		}
	}
	return out
}
