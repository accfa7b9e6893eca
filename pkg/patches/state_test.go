package patches

import (
	"errors"
	"slices"
	"testing"

	oserrors "github.com/matzehuels/opensurgery/pkg/errors"
)

func TestActivateOrder(t *testing.T) {
	s := New()
	for _, n := range []string{"0", "1", "A", "2"} {
		if err := s.Activate(n, Original); err != nil {
			t.Fatalf("Activate(%q) error: %v", n, err)
		}
	}
	if got, want := s.Active(), []string{"0", "1", "A", "2"}; !slices.Equal(got, want) {
		t.Errorf("Active() = %v, want %v", got, want)
	}

	if err := s.Deactivate("A"); err != nil {
		t.Fatalf("Deactivate error: %v", err)
	}
	if s.IsActive("A") {
		t.Error("IsActive(A) = true after Deactivate")
	}
	if got, want := s.Active(), []string{"0", "1", "2"}; !slices.Equal(got, want) {
		t.Errorf("Active() = %v, want %v", got, want)
	}

	// reactivation appends at the end
	if err := s.Activate("A", Rotated); err != nil {
		t.Fatal(err)
	}
	if got, want := s.Active(), []string{"0", "1", "2", "A"}; !slices.Equal(got, want) {
		t.Errorf("Active() = %v, want %v", got, want)
	}
	if o, _ := s.Orientation("A"); o != Rotated {
		t.Errorf("Orientation(A) = %v, want ROTATED", o)
	}
}

func TestZeroValueState(t *testing.T) {
	var s State
	if s.IsActive("0") {
		t.Error("zero State should be empty")
	}
	if err := s.Activate("0", Original); err != nil {
		t.Fatalf("Activate on zero State error: %v", err)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestLivenessErrors(t *testing.T) {
	s := New()
	if err := s.Activate("0", Original); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"duplicate activate", s.Activate("0", Original), ErrAlreadyActive},
		{"deactivate unknown", s.Deactivate("5"), ErrNotActive},
		{"toggle unknown", s.Toggle("5"), ErrNotActive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.want) {
				t.Errorf("error = %v, want %v", tt.err, tt.want)
			}
			if !oserrors.Is(tt.err, oserrors.ErrCodeLiveness) {
				t.Errorf("code = %v, want %v", oserrors.GetCode(tt.err), oserrors.ErrCodeLiveness)
			}
		})
	}
}

func TestToggleAndMask(t *testing.T) {
	s := New()
	if err := s.Activate("0", Original); err != nil {
		t.Fatal(err)
	}

	m, err := s.Mask("0")
	if err != nil {
		t.Fatal(err)
	}
	if m != 60 {
		t.Errorf("Mask(original) = %d, want 60", m)
	}

	if err := s.Toggle("0"); err != nil {
		t.Fatal(err)
	}
	if m, _ := s.Mask("0"); m != 51 {
		t.Errorf("Mask(rotated) = %d, want 51", m)
	}

	if err := s.Toggle("0"); err != nil {
		t.Fatal(err)
	}
	if o, _ := s.Orientation("0"); o != Original {
		t.Errorf("Orientation after two toggles = %v, want ORIGINAL", o)
	}
}

func TestExcept(t *testing.T) {
	s := New()
	for _, n := range []string{"0", "1", "2", "A"} {
		_ = s.Activate(n, Original)
	}
	if got, want := s.Except("1", "A", "9"), []string{"0", "2"}; !slices.Equal(got, want) {
		t.Errorf("Except() = %v, want %v", got, want)
	}
}
