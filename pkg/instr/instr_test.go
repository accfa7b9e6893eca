package instr

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	oserrors "github.com/matzehuels/opensurgery/pkg/errors"
)

func TestParse(t *testing.T) {
	src := `# magic-state injection
INIT 4

NEED A
MZZ A 0   # consume it
MX A
MXX 0 1 2
S 2
V 3
H 1
MZ 3
ROT 0
`
	p, err := ParseString(src)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}

	want := []Instruction{
		{Op: OpInit, Args: []string{"4"}, Line: 2},
		{Op: OpNeed, Args: []string{"A"}, Line: 4},
		{Op: OpMZZ, Args: []string{"A", "0"}, Line: 5},
		{Op: OpMX, Args: []string{"A"}, Line: 6},
		{Op: OpMXX, Args: []string{"0", "1", "2"}, Line: 7},
		{Op: OpS, Args: []string{"2"}, Line: 8},
		{Op: OpV, Args: []string{"3"}, Line: 9},
		{Op: OpH, Args: []string{"1"}, Line: 10},
		{Op: OpMZ, Args: []string{"3"}, Line: 11},
		{Op: OpRot, Args: []string{"0"}, Line: 12},
	}
	if diff := cmp.Diff(want, p.Instructions); diff != "" {
		t.Errorf("Instructions mismatch (-want +got):\n%s", diff)
	}
	if p.Qubits() != 4 {
		t.Errorf("Qubits() = %d, want 4", p.Qubits())
	}
	if p.TCount() != 1 {
		t.Errorf("TCount() = %d, want 1", p.TCount())
	}
	if p.Len() != 10 {
		t.Errorf("Len() = %d, want 10", p.Len())
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line string
	}{
		{"missing init", "NEED A\n", "line 1"},
		{"second init", "INIT 2\nINIT 3\n", "line 2"},
		{"unknown opcode", "INIT 2\nCNOT 0 1\n", "line 2"},
		{"lowercase opcode", "init 2\n", "line 1"},
		{"init without count", "INIT\n", "line 1"},
		{"init zero", "INIT 0\n", "line 1"},
		{"init not numeric", "INIT four\n", "line 1"},
		{"need other patch", "INIT 2\nNEED 0\n", "line 2"},
		{"mzz single", "INIT 2\nMZZ 0\n", "line 2"},
		{"mxx single", "INIT 2\nMXX A\n", "line 2"},
		{"h two patches", "INIT 2\nH 0 1\n", "line 2"},
		{"rot none", "INIT 2\nROT\n", "line 2"},
		{"bad name", "INIT 2\nH q0\n", "line 2"},
		{"leading zero", "INIT 2\nMX 01\n", "line 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseString(tt.src)
			if err == nil {
				t.Fatal("expected error")
			}
			if !oserrors.Is(err, oserrors.ErrCodeInvalidInstruction) {
				t.Errorf("code = %s, want %s", oserrors.GetCode(err), oserrors.ErrCodeInvalidInstruction)
			}
			if !strings.Contains(err.Error(), tt.line) {
				t.Errorf("error %q does not name %q", err, tt.line)
			}
		})
	}
}

func TestParseInitBound(t *testing.T) {
	tests := []struct {
		src  string
		code oserrors.Code
	}{
		{"INIT 2097152\n", ""},
		{"INIT 2097153\n", oserrors.ErrCodeSizing},
		{"INIT 9223372036854775803\n", oserrors.ErrCodeSizing},
		{"INIT 9223372036854775807\n", oserrors.ErrCodeSizing},
		{"INIT 9223372036854775808\n", oserrors.ErrCodeInvalidInstruction},
	}
	for _, tt := range tests {
		_, err := ParseString(tt.src)
		if got := oserrors.GetCode(err); got != tt.code {
			t.Errorf("ParseString(%q) code = %q, want %q (err %v)", tt.src, got, tt.code, err)
		}
	}
}

func TestParseEmpty(t *testing.T) {
	for _, src := range []string{"", "\n\n", "# only a comment\n   \n"} {
		_, err := ParseString(src)
		if !errors.Is(err, ErrEmpty) {
			t.Errorf("ParseString(%q) error = %v, want ErrEmpty", src, err)
		}
	}
}

func TestParseLine(t *testing.T) {
	in, ok, err := ParseLine("  MZZ   A 0 1  # trailing", 7)
	if err != nil || !ok {
		t.Fatalf("ParseLine: ok=%v err=%v", ok, err)
	}
	if in.String() != "MZZ A 0 1" {
		t.Errorf("String() = %q, want %q", in.String(), "MZZ A 0 1")
	}
	if in.Line != 7 {
		t.Errorf("Line = %d, want 7", in.Line)
	}
	if !in.Mentions("A") || in.Mentions("2") {
		t.Error("Mentions mismatch")
	}

	_, ok, err = ParseLine("   # nothing", 1)
	if ok || err != nil {
		t.Errorf("comment line: ok=%v err=%v, want skipped", ok, err)
	}
}

func TestOpcode(t *testing.T) {
	for o, name := range opcodeNames {
		got, ok := ParseOpcode(name)
		if !ok || got != o {
			t.Errorf("ParseOpcode(%q) = %v, %v", name, got, ok)
		}
		if o.String() != name {
			t.Errorf("%d.String() = %q, want %q", o, o.String(), name)
		}
	}
	if _, ok := ParseOpcode("T"); ok {
		t.Error("ParseOpcode(T) should fail")
	}
	if s := Opcode(99).String(); s != "Opcode(99)" {
		t.Errorf("String() = %q", s)
	}
}

func TestProgramString(t *testing.T) {
	src := "INIT 3   \n\n# c\nNEED A\nMZZ A 2\nMX A\n"
	p, err := ParseString(src)
	if err != nil {
		t.Fatal(err)
	}
	want := "INIT 3\nNEED A\nMZZ A 2\nMX A\n"
	if p.String() != want {
		t.Errorf("String() = %q, want %q", p.String(), want)
	}

	var b strings.Builder
	n, err := p.WriteTo(&b)
	if err != nil || int(n) != len(want) {
		t.Errorf("WriteTo = %d, %v", n, err)
	}

	again, err := ParseString(p.String())
	if err != nil {
		t.Fatal(err)
	}
	if again.String() != want {
		t.Errorf("reparse = %q", again.String())
	}
}

func TestInstructionQubits(t *testing.T) {
	if got := (Instruction{Op: OpInit, Args: []string{"12"}}).Qubits(); got != 12 {
		t.Errorf("Qubits() = %d, want 12", got)
	}
	if got := (Instruction{Op: OpH, Args: []string{"12"}}).Qubits(); got != 0 {
		t.Errorf("Qubits() = %d, want 0", got)
	}
	if (Instruction{Op: OpInit, Args: []string{"1"}}).Mentions("1") {
		t.Error("INIT operand is not a patch")
	}
}
