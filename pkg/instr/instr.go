// Package instr reads lattice-surgery instruction streams.
//
// A stream is line oriented. The first token of a line selects the opcode and
// the remaining tokens are its operands:
//
//	INIT 4      # lay out four logical qubits; must come first
//	NEED A      # distill a magic state into patch A
//	MZZ A 0     # multi-body Z parity measurement
//	MXX 0 1     # two-body X parity measurement
//	S 2         # phase gate (V is treated identically)
//	H 1         # Hadamard
//	MX A        # single-patch X measurement
//	MZ 3        # single-patch Z measurement
//	ROT 0       # rotate the patch's boundaries
//
// Blank lines and text after '#' are ignored. Patch names are logical-qubit
// indices or the reserved names "A" and "ANCILLA".
package instr

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	oserrors "github.com/matzehuels/opensurgery/pkg/errors"
)

// ErrEmpty is returned for a stream with no instructions.
var ErrEmpty = errors.New("empty instruction stream")

// MaxQubits bounds the INIT count. No grid within the topology limits holds
// more logical qubits.
const MaxQubits = 1 << 21

// Opcode selects an instruction.
type Opcode uint8

const (
	OpInit Opcode = iota
	OpNeed
	OpMZZ
	OpMXX
	OpS
	OpV
	OpH
	OpMX
	OpMZ
	OpRot
)

var opcodeNames = map[Opcode]string{
	OpInit: "INIT",
	OpNeed: "NEED",
	OpMZZ:  "MZZ",
	OpMXX:  "MXX",
	OpS:    "S",
	OpV:    "V",
	OpH:    "H",
	OpMX:   "MX",
	OpMZ:   "MZ",
	OpRot:  "ROT",
}

func (o Opcode) String() string {
	if s, ok := opcodeNames[o]; ok {
		return s
	}
	return fmt.Sprintf("Opcode(%d)", uint8(o))
}

// ParseOpcode returns the opcode with the given mnemonic.
func ParseOpcode(s string) (Opcode, bool) {
	for o, name := range opcodeNames {
		if name == s {
			return o, true
		}
	}
	return 0, false
}

// Instruction is one parsed line.
type Instruction struct {
	Op Opcode
	// Args are patch names, or the qubit count for INIT.
	Args []string
	// Line is the 1-based source line, 0 for instructions built in code.
	Line int
}

// String renders the instruction in stream syntax.
func (in Instruction) String() string {
	if len(in.Args) == 0 {
		return in.Op.String()
	}
	return in.Op.String() + " " + strings.Join(in.Args, " ")
}

// Mentions reports whether name is one of the instruction's operands.
func (in Instruction) Mentions(name string) bool {
	return in.Op != OpInit && slices.Contains(in.Args, name)
}

// Qubits returns the qubit count of an INIT instruction.
func (in Instruction) Qubits() int {
	if in.Op != OpInit || len(in.Args) != 1 {
		return 0
	}
	n, _ := strconv.Atoi(in.Args[0])
	return n
}

// Program is a validated instruction stream.
type Program struct {
	Instructions []Instruction
}

// Qubits returns the logical qubit count of the leading INIT.
func (p *Program) Qubits() int {
	if len(p.Instructions) == 0 {
		return 0
	}
	return p.Instructions[0].Qubits()
}

// TCount returns the number of magic states the program requests.
func (p *Program) TCount() int {
	n := 0
	for _, in := range p.Instructions {
		if in.Op == OpNeed {
			n++
		}
	}
	return n
}

// Len returns the number of instructions.
func (p *Program) Len() int { return len(p.Instructions) }

// String renders the program one instruction per line.
func (p *Program) String() string {
	var b strings.Builder
	for _, in := range p.Instructions {
		b.WriteString(in.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// WriteTo writes the program in stream syntax.
func (p *Program) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, p.String())
	return int64(n), err
}

// Parse reads and validates a stream.
func Parse(r io.Reader) (*Program, error) {
	p := &Program{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		in, ok, err := ParseLine(sc.Text(), line)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if in.Op == OpInit && len(p.Instructions) > 0 {
			return nil, oserrors.New(oserrors.ErrCodeInvalidInstruction, "line %d: INIT may only appear once, at the start", line)
		}
		if in.Op != OpInit && len(p.Instructions) == 0 {
			return nil, oserrors.New(oserrors.ErrCodeInvalidInstruction, "line %d: stream must start with INIT, got %s", line, in.Op)
		}
		p.Instructions = append(p.Instructions, in)
	}
	if err := sc.Err(); err != nil {
		return nil, oserrors.Wrap(oserrors.ErrCodeInvalidInput, err, "read instruction stream")
	}
	if len(p.Instructions) == 0 {
		return nil, oserrors.Wrap(oserrors.ErrCodeInvalidInstruction, ErrEmpty, "parse")
	}
	return p, nil
}

// ParseString parses a stream held in memory.
func ParseString(s string) (*Program, error) {
	return Parse(strings.NewReader(s))
}

// ParseLine parses one line. The second result is false for blank and
// comment-only lines.
func ParseLine(text string, line int) (Instruction, bool, error) {
	if i := strings.IndexByte(text, '#'); i >= 0 {
		text = text[:i]
	}
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Instruction{}, false, nil
	}

	op, ok := ParseOpcode(fields[0])
	if !ok {
		return Instruction{}, false, oserrors.New(oserrors.ErrCodeInvalidInstruction, "line %d: unknown opcode %q", line, fields[0])
	}
	in := Instruction{Op: op, Args: fields[1:], Line: line}
	if err := in.validate(); err != nil {
		code := oserrors.ErrCodeInvalidInstruction
		if oserrors.Is(err, oserrors.ErrCodeSizing) {
			code = oserrors.ErrCodeSizing
		}
		return Instruction{}, false, oserrors.Wrap(code, err, "line %d: %s", line, in)
	}
	return in, true, nil
}

func (in Instruction) validate() error {
	switch in.Op {
	case OpInit:
		if len(in.Args) != 1 {
			return fmt.Errorf("INIT takes one qubit count, got %d operands", len(in.Args))
		}
		n, err := strconv.Atoi(in.Args[0])
		if err != nil || n < 1 {
			return fmt.Errorf("qubit count %q is not a positive integer", in.Args[0])
		}
		if n > MaxQubits {
			return oserrors.New(oserrors.ErrCodeSizing, "qubit count %d exceeds %d", n, MaxQubits)
		}
		return nil
	case OpNeed:
		if len(in.Args) != 1 || in.Args[0] != oserrors.NameMagicState {
			return fmt.Errorf("NEED takes the single operand %s", oserrors.NameMagicState)
		}
		return nil
	case OpMZZ, OpMXX:
		if len(in.Args) < 2 {
			return fmt.Errorf("%s needs at least two patches, got %d", in.Op, len(in.Args))
		}
	default:
		if len(in.Args) != 1 {
			return fmt.Errorf("%s takes one patch, got %d", in.Op, len(in.Args))
		}
	}
	for _, name := range in.Args {
		if err := oserrors.ValidatePatchName(name); err != nil {
			return err
		}
	}
	return nil
}
