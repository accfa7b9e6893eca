package compiler

import (
	"fmt"

	"github.com/matzehuels/opensurgery/pkg/instr"
)

// InstructionError reports the instruction that aborted a compile.
type InstructionError struct {
	// Index is the position of the failing instruction in the stream.
	Index int
	// LastPlaced is the index of the last instruction that completed, -1 if
	// none did.
	LastPlaced  int
	Instruction instr.Instruction
	Err         error
}

func (e *InstructionError) Error() string {
	where := fmt.Sprintf("instruction %d", e.Index)
	if e.Instruction.Line > 0 {
		where += fmt.Sprintf(" (line %d)", e.Instruction.Line)
	}
	return fmt.Sprintf("%s %q, last placed %d: %v", where, e.Instruction, e.LastPlaced, e.Err)
}

func (e *InstructionError) Unwrap() error { return e.Err }
