package compiler_test

import (
	"context"
	"fmt"

	"github.com/matzehuels/opensurgery/pkg/compiler"
	"github.com/matzehuels/opensurgery/pkg/instr"
)

func ExampleCompile() {
	prog, err := instr.ParseString(`
INIT 4
NEED A     # distill a magic state
MZZ A 0    # inject it into qubit 0
MX A
`)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	res, err := compiler.Compile(context.Background(), prog, compiler.Options{})
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Println("grid:", res.Stats.Rows, "x", res.Stats.Cols)
	fmt.Println("slices:", res.Layout.Extent())
	fmt.Println("operations:", res.Stats.Layout.Operations)
	fmt.Println("A live:", res.State.IsActive("A"))
	// Output:
	// grid: 6 x 8
	// slices: 13
	// operations: 7
	// A live: false
}
