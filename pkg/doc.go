// Package pkg provides the core libraries for opensurgery, a lattice-surgery
// compiler and surface-code resource estimator.
//
// # Overview
//
// opensurgery places a stream of Clifford+T instructions onto a 2D grid of
// surface-code patches over time and reports how many physical qubits and
// how much time a workload needs. The pkg directory is organized into three
// areas:
//
//  1. Domain logic: [instr], [topology], [patches], [ops], [spacetime],
//     [compiler] and [estimate]
//  2. Output: [export] and [render/nodelink]
//  3. Infrastructure: [pipeline], [cache], [store], [config] and [errors]
//
// # Architecture
//
// The data flow through a compile:
//
//	Instruction stream (text)
//	         ↓
//	    [instr] package (parse and validate)
//	         ↓
//	    [estimate] package (size the distillation block)
//	         ↓
//	    [topology] package (grid of qubit, ancilla and distillation cells)
//	         ↓
//	    [compiler] package (place operations in [spacetime])
//	         ↓
//	    [export] / [render/nodelink] (JSON, json.zst, DOT, SVG)
//
// # Quick Start
//
// Compile a stream and write the layout:
//
//	prog, err := instr.ParseString("INIT 4\nNEED A\nMZZ A 0\nMX A\n")
//	res, err := compiler.Compile(ctx, prog, compiler.Options{Block: topology.DefaultBlock})
//	doc := export.Build(res.Layout, export.Options{})
//	err = export.WriteFile(doc, "layout.json")
//
// Estimate a workload without compiling it:
//
//	r, err := estimate.Estimate(estimate.DefaultParams(), estimate.Experiment{
//	    Footprint: 100,
//	    TCount:    1_000_000,
//	})
//
// # Main Packages
//
// [instr] - The instruction set (INIT, NEED, MZZ, MXX, MX, MZ, S, V, H and
// ROT) and a line-oriented parser that reports the offending line.
//
// [topology] - Grid construction from a distillation block or a hardware
// map, with qubit naming and neighbor queries.
//
// [patches] - Activation state of logical patches, enforcing that every
// operand is live when an instruction uses it.
//
// [ops] - Operation kinds, their colors and traits, and the registry that
// assigns operation ids.
//
// [spacetime] - The 3D occupancy volume and the placement primitive that
// moves an operation forward in time until it fits.
//
// [compiler] - The placement algorithm that turns a program into a layout.
//
// [estimate] - Distillation level, code distance, qubit count and time
// estimates, plus parameter sweeps.
//
// [pipeline] - Orchestration (parse → compile → export) with caching, used
// by the CLI and the HTTP API alike.
//
// [cache] - Result caches: file, Redis and a null cache, with content-hash
// keys.
//
// [store] - The run history in SQLite or MongoDB.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...           # All tests
//	go test ./pkg/compiler/...  # Specific package
//	go test -run Example        # Examples only
//
// [instr]: https://pkg.go.dev/github.com/matzehuels/opensurgery/pkg/instr
// [topology]: https://pkg.go.dev/github.com/matzehuels/opensurgery/pkg/topology
// [patches]: https://pkg.go.dev/github.com/matzehuels/opensurgery/pkg/patches
// [ops]: https://pkg.go.dev/github.com/matzehuels/opensurgery/pkg/ops
// [spacetime]: https://pkg.go.dev/github.com/matzehuels/opensurgery/pkg/spacetime
// [compiler]: https://pkg.go.dev/github.com/matzehuels/opensurgery/pkg/compiler
// [estimate]: https://pkg.go.dev/github.com/matzehuels/opensurgery/pkg/estimate
// [export]: https://pkg.go.dev/github.com/matzehuels/opensurgery/pkg/export
// [render/nodelink]: https://pkg.go.dev/github.com/matzehuels/opensurgery/pkg/render/nodelink
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/opensurgery/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/opensurgery/pkg/cache
// [store]: https://pkg.go.dev/github.com/matzehuels/opensurgery/pkg/store
// [config]: https://pkg.go.dev/github.com/matzehuels/opensurgery/pkg/config
// [errors]: https://pkg.go.dev/github.com/matzehuels/opensurgery/pkg/errors
package pkg
