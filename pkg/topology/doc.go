// Package topology describes the fixed 2D arrangement of surface-code patch
// cells that the spacetime scheduler places operations on.
//
// # Overview
//
// A [Topology] is a rectangular grid of cells. Every cell has an immutable
// [Kind]: [KindQubit] cells hold logical data patches, [KindAncilla] cells are
// free lanes that lattice-surgery merges route through, and [KindDistillation]
// cells form the single rectangular region reserved for magic-state
// distillation.
//
// Patches are addressed by name. Logical qubits are named by their decimal
// index ("0", "1", ...), and two names are reserved:
//
//   - "A": the magic state produced by distillation, sitting in the bottom-left
//     cell of the distillation region
//   - "ANCILLA": a shared bus patch on an ancilla cell in the last row
//
// # Arrangements
//
// [Arrange] produces the standard arrangement: the distillation block spans the
// top rows, every third row after it is an ancilla row, and the two central
// columns are ancilla on every row, forming a double-width bus. [ParseGrid]
// reads an arbitrary arrangement from a text map. Either result is turned into
// a named topology with [New]; [Build] does both steps.
//
// # Routing
//
// [Topology.Route] returns the shortest path of ancilla cells between two
// ancilla endpoints. Paths are found with a breadth-first search that expands
// neighbors in a fixed order, so results are reproducible. Each path is
// computed once, from the lower of the two endpoints, and stored in both
// directions, which makes Route(a, b) the exact reverse of Route(b, a).
//
// # Concurrency
//
// A Topology is not safe for concurrent use: Route fills an internal cache.
// Each compile owns its own Topology.
package topology
