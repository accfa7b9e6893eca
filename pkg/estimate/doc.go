// Package estimate computes the physical resources a lattice-surgery
// computation needs on a surface-code substrate.
//
// [Estimate] is a pure function of its [Params] and [Experiment]. It picks the
// number of magic-state distillation levels, the code distance of the
// distillation box and of the data patches, and from those the total number of
// physical qubits and the wall-clock time.
//
// # Distillation levels
//
// The level-1 and level-2 output error rates come from closed-form
// approximations of the 15-to-1 protocol: a Clifford preparation error plus a
// cubic suppression 35p³ of the input T error. One level is used when its
// output already beats level 2; two when level 2 beats the target error per T
// gate 1/(safety·t_count). Otherwise the experiment is infeasible, which is a
// normal [Result] with Infeasible set.
//
// # Data distance
//
// The data distance starts at 3 and grows by 2 until the logical error per
// round p_L(d) = 0.1·(100p)^((d+1)/2) drops below 1/(safety·rounds) over all
// data rounds of the computation.
//
// # Sweeps
//
// [SweepTCount], [SweepErrorRate], [SpaceTimeTradeoff] and [DistanceBins]
// evaluate many estimates in parallel.
package estimate
