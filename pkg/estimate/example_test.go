package estimate_test

import (
	"fmt"

	"github.com/matzehuels/opensurgery/pkg/estimate"
)

func ExampleEstimate() {
	// 100 logical patches running 1000 T gates on a 1e-3 substrate
	r, err := estimate.Estimate(estimate.DefaultParams(), estimate.Experiment{
		Footprint: 100,
		TCount:    1000,
	})
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	fmt.Println("levels:", r.LevelsLabel())
	fmt.Println("distance:", r.Distance)
	fmt.Println("physical qubits:", r.PhysicalQubits)
	fmt.Println("data qubits:", r.DataQubits)
	// Output:
	// levels: 2
	// distance: 17
	// physical qubits: 234504
	// data qubits: 57800
}

func ExampleResult_BoxInPatchUnits() {
	r, _ := estimate.Estimate(estimate.DefaultParams(), estimate.Experiment{Footprint: 4, TCount: 1})
	box, _ := r.BoxInPatchUnits()
	fmt.Printf("%d x %d patches, %d slices\n", box.X, box.Y, box.T)
	// Output:
	// 14 x 28 patches, 23 slices
}
