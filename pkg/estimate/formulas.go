package estimate

import "math"

// PLogical is the logical error per round of a distance-d patch at physical
// error rate p.
func PLogical(p float64, d int) float64 {
	return 0.1 * math.Pow(100*p, float64(d+1)/2)
}

// DistillationPOut applies the 15-to-1 suppression 35p³ levels times.
func DistillationPOut(p float64, levels int) float64 {
	for range levels {
		p = 35 * p * p * p
	}
	return p
}

// Distance returns the smallest odd distance from 3 up whose logical error
// per round is at most target.
func Distance(p, target float64) int {
	d := 3
	for PLogical(p, d) > target {
		d += 2
	}
	return d
}

// PhysQubitsPerPatch counts data and syndrome qubits of a distance-d patch.
func PhysQubitsPerPatch(d int) int64 {
	return 2 * int64(d) * int64(d)
}

// DistanceFromPatchQubits inverts [PhysQubitsPerPatch] for a square patch.
func DistanceFromPatchQubits(q float64) int {
	return int(math.Floor(math.Sqrt(q / 2)))
}

// MaxDistanceToFit returns the largest distance at which logical patches fit
// on physical qubits, 1 when no distance above 2 fits, and -1 when there are
// fewer physical than logical qubits.
func MaxDistanceToFit(logical, physical int64) int {
	if logical <= 0 || logical > physical {
		return -1
	}
	d := DistanceFromPatchQubits(float64(physical) / float64(logical))
	if d <= 2 {
		return 1
	}
	return d
}

// NumberOfRounds counts error-correction rounds for elements run in sequence,
// each distance d and unitsInTime distance-agnostic units long.
func NumberOfRounds(elements float64, d int, unitsInTime float64) float64 {
	return elements * float64(d) * unitsInTime
}

// LogSpace returns num points 10^(start + i·(stop-start)/num). The stop
// exponent itself is excluded.
func LogSpace(start, stop float64, num int) []float64 {
	out := make([]float64, num)
	delta := (stop - start) / float64(num)
	for i := range out {
		out[i] = math.Pow(10, start+delta*float64(i))
	}
	return out
}

// LinSpace returns num points start + i·(stop-start)/num.
func LinSpace(start, stop float64, num int) []float64 {
	out := make([]float64, num)
	delta := (stop - start) / float64(num)
	for i := range out {
		out[i] = start + delta*float64(i)
	}
	return out
}

// LinSpaceAround returns an odd number of points centered on middle and
// spread over middle±spread. An even num is raised by one.
func LinSpaceAround(middle, spread float64, num int) []float64 {
	if num%2 == 0 {
		num++
	}
	out := make([]float64, num)
	mid := num / 2
	out[mid] = middle
	step := 2 * spread / float64(num)
	for i := 1; i <= mid; i++ {
		out[mid+i] = middle + float64(i)*step
		out[mid-i] = middle - float64(i)*step
	}
	return out
}
