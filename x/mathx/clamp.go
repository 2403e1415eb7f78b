package mathx

import "golang.org/x/exp/constraints"

// Clamp limits v to [lo, hi]. If lo > hi, the bounds are swapped.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if hi < lo {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Between reports lo <= v && v <= hi (order-insensitive).
func Between[T constraints.Ordered](v, lo, hi T) bool {
	if hi < lo {
		lo, hi = hi, lo
	}
	return v >= lo && v <= hi
}

// StepIndex returns (v-lo)/step and whether v lies on the step grid inside
// [lo, hi]. Used for register fields that encode a linear voltage/current.
func StepIndex[T constraints.Integer](v, lo, hi, step T) (T, bool) {
	if step <= 0 || !Between(v, lo, hi) || (v-lo)%step != 0 {
		return 0, false
	}
	return (v - lo) / step, true
}
