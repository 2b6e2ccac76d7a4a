// Package checked provides overflow-checked integer arithmetic.
//
// Monetary sums and counters in this system must fail hard on overflow,
// never wrap. Callers run every checked operation before committing any
// state so an overflow aborts the whole operation.
package checked

import (
	"errors"
	"math"
)

// ErrOverflow is returned when a checked operation would exceed the range of
// its type.
var ErrOverflow = errors.New("integer overflow")

// AddU64 returns a+b or ErrOverflow.
func AddU64(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, ErrOverflow
	}
	return a + b, nil
}

// AddI64 returns a+b or ErrOverflow. Both operands may be negative.
func AddI64(a, b int64) (int64, error) {
	if b > 0 && a > math.MaxInt64-b {
		return 0, ErrOverflow
	}
	if b < 0 && a < math.MinInt64-b {
		return 0, ErrOverflow
	}
	return a + b, nil
}
