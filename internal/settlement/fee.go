package settlement

import (
	"math"
	"math/bits"
)

// ComputeFee returns the protocol fee owed on the no-auction path: the
// flat base fee plus the fee that would otherwise have funded auction
// initiation. Saturates instead of overflowing.
func ComputeFee(baseFee, initAuctionFee uint64) uint64 {
	return saturatingAdd(baseFee, initAuctionFee)
}

func saturatingAdd(a, b uint64) uint64 {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return math.MaxUint64
	}
	return sum
}

func saturatingSub(a, b uint64) uint64 {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0
	}
	return diff
}
