package analysis

import (
	"math/big"

	"github.com/ironsheep/cbf-tools-mcp/internal/cbf"
)

// Average accumulates the mean of a series of samples without overflowing P.
//
// Integer samples are summed and counted in arbitrary precision and the mean
// is the truncated quotient narrowed back into P. Float samples are summed in
// their own width. The zero value is ready to use.
type Average[P cbf.Number] struct {
	sum   big.Int
	count big.Int

	fsum   P
	fcount P
}

// Add includes v in the mean.
func (a *Average[P]) Add(v P) {
	switch kind := cbf.KindOf[P](); {
	case kind.IsFloat():
		a.fsum += v
		a.fcount++
		return
	case isUnsigned(kind):
		var x big.Int
		a.sum.Add(&a.sum, x.SetUint64(uint64(v)))
	default:
		var x big.Int
		a.sum.Add(&a.sum, x.SetInt64(int64(v)))
	}
	a.count.Add(&a.count, big.NewInt(1))
}

// Count reports how many samples were added.
func (a *Average[P]) Count() uint64 {
	if cbf.KindOf[P]().IsFloat() {
		return uint64(a.fcount)
	}
	return a.count.Uint64()
}

// Mean returns the mean of the samples added so far, or the zero value when
// none were. It does not change the accumulator.
func (a *Average[P]) Mean() P {
	kind := cbf.KindOf[P]()
	if kind.IsFloat() {
		if a.fcount == 0 {
			return 0
		}
		return a.fsum / a.fcount
	}
	if a.count.Sign() == 0 {
		return 0
	}

	var q big.Int
	q.Quo(&a.sum, &a.count)
	if isUnsigned(kind) {
		return P(q.Uint64())
	}
	return P(q.Int64())
}

func isUnsigned(k cbf.Kind) bool {
	switch k {
	case cbf.KindU8, cbf.KindU16, cbf.KindU32, cbf.KindU64:
		return true
	}
	return false
}
