package reactive

import (
	"math"
	"strconv"

	bferrors "github.com/vnykmshr/backflow/pkg/common/errors"
)

// Demand is the number of values a subscriber is willing to receive: either a
// finite, non-negative count or Unlimited. The zero value is None.
type Demand struct {
	n         int64
	unlimited bool
}

var (
	// None is a demand of zero values.
	None = Demand{}

	// Unlimited is a demand with no upper bound. It absorbs any addition and
	// is greater than every finite demand.
	Unlimited = Demand{unlimited: true}
)

// Max returns a finite demand of n values. A negative n is a contract
// violation and panics.
func Max(n int64) Demand {
	if n < 0 {
		panic(bferrors.NewContractError("reactive", "Max", "demand must not be negative: "+strconv.FormatInt(n, 10)))
	}
	return Demand{n: n}
}

// IsUnlimited reports whether d is Unlimited.
func (d Demand) IsUnlimited() bool {
	return d.unlimited
}

// IsZero reports whether d is None.
func (d Demand) IsZero() bool {
	return !d.unlimited && d.n == 0
}

// Count returns the finite count of d. ok is false when d is Unlimited.
func (d Demand) Count() (n int64, ok bool) {
	if d.unlimited {
		return 0, false
	}
	return d.n, true
}

// Add returns d + o. Finite sums saturate at math.MaxInt64.
func (d Demand) Add(o Demand) Demand {
	if d.unlimited || o.unlimited {
		return Unlimited
	}
	if d.n > math.MaxInt64-o.n {
		return Demand{n: math.MaxInt64}
	}
	return Demand{n: d.n + o.n}
}

// Sub returns how far d exceeds o, never less than None. Unlimited minus a
// finite demand stays Unlimited; anything minus Unlimited is None.
func (d Demand) Sub(o Demand) Demand {
	switch {
	case o.unlimited:
		return None
	case d.unlimited:
		return Unlimited
	case d.n <= o.n:
		return None
	default:
		return Demand{n: d.n - o.n}
	}
}

// Less reports whether d < o.
func (d Demand) Less(o Demand) bool {
	switch {
	case d.unlimited:
		return false
	case o.unlimited:
		return true
	default:
		return d.n < o.n
	}
}

// Min returns the smaller of d and o.
func (d Demand) Min(o Demand) Demand {
	if o.Less(d) {
		return o
	}
	return d
}

func (d Demand) String() string {
	if d.unlimited {
		return "unlimited"
	}
	return "max(" + strconv.FormatInt(d.n, 10) + ")"
}
