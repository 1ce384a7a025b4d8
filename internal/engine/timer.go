package engine

import "context"

// Timer fires every Every bars, before broker matching when Cheat is set
// (mirroring cheat-on-open order submission) or after otherwise.
type Timer struct {
	Name  string
	Every int
	Cheat bool
	Fn    func(ctx context.Context, t float64)
}

func (tm Timer) due(step int) bool {
	if tm.Every <= 0 {
		return false
	}
	return step%tm.Every == 0
}
