package constraints

import (
	"github.com/energymodels/capacityplanner/pkg/core"
)

// Transmission makes both ends of a link share one capacity. Each link direction pair
// is emitted once, from the lexically smaller end.
func (b *Builder) Transmission() error {
	s := b.sets
	return b.emit(FamTransmissionCapacity, pairIndices(s.PairsIn(s.Transmission)), b.transmissionCapacityRule)
}

func (b *Builder) transmissionCapacityRule(idx core.Index) (core.Constraint, bool, error) {
	p := pairOf(idx)
	remote, ok := b.sets.Remote(p)
	if !ok || !b.sets.Valid(remote) || remote.String() < p.String() {
		return core.Constraint{}, false, nil
	}
	return core.Eq(
		core.Expr(core.T(b.v(VarCap, p.Tech, p.Location), 1)),
		core.Expr(core.T(b.v(VarCap, remote.Tech, remote.Location), 1)),
	), true, nil
}
