package engine

// HigherPriority reports whether order a outranks order b among resting orders
// on the given side. Ranking is price first (highest for bids, lowest for
// asks), then visible before hidden at the same price, then earlier arrival.
// Both orders must belong to the same side; comparing across sides is
// meaningless and never done.
func HigherPriority(a, b *Order, side Side) bool {
	if a.Price != b.Price {
		if side == SideBuy {
			return a.Price > b.Price
		}
		return a.Price < b.Price
	}
	if a.Visible != b.Visible {
		return a.Visible
	}
	return a.sequence < b.sequence
}
