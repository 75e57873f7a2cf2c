package domain

// The ledger functions take a group by value and return the updated copy.
// original == available + reserved + completed holds before and after each call.

// NewLedger returns a group whose whole original quantity is available.
func NewLedger(g ListingGroup, original int) (ListingGroup, error) {
	if original <= 0 {
		return g, Validation("Quantity must be positive")
	}
	g.OriginalQuantity = original
	g.TotalAvailable = original
	g.TotalReserved = 0
	g.TotalCompleted = 0
	return RecomputeConsumedFlag(g), nil
}

// Reserve moves amount from available to reserved.
func Reserve(g ListingGroup, amount int) (ListingGroup, error) {
	if amount <= 0 {
		return g, Validation("Quantity must be positive")
	}
	if amount > g.TotalAvailable {
		return g, ErrInsufficientAvailability
	}
	g.TotalAvailable -= amount
	g.TotalReserved += amount
	return RecomputeConsumedFlag(g), nil
}

// Release returns a reservation to available.
func Release(g ListingGroup, amount int) (ListingGroup, error) {
	if amount <= 0 {
		return g, Validation("Quantity must be positive")
	}
	if amount > g.TotalReserved {
		return g, ErrInvalidReleaseAmount
	}
	g.TotalReserved -= amount
	g.TotalAvailable += amount
	return RecomputeConsumedFlag(g), nil
}

// Complete converts a reservation into completed quantity.
func Complete(g ListingGroup, amount int) (ListingGroup, error) {
	if amount <= 0 {
		return g, Validation("Quantity must be positive")
	}
	if amount > g.TotalReserved {
		return g, ErrInvalidReleaseAmount
	}
	g.TotalReserved -= amount
	g.TotalCompleted += amount
	return RecomputeConsumedFlag(g), nil
}

func RecomputeConsumedFlag(g ListingGroup) ListingGroup {
	g.IsFullyConsumed = g.TotalAvailable == 0 && g.TotalReserved == 0
	return g
}

// Balanced reports whether the conservation invariant holds.
func (g ListingGroup) Balanced() bool {
	return g.OriginalQuantity == g.TotalAvailable+g.TotalReserved+g.TotalCompleted &&
		g.TotalAvailable >= 0 && g.TotalReserved >= 0 && g.TotalCompleted >= 0
}
