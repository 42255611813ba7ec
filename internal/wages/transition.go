package wages

// CounterEffects describes the denormalized counter adjustments implied by one
// wage-report state change. A zero value means no counter moves.
type CounterEffects struct {
	OrganizationID *string
	LocationID     string
	Delta          int
}

// Empty reports whether the effects require no counter adjustment.
func (e CounterEffects) Empty() bool {
	return e.Delta == 0
}

// transition computes the counter effects of moving a report from one state to
// another. Pass nil for before on create and nil for after on permanent
// removal; soft deletion and restoration are visible through DeletedAt on the
// respective side. The function is pure: callers apply the returned effects
// inside whatever transaction persists the state change.
func transition(before, after *WageReport) CounterEffects {
	countedBefore := before.Counted()
	countedAfter := after.Counted()
	if countedBefore == countedAfter {
		return CounterEffects{}
	}

	reference := after
	if reference == nil {
		reference = before
	}

	delta := 1
	if countedBefore {
		delta = -1
	}
	return CounterEffects{
		OrganizationID: reference.OrganizationID,
		LocationID:     reference.LocationID,
		Delta:          delta,
	}
}
