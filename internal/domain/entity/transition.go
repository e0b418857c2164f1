package entity

// TransitionOutcome describes what a single alarm operation did.
type TransitionOutcome struct {
	// Previous is the state before the operation.
	Previous State

	// Current is the state after the operation.
	Current State

	// Activation is true only for the NORMAL -> UNACKNOWLEDGED edge.
	Activation bool

	// Changed is true when the operation modified the record
	// (its state or one of the enabled/suppressed/shelved flags).
	Changed bool
}

// StateChanged reports whether the lifecycle state moved.
func (o TransitionOutcome) StateChanged() bool {
	return o.Previous != o.Current
}

// Returned reports whether the operation cleared an active alarm that still
// awaits acknowledgement.
func (o TransitionOutcome) Returned() bool {
	return o.Current == StateReturnedUnacknowledged && o.Previous != StateReturnedUnacknowledged
}
