package entity

// AlarmSummary holds the registry's active-alarm aggregates.
type AlarmSummary struct {
	// TotalActive is the number of alarms not in NORMAL or OUT_OF_SERVICE.
	TotalActive int

	// Capacity is the configured maximum active-alarm count. Exceeding it is
	// reported, never enforced.
	Capacity int

	// CountsByPriority maps each priority to its active count.
	// All four priorities are always present.
	CountsByPriority map[Priority]int
}

// NewAlarmSummary creates a summary with zero counts for every priority.
func NewAlarmSummary(capacity int) AlarmSummary {
	counts := make(map[Priority]int, 4)
	for _, p := range AllPriorities() {
		counts[p] = 0
	}
	return AlarmSummary{
		Capacity:         capacity,
		CountsByPriority: counts,
	}
}

// Count returns the active count for a priority.
func (s AlarmSummary) Count(p Priority) int {
	return s.CountsByPriority[p]
}

// CriticalCount returns the count of active critical alarms.
func (s AlarmSummary) CriticalCount() int {
	return s.CountsByPriority[PriorityCritical]
}

// HighCount returns the count of active high-priority alarms.
func (s AlarmSummary) HighCount() int {
	return s.CountsByPriority[PriorityHigh]
}

// MediumCount returns the count of active medium-priority alarms.
func (s AlarmSummary) MediumCount() int {
	return s.CountsByPriority[PriorityMedium]
}

// LowCount returns the count of active low-priority alarms.
func (s AlarmSummary) LowCount() int {
	return s.CountsByPriority[PriorityLow]
}

// CapacityExceeded reports whether more alarms are active than the capacity allows.
func (s AlarmSummary) CapacityExceeded() bool {
	return s.TotalActive > s.Capacity
}

// Headroom returns how many more alarms can activate before capacity is exceeded.
// Negative when already over.
func (s AlarmSummary) Headroom() int {
	return s.Capacity - s.TotalActive
}

// Clone returns a copy with its own map.
func (s AlarmSummary) Clone() AlarmSummary {
	c := s
	c.CountsByPriority = make(map[Priority]int, len(s.CountsByPriority))
	for p, n := range s.CountsByPriority {
		c.CountsByPriority[p] = n
	}
	return c
}
