package timeentry

import "time"

// ComputeBreakMinutes derives the statutory break deduction from elapsed
// working time: 45 minutes beyond nine hours, 30 beyond six, otherwise
// nothing. A step function with exact thresholds; the boundaries themselves
// fall into the lower tier.
func ComputeBreakMinutes(start, end time.Time) int {
	hours := end.Sub(start).Hours()

	if hours > 9 {
		return 45
	}
	if hours > 6 {
		return 30
	}
	return 0
}

// BreakFor applies the break policy for a completed entry. Leave entries
// (vacation, sick) are always recorded with zero break minutes.
func BreakFor(entryType string, start, end time.Time) int {
	if LeaveType(entryType) {
		return 0
	}
	return ComputeBreakMinutes(start, end)
}
