package timeentry

import (
	"errors"
	"time"
)

const (
	TypeWork     = "work"
	TypeVacation = "vacation"
	TypeSick     = "sick"
)

var (
	ErrAlreadyRunning = errors.New("an open time entry already exists")
	ErrNoOpenEntry    = errors.New("no open time entry")
	ErrEndBeforeStart = errors.New("end must be after start")
)

// ManualTimeLayout is the wire format of manual entry timestamps
// (HTML datetime-local inputs).
const ManualTimeLayout = "2006-01-02T15:04"

type Entry struct {
	ID           string     `json:"id"`
	UserID       string     `json:"userId"`
	StartTime    time.Time  `json:"startTime"`
	EndTime      *time.Time `json:"endTime"` // nil while the entry is running
	BreakMinutes int        `json:"breakMinutes"`
	EntryType    string     `json:"entryType"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// Open reports whether the entry is still running.
func (e Entry) Open() bool {
	return e.EndTime == nil
}

func ValidType(entryType string) bool {
	switch entryType {
	case TypeWork, TypeVacation, TypeSick:
		return true
	}
	return false
}

// LeaveType entries never accrue break deductions.
func LeaveType(entryType string) bool {
	return entryType == TypeVacation || entryType == TypeSick
}

// ExportRecord is one spreadsheet line: an entry joined to its owner.
// Owner fields fall back to placeholders when the user row is gone.
type ExportRecord struct {
	EmployeeName string
	Email        string
	EntryType    string
	Start        time.Time
	End          *time.Time
	BreakMinutes int
}
