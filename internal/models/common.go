package models

// Pagination describes page metadata returned alongside list payloads.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// Period identifies the slice of the day a room is staffed for.
type Period string

const (
	PeriodMorning   Period = "MORNING"
	PeriodAfternoon Period = "AFTERNOON"
	PeriodFullDay   Period = "FULL_DAY"
)

// Overlaps reports whether two periods occupy overlapping time on the same day.
func (p Period) Overlaps(other Period) bool {
	if p == other {
		return true
	}
	return p == PeriodFullDay || other == PeriodFullDay
}

// WeekParity selects which weeks of a biweekly rotation a template slot covers.
type WeekParity string

const (
	WeekParityAll  WeekParity = "ALL"
	WeekParityEven WeekParity = "EVEN"
	WeekParityOdd  WeekParity = "ODD"
)

// Matches reports whether the parity covers the given ISO week number.
func (w WeekParity) Matches(isoWeek int) bool {
	switch w {
	case WeekParityAll:
		return true
	case WeekParityEven:
		return isoWeek%2 == 0
	case WeekParityOdd:
		return isoWeek%2 == 1
	default:
		return false
	}
}
