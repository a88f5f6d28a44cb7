package core

import "time"

// MonthKey is a date normalized to the first day of a calendar month in UTC.
// It is the partition key for bill instances, income records and summaries.
type MonthKey struct {
	time.Time
}

// MonthKeyOf normalizes an arbitrary instant to its month key.
func MonthKeyOf(t time.Time) MonthKey {
	return MonthKey{time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)}
}

// NewMonthKey builds a month key from a year and a 1-12 month number.
func NewMonthKey(year, month int) MonthKey {
	return MonthKey{time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)}
}

// Start returns the first instant of the month.
func (m MonthKey) Start() time.Time {
	return m.Time
}

// End returns the last day of the month at midnight UTC.
func (m MonthKey) End() time.Time {
	return m.AddDate(0, 1, -1)
}

// Next returns the key of the following month.
func (m MonthKey) Next() MonthKey {
	return MonthKey{m.AddDate(0, 1, 0)}
}

// Prev returns the key of the preceding month.
func (m MonthKey) Prev() MonthKey {
	return MonthKey{m.AddDate(0, -1, 0)}
}

// DaysInMonth returns the number of calendar days in the month.
func (m MonthKey) DaysInMonth() int {
	return m.End().Day()
}

// Contains reports whether t falls inside this calendar month.
func (m MonthKey) Contains(t time.Time) bool {
	return t.Year() == m.Year() && t.Month() == m.Month()
}

// DueDateFor clamps a template due day to the month, so a bill due on the
// 31st lands on Feb 28 (29 in leap years) rather than an invalid date.
func (m MonthKey) DueDateFor(dueDay int) time.Time {
	day := dueDay
	if last := m.DaysInMonth(); day > last {
		day = last
	}
	return time.Date(m.Year(), m.Month(), day, 0, 0, 0, 0, time.UTC)
}

// String renders the key as "2006-01".
func (m MonthKey) String() string {
	return m.Format("2006-01")
}
