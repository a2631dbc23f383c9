package billing

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// Period is a calendar month. Month is always 1-indexed; Month0 is the only 0-indexed view.
type Period struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

// NewPeriod builds a period from a 1-indexed month.
func NewPeriod(month, year int) (Period, error) {
	p := Period{Month: month, Year: year}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

// PeriodFromMonth0 builds a period from a 0-indexed month (0 = January).
func PeriodFromMonth0(month0, year int) (Period, error) {
	if month0 < 0 || month0 > 11 {
		return Period{}, NewValidationError("month0", month0, "must be between 0 and 11", ErrInvalidMonth)
	}
	return NewPeriod(month0+1, year)
}

// PeriodOf returns the calendar month containing d.
func PeriodOf(d civil.Date) Period {
	return Period{Month: int(d.Month), Year: d.Year}
}

// Validate checks the month and year ranges.
func (p Period) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return NewValidationError("month", p.Month, "must be between 1 and 12", ErrInvalidMonth)
	}
	if p.Year < MinYear || p.Year > MaxYear {
		return NewValidationError("year", p.Year, fmt.Sprintf("must be between %d and %d", MinYear, MaxYear), ErrInvalidYear)
	}
	return nil
}

// Month1 returns the 1-indexed month.
func (p Period) Month1() int { return p.Month }

// Month0 returns the 0-indexed month.
func (p Period) Month0() int { return p.Month - 1 }

// Add moves the period by n months.
func (p Period) Add(n int) Period {
	t := time.Date(p.Year, time.Month(p.Month)+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	return Period{Month: int(t.Month()), Year: t.Year()}
}

// Next returns the following month, rolling 12 into January of the next year.
func (p Period) Next() Period {
	if p.Month == 12 {
		return Period{Month: 1, Year: p.Year + 1}
	}
	return Period{Month: p.Month + 1, Year: p.Year}
}

// Before reports whether p is earlier than o.
func (p Period) Before(o Period) bool {
	if p.Year != o.Year {
		return p.Year < o.Year
	}
	return p.Month < o.Month
}

// String formats the period as YYYY-MM.
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// FirstDay returns the first day of the month.
func (p Period) FirstDay() civil.Date {
	return civil.Date{Year: p.Year, Month: time.Month(p.Month), Day: 1}
}

// LastDay returns the last day of the month.
func (p Period) LastDay() civil.Date {
	return civil.Date{Year: p.Year, Month: time.Month(p.Month), Day: p.Days()}
}

// Days returns the number of days in the month.
func (p Period) Days() int {
	return time.Date(p.Year, time.Month(p.Month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Contains reports whether d falls in the month.
func (p Period) Contains(d civil.Date) bool {
	return d.Year == p.Year && int(d.Month) == p.Month
}

// Day resolves a day-of-month against the period. Days past the end of a short month
// overflow into the next one, so day 31 of February 2025 is March 3.
func (p Period) Day(day int) civil.Date {
	return civil.DateOf(time.Date(p.Year, time.Month(p.Month), day, 0, 0, 0, 0, time.UTC))
}

// AssignBillingPeriod returns the billing period whose invoice a purchase made on date appears on.
// A purchase after the closing day rolls into the next month. Only the numeric day is compared,
// so a closing day of 29-31 never rolls in months shorter than that.
func AssignBillingPeriod(date civil.Date, closingDay int) (Period, error) {
	if err := ValidateDay("closing_day", closingDay); err != nil {
		return Period{}, err
	}
	if err := ValidateDate("date", date); err != nil {
		return Period{}, err
	}

	p := PeriodOf(date)
	if date.Day > closingDay {
		p = p.Next()
	}
	return p, nil
}

// addMonths moves d by n months keeping the day, clamped to the target month's length.
func addMonths(d civil.Date, n int) civil.Date {
	p := PeriodOf(d).Add(n)
	day := d.Day
	if last := p.Days(); day > last {
		day = last
	}
	return civil.Date{Year: p.Year, Month: time.Month(p.Month), Day: day}
}
