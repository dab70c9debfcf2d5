// Package calendar implements business-date arithmetic for the exchange feed.
// Business dates are represented as time.Time values at midnight UTC.
package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ISODate is the layout used for business dates in paths, logs and reports.
const ISODate = "2006-01-02"

var ErrInvalidDate = errors.New("invalid business date")

// inputLayouts are accepted by Parse, in order.
var inputLayouts = []string{"02/01/2006", ISODate, "02 Jan 2006", "2 Jan 2006"}

// Calendar knows which days are trading days: weekdays that are not configured holidays.
type Calendar struct {
	loc      *time.Location
	holidays map[time.Time]struct{}
}

// New builds a Calendar. loc is the exchange timezone used to derive "today"; nil means UTC.
func New(loc *time.Location, holidays []time.Time) Calendar {
	if loc == nil {
		loc = time.UTC
	}
	h := make(map[time.Time]struct{}, len(holidays))
	for _, d := range holidays {
		h[Date(d)] = struct{}{}
	}
	return Calendar{loc: loc, holidays: h}
}

// Location returns the exchange timezone.
func (c Calendar) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// Date truncates t to its calendar date (in t's own location) at midnight UTC.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Format renders a business date as YYYY-MM-DD.
func Format(d time.Time) string {
	return d.Format(ISODate)
}

// Parse accepts DD/MM/YYYY, YYYY-MM-DD and "DD Mon YYYY".
func Parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidDate)
	}
	for _, layout := range inputLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// IsBusinessDay reports whether d is a weekday and not a holiday.
func (c Calendar) IsBusinessDay(d time.Time) bool {
	d = Date(d)
	switch d.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	_, holiday := c.holidays[d]
	return !holiday
}

// Previous returns the business day strictly before d.
func (c Calendar) Previous(d time.Time) time.Time {
	return c.AddBusinessDays(d, -1)
}

// Next returns the business day strictly after d.
func (c Calendar) Next(d time.Time) time.Time {
	return c.AddBusinessDays(d, 1)
}

// AddBusinessDays moves n business days from d. n == 0 returns d unchanged even if it is not a business day.
func (c Calendar) AddBusinessDays(d time.Time, n int) time.Time {
	d = Date(d)
	step := 1
	if n < 0 {
		step, n = -1, -n
	}
	for n > 0 {
		d = d.AddDate(0, 0, step)
		if c.IsBusinessDay(d) {
			n--
		}
	}
	return d
}

// Current returns the business date a run started at now should target:
// today in the exchange timezone, rolled back to a business day, then moved back lag business days.
func (c Calendar) Current(now time.Time, lag int) time.Time {
	d := Date(now.In(c.Location()))
	for !c.IsBusinessDay(d) {
		d = d.AddDate(0, 0, -1)
	}
	if lag > 0 {
		d = c.AddBusinessDays(d, -lag)
	}
	return d
}
