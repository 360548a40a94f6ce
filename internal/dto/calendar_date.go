package dto

import (
	"bytes"
	"fmt"
	"time"

	"github.com/SscSPs/fleet_settlement_app/internal/core/domain"
)

// DateLayout is the wire format of every calendar date.
const DateLayout = "2006-01-02"

// CalendarDate is a date without time zone, encoded as YYYY-MM-DD.
type CalendarDate struct {
	time.Time
}

// NewCalendarDate truncates t to its calendar date.
func NewCalendarDate(t time.Time) CalendarDate {
	return CalendarDate{Time: domain.DateOf(t)}
}

// MustParseDate parses a YYYY-MM-DD string and panics on failure. Intended for tests and fixtures.
func MustParseDate(s string) CalendarDate {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return CalendarDate{Time: t}
}

func (d CalendarDate) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(DateLayout) + `"`), nil
}

func (d *CalendarDate) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		d.Time = time.Time{}
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("calendar date must be a YYYY-MM-DD string")
	}
	t, err := time.Parse(DateLayout, string(data[1:len(data)-1]))
	if err != nil {
		return fmt.Errorf("invalid calendar date %s: %w", string(data), err)
	}
	d.Time = t
	return nil
}

func (d CalendarDate) String() string {
	return d.Format(DateLayout)
}
