package services

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	isoDateLayout = "2006-01-02"
	secondsPerDay = 24 * 60 * 60
)

var ErrInvalidDate = errors.New("invalid date")

// ISODate is a calendar date that marshals as YYYY-MM-DD.
type ISODate struct {
	time.Time
}

func NewISODate(value time.Time) ISODate {
	return ISODate{Time: dateOnly(value)}
}

func (date ISODate) String() string {
	return date.Format(isoDateLayout)
}

func (date ISODate) MarshalJSON() ([]byte, error) {
	return []byte(`"` + date.String() + `"`), nil
}

func (date *ISODate) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	parsed, err := ParseISODate(raw, time.UTC)
	if err != nil {
		return err
	}
	date.Time = parsed
	return nil
}

// ParseISODate parses a strict YYYY-MM-DD calendar date at location.
func ParseISODate(raw string, location *time.Location) (time.Time, error) {
	if location == nil {
		location = time.UTC
	}
	parsed, err := time.ParseInLocation(isoDateLayout, raw, location)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	return parsed, nil
}

func FormatISODate(value time.Time) string {
	return value.Format(isoDateLayout)
}

func DateAtLocation(value time.Time, location *time.Location) time.Time {
	if location == nil {
		location = time.UTC
	}
	localized := value.In(location)
	year, month, day := localized.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, location)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// daysBetween counts calendar days from one date to another, ignoring clock
// time and DST shifts. The result is negative when to is before from.
func daysBetween(from time.Time, to time.Time) int {
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	start := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	end := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int((end.Unix() - start.Unix()) / secondsPerDay)
}
