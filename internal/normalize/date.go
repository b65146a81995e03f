package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// spreadsheet serial dates count days from 1899-12-30; the Unix epoch
// falls on serial day 25569.
const serialEpochOffset = 25569

// ParseError is the typed failure returned when a raw date matches no
// supported format. Callers report it per row instead of aborting a batch.
type ParseError struct {
	Raw string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unparseable date: %q", e.Raw)
}

var dateLayouts = []struct {
	layout       string
	twoDigitYear bool
}{
	{"2006-01-02", false},
	{time.RFC3339, false},
	{"02/01/2006", false},
	{"02-01-2006", false},
	{"02/01/06", true},
	{"02-01-06", true},
}

// Date parses a raw date cell into a UTC timestamp.
//
// Accepted forms: ISO (YYYY-MM-DD), European (DD/MM/YYYY, DD-MM-YYYY),
// their two-digit-year variants (years <50 resolve to the 2000s, <100 to
// the 1900s), and spreadsheet serial-date numbers validated to land
// between 1900 and 2100.
func Date(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, &ParseError{Raw: raw}
	}

	for _, candidate := range dateLayouts {
		t, err := time.Parse(candidate.layout, trimmed)
		if err != nil {
			continue
		}
		if candidate.twoDigitYear {
			t = resolveCentury(t)
		}
		return t.UTC(), nil
	}

	if serial, err := strconv.ParseFloat(trimmed, 64); err == nil {
		if t, ok := fromSerial(serial); ok {
			return t, nil
		}
	}

	return time.Time{}, &ParseError{Raw: raw}
}

// resolveCentury applies the import convention for two-digit years:
// <50 is the 2000s, everything else the 1900s. Go's parser has its own
// pivot, so the year is recomputed from its last two digits.
func resolveCentury(t time.Time) time.Time {
	year := t.Year() % 100
	if year < 50 {
		year += 2000
	} else {
		year += 1900
	}
	return time.Date(year, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func fromSerial(serial float64) (time.Time, bool) {
	unixSeconds := (serial - serialEpochOffset) * 86400
	t := time.Unix(int64(unixSeconds), 0).UTC()
	if t.Year() < 1900 || t.Year() > 2100 {
		return time.Time{}, false
	}
	return t, true
}
