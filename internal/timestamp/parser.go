package timestamp

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// sheetsEpoch is day zero of spreadsheet serial dates.
var sheetsEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// Serial date range accepted from numeric cells: 1970-01-01 .. 9999-12-31.
const (
	minSerialDay = 25569
	maxSerialDay = 2958465

	// Numeric cells from here up are epoch values (2001-09-09 in seconds),
	// far above any serial day.
	minUnixSeconds = 1e9
)

// Layouts with an explicit zone or offset.
var zonedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	time.RFC1123Z,
	time.RFC1123,
}

// Naive layouts are interpreted as UTC.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
}

// Parser converts spreadsheet cells into UTC timestamps.
type Parser struct {
	zoned []string
	naive []string
}

// NewParser returns a parser that knows the ISO-8601 family, the formats
// Google Sheets renders dates in, and spreadsheet serial day numbers.
func NewParser() *Parser {
	return &Parser{
		zoned: zonedLayouts,
		naive: naiveLayouts,
	}
}

// ParseCell parses one string cell. Numeric cells are serial dates or, when
// large enough, unix epoch values. Empty or unrecognized input is reported
// as not found rather than as an error.
func (p *Parser) ParseCell(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	// Some locales render fractional seconds with a comma.
	if i := strings.LastIndexByte(s, ','); i > 0 && i+1 < len(s) && isDigits(s[i+1:]) {
		s = s[:i] + "." + s[i+1:]
	}

	for _, layout := range p.zoned {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), true
		}
	}
	for _, layout := range p.naive {
		if ts, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return ts, true
		}
	}

	if v, err := strconv.ParseFloat(s, 64); err == nil {
		if v >= minUnixSeconds {
			return parseUnixTimestamp(v)
		}
		return FromSerial(v)
	}
	return time.Time{}, false
}

// FromSerial converts a spreadsheet serial date (days since 1899-12-30,
// fractional part is the time of day).
func FromSerial(days float64) (time.Time, bool) {
	if math.IsNaN(days) || days < minSerialDay || days > maxSerialDay {
		return time.Time{}, false
	}
	whole := math.Floor(days)
	frac := days - whole
	ts := sheetsEpoch.AddDate(0, 0, int(whole))
	ts = ts.Add(time.Duration(math.Round(frac*86400)) * time.Second)
	return ts, true
}

// parseUnixTimestamp picks seconds, millis, micros or nanos from the
// magnitude of v.
func parseUnixTimestamp(v float64) (time.Time, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return time.Time{}, false
	}
	switch {
	case v < 1e11:
		sec, frac := math.Modf(v)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC(), true
	case v < 1e14:
		return time.UnixMilli(int64(v)).UTC(), true
	case v < 1e17:
		return time.UnixMicro(int64(v)).UTC(), true
	default:
		return time.Unix(0, int64(v)).UTC(), true
	}
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
