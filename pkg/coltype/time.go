package coltype

import (
	"strconv"
	"strings"
	"time"

	"github.com/viyadb/viyadb/pkg/verr"
)

// TimePrecision selects the stored width for a time dimension.
type TimePrecision int

const (
	// Seconds stores a 4-byte seconds-since-epoch value.
	Seconds TimePrecision = iota
	// Micros stores an 8-byte microseconds-since-epoch value.
	Micros
)

func (p TimePrecision) Width() int {
	if p == Micros {
		return 8
	}
	return 4
}

// TimeFormat describes how raw input is parsed into epoch time.
type TimeFormat struct {
	Kind    TimeFormatKind
	Pattern string // for Kind == Strftime, a Go reference-time layout translated from the strftime pattern
}

type TimeFormatKind int

const (
	Posix TimeFormatKind = iota
	Millis
	MicrosFormat
	Integer
	Strftime
)

// ParseTimeFormat parses a schema "format" field.
func ParseTimeFormat(s string) (TimeFormat, error) {
	switch s {
	case "", "posix":
		return TimeFormat{Kind: Posix}, nil
	case "millis":
		return TimeFormat{Kind: Millis}, nil
	case "micros":
		return TimeFormat{Kind: MicrosFormat}, nil
	case "integer":
		return TimeFormat{Kind: Integer}, nil
	default:
		layout, err := strftimeToGoLayout(s)
		if err != nil {
			return TimeFormat{}, err
		}
		return TimeFormat{Kind: Strftime, Pattern: layout}, nil
	}
}

// Parse parses a raw field into microseconds since the epoch, regardless
// of the dimension's storage precision; truncation to the declared
// precision happens at the call site.
func (f TimeFormat) Parse(s string) (int64, error) {
	switch f.Kind {
	case Posix:
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, verr.Parsef("invalid posix time %q", s)
		}
		return v * 1_000_000, nil
	case Millis:
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, verr.Parsef("invalid millis time %q", s)
		}
		return v * 1_000, nil
	case MicrosFormat:
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, verr.Parsef("invalid micros time %q", s)
		}
		return v, nil
	case Integer:
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, verr.Parsef("invalid integer time %q", s)
		}
		return v, nil
	case Strftime:
		t, err := time.Parse(f.Pattern, s)
		if err != nil {
			return 0, verr.Parsef("invalid time %q for pattern: %v", s, err)
		}
		return t.UnixMicro(), nil
	default:
		return 0, verr.Internalf("unknown time format kind %d", f.Kind)
	}
}

// strftimeToGoLayout translates the small subset of strftime directives
// used by table schemas into the Go reference-time layout.
func strftimeToGoLayout(pattern string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		if c != '%' || i+1 >= len(pattern) {
			b.WriteByte(c)
			continue
		}
		i++
		switch pattern[i] {
		case 'Y':
			b.WriteString("2006")
		case 'm':
			b.WriteString("01")
		case 'd':
			b.WriteString("02")
		case 'H':
			b.WriteString("15")
		case 'M':
			b.WriteString("04")
		case 'S':
			b.WriteString("05")
		case 'z':
			b.WriteString("-0700")
		case 'T':
			b.WriteString("15:04:05")
		case '%':
			b.WriteByte('%')
		default:
			return "", verr.Configf("unsupported strftime directive %%%c", pattern[i])
		}
	}
	return b.String(), nil
}

// FormatStrftime renders a unix-microseconds timestamp in UTC per layout,
// a Go layout translated from a strftime pattern. It does not handle the
// numeric formats (posix, millis, micros, integer); callers render those
// themselves.
func FormatStrftime(layout string, micros int64) string {
	t := time.UnixMicro(micros).UTC()
	return t.Format(layout)
}
