// Package rollup implements time truncation used both at ingest time
// (age-based roll-up rules) and query time (requested bucketing).
package rollup

import (
	"time"

	"github.com/viyadb/viyadb/pkg/verr"
)

// Unit is a truncation granularity.
type Unit int

const (
	Second Unit = iota
	Minute
	Hour
	Day
	Month
	Year
)

// ParseUnit maps a schema string to a Unit.
func ParseUnit(s string) (Unit, error) {
	switch s {
	case "second", "s":
		return Second, nil
	case "minute", "m":
		return Minute, nil
	case "hour", "h":
		return Hour, nil
	case "day", "d":
		return Day, nil
	case "month":
		return Month, nil
	case "year":
		return Year, nil
	default:
		return 0, verr.Configf("unsupported granularity %q", s)
	}
}

// Truncate deterministically truncates a unix-microseconds timestamp to
// the start of its containing Unit bucket, in UTC, and returns
// unix-microseconds.
func Truncate(u Unit, micros int64) int64 {
	t := time.UnixMicro(micros).UTC()
	var trunc time.Time
	switch u {
	case Second:
		trunc = t.Truncate(time.Second)
	case Minute:
		trunc = t.Truncate(time.Minute)
	case Hour:
		trunc = t.Truncate(time.Hour)
	case Day:
		trunc = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	case Month:
		trunc = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	case Year:
		trunc = time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	default:
		trunc = t
	}
	return trunc.UnixMicro()
}

func (u Unit) String() string {
	switch u {
	case Second:
		return "second"
	case Minute:
		return "minute"
	case Hour:
		return "hour"
	case Day:
		return "day"
	case Month:
		return "month"
	case Year:
		return "year"
	default:
		return "unknown"
	}
}
