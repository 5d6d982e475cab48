package rollup

import "github.com/viyadb/viyadb/pkg/verr"

// Duration is a count of a Unit, e.g. "1 day".
type Duration struct {
	Count int
	Unit  Unit
}

// approxSeconds converts the Duration to an approximate second count used
// only to evaluate a rule's age threshold ("after"), never to truncate —
// truncation always uses calendar-correct semantics (see Truncate). Month
// and Year use fixed 30/365-day approximations since age thresholds are
// inherently approximate, unlike bucket truncation.
func (d Duration) approxSeconds() int64 {
	var unitSeconds int64
	switch d.Unit {
	case Second:
		unitSeconds = 1
	case Minute:
		unitSeconds = 60
	case Hour:
		unitSeconds = 3600
	case Day:
		unitSeconds = 86400
	case Month:
		unitSeconds = 30 * 86400
	case Year:
		unitSeconds = 365 * 86400
	}
	return int64(d.Count) * unitSeconds
}

// Micros returns the approximate duration in microseconds.
func (d Duration) Micros() int64 { return d.approxSeconds() * 1_000_000 }

// Rule pairs an age threshold with the granularity applied once a
// timestamp is older than that threshold.
type Rule struct {
	After       Duration
	Granularity Unit
}

// Rules is a list of Rule, always evaluated coarsest-threshold-first.
type Rules []Rule

// Sorted returns a copy of r ordered by descending After threshold (the
// coarsest rule, e.g. "month after 1 year", first).
func (r Rules) Sorted() Rules {
	out := make(Rules, len(r))
	copy(out, r)
	for i := 1; i < len(out); i++ {
		j := i
		for j > 0 && out[j-1].After.Micros() < out[j].After.Micros() {
			out[j-1], out[j] = out[j], out[j-1]
			j--
		}
	}
	return out
}

// Apply truncates raw (unix-microseconds) per the rule in r whose After
// threshold is the largest one raw is older than now, i.e. the coarsest
// satisfied rule. If no rule's threshold is exceeded, raw
// is returned unchanged. r need not be pre-sorted; Apply sorts internally.
func Apply(r Rules, raw, now int64) int64 {
	for _, rule := range r.Sorted() {
		if raw < now-rule.After.Micros() {
			return Truncate(rule.Granularity, raw)
		}
	}
	return raw
}

// ParseDuration builds a Duration from a count and unit string.
func ParseDuration(count int, unit string) (Duration, error) {
	if count <= 0 {
		return Duration{}, verr.Configf("rollup rule count must be positive, got %d", count)
	}
	u, err := ParseUnit(unit)
	if err != nil {
		return Duration{}, err
	}
	return Duration{Count: count, Unit: u}, nil
}
