package ritornello

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// A phase coordinate is a real number whose integer part counts period
// instances since the Unix epoch and whose fractional part is the
// position inside the current instance, in [0, 1). Groupings of n
// periods fold the count modulo n into the fraction.

// phaseCacheSize bounds the per-timestamp memo. Distinct timestamps far
// beyond this just recompute; the math is pure.
const phaseCacheSize = 65536

// daysOfWeek is Monday-first, matching the week phase math.
var daysOfWeek = [...]string{
	"Monday",
	"Tuesday",
	"Wednesday",
	"Thursday",
	"Friday",
	"Saturday",
	"Sunday",
}

// Phases holds every period coordinate of a single UTC timestamp,
// plus the counting decomposition used by the auxiliary indices.
type Phases struct {
	Day        float64
	Week       float64
	TwoWeek    float64
	Month      float64
	TwoMonth   float64
	ThreeMonth float64
	SixMonth   float64
	Year       float64
	TwoYear    float64

	Hour     int    // hour of day
	NthSeven int    // nth 7-day stretch of the month, starts at 1
	FullWeek int    // nth full week of the month, can be 0
	Weekday  string // Monday-first weekday name
}

var phaseCache *lru.Cache[int64, Phases]

func init() {
	// lru.New only fails on a non-positive size
	phaseCache, _ = lru.New[int64, Phases](phaseCacheSize)
}

// PhasesOf computes all period coordinates for one timestamp.
// Results are memoized by UnixNano; the cache is bounded and has no
// semantic effect.
func PhasesOf(t time.Time) Phases {
	key := t.UnixNano()
	if p, ok := phaseCache.Get(key); ok {
		return p
	}
	p := computePhases(t.UTC())
	phaseCache.Add(key, p)
	return p
}

func computePhases(t time.Time) Phases {
	// day count since epoch, floor division so pre-1970 stays monotonic
	secs := t.Unix()
	dayIdx := floorDiv(secs, 86400)
	dayFrac := (float64(secs-dayIdx*86400) + float64(t.Nanosecond())/1e9) / 86400

	// week and fortnight share the day count,
	// shifted so the first Monday after epoch (1970-01-05) starts week 1
	wd := (int(t.Weekday()) + 6) % 7
	weekIdx := floorDiv(dayIdx+3, 7)
	weekFrac := (float64(wd) + dayFrac) / 7
	twoWeekIdx := floorDiv(dayIdx+3, 14)
	twoWeekFrac := (float64(floorMod(dayIdx+3, 14)) + dayFrac) / 14

	// month position uses the true calendar month length
	monthIdx := int64(t.Year()-1970)*12 + int64(t.Month()) - 1
	monthStart := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)
	monthFrac := t.Sub(monthStart).Seconds() / monthEnd.Sub(monthStart).Seconds()

	// year position uses the true calendar year length
	yearIdx := int64(t.Year() - 1970)
	yearStart := time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	yearEnd := yearStart.AddDate(1, 0, 0)
	yearFrac := t.Sub(yearStart).Seconds() / yearEnd.Sub(yearStart).Seconds()

	return Phases{
		Day:        float64(dayIdx) + dayFrac,
		Week:       float64(weekIdx) + weekFrac,
		TwoWeek:    float64(twoWeekIdx) + twoWeekFrac,
		Month:      float64(monthIdx) + monthFrac,
		TwoMonth:   foldPhase(monthIdx, monthFrac, 2),
		ThreeMonth: foldPhase(monthIdx, monthFrac, 3),
		SixMonth:   foldPhase(monthIdx, monthFrac, 6),
		Year:       float64(yearIdx) + yearFrac,
		TwoYear:    foldPhase(yearIdx, yearFrac, 2),

		Hour:     t.Hour(),
		NthSeven: ((t.Day() + 1) / 7) + 1,
		FullWeek: (t.Day() + 6 - wd) / 7,
		Weekday:  daysOfWeek[wd],
	}
}

// foldPhase regroups a per-period coordinate into an n-period one:
// the count folds modulo n into the fraction, the index divides by n.
func foldPhase(idx int64, frac float64, n int64) float64 {
	return float64(floorDiv(idx, n)) + (float64(floorMod(idx, n))+frac)/float64(n)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func floorMod(a, b int64) int64 {
	return a - floorDiv(a, b)*b
}
