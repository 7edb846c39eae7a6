package ritornello_test

import (
	"math"
	"testing"
	"time"

	Mr "github.com/maroda/ritornello/rhythm"
)

func TestPhasesOfDay(t *testing.T) {
	t.Run("Epoch is day zero", func(t *testing.T) {
		ph := Mr.PhasesOf(time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC))
		assertFloatNear(t, ph.Day, 0, 1e-12)
		assertString(t, ph.Weekday, "Thursday")
	})

	t.Run("Noon is halfway through the day", func(t *testing.T) {
		ph := Mr.PhasesOf(time.Date(1970, 1, 1, 12, 0, 0, 0, time.UTC))
		assertFloatNear(t, ph.Day, 0.5, 1e-9)
	})

	t.Run("The day after epoch is day one", func(t *testing.T) {
		ph := Mr.PhasesOf(time.Date(1970, 1, 2, 0, 0, 0, 0, time.UTC))
		assertFloatNear(t, ph.Day, 1, 1e-12)
	})

	t.Run("Caller zones normalize away", func(t *testing.T) {
		east := time.FixedZone("UTC+8", 8*3600)
		inEast := Mr.PhasesOf(time.Date(1970, 1, 2, 8, 0, 0, 0, east))
		inUTC := Mr.PhasesOf(time.Date(1970, 1, 2, 0, 0, 0, 0, time.UTC))
		assertFloatNear(t, inEast.Day, inUTC.Day, 1e-12)
	})
}

func TestPhasesOfWeek(t *testing.T) {
	t.Run("First Monday after epoch starts week one", func(t *testing.T) {
		ph := Mr.PhasesOf(time.Date(1970, 1, 5, 0, 0, 0, 0, time.UTC))
		assertFloatNear(t, ph.Week, 1, 1e-12)
		assertString(t, ph.Weekday, "Monday")
	})

	t.Run("Week fraction walks through the weekdays", func(t *testing.T) {
		// Wednesday noon: two and a half days into the week
		ph := Mr.PhasesOf(time.Date(1970, 1, 7, 12, 0, 0, 0, time.UTC))
		q := math.Floor(ph.Week)
		assertFloatNear(t, ph.Week-q, 2.5/7, 1e-9)
	})

	t.Run("Fortnight folds two weeks together", func(t *testing.T) {
		a := Mr.PhasesOf(time.Date(2020, 3, 2, 9, 0, 0, 0, time.UTC))  // a Monday
		b := Mr.PhasesOf(time.Date(2020, 3, 16, 9, 0, 0, 0, time.UTC)) // two weeks on
		fracA := a.TwoWeek - math.Floor(a.TwoWeek)
		fracB := b.TwoWeek - math.Floor(b.TwoWeek)
		assertFloatNear(t, fracA, fracB, 1e-9)
		assertFloatNear(t, b.TwoWeek-a.TwoWeek, 1, 1e-9)
	})
}

func TestPhasesOfMonth(t *testing.T) {
	t.Run("Counts calendar months since epoch", func(t *testing.T) {
		ph := Mr.PhasesOf(time.Date(2020, 6, 15, 0, 0, 0, 0, time.UTC))
		q := math.Floor(ph.Month)
		assertFloatNear(t, q, float64((2020-1970)*12+5), 0)
		// June 15th 00:00 is 14 of 30 days in
		assertFloatNear(t, ph.Month-q, 14.0/30.0, 1e-9)
	})

	t.Run("Groupings fold the month count", func(t *testing.T) {
		ph := Mr.PhasesOf(time.Date(2020, 6, 15, 0, 0, 0, 0, time.UTC))
		q := math.Floor(ph.Month)
		frac := ph.Month - q

		for _, grouping := range []struct {
			n   float64
			got float64
		}{
			{2, ph.TwoMonth},
			{3, ph.ThreeMonth},
			{6, ph.SixMonth},
		} {
			want := math.Floor(q/grouping.n) + (math.Mod(q, grouping.n)+frac)/grouping.n
			assertFloatNear(t, grouping.got, want, 1e-9)
		}
	})
}

func TestPhasesOfYear(t *testing.T) {
	t.Run("Midyear is about half a year in", func(t *testing.T) {
		ph := Mr.PhasesOf(time.Date(2021, 7, 2, 12, 0, 0, 0, time.UTC))
		q := math.Floor(ph.Year)
		assertFloatNear(t, q, 51, 0)
		if frac := ph.Year - q; frac < 0.49 || frac > 0.51 {
			t.Errorf("midyear fraction out of range: %v", frac)
		}
	})

	t.Run("Two-year grouping folds odd years high", func(t *testing.T) {
		odd := Mr.PhasesOf(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC))
		frac := odd.TwoYear - math.Floor(odd.TwoYear)
		// 2021 is the second year of its pair, so the fraction starts at 0.5
		assertFloatNear(t, frac, 0.5, 1e-9)
	})
}

func TestPhasesOfCounting(t *testing.T) {
	// 2020-03-13 is the second Friday of its month
	ph := Mr.PhasesOf(time.Date(2020, 3, 13, 15, 0, 0, 0, time.UTC))

	t.Run("Hour and weekday", func(t *testing.T) {
		assertIntEq(t, ph.Hour, 15)
		assertString(t, ph.Weekday, "Friday")
	})

	t.Run("Nth 7-day stretch starts at one", func(t *testing.T) {
		assertIntEq(t, ph.NthSeven, 3)
	})

	t.Run("Full weeks elapsed in the month", func(t *testing.T) {
		assertIntEq(t, ph.FullWeek, 2)
	})
}

func TestPhasesMemo(t *testing.T) {
	ts := time.Date(2023, 5, 4, 13, 7, 0, 0, time.UTC)
	first := Mr.PhasesOf(ts)
	second := Mr.PhasesOf(ts)
	if first != second {
		t.Error("memoized phases should be identical")
	}
}

func assertString(t *testing.T, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
