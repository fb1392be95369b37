package deltaker

import "time"

// Dates in this domain have day precision. Every comparison goes through
// tilDato so that timestamps with a time-of-day component cannot make two
// "same day" values compare unequal.

func tilDato(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Dato builds a day-precision date in UTC.
func Dato(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func datoLik(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return tilDato(*a).Equal(tilDato(*b))
}

func datoFoer(a, b time.Time) bool {
	return tilDato(a).Before(tilDato(b))
}

func datoEtter(a, b time.Time) bool {
	return tilDato(a).After(tilDato(b))
}

func datoFoerEllerLik(a, b time.Time) bool {
	return !datoEtter(a, b)
}

func dagenEtter(t time.Time) time.Time {
	return tilDato(t).AddDate(0, 0, 1)
}

// DagenFoer returns the day before t.
func DagenFoer(t time.Time) time.Time {
	return dagenFoer(t)
}

// DatoHarPassert reports whether t falls on an earlier day than idag.
func DatoHarPassert(t, idag time.Time) bool {
	return datoFoer(t, idag)
}

func dagenFoer(t time.Time) time.Time {
	return tilDato(t).AddDate(0, 0, -1)
}
