package deltaker

import (
	"sort"
	"time"
)

// Deltakelsesmengde is one quota record: a participation percentage, an
// optional days-per-week (only meaningful below 100%), and the date it
// applies from.
type Deltakelsesmengde struct {
	Deltakelsesprosent float64    `json:"deltakelsesprosent"`
	DagerPerUke        *float64   `json:"dagerPerUke,omitempty"`
	GyldigFra          time.Time  `json:"gyldigFra"`
	Opprettet          time.Time  `json:"opprettet"`
}

// HarSammeVerdi reports whether two records carry the same quota, ignoring
// their validity dates.
func (m Deltakelsesmengde) HarSammeVerdi(other Deltakelsesmengde) bool {
	if m.Deltakelsesprosent != other.Deltakelsesprosent {
		return false
	}
	if m.DagerPerUke == nil || other.DagerPerUke == nil {
		return m.DagerPerUke == other.DagerPerUke
	}
	return *m.DagerPerUke == *other.DagerPerUke
}

// Deltakelsesmengder is the chronological quota history. It is always sorted
// by GyldigFra (ties broken by Opprettet) and never contains two consecutive
// records with the same quota.
type Deltakelsesmengder []Deltakelsesmengde

// NyDeltakelsesmengder folds raw records into a normalized history:
// sorted, one record per GyldigFra (latest created wins), and consecutive
// duplicates collapsed into the earlier record.
func NyDeltakelsesmengder(innslag []Deltakelsesmengde) Deltakelsesmengder {
	sortert := make([]Deltakelsesmengde, len(innslag))
	copy(sortert, innslag)
	sort.SliceStable(sortert, func(i, j int) bool {
		a, b := sortert[i], sortert[j]
		if !tilDato(a.GyldigFra).Equal(tilDato(b.GyldigFra)) {
			return datoFoer(a.GyldigFra, b.GyldigFra)
		}
		return a.Opprettet.Before(b.Opprettet)
	})

	// One record per GyldigFra; the latest created wins.
	var perDato []Deltakelsesmengde
	for _, m := range sortert {
		if len(perDato) > 0 && tilDato(perDato[len(perDato)-1].GyldigFra).Equal(tilDato(m.GyldigFra)) {
			perDato[len(perDato)-1] = m
			continue
		}
		perDato = append(perDato, m)
	}

	// Collapse consecutive records carrying the same quota.
	var resultat Deltakelsesmengder
	for _, m := range perDato {
		if len(resultat) > 0 && resultat[len(resultat)-1].HarSammeVerdi(m) {
			continue
		}
		resultat = append(resultat, m)
	}
	return resultat
}

// TilDeltakelsesmengder reconstructs the quota history from the change log
// plus the vedtak's original quota. The input order does not matter.
func TilDeltakelsesmengder(endringer []DeltakerEndring, vedtak *Vedtak) Deltakelsesmengder {
	var innslag []Deltakelsesmengde
	if vedtak != nil && vedtak.Deltakelsesprosent != nil {
		gyldigFra := vedtak.Opprettet
		if vedtak.Fattet != nil {
			gyldigFra = *vedtak.Fattet
		}
		innslag = append(innslag, Deltakelsesmengde{
			Deltakelsesprosent: *vedtak.Deltakelsesprosent,
			DagerPerUke:        vedtak.DagerPerUke,
			GyldigFra:          tilDato(gyldigFra),
			Opprettet:          vedtak.Opprettet,
		})
	}
	for _, e := range endringer {
		endring, ok := e.Endring.(EndreDeltakelsesmengde)
		if !ok {
			continue
		}
		innslag = append(innslag, Deltakelsesmengde{
			Deltakelsesprosent: endring.Deltakelsesprosent,
			DagerPerUke:        endring.DagerPerUke,
			GyldigFra:          tilDato(endring.Gyldigfra),
			Opprettet:          e.Endret,
		})
	}
	return NyDeltakelsesmengder(innslag)
}

// Gjeldende returns the record in effect at asOf, or nil if none applies yet.
func (m Deltakelsesmengder) Gjeldende(asOf time.Time) *Deltakelsesmengde {
	var gjeldende *Deltakelsesmengde
	for i := range m {
		if datoFoerEllerLik(m[i].GyldigFra, asOf) {
			gjeldende = &m[i]
		}
	}
	if gjeldende == nil {
		return nil
	}
	kopi := *gjeldende
	return &kopi
}

// Siste returns the last record in the history, or nil when empty.
func (m Deltakelsesmengder) Siste() *Deltakelsesmengde {
	if len(m) == 0 {
		return nil
	}
	kopi := m[len(m)-1]
	return &kopi
}

// ValiderNyDeltakelsesmengde reports whether the candidate is a legal
// addition: it must change the quota in effect at its GyldigFra, and it must
// not be dated before the latest recorded change. The history has to stay
// monotonic in time to remain replayable.
func (m Deltakelsesmengder) ValiderNyDeltakelsesmengde(kandidat Deltakelsesmengde) bool {
	if siste := m.Siste(); siste != nil && datoFoer(kandidat.GyldigFra, siste.GyldigFra) {
		return false
	}
	if gjeldende := m.Gjeldende(kandidat.GyldigFra); gjeldende != nil && gjeldende.HarSammeVerdi(kandidat) {
		return false
	}
	return true
}

// AvgrensPeriodeTilStartdato clips the history to a (new) start date. Quota
// before enrollment start is meaningless: the record in effect at the start
// date is re-dated to it, anything earlier is dropped.
func (m Deltakelsesmengder) AvgrensPeriodeTilStartdato(startdato time.Time) Deltakelsesmengder {
	var innslag []Deltakelsesmengde
	if gjeldende := m.Gjeldende(startdato); gjeldende != nil {
		klippet := *gjeldende
		klippet.GyldigFra = tilDato(startdato)
		innslag = append(innslag, klippet)
	}
	for _, mengde := range m {
		if datoEtter(mengde.GyldigFra, startdato) {
			innslag = append(innslag, mengde)
		}
	}
	return NyDeltakelsesmengder(innslag)
}

// Periode restricts the history to records whose validity overlaps
// [fraOgMed, tilOgMed]. Nil bounds leave that side open.
func (m Deltakelsesmengder) Periode(fraOgMed, tilOgMed *time.Time) Deltakelsesmengder {
	avgrenset := m
	if fraOgMed != nil {
		avgrenset = avgrenset.AvgrensPeriodeTilStartdato(*fraOgMed)
	}
	if tilOgMed == nil {
		return avgrenset
	}
	var innslag []Deltakelsesmengde
	for _, mengde := range avgrenset {
		if datoFoerEllerLik(mengde.GyldigFra, *tilOgMed) {
			innslag = append(innslag, mengde)
		}
	}
	return NyDeltakelsesmengder(innslag)
}
