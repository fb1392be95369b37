package deltaker

import (
	"fmt"
	"time"
)

// Utfall is the normalized result of evaluating one change.
//
// On success Deltaker is the new snapshot. NesteStatus, when set, is a
// second status transition that must not be applied yet: it is queued and
// promoted by the progression sweep once its GyldigFra arrives. The status
// timeline is append-only, so a future-dated ending can never supersede the
// current status immediately.
//
// ErFremtidigEndring marks a change that was accepted but takes effect
// later; the snapshot is unchanged and the caller only records the change.
type Utfall struct {
	Deltaker           Deltaker
	NesteStatus        *DeltakerStatus
	ErFremtidigEndring bool
}

// OppdaterDeltaker routes a tagged change to its evaluator. Evaluators are
// pure: they read the snapshot, the quota history, and the queued future
// status (neste, nil when none is pending) and compute the result.
// Every evaluator first checks whether the change actually alters observable
// state and returns ErrIngenEndring otherwise, so idempotent retries never
// produce duplicate audit records or events. A deferred ending lives in the
// queued status rather than the snapshot, which is why the ending evaluators
// need neste for that check.
func OppdaterDeltaker(d Deltaker, endring Endring, mengder Deltakelsesmengder, neste *DeltakerStatus, now time.Time) (Utfall, error) {
	switch e := endring.(type) {
	case EndreStartdato:
		return endreStartdato(d, e, mengder, now)
	case EndreSluttdato:
		return endreSluttdato(d, e, now)
	case ForlengDeltakelse:
		return forlengDeltakelse(d, e, now)
	case AvsluttDeltakelse:
		return avsluttDeltakelse(d, e, neste, now)
	case AvbrytDeltakelse:
		return avbrytDeltakelse(d, e, neste, now)
	case EndreAvslutning:
		return endreAvslutning(d, e, neste, now)
	case IkkeAktuell:
		return ikkeAktuell(d, e, now)
	case ReaktiverDeltakelse:
		return reaktiverDeltakelse(d, now)
	case FjernOppstartsdato:
		return fjernOppstartsdato(d, now)
	case EndreDeltakelsesmengde:
		return endreDeltakelsesmengde(d, e, mengder, now)
	case EndreBakgrunnsinformasjon:
		return endreBakgrunnsinformasjon(d, e, now)
	case EndreInnhold:
		return endreInnhold(d, e, now)
	case EndreSluttarsak:
		return endreSluttarsak(d, e, now)
	default:
		return Utfall{}, fmt.Errorf("uhaandtert endringstype %T", endring)
	}
}

// medStatus moves the snapshot to a new current status. A no-op when type
// and reason already match, so repeated evaluation stays idempotent.
func (d Deltaker) medStatus(t DeltakerStatusType, aarsak *Aarsak, now time.Time) Deltaker {
	if d.Status.Type == t && aarsakLik(d.Status.Aarsak, aarsak) {
		return d
	}
	d.Status = NyDeltakerStatus(t, aarsak, now, now)
	return d
}

func aarsakLik(a, b *Aarsak) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Type != b.Type {
		return false
	}
	if a.Beskrivelse == nil || b.Beskrivelse == nil {
		return a.Beskrivelse == b.Beskrivelse
	}
	return *a.Beskrivelse == *b.Beskrivelse
}

// statusForDatoer derives the status type implied by the dates alone.
func statusForDatoer(d Deltaker, startdato, sluttdato *time.Time, now time.Time) DeltakerStatusType {
	switch {
	case startdato == nil && sluttdato != nil && datoFoer(*sluttdato, now):
		return StatusIkkeAktuell
	case startdato == nil || datoEtter(*startdato, now):
		return StatusVenterPaOppstart
	case sluttdato == nil || !datoFoer(*sluttdato, now):
		return StatusDeltar
	default:
		return avsluttendeStatusType(d, sluttdato)
	}
}

// avsluttendeStatusType selects the terminal outcome. Course tracks end in
// FULLFORT, or AVBRUTT when the deltaker leaves before the course's own end
// date; everything else ends in HAR_SLUTTET.
func avsluttendeStatusType(d Deltaker, sluttdato *time.Time) DeltakerStatusType {
	if !d.Deltakerliste.ErKurs() {
		return StatusHarSluttet
	}
	if sluttdato != nil && d.Deltakerliste.SluttDato != nil && datoFoer(*sluttdato, *d.Deltakerliste.SluttDato) {
		return StatusAvbrutt
	}
	return StatusFullfort
}

// AvsluttendeStatus selects the terminal outcome for an ending on sluttdato.
// Used both by the ending evaluators and the progression sweep.
func AvsluttendeStatus(d Deltaker, sluttdato *time.Time) DeltakerStatusType {
	return avsluttendeStatusType(d, sluttdato)
}

func endreStartdato(d Deltaker, e EndreStartdato, mengder Deltakelsesmengder, now time.Time) (Utfall, error) {
	if datoLik(d.Startdato, e.Startdato) && datoLik(d.Sluttdato, e.Sluttdato) {
		return Utfall{}, ErrIngenEndring
	}
	d.Startdato = e.Startdato
	d.Sluttdato = e.Sluttdato

	if e.Startdato != nil {
		avgrenset := mengder.AvgrensPeriodeTilStartdato(*e.Startdato)
		asOf := tilDato(now)
		if datoEtter(*e.Startdato, now) {
			asOf = tilDato(*e.Startdato)
		}
		if gjeldende := avgrenset.Gjeldende(asOf); gjeldende != nil {
			d.Deltakelsesprosent = &gjeldende.Deltakelsesprosent
			d.DagerPerUke = gjeldende.DagerPerUke
		}
	}

	nyType := statusForDatoer(d, d.Startdato, d.Sluttdato, now)
	aarsak := d.Status.Aarsak
	if nyType != d.Status.Type {
		aarsak = nil
	}
	return Utfall{Deltaker: d.medStatus(nyType, aarsak, now)}, nil
}

func endreSluttdato(d Deltaker, e EndreSluttdato, now time.Time) (Utfall, error) {
	if datoLik(d.Sluttdato, &e.Sluttdato) {
		return Utfall{}, ErrIngenEndring
	}
	d.Sluttdato = &e.Sluttdato

	nyType := statusForDatoer(d, d.Startdato, d.Sluttdato, now)
	aarsak := d.Status.Aarsak
	if nyType != d.Status.Type {
		aarsak = nil
	}
	return Utfall{Deltaker: d.medStatus(nyType, aarsak, now)}, nil
}

func forlengDeltakelse(d Deltaker, e ForlengDeltakelse, now time.Time) (Utfall, error) {
	if datoLik(d.Sluttdato, &e.Sluttdato) {
		return Utfall{}, ErrIngenEndring
	}
	d.Sluttdato = &e.Sluttdato
	if d.HarSluttet() && !datoFoer(e.Sluttdato, now) {
		d = d.medStatus(StatusDeltar, nil, now)
	}
	return Utfall{Deltaker: d}, nil
}

func avsluttDeltakelse(d Deltaker, e AvsluttDeltakelse, neste *DeltakerStatus, now time.Time) (Utfall, error) {
	nyType := avsluttendeStatusType(d, &e.Sluttdato)
	if d.Deltakerliste.ErKurs() && e.HarFullfort != nil && !*e.HarFullfort {
		nyType = StatusAvbrutt
	}
	return avslutt(d, e.Sluttdato, nyType, e.Aarsak, neste, now)
}

func avbrytDeltakelse(d Deltaker, e AvbrytDeltakelse, neste *DeltakerStatus, now time.Time) (Utfall, error) {
	return avslutt(d, e.Sluttdato, StatusAvbrutt, e.Aarsak, neste, now)
}

// avslutt applies an ending. A past or current end date takes effect
// immediately. A future end date keeps the deltaker in DELTAR and queues the
// ending as a NesteStatus valid from the day after the end date.
func avslutt(d Deltaker, sluttdato time.Time, nyType DeltakerStatusType, aarsak *Aarsak, neste *DeltakerStatus, now time.Time) (Utfall, error) {
	if d.Status.Type == nyType && aarsakLik(d.Status.Aarsak, aarsak) && datoLik(d.Sluttdato, &sluttdato) {
		return Utfall{}, ErrIngenEndring
	}
	// A deferred ending lives in the queued status, not the snapshot.
	// Retrying it with the same date and outcome is the same logical edit
	// and must stay a no-op.
	if neste != nil && datoEtter(sluttdato, now) &&
		d.Status.Type == StatusDeltar && datoLik(d.Sluttdato, &sluttdato) &&
		neste.Type == nyType && aarsakLik(neste.Aarsak, aarsak) {
		return Utfall{}, ErrIngenEndring
	}

	slutt := tilDato(sluttdato)
	d.Sluttdato = &slutt

	if !datoEtter(slutt, now) {
		return Utfall{Deltaker: d.medStatus(nyType, aarsak, now)}, nil
	}

	if d.Status.Type != StatusDeltar {
		d = d.medStatus(StatusDeltar, nil, now)
	}
	nyNeste := NyDeltakerStatus(nyType, aarsak, dagenEtter(slutt), now)
	return Utfall{Deltaker: d, NesteStatus: &nyNeste}, nil
}

func endreAvslutning(d Deltaker, e EndreAvslutning, neste *DeltakerStatus, now time.Time) (Utfall, error) {
	nyType := StatusHarSluttet
	if d.Deltakerliste.ErKurs() {
		if e.HarFullfort {
			nyType = StatusFullfort
		} else {
			nyType = StatusAvbrutt
		}
	}
	if d.Status.Type == nyType && aarsakLik(d.Status.Aarsak, e.Aarsak) && (e.Sluttdato == nil || datoLik(d.Sluttdato, e.Sluttdato)) {
		return Utfall{}, ErrIngenEndring
	}
	if e.Sluttdato != nil {
		return avslutt(d, *e.Sluttdato, nyType, e.Aarsak, neste, now)
	}
	return Utfall{Deltaker: d.medStatus(nyType, e.Aarsak, now)}, nil
}

func ikkeAktuell(d Deltaker, e IkkeAktuell, now time.Time) (Utfall, error) {
	if d.Status.Type == StatusIkkeAktuell && aarsakLik(d.Status.Aarsak, e.Aarsak) {
		return Utfall{}, ErrIngenEndring
	}
	d = d.medStatus(StatusIkkeAktuell, e.Aarsak, now)
	d.Startdato = nil
	d.Sluttdato = nil
	return Utfall{Deltaker: d}, nil
}

func reaktiverDeltakelse(d Deltaker, now time.Time) (Utfall, error) {
	if d.Status.Type != StatusIkkeAktuell {
		return Utfall{}, ErrIngenEndring
	}
	nyType := StatusVenterPaOppstart
	if d.Deltakerliste.ErFellesOppstart() {
		nyType = StatusSoktInn
	}
	d = d.medStatus(nyType, nil, now)
	d.Startdato = nil
	d.Sluttdato = nil
	return Utfall{Deltaker: d}, nil
}

func fjernOppstartsdato(d Deltaker, now time.Time) (Utfall, error) {
	if d.Startdato == nil {
		return Utfall{}, ErrIngenEndring
	}
	d.Startdato = nil
	d.Sluttdato = nil
	return Utfall{Deltaker: d}, nil
}

func endreDeltakelsesmengde(d Deltaker, e EndreDeltakelsesmengde, mengder Deltakelsesmengder, now time.Time) (Utfall, error) {
	kandidat := Deltakelsesmengde{
		Deltakelsesprosent: e.Deltakelsesprosent,
		DagerPerUke:        e.DagerPerUke,
		GyldigFra:          tilDato(e.Gyldigfra),
		Opprettet:          now,
	}
	if !mengder.ValiderNyDeltakelsesmengde(kandidat) {
		return Utfall{}, ErrIngenEndring
	}
	if datoEtter(e.Gyldigfra, now) {
		return Utfall{Deltaker: d, ErFremtidigEndring: true}, nil
	}
	d.Deltakelsesprosent = &kandidat.Deltakelsesprosent
	d.DagerPerUke = kandidat.DagerPerUke
	return Utfall{Deltaker: d}, nil
}

func endreBakgrunnsinformasjon(d Deltaker, e EndreBakgrunnsinformasjon, now time.Time) (Utfall, error) {
	if tekstLik(d.Bakgrunnsinformasjon, e.Bakgrunnsinformasjon) {
		return Utfall{}, ErrIngenEndring
	}
	d.Bakgrunnsinformasjon = e.Bakgrunnsinformasjon
	return Utfall{Deltaker: d}, nil
}

func endreInnhold(d Deltaker, e EndreInnhold, now time.Time) (Utfall, error) {
	if innholdLik(d.Innhold, e.Innhold) {
		return Utfall{}, ErrIngenEndring
	}
	d.Innhold = e.Innhold
	return Utfall{Deltaker: d}, nil
}

// endreSluttarsak attaches a new reason to the existing status type. The
// status record itself is replaced (append-only history), the type stays.
func endreSluttarsak(d Deltaker, e EndreSluttarsak, now time.Time) (Utfall, error) {
	if aarsakLik(d.Status.Aarsak, &e.Aarsak) {
		return Utfall{}, ErrIngenEndring
	}
	return Utfall{Deltaker: d.medStatus(d.Status.Type, &e.Aarsak, now)}, nil
}

func tekstLik(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func innholdLik(a, b []Innhold) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Innholdskode != b[i].Innholdskode || a[i].Tekst != b[i].Tekst || !tekstLik(a[i].Beskrivelse, b[i].Beskrivelse) {
			return false
		}
	}
	return true
}
