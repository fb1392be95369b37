// Package deltaker contains the participant lifecycle state machine: the
// domain model, the quota history engine, and the pure change evaluators.
// Nothing in this package performs I/O; persistence and event emission are
// the caller's responsibility.
package deltaker

import (
	"time"

	"github.com/google/uuid"
)

// DeltakerStatusType enumerates the lifecycle statuses a deltaker moves
// through, from draft registration to a terminal outcome.
type DeltakerStatusType string

const (
	StatusKladd                DeltakerStatusType = "KLADD"
	StatusPabegyntRegistrering DeltakerStatusType = "PABEGYNT_REGISTRERING"
	StatusUtkastTilPamelding   DeltakerStatusType = "UTKAST_TIL_PAMELDING"
	StatusSoktInn              DeltakerStatusType = "SOKT_INN"
	StatusVenterPaOppstart     DeltakerStatusType = "VENTER_PA_OPPSTART"
	StatusDeltar               DeltakerStatusType = "DELTAR"
	StatusHarSluttet           DeltakerStatusType = "HAR_SLUTTET"
	StatusFullfort             DeltakerStatusType = "FULLFORT"
	StatusAvbrutt              DeltakerStatusType = "AVBRUTT"
	StatusAvbruttUtkast        DeltakerStatusType = "AVBRUTT_UTKAST"
	StatusIkkeAktuell          DeltakerStatusType = "IKKE_AKTUELL"
	StatusFeilregistrert       DeltakerStatusType = "FEILREGISTRERT"
)

// ErAvsluttende reports whether the status type is a terminal participation
// outcome.
func (t DeltakerStatusType) ErAvsluttende() bool {
	switch t {
	case StatusHarSluttet, StatusFullfort, StatusAvbrutt:
		return true
	}
	return false
}

// AarsakType enumerates the structured reasons attached to a status.
type AarsakType string

const (
	AarsakSyk                  AarsakType = "SYK"
	AarsakFattJobb             AarsakType = "FATT_JOBB"
	AarsakTrengerAnnenStotte   AarsakType = "TRENGER_ANNEN_STOTTE"
	AarsakUtdanning            AarsakType = "UTDANNING"
	AarsakIkkeMott             AarsakType = "IKKE_MOTT"
	AarsakAnnet                AarsakType = "ANNET"
	AarsakSamarbeidetAvsluttet AarsakType = "SAMARBEIDET_MED_ARRANGOREN_ER_AVSLUTTET"
)

// Aarsak is the structured reason on a status. Beskrivelse is only used
// together with AarsakAnnet.
type Aarsak struct {
	Type        AarsakType `json:"type"`
	Beskrivelse *string    `json:"beskrivelse,omitempty"`
}

// DeltakerStatus is one record in the append-only status history. A record is
// current while GyldigTil is nil and GyldigFra has arrived; supersession
// stamps GyldigTil and never mutates anything else.
type DeltakerStatus struct {
	ID        uuid.UUID          `json:"id"`
	Type      DeltakerStatusType `json:"type"`
	Aarsak    *Aarsak            `json:"aarsak,omitempty"`
	GyldigFra time.Time          `json:"gyldigFra"`
	GyldigTil *time.Time         `json:"gyldigTil,omitempty"`
	Opprettet time.Time          `json:"opprettet"`
}

// NyDeltakerStatus builds a status record valid from gyldigFra.
func NyDeltakerStatus(t DeltakerStatusType, aarsak *Aarsak, gyldigFra, opprettet time.Time) DeltakerStatus {
	return DeltakerStatus{
		ID:        uuid.New(),
		Type:      t,
		Aarsak:    aarsak,
		GyldigFra: gyldigFra,
		Opprettet: opprettet,
	}
}

// HarAarsak reports whether the status carries the given reason type.
func (s DeltakerStatus) HarAarsak(t AarsakType) bool {
	return s.Aarsak != nil && s.Aarsak.Type == t
}

// Oppstartstype distinguishes cohort programs with a shared start from
// rolling-enrollment programs.
type Oppstartstype string

const (
	OppstartstypeFelles  Oppstartstype = "FELLES"
	OppstartstypeLopende Oppstartstype = "LOPENDE"
)

// Tiltakstype identifies the labor-market program type.
type Tiltakstype string

const (
	TiltakArbeidsforberedendeTrening  Tiltakstype = "ARBEIDSFORBEREDENDE_TRENING"
	TiltakArbeidsrettetRehabilitering Tiltakstype = "ARBEIDSRETTET_REHABILITERING"
	TiltakAvklaring                   Tiltakstype = "AVKLARING"
	TiltakDigitaltOppfolgingstiltak   Tiltakstype = "DIGITALT_OPPFOLGINGSTILTAK"
	TiltakGruppeAmo                   Tiltakstype = "GRUPPE_AMO"
	TiltakGruppeFagYrke               Tiltakstype = "GRUPPE_FAG_OG_YRKESOPPLAERING"
	TiltakJobbklubb                   Tiltakstype = "JOBBKLUBB"
	TiltakOppfolging                  Tiltakstype = "OPPFOLGING"
	TiltakVTA                         Tiltakstype = "VARIG_TILRETTELAGT_ARBEID_SKJERMET"
)

// DeltakerlisteStatus is the lifecycle status of the program offering.
type DeltakerlisteStatus string

const (
	DeltakerlistePlanlagt     DeltakerlisteStatus = "PLANLAGT"
	DeltakerlisteGjennomfores DeltakerlisteStatus = "GJENNOMFORES"
	DeltakerlisteAvsluttet    DeltakerlisteStatus = "AVSLUTTET"
	DeltakerlisteAvlyst       DeltakerlisteStatus = "AVLYST"
	DeltakerlisteAvbrutt      DeltakerlisteStatus = "AVBRUTT"
)

// Deltakerliste is the program offering a deltaker is enrolled in. The state
// machine only reads it; it is maintained by an upstream system.
type Deltakerliste struct {
	ID            uuid.UUID           `json:"id"`
	Navn          string              `json:"navn"`
	Tiltakstype   Tiltakstype         `json:"tiltakstype"`
	Oppstartstype Oppstartstype       `json:"oppstartstype"`
	Status        DeltakerlisteStatus `json:"status"`
	StartDato     *time.Time          `json:"startDato,omitempty"`
	SluttDato     *time.Time          `json:"sluttDato,omitempty"`
}

// ErKurs reports whether the program is a fixed-duration course track.
// Course tracks complete with FULLFORT/AVBRUTT instead of HAR_SLUTTET.
func (l Deltakerliste) ErKurs() bool {
	if l.Oppstartstype == OppstartstypeFelles {
		return true
	}
	switch l.Tiltakstype {
	case TiltakGruppeAmo, TiltakGruppeFagYrke, TiltakJobbklubb:
		return true
	}
	return false
}

// ErFellesOppstart reports whether enrollment goes through collective intake,
// which requires a SOKT_INN step before VENTER_PA_OPPSTART.
func (l Deltakerliste) ErFellesOppstart() bool {
	return l.Oppstartstype == OppstartstypeFelles
}

// ErAvsluttet reports whether the program has ended, in any way.
func (l Deltakerliste) ErAvsluttet() bool {
	switch l.Status {
	case DeltakerlisteAvsluttet, DeltakerlisteAvlyst, DeltakerlisteAvbrutt:
		return true
	}
	return false
}

// ErAvlystEllerAvbrutt reports whether the program was cancelled rather than
// completed.
func (l Deltakerliste) ErAvlystEllerAvbrutt() bool {
	return l.Status == DeltakerlisteAvlyst || l.Status == DeltakerlisteAvbrutt
}

// Innhold is one content element of the participation, chosen from the
// program's catalog. Free text only accompanies the "annet" element.
type Innhold struct {
	Tekst       string  `json:"tekst"`
	Innholdskode string `json:"innholdskode"`
	Beskrivelse *string `json:"beskrivelse,omitempty"`
}

// Deltaker is the participant snapshot the evaluators operate on. Status is
// the current status record; the full history lives in the store.
type Deltaker struct {
	ID                   uuid.UUID      `json:"id"`
	Deltakerliste        Deltakerliste  `json:"deltakerliste"`
	Startdato            *time.Time     `json:"startdato,omitempty"`
	Sluttdato            *time.Time     `json:"sluttdato,omitempty"`
	DagerPerUke          *float64       `json:"dagerPerUke,omitempty"`
	Deltakelsesprosent   *float64       `json:"deltakelsesprosent,omitempty"`
	Bakgrunnsinformasjon *string        `json:"bakgrunnsinformasjon,omitempty"`
	Innhold              []Innhold      `json:"innhold"`
	Status               DeltakerStatus `json:"status"`
	SistEndret           time.Time      `json:"sistEndret"`
}

// HarSluttet reports whether the deltaker currently has a terminal status.
func (d Deltaker) HarSluttet() bool {
	return d.Status.Type.ErAvsluttende()
}

// Vedtak is the approval record gating changes. It is consumed read-only;
// the decision lifecycle itself is owned by another component.
type Vedtak struct {
	ID                 uuid.UUID  `json:"id"`
	DeltakerID         uuid.UUID  `json:"deltakerId"`
	Fattet             *time.Time `json:"fattet,omitempty"`
	FattetAvNav        bool       `json:"fattetAvNav"`
	Deltakelsesprosent *float64   `json:"deltakelsesprosent,omitempty"`
	DagerPerUke        *float64   `json:"dagerPerUke,omitempty"`
	Opprettet          time.Time  `json:"opprettet"`
}

// ErFattet reports whether the vedtak has been approved.
func (v Vedtak) ErFattet() bool {
	return v.Fattet != nil
}
