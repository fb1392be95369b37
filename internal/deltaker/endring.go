package deltaker

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EndringType tags the change variants for transport and persistence.
type EndringType string

const (
	EndringTypeEndreStartdato             EndringType = "ENDRE_STARTDATO"
	EndringTypeEndreSluttdato             EndringType = "ENDRE_SLUTTDATO"
	EndringTypeForlengDeltakelse          EndringType = "FORLENG_DELTAKELSE"
	EndringTypeAvsluttDeltakelse          EndringType = "AVSLUTT_DELTAKELSE"
	EndringTypeAvbrytDeltakelse           EndringType = "AVBRYT_DELTAKELSE"
	EndringTypeEndreAvslutning            EndringType = "ENDRE_AVSLUTNING"
	EndringTypeIkkeAktuell                EndringType = "IKKE_AKTUELL"
	EndringTypeReaktiverDeltakelse        EndringType = "REAKTIVER_DELTAKELSE"
	EndringTypeFjernOppstartsdato         EndringType = "FJERN_OPPSTARTSDATO"
	EndringTypeEndreDeltakelsesmengde     EndringType = "ENDRE_DELTAKELSESMENGDE"
	EndringTypeEndreBakgrunnsinformasjon  EndringType = "ENDRE_BAKGRUNNSINFORMASJON"
	EndringTypeEndreInnhold               EndringType = "ENDRE_INNHOLD"
	EndringTypeEndreSluttarsak            EndringType = "ENDRE_SLUTTARSAK"
)

// Endring is the tagged union of change requests. The dispatcher switches
// exhaustively on the concrete type; an unhandled variant is a programming
// error, not bad input.
type Endring interface {
	EndringType() EndringType
}

type EndreStartdato struct {
	Startdato   *time.Time `json:"startdato,omitempty"`
	Sluttdato   *time.Time `json:"sluttdato,omitempty"`
	Begrunnelse *string    `json:"begrunnelse,omitempty"`
}

type EndreSluttdato struct {
	Sluttdato   time.Time `json:"sluttdato"`
	Begrunnelse *string   `json:"begrunnelse,omitempty"`
}

type ForlengDeltakelse struct {
	Sluttdato   time.Time `json:"sluttdato"`
	Begrunnelse *string   `json:"begrunnelse,omitempty"`
}

type AvsluttDeltakelse struct {
	Sluttdato   time.Time `json:"sluttdato"`
	Aarsak      *Aarsak   `json:"aarsak,omitempty"`
	HarFullfort *bool     `json:"harFullfort,omitempty"`
	Begrunnelse *string   `json:"begrunnelse,omitempty"`
}

type AvbrytDeltakelse struct {
	Sluttdato   time.Time `json:"sluttdato"`
	Aarsak      *Aarsak   `json:"aarsak,omitempty"`
	Begrunnelse *string   `json:"begrunnelse,omitempty"`
}

type EndreAvslutning struct {
	Sluttdato   *time.Time `json:"sluttdato,omitempty"`
	Aarsak      *Aarsak    `json:"aarsak,omitempty"`
	HarFullfort bool       `json:"harFullfort"`
	Begrunnelse *string    `json:"begrunnelse,omitempty"`
}

type IkkeAktuell struct {
	Aarsak *Aarsak `json:"aarsak,omitempty"`
}

type ReaktiverDeltakelse struct {
	Begrunnelse string `json:"begrunnelse"`
}

type FjernOppstartsdato struct {
	Begrunnelse *string `json:"begrunnelse,omitempty"`
}

type EndreDeltakelsesmengde struct {
	Deltakelsesprosent float64    `json:"deltakelsesprosent"`
	DagerPerUke        *float64   `json:"dagerPerUke,omitempty"`
	Gyldigfra          time.Time  `json:"gyldigFra"`
	Begrunnelse        *string    `json:"begrunnelse,omitempty"`
}

type EndreBakgrunnsinformasjon struct {
	Bakgrunnsinformasjon *string `json:"bakgrunnsinformasjon,omitempty"`
}

type EndreInnhold struct {
	Innhold []Innhold `json:"innhold"`
}

type EndreSluttarsak struct {
	Aarsak Aarsak `json:"aarsak"`
}

func (EndreStartdato) EndringType() EndringType            { return EndringTypeEndreStartdato }
func (EndreSluttdato) EndringType() EndringType            { return EndringTypeEndreSluttdato }
func (ForlengDeltakelse) EndringType() EndringType         { return EndringTypeForlengDeltakelse }
func (AvsluttDeltakelse) EndringType() EndringType         { return EndringTypeAvsluttDeltakelse }
func (AvbrytDeltakelse) EndringType() EndringType          { return EndringTypeAvbrytDeltakelse }
func (EndreAvslutning) EndringType() EndringType           { return EndringTypeEndreAvslutning }
func (IkkeAktuell) EndringType() EndringType               { return EndringTypeIkkeAktuell }
func (ReaktiverDeltakelse) EndringType() EndringType       { return EndringTypeReaktiverDeltakelse }
func (FjernOppstartsdato) EndringType() EndringType        { return EndringTypeFjernOppstartsdato }
func (EndreDeltakelsesmengde) EndringType() EndringType    { return EndringTypeEndreDeltakelsesmengde }
func (EndreBakgrunnsinformasjon) EndringType() EndringType { return EndringTypeEndreBakgrunnsinformasjon }
func (EndreInnhold) EndringType() EndringType              { return EndringTypeEndreInnhold }
func (EndreSluttarsak) EndringType() EndringType           { return EndringTypeEndreSluttarsak }

// UnmarshalEndring decodes the payload for a tagged change kind.
func UnmarshalEndring(t EndringType, data []byte) (Endring, error) {
	var (
		endring Endring
		err     error
	)
	switch t {
	case EndringTypeEndreStartdato:
		var e EndreStartdato
		err, endring = json.Unmarshal(data, &e), e
	case EndringTypeEndreSluttdato:
		var e EndreSluttdato
		err, endring = json.Unmarshal(data, &e), e
	case EndringTypeForlengDeltakelse:
		var e ForlengDeltakelse
		err, endring = json.Unmarshal(data, &e), e
	case EndringTypeAvsluttDeltakelse:
		var e AvsluttDeltakelse
		err, endring = json.Unmarshal(data, &e), e
	case EndringTypeAvbrytDeltakelse:
		var e AvbrytDeltakelse
		err, endring = json.Unmarshal(data, &e), e
	case EndringTypeEndreAvslutning:
		var e EndreAvslutning
		err, endring = json.Unmarshal(data, &e), e
	case EndringTypeIkkeAktuell:
		var e IkkeAktuell
		err, endring = json.Unmarshal(data, &e), e
	case EndringTypeReaktiverDeltakelse:
		var e ReaktiverDeltakelse
		err, endring = json.Unmarshal(data, &e), e
	case EndringTypeFjernOppstartsdato:
		var e FjernOppstartsdato
		err, endring = json.Unmarshal(data, &e), e
	case EndringTypeEndreDeltakelsesmengde:
		var e EndreDeltakelsesmengde
		err, endring = json.Unmarshal(data, &e), e
	case EndringTypeEndreBakgrunnsinformasjon:
		var e EndreBakgrunnsinformasjon
		err, endring = json.Unmarshal(data, &e), e
	case EndringTypeEndreInnhold:
		var e EndreInnhold
		err, endring = json.Unmarshal(data, &e), e
	case EndringTypeEndreSluttarsak:
		var e EndreSluttarsak
		err, endring = json.Unmarshal(data, &e), e
	default:
		return nil, fmt.Errorf("ukjent endringstype %q", t)
	}
	if err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", t, err)
	}
	return endring, nil
}

// DeltakerEndring is the append-only audit record of one applied change.
// It is created once per applied change and never mutated.
type DeltakerEndring struct {
	ID         uuid.UUID `json:"id"`
	DeltakerID uuid.UUID `json:"deltakerId"`
	Endring    Endring   `json:"-"`
	EndretAv   string    `json:"endretAv"`
	Endret     time.Time `json:"endret"`
}

type endringEnvelope struct {
	ID         uuid.UUID       `json:"id"`
	DeltakerID uuid.UUID       `json:"deltakerId"`
	Type       EndringType     `json:"type"`
	Endring    json.RawMessage `json:"endring"`
	EndretAv   string          `json:"endretAv"`
	Endret     time.Time       `json:"endret"`
}

func (e DeltakerEndring) MarshalJSON() ([]byte, error) {
	payload, err := json.Marshal(e.Endring)
	if err != nil {
		return nil, err
	}
	return json.Marshal(endringEnvelope{
		ID:         e.ID,
		DeltakerID: e.DeltakerID,
		Type:       e.Endring.EndringType(),
		Endring:    payload,
		EndretAv:   e.EndretAv,
		Endret:     e.Endret,
	})
}

func (e *DeltakerEndring) UnmarshalJSON(data []byte) error {
	var env endringEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	endring, err := UnmarshalEndring(env.Type, env.Endring)
	if err != nil {
		return err
	}
	*e = DeltakerEndring{
		ID:         env.ID,
		DeltakerID: env.DeltakerID,
		Endring:    endring,
		EndretAv:   env.EndretAv,
		Endret:     env.Endret,
	}
	return nil
}
