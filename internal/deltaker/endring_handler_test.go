package deltaker

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type EndringHandlerSuite struct {
	suite.Suite
	now time.Time
}

func TestEndringHandlerSuite(t *testing.T) {
	suite.Run(t, new(EndringHandlerSuite))
}

func (s *EndringHandlerSuite) SetupTest() {
	s.now = Dato(2026, time.June, 15)
}

func (s *EndringHandlerSuite) dag(offset int) time.Time {
	return s.now.AddDate(0, 0, offset)
}

func (s *EndringHandlerSuite) nyDeltaker(status DeltakerStatusType) Deltaker {
	return Deltaker{
		ID: uuid.New(),
		Deltakerliste: Deltakerliste{
			ID:            uuid.New(),
			Navn:          "Oppfolging hos Muligheter AS",
			Tiltakstype:   TiltakOppfolging,
			Oppstartstype: OppstartstypeLopende,
			Status:        DeltakerlisteGjennomfores,
		},
		Status:     NyDeltakerStatus(status, nil, s.dag(-30), s.dag(-30)),
		SistEndret: s.dag(-30),
	}
}

func (s *EndringHandlerSuite) nyKursdeltaker(status DeltakerStatusType, kursSlutt time.Time) Deltaker {
	d := s.nyDeltaker(status)
	d.Deltakerliste.Tiltakstype = TiltakGruppeAmo
	d.Deltakerliste.SluttDato = &kursSlutt
	return d
}

func (s *EndringHandlerSuite) TestEndreStartdato() {
	s.Run("same dates is a no-op", func() {
		d := s.nyDeltaker(StatusVenterPaOppstart)
		start := s.dag(5)
		d.Startdato = &start

		_, err := OppdaterDeltaker(d, EndreStartdato{Startdato: &start}, nil, nil, s.now)
		s.Require().ErrorIs(err, ErrIngenEndring)
	})

	s.Run("start date in the past moves a waiting deltaker to DELTAR", func() {
		d := s.nyDeltaker(StatusVenterPaOppstart)
		start := s.dag(1)
		d.Startdato = &start

		igar := s.dag(-1)
		utfall, err := OppdaterDeltaker(d, EndreStartdato{Startdato: &igar}, nil, nil, s.now)
		s.Require().NoError(err)
		s.Equal(StatusDeltar, utfall.Deltaker.Status.Type)
		s.Equal(&igar, utfall.Deltaker.Startdato)
	})

	s.Run("future start date keeps VENTER_PA_OPPSTART", func() {
		d := s.nyDeltaker(StatusVenterPaOppstart)
		start := s.dag(10)

		utfall, err := OppdaterDeltaker(d, EndreStartdato{Startdato: &start}, nil, nil, s.now)
		s.Require().NoError(err)
		s.Equal(StatusVenterPaOppstart, utfall.Deltaker.Status.Type)
	})

	s.Run("removing the start date on an active deltaker waits again", func() {
		d := s.nyDeltaker(StatusDeltar)
		start := s.dag(-10)
		d.Startdato = &start

		utfall, err := OppdaterDeltaker(d, EndreStartdato{}, nil, nil, s.now)
		s.Require().NoError(err)
		s.Equal(StatusVenterPaOppstart, utfall.Deltaker.Status.Type)
		s.Nil(utfall.Deltaker.Startdato)
	})

	s.Run("quota is re-derived from the history clipped to the new start", func() {
		d := s.nyDeltaker(StatusVenterPaOppstart)
		gammel := 100.0
		d.Deltakelsesprosent = &gammel

		mengder := NyDeltakelsesmengder([]Deltakelsesmengde{
			{Deltakelsesprosent: 100, GyldigFra: s.dag(-60), Opprettet: s.dag(-60)},
			{Deltakelsesprosent: 50, GyldigFra: s.dag(-5), Opprettet: s.dag(-5)},
		})
		igar := s.dag(-1)
		utfall, err := OppdaterDeltaker(d, EndreStartdato{Startdato: &igar}, mengder, nil, s.now)
		s.Require().NoError(err)
		s.Require().NotNil(utfall.Deltaker.Deltakelsesprosent)
		s.Equal(50.0, *utfall.Deltaker.Deltakelsesprosent)
	})

	s.Run("future start date reads the quota in effect at that date", func() {
		d := s.nyDeltaker(StatusVenterPaOppstart)
		mengder := NyDeltakelsesmengder([]Deltakelsesmengde{
			{Deltakelsesprosent: 100, GyldigFra: s.dag(-60), Opprettet: s.dag(-60)},
			{Deltakelsesprosent: 40, GyldigFra: s.dag(5), Opprettet: s.now},
		})
		start := s.dag(10)
		utfall, err := OppdaterDeltaker(d, EndreStartdato{Startdato: &start}, mengder, nil, s.now)
		s.Require().NoError(err)
		s.Require().NotNil(utfall.Deltaker.Deltakelsesprosent)
		s.Equal(40.0, *utfall.Deltaker.Deltakelsesprosent)
	})

	s.Run("reason is dropped when the status type changes", func() {
		d := s.nyDeltaker(StatusVenterPaOppstart)
		d.Status.Aarsak = &Aarsak{Type: AarsakSyk}
		igar := s.dag(-1)

		utfall, err := OppdaterDeltaker(d, EndreStartdato{Startdato: &igar}, nil, nil, s.now)
		s.Require().NoError(err)
		s.Equal(StatusDeltar, utfall.Deltaker.Status.Type)
		s.Nil(utfall.Deltaker.Status.Aarsak)
	})
}

func (s *EndringHandlerSuite) TestEndreSluttdato() {
	s.Run("past end date ends a non-kurs deltaker in HAR_SLUTTET", func() {
		d := s.nyDeltaker(StatusDeltar)
		start := s.dag(-30)
		d.Startdato = &start

		utfall, err := OppdaterDeltaker(d, EndreSluttdato{Sluttdato: s.dag(-1)}, nil, nil, s.now)
		s.Require().NoError(err)
		s.Equal(StatusHarSluttet, utfall.Deltaker.Status.Type)
	})

	s.Run("future end date keeps DELTAR", func() {
		d := s.nyDeltaker(StatusDeltar)
		start := s.dag(-30)
		d.Startdato = &start

		utfall, err := OppdaterDeltaker(d, EndreSluttdato{Sluttdato: s.dag(30)}, nil, nil, s.now)
		s.Require().NoError(err)
		s.Equal(StatusDeltar, utfall.Deltaker.Status.Type)
	})

	s.Run("ended deltaker with a new future end date is active again", func() {
		// Pending reactivation: end date moved forward past today.
		d := s.nyDeltaker(StatusHarSluttet)
		start := s.dag(-30)
		slutt := s.dag(2)
		d.Startdato = &start
		d.Sluttdato = &slutt

		utfall, err := OppdaterDeltaker(d, EndreSluttdato{Sluttdato: s.dag(10)}, nil, nil, s.now)
		s.Require().NoError(err)
		s.Equal(StatusDeltar, utfall.Deltaker.Status.Type)
	})

	s.Run("same end date is a no-op", func() {
		d := s.nyDeltaker(StatusDeltar)
		slutt := s.dag(10)
		d.Sluttdato = &slutt

		_, err := OppdaterDeltaker(d, EndreSluttdato{Sluttdato: s.dag(10).Add(3 * time.Hour)}, nil, nil, s.now)
		s.Require().ErrorIs(err, ErrIngenEndring)
	})
}

func (s *EndringHandlerSuite) TestForlengDeltakelse() {
	s.Run("extending an ended deltaker past today resumes DELTAR", func() {
		d := s.nyDeltaker(StatusHarSluttet)
		slutt := s.dag(-5)
		d.Sluttdato = &slutt

		utfall, err := OppdaterDeltaker(d, ForlengDeltakelse{Sluttdato: s.dag(20)}, nil, nil, s.now)
		s.Require().NoError(err)
		s.Equal(StatusDeltar, utfall.Deltaker.Status.Type)
		s.True(utfall.Deltaker.Sluttdato.Equal(s.dag(20)))
	})

	s.Run("extending an active deltaker only moves the date", func() {
		d := s.nyDeltaker(StatusDeltar)
		slutt := s.dag(5)
		d.Sluttdato = &slutt

		utfall, err := OppdaterDeltaker(d, ForlengDeltakelse{Sluttdato: s.dag(20)}, nil, nil, s.now)
		s.Require().NoError(err)
		s.Equal(StatusDeltar, utfall.Deltaker.Status.Type)
	})

	s.Run("same end date is a no-op", func() {
		d := s.nyDeltaker(StatusDeltar)
		slutt := s.dag(5)
		d.Sluttdato = &slutt

		_, err := OppdaterDeltaker(d, ForlengDeltakelse{Sluttdato: s.dag(5)}, nil, nil, s.now)
		s.Require().ErrorIs(err, ErrIngenEndring)
	})
}

func (s *EndringHandlerSuite) TestAvsluttDeltakelse() {
	s.Run("past end date on non-kurs ends in HAR_SLUTTET immediately", func() {
		d := s.nyDeltaker(StatusDeltar)
		aarsak := &Aarsak{Type: AarsakFattJobb}

		utfall, err := OppdaterDeltaker(d, AvsluttDeltakelse{Sluttdato: s.dag(-1), Aarsak: aarsak}, nil, nil, s.now)
		s.Require().NoError(err)
		s.Equal(StatusHarSluttet, utfall.Deltaker.Status.Type)
		s.Equal(aarsak, utfall.Deltaker.Status.Aarsak)
		s.Nil(utfall.NesteStatus)
	})

	s.Run("future end date defers the ending", func() {
		d := s.nyDeltaker(StatusDeltar)
		slutt := s.dag(10)

		utfall, err := OppdaterDeltaker(d, AvsluttDeltakelse{Sluttdato: slutt}, nil, nil, s.now)
		s.Require().NoError(err)
		s.Equal(StatusDeltar, utfall.Deltaker.Status.Type)
		s.Require().NotNil(utfall.NesteStatus)
		s.Equal(StatusHarSluttet, utfall.NesteStatus.Type)
		s.True(utfall.NesteStatus.GyldigFra.Equal(s.dag(11)), "queued status is valid from the day after the end date")
	})

	s.Run("kurs ending before the course end date is AVBRUTT", func() {
		d := s.nyKursdeltaker(StatusDeltar, s.dag(30))

		utfall, err := OppdaterDeltaker(d, AvsluttDeltakelse{Sluttdato: s.dag(-1)}, nil, nil, s.now)
		s.Require().NoError(err)
		s.Equal(StatusAvbrutt, utfall.Deltaker.Status.Type)
	})

	s.Run("kurs ending on the course end date is FULLFORT", func() {
		d := s.nyKursdeltaker(StatusDeltar, s.dag(-1))

		utfall, err := OppdaterDeltaker(d, AvsluttDeltakelse{Sluttdato: s.dag(-1)}, nil, nil, s.now)
		s.Require().NoError(err)
		s.Equal(StatusFullfort, utfall.Deltaker.Status.Type)
	})

	s.Run("explicit harFullfort=false forces AVBRUTT on kurs", func() {
		d := s.nyKursdeltaker(StatusDeltar, s.dag(-1))
		nei := false

		utfall, err := OppdaterDeltaker(d, AvsluttDeltakelse{Sluttdato: s.dag(-1), HarFullfort: &nei}, nil, nil, s.now)
		s.Require().NoError(err)
		s.Equal(StatusAvbrutt, utfall.Deltaker.Status.Type)
	})

	s.Run("repeating the same ending is a no-op", func() {
		d := s.nyDeltaker(StatusDeltar)
		utfall, err := OppdaterDeltaker(d, AvsluttDeltakelse{Sluttdato: s.dag(-1)}, nil, nil, s.now)
		s.Require().NoError(err)

		_, err = OppdaterDeltaker(utfall.Deltaker, AvsluttDeltakelse{Sluttdato: s.dag(-1)}, nil, nil, s.now)
		s.Require().ErrorIs(err, ErrIngenEndring)
	})

	s.Run("repeating a deferred ending is a no-op", func() {
		d := s.nyDeltaker(StatusDeltar)
		slutt := s.dag(10)

		forste, err := OppdaterDeltaker(d, AvsluttDeltakelse{Sluttdato: slutt}, nil, nil, s.now)
		s.Require().NoError(err)
		s.Require().NotNil(forste.NesteStatus)

		_, err = OppdaterDeltaker(forste.Deltaker, AvsluttDeltakelse{Sluttdato: slutt}, nil, forste.NesteStatus, s.now)
		s.Require().ErrorIs(err, ErrIngenEndring)
	})

	s.Run("a deferred ending with a new date replaces the queued one", func() {
		d := s.nyDeltaker(StatusDeltar)

		forste, err := OppdaterDeltaker(d, AvsluttDeltakelse{Sluttdato: s.dag(10)}, nil, nil, s.now)
		s.Require().NoError(err)

		andre, err := OppdaterDeltaker(forste.Deltaker, AvsluttDeltakelse{Sluttdato: s.dag(20)}, nil, forste.NesteStatus, s.now)
		s.Require().NoError(err)
		s.Require().NotNil(andre.NesteStatus)
		s.True(andre.NesteStatus.GyldigFra.Equal(s.dag(21)))
	})
}

func (s *EndringHandlerSuite) TestAvbrytDeltakelse() {
	s.Run("always ends in AVBRUTT", func() {
		d := s.nyDeltaker(StatusDeltar)
		aarsak := &Aarsak{Type: AarsakIkkeMott}

		utfall, err := OppdaterDeltaker(d, AvbrytDeltakelse{Sluttdato: s.dag(-2), Aarsak: aarsak}, nil, nil, s.now)
		s.Require().NoError(err)
		s.Equal(StatusAvbrutt, utfall.Deltaker.Status.Type)
	})

	s.Run("future date defers the abort", func() {
		d := s.nyDeltaker(StatusDeltar)

		utfall, err := OppdaterDeltaker(d, AvbrytDeltakelse{Sluttdato: s.dag(3)}, nil, nil, s.now)
		s.Require().NoError(err)
		s.Equal(StatusDeltar, utfall.Deltaker.Status.Type)
		s.Require().NotNil(utfall.NesteStatus)
		s.Equal(StatusAvbrutt, utfall.NesteStatus.Type)
	})

	s.Run("repeating a deferred abort is a no-op", func() {
		d := s.nyDeltaker(StatusDeltar)

		forste, err := OppdaterDeltaker(d, AvbrytDeltakelse{Sluttdato: s.dag(3)}, nil, nil, s.now)
		s.Require().NoError(err)

		_, err = OppdaterDeltaker(forste.Deltaker, AvbrytDeltakelse{Sluttdato: s.dag(3)}, nil, forste.NesteStatus, s.now)
		s.Require().ErrorIs(err, ErrIngenEndring)
	})
}

func (s *EndringHandlerSuite) TestEndreAvslutning() {
	s.Run("non-kurs correction lands on HAR_SLUTTET", func() {
		d := s.nyDeltaker(StatusAvbrutt)
		slutt := s.dag(-5)
		d.Sluttdato = &slutt

		utfall, err := OppdaterDeltaker(d, EndreAvslutning{}, nil, nil, s.now)
		s.Require().NoError(err)
		s.Equal(StatusHarSluttet, utfall.Deltaker.Status.Type)
	})

	s.Run("kurs correction follows harFullfort", func() {
		d := s.nyKursdeltaker(StatusAvbrutt, s.dag(-5))
		slutt := s.dag(-5)
		d.Sluttdato = &slutt

		utfall, err := OppdaterDeltaker(d, EndreAvslutning{HarFullfort: true}, nil, nil, s.now)
		s.Require().NoError(err)
		s.Equal(StatusFullfort, utfall.Deltaker.Status.Type)
	})

	s.Run("new future end date routes through the deferral path", func() {
		d := s.nyDeltaker(StatusHarSluttet)
		gammelSlutt := s.dag(-5)
		d.Sluttdato = &gammelSlutt
		nySlutt := s.dag(8)

		utfall, err := OppdaterDeltaker(d, EndreAvslutning{Sluttdato: &nySlutt}, nil, nil, s.now)
		s.Require().NoError(err)
		s.Equal(StatusDeltar, utfall.Deltaker.Status.Type)
		s.Require().NotNil(utfall.NesteStatus)
	})

	s.Run("unchanged outcome is a no-op", func() {
		d := s.nyDeltaker(StatusHarSluttet)
		slutt := s.dag(-5)
		d.Sluttdato = &slutt

		_, err := OppdaterDeltaker(d, EndreAvslutning{}, nil, nil, s.now)
		s.Require().ErrorIs(err, ErrIngenEndring)
	})
}

func (s *EndringHandlerSuite) TestIkkeAktuell() {
	s.Run("marks the deltaker not relevant and clears dates", func() {
		d := s.nyDeltaker(StatusVenterPaOppstart)
		start := s.dag(5)
		d.Startdato = &start
		aarsak := &Aarsak{Type: AarsakTrengerAnnenStotte}

		utfall, err := OppdaterDeltaker(d, IkkeAktuell{Aarsak: aarsak}, nil, nil, s.now)
		s.Require().NoError(err)
		s.Equal(StatusIkkeAktuell, utfall.Deltaker.Status.Type)
		s.Nil(utfall.Deltaker.Startdato)
		s.Nil(utfall.Deltaker.Sluttdato)
	})

	s.Run("already not relevant with the same reason is a no-op", func() {
		d := s.nyDeltaker(StatusIkkeAktuell)
		aarsak := &Aarsak{Type: AarsakSyk}
		d.Status.Aarsak = aarsak

		_, err := OppdaterDeltaker(d, IkkeAktuell{Aarsak: aarsak}, nil, nil, s.now)
		s.Require().ErrorIs(err, ErrIngenEndring)
	})

	s.Run("a different reason replaces the status record", func() {
		d := s.nyDeltaker(StatusIkkeAktuell)
		d.Status.Aarsak = &Aarsak{Type: AarsakSyk}

		utfall, err := OppdaterDeltaker(d, IkkeAktuell{Aarsak: &Aarsak{Type: AarsakUtdanning}}, nil, nil, s.now)
		s.Require().NoError(err)
		s.True(utfall.Deltaker.Status.HarAarsak(AarsakUtdanning))
	})
}

func (s *EndringHandlerSuite) TestReaktiverDeltakelse() {
	s.Run("rolling-enrollment deltaker goes back to VENTER_PA_OPPSTART", func() {
		d := s.nyDeltaker(StatusIkkeAktuell)

		utfall, err := OppdaterDeltaker(d, ReaktiverDeltakelse{Begrunnelse: "skal likevel delta"}, nil, nil, s.now)
		s.Require().NoError(err)
		s.Equal(StatusVenterPaOppstart, utfall.Deltaker.Status.Type)
		s.Nil(utfall.Deltaker.Startdato)
	})

	s.Run("cohort deltaker goes back to SOKT_INN", func() {
		d := s.nyDeltaker(StatusIkkeAktuell)
		d.Deltakerliste.Oppstartstype = OppstartstypeFelles

		utfall, err := OppdaterDeltaker(d, ReaktiverDeltakelse{Begrunnelse: "skal likevel delta"}, nil, nil, s.now)
		s.Require().NoError(err)
		s.Equal(StatusSoktInn, utfall.Deltaker.Status.Type)
	})

	s.Run("only IKKE_AKTUELL can be reactivated", func() {
		d := s.nyDeltaker(StatusDeltar)

		_, err := OppdaterDeltaker(d, ReaktiverDeltakelse{Begrunnelse: "feil"}, nil, nil, s.now)
		s.Require().ErrorIs(err, ErrIngenEndring)
	})
}

func (s *EndringHandlerSuite) TestFjernOppstartsdato() {
	s.Run("clears both dates", func() {
		d := s.nyDeltaker(StatusVenterPaOppstart)
		start, slutt := s.dag(5), s.dag(50)
		d.Startdato, d.Sluttdato = &start, &slutt

		utfall, err := OppdaterDeltaker(d, FjernOppstartsdato{}, nil, nil, s.now)
		s.Require().NoError(err)
		s.Nil(utfall.Deltaker.Startdato)
		s.Nil(utfall.Deltaker.Sluttdato)
	})

	s.Run("no start date is a no-op", func() {
		d := s.nyDeltaker(StatusVenterPaOppstart)

		_, err := OppdaterDeltaker(d, FjernOppstartsdato{}, nil, nil, s.now)
		s.Require().ErrorIs(err, ErrIngenEndring)
	})
}

func (s *EndringHandlerSuite) TestEndreDeltakelsesmengde() {
	mengder := func() Deltakelsesmengder {
		return NyDeltakelsesmengder([]Deltakelsesmengde{
			{Deltakelsesprosent: 100, GyldigFra: s.dag(-30), Opprettet: s.dag(-30)},
		})
	}

	s.Run("a current-dated change applies to the snapshot", func() {
		d := s.nyDeltaker(StatusDeltar)

		utfall, err := OppdaterDeltaker(d, EndreDeltakelsesmengde{
			Deltakelsesprosent: 50,
			DagerPerUke:        dager(3),
			Gyldigfra:          s.now,
		}, mengder(), nil, s.now)
		s.Require().NoError(err)
		s.False(utfall.ErFremtidigEndring)
		s.Require().NotNil(utfall.Deltaker.Deltakelsesprosent)
		s.Equal(50.0, *utfall.Deltaker.Deltakelsesprosent)
		s.Equal(3.0, *utfall.Deltaker.DagerPerUke)
	})

	s.Run("a future-dated change leaves the snapshot alone", func() {
		d := s.nyDeltaker(StatusDeltar)
		prosent := 100.0
		d.Deltakelsesprosent = &prosent

		utfall, err := OppdaterDeltaker(d, EndreDeltakelsesmengde{
			Deltakelsesprosent: 50,
			Gyldigfra:          s.dag(14),
		}, mengder(), nil, s.now)
		s.Require().NoError(err)
		s.True(utfall.ErFremtidigEndring)
		s.Equal(100.0, *utfall.Deltaker.Deltakelsesprosent)
	})

	s.Run("the same quota again is a no-op", func() {
		d := s.nyDeltaker(StatusDeltar)

		_, err := OppdaterDeltaker(d, EndreDeltakelsesmengde{
			Deltakelsesprosent: 100,
			Gyldigfra:          s.now,
		}, mengder(), nil, s.now)
		s.Require().ErrorIs(err, ErrIngenEndring)
	})

	s.Run("a change dated before the latest record is rejected", func() {
		historikk := NyDeltakelsesmengder([]Deltakelsesmengde{
			{Deltakelsesprosent: 100, GyldigFra: s.dag(-30), Opprettet: s.dag(-30)},
			{Deltakelsesprosent: 60, GyldigFra: s.dag(-2), Opprettet: s.dag(-2)},
		})
		d := s.nyDeltaker(StatusDeltar)

		_, err := OppdaterDeltaker(d, EndreDeltakelsesmengde{
			Deltakelsesprosent: 80,
			Gyldigfra:          s.dag(-10),
		}, historikk, nil, s.now)
		s.Require().ErrorIs(err, ErrIngenEndring)
	})
}

func (s *EndringHandlerSuite) TestTekstligeEndringer() {
	s.Run("bakgrunnsinformasjon updates and repeats as no-op", func() {
		d := s.nyDeltaker(StatusDeltar)
		tekst := "Trenger tilrettelagt arbeidstid"

		utfall, err := OppdaterDeltaker(d, EndreBakgrunnsinformasjon{Bakgrunnsinformasjon: &tekst}, nil, nil, s.now)
		s.Require().NoError(err)
		s.Equal(&tekst, utfall.Deltaker.Bakgrunnsinformasjon)

		_, err = OppdaterDeltaker(utfall.Deltaker, EndreBakgrunnsinformasjon{Bakgrunnsinformasjon: &tekst}, nil, nil, s.now)
		s.Require().ErrorIs(err, ErrIngenEndring)
	})

	s.Run("innhold replaces the content list", func() {
		d := s.nyDeltaker(StatusDeltar)
		innhold := []Innhold{{Tekst: "Arbeidspraksis", Innholdskode: "arbeidspraksis"}}

		utfall, err := OppdaterDeltaker(d, EndreInnhold{Innhold: innhold}, nil, nil, s.now)
		s.Require().NoError(err)
		s.Equal(innhold, utfall.Deltaker.Innhold)

		_, err = OppdaterDeltaker(utfall.Deltaker, EndreInnhold{Innhold: innhold}, nil, nil, s.now)
		s.Require().ErrorIs(err, ErrIngenEndring)
	})
}

func (s *EndringHandlerSuite) TestEndreSluttarsak() {
	s.Run("replaces the reason but keeps the status type", func() {
		d := s.nyDeltaker(StatusHarSluttet)
		d.Status.Aarsak = &Aarsak{Type: AarsakSyk}
		gammelID := d.Status.ID

		utfall, err := OppdaterDeltaker(d, EndreSluttarsak{Aarsak: Aarsak{Type: AarsakFattJobb}}, nil, nil, s.now)
		s.Require().NoError(err)
		s.Equal(StatusHarSluttet, utfall.Deltaker.Status.Type)
		s.True(utfall.Deltaker.Status.HarAarsak(AarsakFattJobb))
		s.NotEqual(gammelID, utfall.Deltaker.Status.ID, "history is append-only, a new record replaces the old")
	})

	s.Run("same reason is a no-op", func() {
		d := s.nyDeltaker(StatusHarSluttet)
		d.Status.Aarsak = &Aarsak{Type: AarsakSyk}

		_, err := OppdaterDeltaker(d, EndreSluttarsak{Aarsak: Aarsak{Type: AarsakSyk}}, nil, nil, s.now)
		s.Require().ErrorIs(err, ErrIngenEndring)
	})
}

type ukjentEndring struct{}

func (ukjentEndring) EndringType() EndringType { return "UKJENT" }

func (s *EndringHandlerSuite) TestUkjentEndringstype() {
	d := s.nyDeltaker(StatusDeltar)
	_, err := OppdaterDeltaker(d, ukjentEndring{}, nil, nil, s.now)
	s.Require().Error(err)
	s.NotErrorIs(err, ErrIngenEndring)
}
