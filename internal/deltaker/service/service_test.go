package service_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"deltakelse/internal/deltaker"
	"deltakelse/internal/deltaker/service"
	"deltakelse/internal/deltaker/store"
	"deltakelse/internal/hendelse"
	"deltakelse/internal/platform/metrics"
	"deltakelse/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	store     *store.MemoryStore
	service   *service.Service
	hendelser chan hendelse.Hendelse
	now       time.Time
	ctx       context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = store.NewMemoryStore()
	s.hendelser = make(chan hendelse.Hendelse, 100)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.service = service.New(s.store, s.hendelser, logger, metrics.New(prometheus.NewRegistry()))
	s.now = deltaker.Dato(2026, time.June, 15)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *ServiceSuite) dag(offset int) time.Time {
	return s.now.AddDate(0, 0, offset)
}

func (s *ServiceSuite) nyDeltaker() deltaker.Deltaker {
	start := s.dag(-30)
	d := deltaker.Deltaker{
		ID: uuid.New(),
		Deltakerliste: deltaker.Deltakerliste{
			ID:            uuid.New(),
			Navn:          "Oppfolging hos Muligheter AS",
			Tiltakstype:   deltaker.TiltakOppfolging,
			Oppstartstype: deltaker.OppstartstypeLopende,
			Status:        deltaker.DeltakerlisteGjennomfores,
		},
		Startdato:  &start,
		Status:     deltaker.NyDeltakerStatus(deltaker.StatusDeltar, nil, s.dag(-30), s.dag(-30)),
		SistEndret: s.dag(-30),
	}
	s.Require().NoError(s.store.Upsert(s.ctx, d))
	return d
}

func (s *ServiceSuite) fattVedtak(deltakerID uuid.UUID) {
	fattet := s.dag(-30)
	prosent := 100.0
	s.Require().NoError(s.store.LagreVedtak(s.ctx, deltaker.Vedtak{
		ID:                 uuid.New(),
		DeltakerID:         deltakerID,
		Fattet:             &fattet,
		FattetAvNav:        true,
		Deltakelsesprosent: &prosent,
		Opprettet:          s.dag(-31),
	}))
}

func (s *ServiceSuite) nesteHendelse() hendelse.Hendelse {
	select {
	case h := <-s.hendelser:
		return h
	default:
		s.FailNow("expected a hendelse on the channel")
		return hendelse.Hendelse{}
	}
}

// TestVedtakGate verifies that no change goes through without a made vedtak.
func (s *ServiceSuite) TestVedtakGate() {
	s.Run("no vedtak at all", func() {
		d := s.nyDeltaker()
		tekst := "ny bakgrunn"

		_, err := s.service.Endre(s.ctx, d.ID, deltaker.EndreBakgrunnsinformasjon{Bakgrunnsinformasjon: &tekst}, "veileder")
		s.Require().ErrorIs(err, deltaker.ErrVedtakIkkeFattet)
	})

	s.Run("vedtak exists but is not made yet", func() {
		d := s.nyDeltaker()
		s.Require().NoError(s.store.LagreVedtak(s.ctx, deltaker.Vedtak{
			ID:         uuid.New(),
			DeltakerID: d.ID,
			Opprettet:  s.dag(-31),
		}))
		tekst := "ny bakgrunn"

		_, err := s.service.Endre(s.ctx, d.ID, deltaker.EndreBakgrunnsinformasjon{Bakgrunnsinformasjon: &tekst}, "veileder")
		s.Require().ErrorIs(err, deltaker.ErrVedtakIkkeFattet)
	})
}

// TestEndre verifies the applied-change path end to end against the store.
func (s *ServiceSuite) TestEndre() {
	s.Run("persists the snapshot, the change record, and a hendelse", func() {
		d := s.nyDeltaker()
		s.fattVedtak(d.ID)
		tekst := "Trenger tilrettelagt arbeidstid"

		oppdatert, err := s.service.Endre(s.ctx, d.ID, deltaker.EndreBakgrunnsinformasjon{Bakgrunnsinformasjon: &tekst}, "veileder")
		s.Require().NoError(err)
		s.Equal(&tekst, oppdatert.Bakgrunnsinformasjon)
		s.True(oppdatert.SistEndret.Equal(s.now))

		lagret, err := s.store.Get(s.ctx, d.ID)
		s.Require().NoError(err)
		s.Equal(&tekst, lagret.Bakgrunnsinformasjon)

		endringer, err := s.store.Endringer(s.ctx, d.ID)
		s.Require().NoError(err)
		s.Require().Len(endringer, 1)
		s.Equal("veileder", endringer[0].EndretAv)

		h := s.nesteHendelse()
		s.Equal(hendelse.TypeEndringUtfort, h.Type)
		s.Equal(d.ID, h.DeltakerID)
	})

	s.Run("idempotent retry is rejected without a second record or hendelse", func() {
		s.SetupTest()
		d := s.nyDeltaker()
		s.fattVedtak(d.ID)
		tekst := "Trenger tilrettelagt arbeidstid"
		endring := deltaker.EndreBakgrunnsinformasjon{Bakgrunnsinformasjon: &tekst}

		_, err := s.service.Endre(s.ctx, d.ID, endring, "veileder")
		s.Require().NoError(err)
		s.nesteHendelse()

		_, err = s.service.Endre(s.ctx, d.ID, endring, "veileder")
		s.Require().ErrorIs(err, deltaker.ErrIngenEndring)

		endringer, err := s.store.Endringer(s.ctx, d.ID)
		s.Require().NoError(err)
		s.Len(endringer, 1, "a rejected retry must not leave a change record")
		s.Empty(s.hendelser)
	})

	s.Run("unknown deltaker", func() {
		s.SetupTest()
		tekst := "x"
		_, err := s.service.Endre(s.ctx, uuid.New(), deltaker.EndreBakgrunnsinformasjon{Bakgrunnsinformasjon: &tekst}, "veileder")
		s.Require().ErrorIs(err, deltaker.ErrNotFound)
	})
}

// TestFremtidigeEndringer verifies deferred changes: recorded, not applied.
func (s *ServiceSuite) TestFremtidigeEndringer() {
	s.Run("future quota change leaves the snapshot untouched", func() {
		d := s.nyDeltaker()
		s.fattVedtak(d.ID)

		oppdatert, err := s.service.Endre(s.ctx, d.ID, deltaker.EndreDeltakelsesmengde{
			Deltakelsesprosent: 50,
			Gyldigfra:          s.dag(14),
		}, "veileder")
		s.Require().NoError(err)
		s.Nil(oppdatert.Deltakelsesprosent, "snapshot keeps its old quota until the date arrives")

		endringer, err := s.store.Endringer(s.ctx, d.ID)
		s.Require().NoError(err)
		s.Len(endringer, 1, "the change itself is recorded for later replay")

		h := s.nesteHendelse()
		s.Equal(hendelse.TypeFremtidigEndring, h.Type)
	})

	s.Run("recorded future change feeds the reconstructed history", func() {
		s.SetupTest()
		d := s.nyDeltaker()
		s.fattVedtak(d.ID)

		_, err := s.service.Endre(s.ctx, d.ID, deltaker.EndreDeltakelsesmengde{
			Deltakelsesprosent: 50,
			Gyldigfra:          s.dag(14),
		}, "veileder")
		s.Require().NoError(err)

		mengder, err := s.service.Deltakelsesmengder(s.ctx, d.ID)
		s.Require().NoError(err)
		s.Require().Len(mengder, 2)
		s.Equal(50.0, mengder[1].Deltakelsesprosent)
	})

	s.Run("future ending queues a neste status in the store", func() {
		s.SetupTest()
		d := s.nyDeltaker()
		s.fattVedtak(d.ID)

		oppdatert, err := s.service.Endre(s.ctx, d.ID, deltaker.AvsluttDeltakelse{Sluttdato: s.dag(10)}, "veileder")
		s.Require().NoError(err)
		s.Equal(deltaker.StatusDeltar, oppdatert.Status.Type)

		fremtidige, err := s.store.FremtidigeStatuser(s.ctx, s.dag(12))
		s.Require().NoError(err)
		s.Require().Len(fremtidige, 1)
		s.Equal(deltaker.StatusHarSluttet, fremtidige[0].Status.Type)
		s.True(fremtidige[0].Status.GyldigFra.Equal(s.dag(11)))
	})

	s.Run("retrying a queued future ending is rejected as a no-op", func() {
		s.SetupTest()
		d := s.nyDeltaker()
		s.fattVedtak(d.ID)
		endring := deltaker.AvsluttDeltakelse{Sluttdato: s.dag(10)}

		_, err := s.service.Endre(s.ctx, d.ID, endring, "veileder")
		s.Require().NoError(err)
		s.nesteHendelse()

		_, err = s.service.Endre(s.ctx, d.ID, endring, "veileder")
		s.Require().ErrorIs(err, deltaker.ErrIngenEndring)

		endringer, err := s.store.Endringer(s.ctx, d.ID)
		s.Require().NoError(err)
		s.Len(endringer, 1, "one logical edit must leave exactly one change record")
		s.Empty(s.hendelser)

		neste, err := s.store.NesteStatus(s.ctx, d.ID)
		s.Require().NoError(err)
		s.Require().NotNil(neste)
		s.Equal(deltaker.StatusHarSluttet, neste.Type)
	})
}
