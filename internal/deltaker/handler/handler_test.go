package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"deltakelse/internal/deltaker"
	"deltakelse/internal/deltaker/handler"
	"deltakelse/internal/deltaker/service"
	"deltakelse/internal/deltaker/store"
	"deltakelse/internal/hendelse"
	"deltakelse/internal/platform/metrics"
	"deltakelse/pkg/requestcontext"
)

type HandlerSuite struct {
	suite.Suite
	store  *store.MemoryStore
	router chi.Router
	now    time.Time
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.store = store.NewMemoryStore()
	s.now = deltaker.Dato(2026, time.June, 15)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hendelser := make(chan hendelse.Hendelse, 100)
	svc := service.New(s.store, hendelser, logger, metrics.New(prometheus.NewRegistry()))

	s.router = chi.NewRouter()
	handler.New(svc, logger).RegisterRoutes(s.router)
}

func (s *HandlerSuite) seedDeltaker() deltaker.Deltaker {
	ctx := context.Background()
	start := s.now.AddDate(0, 0, -30)
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
		Status:     deltaker.NyDeltakerStatus(deltaker.StatusDeltar, nil, start, start),
		SistEndret: start,
	}
	s.Require().NoError(s.store.Upsert(ctx, d))

	fattet := start
	prosent := 100.0
	s.Require().NoError(s.store.LagreVedtak(ctx, deltaker.Vedtak{
		ID:                 uuid.New(),
		DeltakerID:         d.ID,
		Fattet:             &fattet,
		FattetAvNav:        true,
		Deltakelsesprosent: &prosent,
		Opprettet:          start,
	}))
	return d
}

func (s *HandlerSuite) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req = req.WithContext(requestcontext.WithTime(req.Context(), s.now))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

// TestPostEndring covers the change endpoint.
func (s *HandlerSuite) TestPostEndring() {
	s.Run("applies a change and returns the updated snapshot", func() {
		d := s.seedDeltaker()
		body := `{"type":"ENDRE_BAKGRUNNSINFORMASJON","endring":{"bakgrunnsinformasjon":"ny tekst"},"endretAv":"veileder"}`

		rec := s.do(http.MethodPost, "/deltaker/"+d.ID.String()+"/endring", body)
		s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

		var oppdatert deltaker.Deltaker
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &oppdatert))
		s.Require().NotNil(oppdatert.Bakgrunnsinformasjon)
		s.Equal("ny tekst", *oppdatert.Bakgrunnsinformasjon)
	})

	s.Run("no-op change is a 400", func() {
		s.SetupTest()
		d := s.seedDeltaker()
		body := `{"type":"FJERN_OPPSTARTSDATO","endring":{},"endretAv":"veileder"}`

		rec := s.do(http.MethodPost, "/deltaker/"+d.ID.String()+"/endring", body)
		s.Require().Equal(http.StatusOK, rec.Code)

		rec = s.do(http.MethodPost, "/deltaker/"+d.ID.String()+"/endring", body)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("missing vedtak is a 409", func() {
		s.SetupTest()
		ctx := context.Background()
		d := s.seedDeltaker()
		// Replace the made vedtak with an unmade one.
		s.Require().NoError(s.store.LagreVedtak(ctx, deltaker.Vedtak{ID: uuid.New(), DeltakerID: d.ID, Opprettet: s.now}))

		body := `{"type":"ENDRE_BAKGRUNNSINFORMASJON","endring":{"bakgrunnsinformasjon":"x"},"endretAv":"veileder"}`
		rec := s.do(http.MethodPost, "/deltaker/"+d.ID.String()+"/endring", body)
		s.Equal(http.StatusConflict, rec.Code)
	})

	s.Run("unknown change type is a 400", func() {
		s.SetupTest()
		d := s.seedDeltaker()
		body := `{"type":"GJOER_NOE_RART","endring":{},"endretAv":"veileder"}`

		rec := s.do(http.MethodPost, "/deltaker/"+d.ID.String()+"/endring", body)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("missing endretAv is a 400", func() {
		s.SetupTest()
		d := s.seedDeltaker()
		body := `{"type":"FJERN_OPPSTARTSDATO","endring":{}}`

		rec := s.do(http.MethodPost, "/deltaker/"+d.ID.String()+"/endring", body)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("malformed deltaker id is a 400", func() {
		rec := s.do(http.MethodPost, "/deltaker/ikke-en-uuid/endring", `{}`)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

// TestGetEndpoints covers the read endpoints.
func (s *HandlerSuite) TestGetEndpoints() {
	s.Run("get deltaker", func() {
		d := s.seedDeltaker()
		rec := s.do(http.MethodGet, "/deltaker/"+d.ID.String(), "")
		s.Require().Equal(http.StatusOK, rec.Code)

		var hentet deltaker.Deltaker
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &hentet))
		s.Equal(d.ID, hentet.ID)
	})

	s.Run("unknown deltaker is a 404", func() {
		rec := s.do(http.MethodGet, "/deltaker/"+uuid.NewString(), "")
		s.Equal(http.StatusNotFound, rec.Code)
	})

	s.Run("deltakelsesmengder returns the reconstructed history", func() {
		s.SetupTest()
		d := s.seedDeltaker()
		rec := s.do(http.MethodGet, "/deltaker/"+d.ID.String()+"/deltakelsesmengder", "")
		s.Require().Equal(http.StatusOK, rec.Code)

		var mengder deltaker.Deltakelsesmengder
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &mengder))
		s.Require().Len(mengder, 1)
		s.Equal(100.0, mengder[0].Deltakelsesprosent)
	})

	s.Run("historikk returns the status records", func() {
		s.SetupTest()
		d := s.seedDeltaker()
		rec := s.do(http.MethodGet, "/deltaker/"+d.ID.String()+"/historikk", "")
		s.Require().Equal(http.StatusOK, rec.Code)

		var historikk []deltaker.DeltakerStatus
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &historikk))
		s.Require().Len(historikk, 1)
		s.Equal(deltaker.StatusDeltar, historikk[0].Type)
	})
}
