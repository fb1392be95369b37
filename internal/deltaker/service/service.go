// Package service orchestrates the change path: load the snapshot and its
// history, run the pure dispatcher, persist the result, and emit a hendelse.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"deltakelse/internal/deltaker"
	"deltakelse/internal/hendelse"
	"deltakelse/internal/platform/metrics"
	"deltakelse/pkg/requestcontext"
)

type Service struct {
	store     deltaker.Store
	hendelser chan<- hendelse.Hendelse
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func New(store deltaker.Store, hendelser chan<- hendelse.Hendelse, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		store:     store,
		hendelser: hendelser,
		logger:    logger,
		metrics:   m,
	}
}

// Get returns the deltaker snapshot.
func (s *Service) Get(ctx context.Context, deltakerID uuid.UUID) (deltaker.Deltaker, error) {
	return s.store.Get(ctx, deltakerID)
}

// StatusHistorikk returns the full append-only status timeline.
func (s *Service) StatusHistorikk(ctx context.Context, deltakerID uuid.UUID) ([]deltaker.DeltakerStatus, error) {
	if _, err := s.store.Get(ctx, deltakerID); err != nil {
		return nil, err
	}
	return s.store.StatusHistorikk(ctx, deltakerID)
}

// Deltakelsesmengder reconstructs the quota history from the persisted
// change log and the vedtak.
func (s *Service) Deltakelsesmengder(ctx context.Context, deltakerID uuid.UUID) (deltaker.Deltakelsesmengder, error) {
	if _, err := s.store.Get(ctx, deltakerID); err != nil {
		return nil, err
	}
	endringer, err := s.store.Endringer(ctx, deltakerID)
	if err != nil {
		return nil, err
	}
	vedtak, err := s.store.GjeldendeVedtak(ctx, deltakerID)
	if err != nil {
		return nil, err
	}
	return deltaker.TilDeltakelsesmengder(endringer, vedtak), nil
}

// Endre applies one change request to a deltaker. A change that would not
// alter observable state returns ErrIngenEndring and leaves no trace: no
// change record, no event. A change with a future effective date is recorded
// but does not touch the snapshot; the progression sweep applies it when the
// date arrives.
func (s *Service) Endre(ctx context.Context, deltakerID uuid.UUID, endring deltaker.Endring, endretAv string) (deltaker.Deltaker, error) {
	now := requestcontext.Now(ctx)

	d, err := s.store.Get(ctx, deltakerID)
	if err != nil {
		return deltaker.Deltaker{}, err
	}
	vedtak, err := s.store.GjeldendeVedtak(ctx, deltakerID)
	if err != nil {
		return deltaker.Deltaker{}, err
	}
	if vedtak == nil || !vedtak.ErFattet() {
		return deltaker.Deltaker{}, deltaker.ErrVedtakIkkeFattet
	}
	endringer, err := s.store.Endringer(ctx, deltakerID)
	if err != nil {
		return deltaker.Deltaker{}, err
	}
	mengder := deltaker.TilDeltakelsesmengder(endringer, vedtak)
	neste, err := s.store.NesteStatus(ctx, deltakerID)
	if err != nil {
		return deltaker.Deltaker{}, err
	}

	utfall, err := deltaker.OppdaterDeltaker(d, endring, mengder, neste, now)
	if errors.Is(err, deltaker.ErrIngenEndring) {
		s.metrics.AvvisteEndringer.Inc()
		return deltaker.Deltaker{}, err
	}
	if err != nil {
		return deltaker.Deltaker{}, err
	}

	record := deltaker.DeltakerEndring{
		ID:         uuid.New(),
		DeltakerID: deltakerID,
		Endring:    endring,
		EndretAv:   endretAv,
		Endret:     now,
	}

	if utfall.ErFremtidigEndring {
		if err := s.store.LagreEndring(ctx, record); err != nil {
			return deltaker.Deltaker{}, err
		}
		s.metrics.FremtidigeEndringer.Inc()
		s.emit(ctx, deltakerID, hendelse.TypeFremtidigEndring, record, now)
		return utfall.Deltaker, nil
	}

	oppdatert := utfall.Deltaker
	oppdatert.SistEndret = now
	if err := s.store.Upsert(ctx, oppdatert); err != nil {
		return deltaker.Deltaker{}, err
	}
	if utfall.NesteStatus != nil {
		if err := s.store.LagreNesteStatus(ctx, deltakerID, *utfall.NesteStatus); err != nil {
			return deltaker.Deltaker{}, err
		}
	}
	if err := s.store.LagreEndring(ctx, record); err != nil {
		return deltaker.Deltaker{}, err
	}

	s.metrics.EndringerUtfort.WithLabelValues(string(endring.EndringType())).Inc()
	s.emit(ctx, deltakerID, hendelse.TypeEndringUtfort, oppdatert, now)

	s.logger.InfoContext(ctx, "endring utfort",
		"deltaker_id", deltakerID,
		"endringstype", endring.EndringType(),
		"status", oppdatert.Status.Type,
		"request_id", requestcontext.RequestID(ctx),
	)
	return oppdatert, nil
}

func (s *Service) emit(ctx context.Context, deltakerID uuid.UUID, t hendelse.Type, payload any, now time.Time) {
	h, err := hendelse.Ny(deltakerID, t, payload, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "kunne ikke bygge hendelse", "deltaker_id", deltakerID, "error", err)
		return
	}
	select {
	case s.hendelser <- h:
	default:
		s.logger.WarnContext(ctx, "hendelseskanal full, dropper hendelse", "deltaker_id", deltakerID, "type", t)
	}
}
