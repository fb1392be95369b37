// Package store provides the persistence implementations for the deltaker
// domain: an in-memory store for unit tests and local development, and a
// PostgreSQL store for production.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"deltakelse/internal/deltaker"
	"deltakelse/pkg/apierrors"
)

// MemoryStore keeps everything in maps guarded by one RWMutex. It favors
// clarity over performance and mirrors the PostgreSQL store's semantics,
// including status supersession and the single-current-status invariant.
type MemoryStore struct {
	mu        sync.RWMutex
	deltakere map[uuid.UUID]deltaker.Deltaker
	statuser  map[uuid.UUID][]deltaker.DeltakerStatus
	endringer map[uuid.UUID][]deltaker.DeltakerEndring
	vedtak    map[uuid.UUID][]deltaker.Vedtak
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		deltakere: make(map[uuid.UUID]deltaker.Deltaker),
		statuser:  make(map[uuid.UUID][]deltaker.DeltakerStatus),
		endringer: make(map[uuid.UUID][]deltaker.DeltakerEndring),
		vedtak:    make(map[uuid.UUID][]deltaker.Vedtak),
	}
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (deltaker.Deltaker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.deltakere[id]
	if !ok {
		return deltaker.Deltaker{}, deltaker.ErrNotFound
	}
	return d, nil
}

func (s *MemoryStore) Upsert(_ context.Context, d deltaker.Deltaker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertLocked(d)
}

func (s *MemoryStore) upsertLocked(d deltaker.Deltaker) error {
	now := time.Now()
	arena := s.statuser[d.ID]

	finnes := false
	for i := range arena {
		if arena[i].ID == d.Status.ID {
			arena[i] = d.Status
			finnes = true
			continue
		}
		if arena[i].GyldigTil == nil {
			til := now
			arena[i].GyldigTil = &til
		}
	}
	if !finnes {
		arena = append(arena, d.Status)
	}
	s.statuser[d.ID] = arena
	s.deltakere[d.ID] = d

	return s.sjekkStatusInvariantLocked(d.ID)
}

// sjekkStatusInvariantLocked verifies that the snapshot's current status is
// an open record and at most one other open (queued) record exists. A
// violation is a logic defect and is surfaced as an internal error so callers
// abort loudly.
func (s *MemoryStore) sjekkStatusInvariantLocked(deltakerID uuid.UUID) error {
	gjeldendeID := s.deltakere[deltakerID].Status.ID
	gjeldende, fremtidige := 0, 0
	for _, st := range s.statuser[deltakerID] {
		if st.GyldigTil != nil {
			continue
		}
		if st.ID == gjeldendeID {
			gjeldende++
		} else {
			fremtidige++
		}
	}
	if gjeldende != 1 || fremtidige > 1 {
		return apierrors.New(apierrors.CodeInternal,
			fmt.Sprintf("statusinvariant brutt for deltaker %s: %d gjeldende, %d fremtidige", deltakerID, gjeldende, fremtidige))
	}
	return nil
}

func (s *MemoryStore) LagreNesteStatus(_ context.Context, deltakerID uuid.UUID, status deltaker.DeltakerStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	arena := s.statuser[deltakerID]
	gjeldendeID := s.deltakere[deltakerID].Status.ID
	for i := range arena {
		if arena[i].GyldigTil == nil && arena[i].ID != gjeldendeID && arena[i].ID != status.ID {
			til := now
			arena[i].GyldigTil = &til
		}
	}
	s.statuser[deltakerID] = append(arena, status)
	return s.sjekkStatusInvariantLocked(deltakerID)
}

func (s *MemoryStore) NesteStatus(_ context.Context, deltakerID uuid.UUID) (*deltaker.DeltakerStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	gjeldendeID := s.deltakere[deltakerID].Status.ID
	for _, st := range s.statuser[deltakerID] {
		if st.GyldigTil == nil && st.ID != gjeldendeID {
			kopi := st
			return &kopi, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) StatusHistorikk(_ context.Context, deltakerID uuid.UUID) ([]deltaker.DeltakerStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]deltaker.DeltakerStatus{}, s.statuser[deltakerID]...), nil
}

func (s *MemoryStore) LagreEndring(_ context.Context, endring deltaker.DeltakerEndring) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endringer[endring.DeltakerID] = append(s.endringer[endring.DeltakerID], endring)
	return nil
}

func (s *MemoryStore) Endringer(_ context.Context, deltakerID uuid.UUID) ([]deltaker.DeltakerEndring, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]deltaker.DeltakerEndring{}, s.endringer[deltakerID]...), nil
}

func (s *MemoryStore) GjeldendeVedtak(_ context.Context, deltakerID uuid.UUID) (*deltaker.Vedtak, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	alle := s.vedtak[deltakerID]
	if len(alle) == 0 {
		return nil, nil
	}
	siste := alle[len(alle)-1]
	return &siste, nil
}

func (s *MemoryStore) LagreVedtak(_ context.Context, vedtak deltaker.Vedtak) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vedtak[vedtak.DeltakerID] = append(s.vedtak[vedtak.DeltakerID], vedtak)
	return nil
}

func (s *MemoryStore) SkalHaAvsluttendeStatus(_ context.Context, idag time.Time) ([]deltaker.Deltaker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var resultat []deltaker.Deltaker
	for _, d := range s.deltakere {
		if s.harFremtidigStatusLocked(d) {
			continue
		}
		switch d.Status.Type {
		case deltaker.StatusUtkastTilPamelding,
			deltaker.StatusKladd,
			deltaker.StatusPabegyntRegistrering,
			deltaker.StatusSoktInn,
			deltaker.StatusVenterPaOppstart:
			if d.Deltakerliste.ErAvsluttet() {
				resultat = append(resultat, d)
			}
		case deltaker.StatusDeltar:
			if d.Deltakerliste.ErAvsluttet() || (d.Sluttdato != nil && deltaker.DatoHarPassert(*d.Sluttdato, idag)) {
				resultat = append(resultat, d)
			}
		}
	}
	return resultat, nil
}

func (s *MemoryStore) SkalHaStatusDeltar(_ context.Context, idag time.Time) ([]deltaker.Deltaker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var resultat []deltaker.Deltaker
	for _, d := range s.deltakere {
		if d.Status.Type != deltaker.StatusVenterPaOppstart || s.harFremtidigStatusLocked(d) {
			continue
		}
		if d.Startdato != nil && !d.Startdato.After(idag) {
			resultat = append(resultat, d)
		}
	}
	return resultat, nil
}

func (s *MemoryStore) FremtidigeStatuser(_ context.Context, idag time.Time) ([]deltaker.FremtidigStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var resultat []deltaker.FremtidigStatus
	for id, d := range s.deltakere {
		for _, st := range s.statuser[id] {
			if st.GyldigTil == nil && st.ID != d.Status.ID && !st.GyldigFra.After(idag) {
				resultat = append(resultat, deltaker.FremtidigStatus{Deltaker: d, Status: st})
			}
		}
	}
	return resultat, nil
}

func (s *MemoryStore) OppdaterStatuser(_ context.Context, deltakere []deltaker.Deltaker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range deltakere {
		if err := s.upsertLocked(d); err != nil {
			return err
		}
	}
	return nil
}

// harFremtidigStatusLocked reports whether the deltaker has an open status
// row besides the current one.
func (s *MemoryStore) harFremtidigStatusLocked(d deltaker.Deltaker) bool {
	for _, st := range s.statuser[d.ID] {
		if st.GyldigTil == nil && st.ID != d.Status.ID {
			return true
		}
	}
	return false
}
