package deltaker

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// FremtidigStatus pairs a deltaker with a queued status whose GyldigFra has
// arrived and which the progression sweep should promote to current.
type FremtidigStatus struct {
	Deltaker Deltaker
	Status   DeltakerStatus
}

// Store is interface-driven to keep the domain logic testable and to allow
// swapping in-memory and PostgreSQL persistence without rewiring business
// code.
//
// The status history is append-only: Upsert supersedes the previously open
// status records by stamping GyldigTil, never by mutating anything else, and
// enforces that a deltaker has exactly one current status afterwards.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (Deltaker, error)
	Upsert(ctx context.Context, deltaker Deltaker) error

	// LagreNesteStatus queues a future-dated status transition. At most one
	// may be pending per deltaker; a new one replaces it.
	LagreNesteStatus(ctx context.Context, deltakerID uuid.UUID, status DeltakerStatus) error
	// NesteStatus returns the pending queued status, or nil when none exists.
	NesteStatus(ctx context.Context, deltakerID uuid.UUID) (*DeltakerStatus, error)
	StatusHistorikk(ctx context.Context, deltakerID uuid.UUID) ([]DeltakerStatus, error)

	LagreEndring(ctx context.Context, endring DeltakerEndring) error
	Endringer(ctx context.Context, deltakerID uuid.UUID) ([]DeltakerEndring, error)

	GjeldendeVedtak(ctx context.Context, deltakerID uuid.UUID) (*Vedtak, error)
	LagreVedtak(ctx context.Context, vedtak Vedtak) error

	// Bulk reads for the progression sweep. Deltakere with a pending future
	// status are excluded from the first two so one sweep can never assign
	// them a second status.
	SkalHaAvsluttendeStatus(ctx context.Context, idag time.Time) ([]Deltaker, error)
	SkalHaStatusDeltar(ctx context.Context, idag time.Time) ([]Deltaker, error)
	FremtidigeStatuser(ctx context.Context, idag time.Time) ([]FremtidigStatus, error)
	OppdaterStatuser(ctx context.Context, deltakere []Deltaker) error
}
