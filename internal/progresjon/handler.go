// Package progresjon is the batch engine that moves deltakere whose status
// went stale purely because time passed: starts that arrived, endings that
// arrived, programs that ended. It never reacts to an explicit change
// request; that is the change dispatcher's job.
package progresjon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"deltakelse/internal/deltaker"
	"deltakelse/internal/hendelse"
	"deltakelse/internal/platform/metrics"
	"deltakelse/pkg/apierrors"
	"deltakelse/pkg/requestcontext"
)

const maksParallelle = 8

type Handler struct {
	store     deltaker.Store
	hendelser chan<- hendelse.Hendelse
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func NewHandler(store deltaker.Store, hendelser chan<- hendelse.Hendelse, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		store:     store,
		hendelser: hendelser,
		logger:    logger,
		metrics:   m,
	}
}

// OppdaterTilAvsluttendeStatus sweeps every deltaker whose participation
// should have ended by now and assigns the terminal status the elapsed time
// implies, plus promotes queued future statuses whose GyldigFra has arrived.
//
// The sweep is idempotent: the candidate queries only return deltakere whose
// stored status no longer matches reality, so a second run right after the
// first finds nothing. A deltaker claimed by more than one rule in the same
// sweep is a logic defect and aborts the batch.
func (h *Handler) OppdaterTilAvsluttendeStatus(ctx context.Context) (int, error) {
	idag := requestcontext.Now(ctx)

	kandidater, err := h.store.SkalHaAvsluttendeStatus(ctx, idag)
	if err != nil {
		return 0, fmt.Errorf("hent kandidater for avsluttende status: %w", err)
	}
	fremtidige, err := h.store.FremtidigeStatuser(ctx, idag)
	if err != nil {
		return 0, fmt.Errorf("hent fremtidige statuser: %w", err)
	}

	// Classifications are pure and independent, so they run in parallel.
	// A deltaker no rule matches is logged and skipped, not fatal.
	resultater := make([]*deltaker.Deltaker, len(kandidater))
	var g errgroup.Group
	g.SetLimit(maksParallelle)
	for i, kandidat := range kandidater {
		g.Go(func() error {
			oppdatert, err := tilAvsluttendeStatus(kandidat, idag)
			if err != nil {
				h.logger.WarnContext(ctx, "deltaker hoppet over i progresjon",
					"deltaker_id", kandidat.ID,
					"status", kandidat.Status.Type,
					"error", err,
				)
				return nil
			}
			resultater[i] = &oppdatert
			return nil
		})
	}
	_ = g.Wait()

	var oppdaterte []deltaker.Deltaker
	for _, r := range resultater {
		if r != nil {
			oppdaterte = append(oppdaterte, *r)
		}
	}
	for _, f := range fremtidige {
		oppdaterte = append(oppdaterte, promoterFremtidigStatus(f))
	}

	if err := sjekkDistinkteDeltakere(oppdaterte); err != nil {
		return 0, err
	}
	return h.lagreOgPubliser(ctx, oppdaterte, idag)
}

// OppdaterTilDeltar promotes deltakere whose start date has arrived from
// VENTER_PA_OPPSTART to DELTAR.
func (h *Handler) OppdaterTilDeltar(ctx context.Context) (int, error) {
	idag := requestcontext.Now(ctx)

	kandidater, err := h.store.SkalHaStatusDeltar(ctx, idag)
	if err != nil {
		return 0, fmt.Errorf("hent kandidater for deltar: %w", err)
	}

	oppdaterte := make([]deltaker.Deltaker, 0, len(kandidater))
	for _, d := range kandidater {
		oppdaterte = append(oppdaterte, medNyStatus(d, deltaker.StatusDeltar, nil, idag))
	}
	return h.lagreOgPubliser(ctx, oppdaterte, idag)
}

// tilAvsluttendeStatus applies the ending rules in priority order; exactly
// one may claim a candidate.
func tilAvsluttendeStatus(d deltaker.Deltaker, idag time.Time) (deltaker.Deltaker, error) {
	listeAvsluttet := d.Deltakerliste.ErAvsluttet()

	switch {
	case d.Status.Type == deltaker.StatusUtkastTilPamelding && listeAvsluttet:
		aarsak := &deltaker.Aarsak{Type: deltaker.AarsakSamarbeidetAvsluttet}
		return medNyStatus(d, deltaker.StatusAvbruttUtkast, aarsak, idag), nil

	case erFoerOppstart(d.Status.Type) && listeAvsluttet:
		d = medNyStatus(d, deltaker.StatusIkkeAktuell, nil, idag)
		d.Startdato = nil
		d.Sluttdato = nil
		return d, nil

	case d.Status.Type == deltaker.StatusDeltar && d.Deltakerliste.ErKurs() && d.Deltakerliste.ErAvlystEllerAvbrutt():
		d.Sluttdato = sluttdatoForListe(d, idag)
		return medNyStatus(d, deltaker.StatusAvbrutt, nil, idag), nil

	case d.Status.Type == deltaker.StatusDeltar && d.Sluttdato != nil && deltaker.DatoHarPassert(*d.Sluttdato, idag):
		return medNyStatus(d, deltaker.AvsluttendeStatus(d, d.Sluttdato), nil, idag), nil

	case d.Status.Type == deltaker.StatusDeltar && listeAvsluttet:
		// Program over: participation ends no later than the program does.
		// An own end date earlier than the program's is kept; a missing or
		// later one is replaced by the program's end date.
		listeSlutt := sluttdatoForListe(d, idag)
		if d.Sluttdato == nil || deltaker.DatoHarPassert(*listeSlutt, *d.Sluttdato) {
			d.Sluttdato = listeSlutt
		}
		return medNyStatus(d, deltaker.AvsluttendeStatus(d, d.Sluttdato), nil, idag), nil

	default:
		return deltaker.Deltaker{}, fmt.Errorf("ingen progresjonsregel for status %s", d.Status.Type)
	}
}

// promoterFremtidigStatus makes a queued status current and corrects the end
// date to the day before the status took effect.
func promoterFremtidigStatus(f deltaker.FremtidigStatus) deltaker.Deltaker {
	d := f.Deltaker
	d.Status = f.Status
	if f.Status.Type.ErAvsluttende() {
		slutt := deltaker.DagenFoer(f.Status.GyldigFra)
		d.Sluttdato = &slutt
	}
	return d
}

func (h *Handler) lagreOgPubliser(ctx context.Context, oppdaterte []deltaker.Deltaker, idag time.Time) (int, error) {
	if len(oppdaterte) == 0 {
		return 0, nil
	}
	for i := range oppdaterte {
		oppdaterte[i].SistEndret = idag
	}
	if err := h.store.OppdaterStatuser(ctx, oppdaterte); err != nil {
		return 0, fmt.Errorf("oppdater statuser: %w", err)
	}

	antall := make(map[deltaker.DeltakerStatusType]int)
	for _, d := range oppdaterte {
		antall[d.Status.Type]++
		h.metrics.StatusOppdateringer.WithLabelValues(string(d.Status.Type)).Inc()

		hend, err := hendelse.Ny(d.ID, hendelse.TypeStatusOppdatert, d, idag)
		if err != nil {
			h.logger.ErrorContext(ctx, "kunne ikke bygge hendelse", "deltaker_id", d.ID, "error", err)
			continue
		}
		select {
		case h.hendelser <- hend:
		default:
			h.logger.WarnContext(ctx, "hendelseskanal full, dropper hendelse", "deltaker_id", d.ID)
		}
	}
	for status, n := range antall {
		h.logger.InfoContext(ctx, "progresjon oppdaterte statuser", "status", status, "antall", n)
	}
	return len(oppdaterte), nil
}

// sjekkDistinkteDeltakere asserts no deltaker was claimed twice in one sweep.
// Two rules claiming the same deltaker is a logic defect: the batch aborts
// rather than pick a winner.
func sjekkDistinkteDeltakere(oppdaterte []deltaker.Deltaker) error {
	sett := make(map[uuid.UUID]struct{}, len(oppdaterte))
	for _, d := range oppdaterte {
		if _, finnes := sett[d.ID]; finnes {
			return apierrors.New(apierrors.CodeInternal,
				fmt.Sprintf("deltaker %s tildelt status av flere progresjonsregler i samme kjoring", d.ID))
		}
		sett[d.ID] = struct{}{}
	}
	return nil
}

func medNyStatus(d deltaker.Deltaker, t deltaker.DeltakerStatusType, aarsak *deltaker.Aarsak, idag time.Time) deltaker.Deltaker {
	d.Status = deltaker.NyDeltakerStatus(t, aarsak, idag, idag)
	return d
}

// sluttdatoForListe is the end date a terminated program implies: the
// program's own end date when it has one, otherwise today.
func sluttdatoForListe(d deltaker.Deltaker, idag time.Time) *time.Time {
	if d.Deltakerliste.SluttDato != nil {
		return d.Deltakerliste.SluttDato
	}
	dato := idag
	return &dato
}

func erFoerOppstart(t deltaker.DeltakerStatusType) bool {
	switch t {
	case deltaker.StatusKladd, deltaker.StatusPabegyntRegistrering, deltaker.StatusSoktInn, deltaker.StatusVenterPaOppstart:
		return true
	}
	return false
}
