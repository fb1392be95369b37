package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"deltakelse/internal/deltaker"
	"deltakelse/pkg/apierrors"
)

// PostgresStore persists deltakere, the append-only status history, the
// change log, and vedtak in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const deltakerColumns = `
	d.id, d.startdato, d.sluttdato, d.dager_per_uke, d.deltakelsesprosent,
	d.bakgrunnsinformasjon, d.innhold, d.sist_endret,
	dl.id, dl.navn, dl.tiltakstype, dl.oppstartstype, dl.status, dl.start_dato, dl.slutt_dato,
	ds.id, ds.type, ds.aarsak, ds.gyldig_fra, ds.gyldig_til, ds.opprettet`

// gjeldendeStatusJoin selects the current status: the oldest open record.
// A queued future status is also open but always dated later.
const gjeldendeStatusJoin = `
	JOIN LATERAL (
		SELECT * FROM deltaker_status
		WHERE deltaker_id = d.id AND gyldig_til IS NULL
		ORDER BY gyldig_fra ASC, opprettet ASC
		LIMIT 1
	) ds ON true`

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (deltaker.Deltaker, error) {
	query := `
	SELECT ` + deltakerColumns + `
	FROM deltaker d
	JOIN deltakerliste dl ON dl.id = d.deltakerliste_id` + gjeldendeStatusJoin + `
	WHERE d.id = $1`

	d, err := scanDeltaker(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return deltaker.Deltaker{}, deltaker.ErrNotFound
		}
		return deltaker.Deltaker{}, fmt.Errorf("get deltaker: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, d deltaker.Deltaker) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	if err := upsertDeltakerTx(ctx, tx, d); err != nil {
		return err
	}
	if err := sjekkStatusInvariant(ctx, tx, d.ID); err != nil {
		return err
	}
	return tx.Commit()
}

func upsertDeltakerTx(ctx context.Context, tx *sql.Tx, d deltaker.Deltaker) error {
	innhold, err := json.Marshal(d.Innhold)
	if err != nil {
		return fmt.Errorf("marshal innhold: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO deltaker (id, deltakerliste_id, startdato, sluttdato, dager_per_uke,
			deltakelsesprosent, bakgrunnsinformasjon, innhold, sist_endret)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			startdato = EXCLUDED.startdato,
			sluttdato = EXCLUDED.sluttdato,
			dager_per_uke = EXCLUDED.dager_per_uke,
			deltakelsesprosent = EXCLUDED.deltakelsesprosent,
			bakgrunnsinformasjon = EXCLUDED.bakgrunnsinformasjon,
			innhold = EXCLUDED.innhold,
			sist_endret = EXCLUDED.sist_endret`,
		d.ID, d.Deltakerliste.ID, nullTime(d.Startdato), nullTime(d.Sluttdato),
		nullFloat(d.DagerPerUke), nullFloat(d.Deltakelsesprosent),
		nullString(d.Bakgrunnsinformasjon), innhold, d.SistEndret)
	if err != nil {
		return fmt.Errorf("upsert deltaker: %w", err)
	}

	// Supersede every other open status record. Stamping gyldig_til is the
	// only mutation the history ever sees.
	_, err = tx.ExecContext(ctx, `
		UPDATE deltaker_status SET gyldig_til = now()
		WHERE deltaker_id = $1 AND gyldig_til IS NULL AND id <> $2`,
		d.ID, d.Status.ID)
	if err != nil {
		return fmt.Errorf("supersede statuser: %w", err)
	}

	if err := insertStatusTx(ctx, tx, d.ID, d.Status); err != nil {
		return err
	}
	return nil
}

func insertStatusTx(ctx context.Context, tx *sql.Tx, deltakerID uuid.UUID, status deltaker.DeltakerStatus) error {
	aarsak, err := marshalAarsak(status.Aarsak)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO deltaker_status (id, deltaker_id, type, aarsak, gyldig_fra, gyldig_til, opprettet)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`,
		status.ID, deltakerID, status.Type, aarsak, status.GyldigFra, nullTime(status.GyldigTil), status.Opprettet)
	if err != nil {
		return fmt.Errorf("insert status: %w", err)
	}
	return nil
}

// sjekkStatusInvariant verifies the open-record shape of the history: one
// current record, plus at most one queued one. The current record is defined
// by ordering, so the check only needs the count.
func sjekkStatusInvariant(ctx context.Context, tx *sql.Tx, deltakerID uuid.UUID) error {
	var apne int
	err := tx.QueryRowContext(ctx, `
		SELECT count(*)
		FROM deltaker_status
		WHERE deltaker_id = $1 AND gyldig_til IS NULL`,
		deltakerID).Scan(&apne)
	if err != nil {
		return fmt.Errorf("sjekk statusinvariant: %w", err)
	}
	if apne < 1 || apne > 2 {
		return apierrors.New(apierrors.CodeInternal,
			fmt.Sprintf("statusinvariant brutt for deltaker %s: %d aapne statusrader", deltakerID, apne))
	}
	return nil
}

func (s *PostgresStore) LagreNesteStatus(ctx context.Context, deltakerID uuid.UUID, status deltaker.DeltakerStatus) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin lagre neste status: %w", err)
	}
	defer tx.Rollback()

	// A new queued status replaces any previously queued one.
	_, err = tx.ExecContext(ctx, `
		UPDATE deltaker_status SET gyldig_til = now()
		WHERE deltaker_id = $1 AND gyldig_til IS NULL AND gyldig_fra > now() AND id <> $2`,
		deltakerID, status.ID)
	if err != nil {
		return fmt.Errorf("supersede fremtidig status: %w", err)
	}
	if err := insertStatusTx(ctx, tx, deltakerID, status); err != nil {
		return err
	}
	if err := sjekkStatusInvariant(ctx, tx, deltakerID); err != nil {
		return err
	}
	return tx.Commit()
}

// NesteStatus returns the queued open record: every open record after the
// oldest (the current status) in history order.
func (s *PostgresStore) NesteStatus(ctx context.Context, deltakerID uuid.UUID) (*deltaker.DeltakerStatus, error) {
	var (
		st         deltaker.DeltakerStatus
		aarsakJSON []byte
		gyldigTil  sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, type, aarsak, gyldig_fra, gyldig_til, opprettet
		FROM deltaker_status
		WHERE deltaker_id = $1 AND gyldig_til IS NULL
		ORDER BY gyldig_fra ASC, opprettet ASC
		LIMIT 1 OFFSET 1`,
		deltakerID).Scan(&st.ID, &st.Type, &aarsakJSON, &st.GyldigFra, &gyldigTil, &st.Opprettet)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("neste status: %w", err)
	}
	if st.Aarsak, err = unmarshalAarsak(aarsakJSON); err != nil {
		return nil, err
	}
	if gyldigTil.Valid {
		st.GyldigTil = &gyldigTil.Time
	}
	return &st, nil
}

func (s *PostgresStore) StatusHistorikk(ctx context.Context, deltakerID uuid.UUID) ([]deltaker.DeltakerStatus, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, aarsak, gyldig_fra, gyldig_til, opprettet
		FROM deltaker_status
		WHERE deltaker_id = $1
		ORDER BY gyldig_fra ASC, opprettet ASC`,
		deltakerID)
	if err != nil {
		return nil, fmt.Errorf("status historikk: %w", err)
	}
	defer rows.Close()

	var historikk []deltaker.DeltakerStatus
	for rows.Next() {
		var (
			st         deltaker.DeltakerStatus
			aarsakJSON []byte
			gyldigTil  sql.NullTime
		)
		if err := rows.Scan(&st.ID, &st.Type, &aarsakJSON, &st.GyldigFra, &gyldigTil, &st.Opprettet); err != nil {
			return nil, fmt.Errorf("scan status: %w", err)
		}
		if st.Aarsak, err = unmarshalAarsak(aarsakJSON); err != nil {
			return nil, err
		}
		if gyldigTil.Valid {
			st.GyldigTil = &gyldigTil.Time
		}
		historikk = append(historikk, st)
	}
	return historikk, rows.Err()
}

func (s *PostgresStore) LagreEndring(ctx context.Context, endring deltaker.DeltakerEndring) error {
	payload, err := json.Marshal(endring)
	if err != nil {
		return fmt.Errorf("marshal endring: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO deltaker_endring (id, deltaker_id, endring, endret_av, endret)
		VALUES ($1, $2, $3, $4, $5)`,
		endring.ID, endring.DeltakerID, payload, endring.EndretAv, endring.Endret)
	if err != nil {
		return fmt.Errorf("lagre endring: %w", err)
	}
	return nil
}

func (s *PostgresStore) Endringer(ctx context.Context, deltakerID uuid.UUID) ([]deltaker.DeltakerEndring, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT endring FROM deltaker_endring
		WHERE deltaker_id = $1
		ORDER BY endret ASC`,
		deltakerID)
	if err != nil {
		return nil, fmt.Errorf("list endringer: %w", err)
	}
	defer rows.Close()

	var endringer []deltaker.DeltakerEndring
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan endring: %w", err)
		}
		var e deltaker.DeltakerEndring
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("unmarshal endring: %w", err)
		}
		endringer = append(endringer, e)
	}
	return endringer, rows.Err()
}

func (s *PostgresStore) GjeldendeVedtak(ctx context.Context, deltakerID uuid.UUID) (*deltaker.Vedtak, error) {
	var (
		v           deltaker.Vedtak
		fattet      sql.NullTime
		prosent     sql.NullFloat64
		dagerPerUke sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, deltaker_id, fattet, fattet_av_nav, deltakelsesprosent, dager_per_uke, opprettet
		FROM vedtak
		WHERE deltaker_id = $1
		ORDER BY opprettet DESC
		LIMIT 1`,
		deltakerID).Scan(&v.ID, &v.DeltakerID, &fattet, &v.FattetAvNav, &prosent, &dagerPerUke, &v.Opprettet)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("gjeldende vedtak: %w", err)
	}
	if fattet.Valid {
		v.Fattet = &fattet.Time
	}
	if prosent.Valid {
		v.Deltakelsesprosent = &prosent.Float64
	}
	if dagerPerUke.Valid {
		v.DagerPerUke = &dagerPerUke.Float64
	}
	return &v, nil
}

func (s *PostgresStore) LagreVedtak(ctx context.Context, vedtak deltaker.Vedtak) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vedtak (id, deltaker_id, fattet, fattet_av_nav, deltakelsesprosent, dager_per_uke, opprettet)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET fattet = EXCLUDED.fattet`,
		vedtak.ID, vedtak.DeltakerID, nullTime(vedtak.Fattet), vedtak.FattetAvNav,
		nullFloat(vedtak.Deltakelsesprosent), nullFloat(vedtak.DagerPerUke), vedtak.Opprettet)
	if err != nil {
		return fmt.Errorf("lagre vedtak: %w", err)
	}
	return nil
}

// UpsertDeltakerliste maintains the program offering. Deltakerlister are
// owned upstream; this store only mirrors them.
func (s *PostgresStore) UpsertDeltakerliste(ctx context.Context, liste deltaker.Deltakerliste) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO deltakerliste (id, navn, tiltakstype, oppstartstype, status, start_dato, slutt_dato)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			navn = EXCLUDED.navn,
			status = EXCLUDED.status,
			start_dato = EXCLUDED.start_dato,
			slutt_dato = EXCLUDED.slutt_dato`,
		liste.ID, liste.Navn, liste.Tiltakstype, liste.Oppstartstype, liste.Status,
		nullTime(liste.StartDato), nullTime(liste.SluttDato))
	if err != nil {
		return fmt.Errorf("upsert deltakerliste: %w", err)
	}
	return nil
}

func (s *PostgresStore) SkalHaAvsluttendeStatus(ctx context.Context, idag time.Time) ([]deltaker.Deltaker, error) {
	ventendeTyper := []string{
		string(deltaker.StatusUtkastTilPamelding),
		string(deltaker.StatusKladd),
		string(deltaker.StatusPabegyntRegistrering),
		string(deltaker.StatusSoktInn),
		string(deltaker.StatusVenterPaOppstart),
	}
	avsluttetListeStatuser := []string{
		string(deltaker.DeltakerlisteAvsluttet),
		string(deltaker.DeltakerlisteAvlyst),
		string(deltaker.DeltakerlisteAvbrutt),
	}

	query := `
	SELECT ` + deltakerColumns + `
	FROM deltaker d
	JOIN deltakerliste dl ON dl.id = d.deltakerliste_id` + gjeldendeStatusJoin + `
	WHERE NOT EXISTS (
		SELECT 1 FROM deltaker_status f
		WHERE f.deltaker_id = d.id AND f.gyldig_til IS NULL AND f.id <> ds.id
	)
	AND (
		(ds.type = ANY ($1) AND dl.status = ANY ($2))
		OR (ds.type = $3 AND (dl.status = ANY ($2) OR d.sluttdato::date < $4::date))
	)`

	return s.queryDeltakere(ctx, query,
		pq.Array(ventendeTyper), pq.Array(avsluttetListeStatuser), string(deltaker.StatusDeltar), idag)
}

func (s *PostgresStore) SkalHaStatusDeltar(ctx context.Context, idag time.Time) ([]deltaker.Deltaker, error) {
	query := `
	SELECT ` + deltakerColumns + `
	FROM deltaker d
	JOIN deltakerliste dl ON dl.id = d.deltakerliste_id` + gjeldendeStatusJoin + `
	WHERE ds.type = $1
	AND d.startdato IS NOT NULL AND d.startdato <= $2
	AND NOT EXISTS (
		SELECT 1 FROM deltaker_status f
		WHERE f.deltaker_id = d.id AND f.gyldig_til IS NULL AND f.id <> ds.id
	)`

	return s.queryDeltakere(ctx, query, string(deltaker.StatusVenterPaOppstart), idag)
}

func (s *PostgresStore) FremtidigeStatuser(ctx context.Context, idag time.Time) ([]deltaker.FremtidigStatus, error) {
	query := `
	SELECT ` + deltakerColumns + `,
		f.id, f.type, f.aarsak, f.gyldig_fra, f.gyldig_til, f.opprettet
	FROM deltaker d
	JOIN deltakerliste dl ON dl.id = d.deltakerliste_id` + gjeldendeStatusJoin + `
	JOIN LATERAL (
		SELECT * FROM deltaker_status
		WHERE deltaker_id = d.id AND gyldig_til IS NULL AND id <> ds.id AND gyldig_fra <= $1
		ORDER BY gyldig_fra ASC
		LIMIT 1
	) f ON true`

	rows, err := s.db.QueryContext(ctx, query, idag)
	if err != nil {
		return nil, fmt.Errorf("fremtidige statuser: %w", err)
	}
	defer rows.Close()

	var resultat []deltaker.FremtidigStatus
	for rows.Next() {
		d, fremtidig, err := scanDeltakerMedFremtidigStatus(rows)
		if err != nil {
			return nil, err
		}
		resultat = append(resultat, deltaker.FremtidigStatus{Deltaker: d, Status: fremtidig})
	}
	return resultat, rows.Err()
}

func (s *PostgresStore) OppdaterStatuser(ctx context.Context, deltakere []deltaker.Deltaker) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin oppdater statuser: %w", err)
	}
	defer tx.Rollback()

	for _, d := range deltakere {
		if err := upsertDeltakerTx(ctx, tx, d); err != nil {
			return err
		}
		if err := sjekkStatusInvariant(ctx, tx, d.ID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) queryDeltakere(ctx context.Context, query string, args ...any) ([]deltaker.Deltaker, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query deltakere: %w", err)
	}
	defer rows.Close()

	var resultat []deltaker.Deltaker
	for rows.Next() {
		d, err := scanDeltaker(rows)
		if err != nil {
			return nil, err
		}
		resultat = append(resultat, d)
	}
	return resultat, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func deltakerScanTargets(d *deltaker.Deltaker, felter *deltakerFelter) []any {
	return []any{
		&d.ID, &felter.startdato, &felter.sluttdato, &felter.dagerPerUke, &felter.prosent,
		&felter.bakgrunn, &felter.innhold, &d.SistEndret,
		&d.Deltakerliste.ID, &d.Deltakerliste.Navn, &d.Deltakerliste.Tiltakstype,
		&d.Deltakerliste.Oppstartstype, &d.Deltakerliste.Status, &felter.listeStart, &felter.listeSlutt,
		&d.Status.ID, &d.Status.Type, &felter.aarsak, &d.Status.GyldigFra, &felter.gyldigTil, &d.Status.Opprettet,
	}
}

type deltakerFelter struct {
	startdato, sluttdato   sql.NullTime
	dagerPerUke, prosent   sql.NullFloat64
	bakgrunn               sql.NullString
	innhold                []byte
	listeStart, listeSlutt sql.NullTime
	aarsak                 []byte
	gyldigTil              sql.NullTime
}

func (f deltakerFelter) apply(d *deltaker.Deltaker) error {
	if f.startdato.Valid {
		d.Startdato = &f.startdato.Time
	}
	if f.sluttdato.Valid {
		d.Sluttdato = &f.sluttdato.Time
	}
	if f.dagerPerUke.Valid {
		d.DagerPerUke = &f.dagerPerUke.Float64
	}
	if f.prosent.Valid {
		d.Deltakelsesprosent = &f.prosent.Float64
	}
	if f.bakgrunn.Valid {
		d.Bakgrunnsinformasjon = &f.bakgrunn.String
	}
	if len(f.innhold) > 0 {
		if err := json.Unmarshal(f.innhold, &d.Innhold); err != nil {
			return fmt.Errorf("unmarshal innhold: %w", err)
		}
	}
	if f.listeStart.Valid {
		d.Deltakerliste.StartDato = &f.listeStart.Time
	}
	if f.listeSlutt.Valid {
		d.Deltakerliste.SluttDato = &f.listeSlutt.Time
	}
	aarsak, err := unmarshalAarsak(f.aarsak)
	if err != nil {
		return err
	}
	d.Status.Aarsak = aarsak
	if f.gyldigTil.Valid {
		d.Status.GyldigTil = &f.gyldigTil.Time
	}
	return nil
}

func scanDeltaker(row rowScanner) (deltaker.Deltaker, error) {
	var (
		d      deltaker.Deltaker
		felter deltakerFelter
	)
	if err := row.Scan(deltakerScanTargets(&d, &felter)...); err != nil {
		return deltaker.Deltaker{}, err
	}
	if err := felter.apply(&d); err != nil {
		return deltaker.Deltaker{}, err
	}
	return d, nil
}

func scanDeltakerMedFremtidigStatus(row rowScanner) (deltaker.Deltaker, deltaker.DeltakerStatus, error) {
	var (
		d         deltaker.Deltaker
		felter    deltakerFelter
		fremtidig deltaker.DeltakerStatus
		fAarsak   []byte
		fTil      sql.NullTime
	)
	targets := deltakerScanTargets(&d, &felter)
	targets = append(targets, &fremtidig.ID, &fremtidig.Type, &fAarsak, &fremtidig.GyldigFra, &fTil, &fremtidig.Opprettet)
	if err := row.Scan(targets...); err != nil {
		return deltaker.Deltaker{}, deltaker.DeltakerStatus{}, fmt.Errorf("scan fremtidig status: %w", err)
	}
	if err := felter.apply(&d); err != nil {
		return deltaker.Deltaker{}, deltaker.DeltakerStatus{}, err
	}
	aarsak, err := unmarshalAarsak(fAarsak)
	if err != nil {
		return deltaker.Deltaker{}, deltaker.DeltakerStatus{}, err
	}
	fremtidig.Aarsak = aarsak
	if fTil.Valid {
		fremtidig.GyldigTil = &fTil.Time
	}
	return d, fremtidig, nil
}

func marshalAarsak(aarsak *deltaker.Aarsak) ([]byte, error) {
	if aarsak == nil {
		return nil, nil
	}
	data, err := json.Marshal(aarsak)
	if err != nil {
		return nil, fmt.Errorf("marshal aarsak: %w", err)
	}
	return data, nil
}

func unmarshalAarsak(data []byte) (*deltaker.Aarsak, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var aarsak deltaker.Aarsak
	if err := json.Unmarshal(data, &aarsak); err != nil {
		return nil, fmt.Errorf("unmarshal aarsak: %w", err)
	}
	return &aarsak, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
