package carelog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carebridge/carelog/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// =========== Draft Repository ===========

type draftRepoPG struct{ pool *pgxpool.Pool }

func NewDraftRepoPG(pool *pgxpool.Pool) DraftRepository {
	return &draftRepoPG{pool: pool}
}

func (r *draftRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const draftCols = `id, care_recipient_id, caregiver_id, log_date, status, sections, completed_sections, created_at, updated_at`

func (r *draftRepoPG) scanDraft(row pgx.Row) (*CareLogDraft, error) {
	var d CareLogDraft
	err := row.Scan(&d.ID, &d.CareRecipientID, &d.CaregiverID, &d.LogDate, &d.Status,
		&d.Sections, &d.CompletedSections, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, mapPGError(err)
	}
	if d.CompletedSections == nil {
		d.CompletedSections = map[string]SectionAudit{}
	}
	return &d, nil
}

func (r *draftRepoPG) Create(ctx context.Context, d *CareLogDraft) error {
	d.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO care_log (id, care_recipient_id, caregiver_id, log_date, status, sections, completed_sections)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		d.ID, d.CareRecipientID, d.CaregiverID, d.LogDate, d.Status, d.Sections, d.CompletedSections)
	return mapPGError(err)
}

func (r *draftRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*CareLogDraft, error) {
	return r.scanDraft(r.conn(ctx).QueryRow(ctx, `SELECT `+draftCols+` FROM care_log WHERE id = $1`, id))
}

func (r *draftRepoPG) GetByCaregiverDate(ctx context.Context, caregiverID, logDate string) (*CareLogDraft, error) {
	return r.scanDraft(r.conn(ctx).QueryRow(ctx, `
		SELECT `+draftCols+` FROM care_log
		WHERE caregiver_id = $1 AND log_date = $2 AND status <> 'invalidated'`,
		caregiverID, logDate))
}

func (r *draftRepoPG) GetByRecipientDate(ctx context.Context, recipientID uuid.UUID, logDate string) (*CareLogDraft, error) {
	return r.scanDraft(r.conn(ctx).QueryRow(ctx, `
		SELECT `+draftCols+` FROM care_log
		WHERE care_recipient_id = $1 AND log_date = $2 AND status <> 'invalidated'`,
		recipientID, logDate))
}

func (r *draftRepoPG) UpdateSections(ctx context.Context, id uuid.UUID, sections SectionData) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE care_log SET sections = $2, updated_at = NOW() WHERE id = $1`, id, sections)
	if err != nil {
		return mapPGError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *draftRepoPG) UpdateCompletedSections(ctx context.Context, id uuid.UUID, completed map[string]SectionAudit) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE care_log SET completed_sections = $2, updated_at = NOW() WHERE id = $1`, id, completed)
	if err != nil {
		return mapPGError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *draftRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status DraftStatus) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE care_log SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return mapPGError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// mapPGError translates driver errors into domain sentinels. Unique-index
// violations on the active-day index mean a second draft for the same
// recipient and date.
func mapPGError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDraftExists
	}
	return err
}

// =========== History Repository ===========

type historyRepoPG struct{ pool *pgxpool.Pool }

func NewHistoryRepoPG(pool *pgxpool.Pool) HistoryRepository {
	return &historyRepoPG{pool: pool}
}

func (r *historyRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *historyRepoPG) Append(ctx context.Context, e *HistoryEntry) error {
	e.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO care_log_history (id, care_log_id, action, section, actor_id, details)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		e.ID, e.CareLogID, e.Action, e.Section, e.ActorID, e.Details)
	return mapPGError(err)
}

func (r *historyRepoPG) ListByDraft(ctx context.Context, careLogID uuid.UUID, limit, offset int) ([]*HistoryEntry, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM care_log_history WHERE care_log_id = $1`, careLogID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, care_log_id, action, section, actor_id, details, created_at
		FROM care_log_history WHERE care_log_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, careLogID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ID, &e.CareLogID, &e.Action, &e.Section, &e.ActorID, &e.Details, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &e)
	}
	return items, total, nil
}
