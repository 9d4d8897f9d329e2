package carelog

import (
	"context"

	"github.com/google/uuid"
)

// DraftRepository persists daily care logs. Updates are partial on purpose:
// sections, completed-sections and status change through separate calls so
// an autosave can never clobber a section submission racing with it.
type DraftRepository interface {
	Create(ctx context.Context, d *CareLogDraft) error
	GetByID(ctx context.Context, id uuid.UUID) (*CareLogDraft, error)
	GetByCaregiverDate(ctx context.Context, caregiverID, logDate string) (*CareLogDraft, error)
	GetByRecipientDate(ctx context.Context, recipientID uuid.UUID, logDate string) (*CareLogDraft, error)
	UpdateSections(ctx context.Context, id uuid.UUID, sections SectionData) error
	UpdateCompletedSections(ctx context.Context, id uuid.UUID, completed map[string]SectionAudit) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status DraftStatus) error
}

// HistoryRepository records the append-only audit trail of a care log.
type HistoryRepository interface {
	Append(ctx context.Context, e *HistoryEntry) error
	ListByDraft(ctx context.Context, careLogID uuid.UUID, limit, offset int) ([]*HistoryEntry, int, error)
}
