package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/shaiso/permitflow/internal/domain"
)

// ErrandRef — адрес дела в case-management backend.
type ErrandRef struct {
	MunicipalityID string
	Namespace      string
	ID             int64
}

func (r ErrandRef) path() string {
	return fmt.Sprintf("/%s/%s/errands/%d",
		url.PathEscape(r.MunicipalityID), url.PathEscape(r.Namespace), r.ID)
}

// String — для логов.
func (r ErrandRef) String() string {
	return fmt.Sprintf("%s/%s/%d", r.MunicipalityID, r.Namespace, r.ID)
}

// CaseData — клиент case-management backend.
type CaseData struct {
	rest *REST
}

// NewCaseData создаёт клиент.
func NewCaseData(cfg Config, logger *slog.Logger) *CaseData {
	return &CaseData{rest: NewREST("case-data", cfg, logger)}
}

// GetErrand возвращает дело.
func (c *CaseData) GetErrand(ctx context.Context, ref ErrandRef) (*domain.Errand, error) {
	var errand domain.Errand
	if err := c.rest.Get(ctx, ref.path(), &errand); err != nil {
		return nil, err
	}
	return &errand, nil
}

// PatchErrand частично обновляет дело (фаза, extraParameters).
func (c *CaseData) PatchErrand(ctx context.Context, ref ErrandRef, patch domain.ErrandPatch) error {
	return c.rest.Patch(ctx, ref.path(), patch, nil)
}

// AddDecision добавляет решение к делу.
func (c *CaseData) AddDecision(ctx context.Context, ref ErrandRef, decision domain.Decision) error {
	return c.rest.Post(ctx, ref.path()+"/decisions", decision, nil)
}

// AddStatus добавляет статус в историю дела.
func (c *CaseData) AddStatus(ctx context.Context, ref ErrandRef, status domain.Status) error {
	return c.rest.Post(ctx, ref.path()+"/statuses", status, nil)
}

// ListNotes возвращает заметки дела указанного типа ("" — все).
func (c *CaseData) ListNotes(ctx context.Context, ref ErrandRef, noteType string) ([]domain.Note, error) {
	path := ref.path() + "/notes"
	if noteType != "" {
		path += "?noteType=" + url.QueryEscape(noteType)
	}
	var notes []domain.Note
	if err := c.rest.Get(ctx, path, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

// DeleteNote удаляет заметку.
func (c *CaseData) DeleteNote(ctx context.Context, ref ErrandRef, noteID int64) error {
	return c.rest.Delete(ctx, fmt.Sprintf("%s/notes/%d", ref.path(), noteID))
}

// ListAttachments возвращает метаданные вложений.
func (c *CaseData) ListAttachments(ctx context.Context, ref ErrandRef) ([]domain.Attachment, error) {
	var attachments []domain.Attachment
	if err := c.rest.Get(ctx, ref.path()+"/attachments", &attachments); err != nil {
		return nil, err
	}
	return attachments, nil
}
