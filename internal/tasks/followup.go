package tasks

import (
	"context"
	"fmt"

	"github.com/shaiso/permitflow/internal/client"
	"github.com/shaiso/permitflow/internal/domain"
	"github.com/shaiso/permitflow/internal/worker"
)

// CleanUpNotes удаляет все внутренние заметки дела. Уже удалённые
// (404) пропускаются.
func (h *Handlers) CleanUpNotes(ctx context.Context, task *domain.Task) (*worker.Result, error) {
	ref, err := h.errandRef(task)
	if err != nil {
		return nil, err
	}

	notes, err := h.deps.CaseData.ListNotes(ctx, ref, domain.NoteTypeInternal)
	if err != nil {
		return nil, fmt.Errorf("list notes of errand %s: %w", ref, err)
	}

	deleted := 0
	for _, note := range notes {
		if note.NoteType != "" && note.NoteType != domain.NoteTypeInternal {
			continue
		}
		if err := h.deps.CaseData.DeleteNote(ctx, ref, note.ID); err != nil {
			if client.IsNotFound(err) {
				continue
			}
			return nil, fmt.Errorf("delete note %d: %w", note.ID, err)
		}
		deleted++
	}

	h.logger(ctx).Info("internal notes removed", "deleted", deleted, "listed", len(notes))
	return nil, nil
}
