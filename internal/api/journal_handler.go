package api

import (
	"net/http"
	"time"
)

// ListJournal возвращает записи журнала эффектов по делу.
// GET /api/v1/journal/{errandNumber}
func (h *Handler) ListJournal(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		Unavailable(w, "journal is not configured")
		return
	}

	entries, err := h.journal.List(r.Context(), r.PathValue("errandNumber"))
	if HandleError(w, h.logger, err, "") {
		return
	}

	result := make([]JournalEntryResponse, len(entries))
	for i, e := range entries {
		result[i] = JournalEntryFromDomain(e)
	}

	List(w, result, len(result))
}

// PurgeJournal удаляет записи старше порога.
// DELETE /api/v1/journal?older_than=720h
// DELETE /api/v1/journal?before=2024-05-01T00:00:00Z
func (h *Handler) PurgeJournal(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		Unavailable(w, "journal is not configured")
		return
	}

	var before time.Time
	q := r.URL.Query()
	switch {
	case q.Get("before") != "":
		t, err := time.Parse(time.RFC3339, q.Get("before"))
		if err != nil {
			BadRequest(w, "invalid before, expected RFC3339")
			return
		}
		before = t
	case q.Get("older_than") != "":
		d, err := time.ParseDuration(q.Get("older_than"))
		if err != nil || d <= 0 {
			BadRequest(w, "invalid older_than, expected positive duration")
			return
		}
		before = time.Now().Add(-d)
	default:
		BadRequest(w, "before or older_than is required")
		return
	}

	n, err := h.journal.Purge(r.Context(), before)
	if HandleError(w, h.logger, err, "") {
		return
	}

	h.logger.Info("journal purged via api", "before", before, "purged", n)
	Success(w, PurgeResponse{Before: before.UTC(), Purged: n})
}
