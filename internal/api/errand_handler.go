package api

import (
	"net/http"
	"strconv"

	"github.com/shaiso/permitflow/internal/client"
)

// GetErrandState возвращает состояние процесса по делу.
// GET /api/v1/errands/{id}?municipality_id=...&namespace=...
func (h *Handler) GetErrandState(w http.ResponseWriter, r *http.Request) {
	if h.errands == nil {
		Unavailable(w, "case data is not configured")
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		BadRequest(w, "invalid errand id")
		return
	}

	ref := client.ErrandRef{ID: id, MunicipalityID: h.municipalityID, Namespace: h.namespace}
	if v := r.URL.Query().Get("municipality_id"); v != "" {
		ref.MunicipalityID = v
	}
	if v := r.URL.Query().Get("namespace"); v != "" {
		ref.Namespace = v
	}

	errand, err := h.errands.GetErrand(r.Context(), ref)
	if HandleError(w, h.logger, err, "errand not found") {
		return
	}

	Success(w, ErrandStateFromDomain(errand))
}
