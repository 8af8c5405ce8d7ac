package api

import (
	"net/http"
)

// ListTopics возвращает состояние опроса по топикам.
// GET /api/v1/topics
func (h *Handler) ListTopics(w http.ResponseWriter, _ *http.Request) {
	if h.workers == nil {
		Unavailable(w, "worker is not running")
		return
	}

	status := h.workers.Status()
	result := make([]TopicResponse, len(status))
	for i, s := range status {
		result[i] = TopicFromWorker(s)
	}

	List(w, result, len(result))
}

// WakeTopic будит опрос топика и оповещает остальные экземпляры.
// POST /api/v1/topics/{topic}/wake
func (h *Handler) WakeTopic(w http.ResponseWriter, r *http.Request) {
	if h.workers == nil {
		Unavailable(w, "worker is not running")
		return
	}

	topic := r.PathValue("topic")
	known := false
	for _, s := range h.workers.Status() {
		if s.Topic == topic {
			known = true
			break
		}
	}
	if !known {
		NotFound(w, "unknown topic")
		return
	}

	resp := WakeResponse{Topic: topic, Woken: h.workers.Wake(topic)}

	if h.notifier != nil {
		if err := h.notifier.PublishTaskAvailable(r.Context(), topic); err != nil {
			h.logger.Warn("failed to publish task.available", "topic", topic, "error", err)
		} else {
			resp.Published = true
		}
	}

	Success(w, resp)
}
