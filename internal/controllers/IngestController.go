package controllers

import (
	"net/http"
	"rad/internal/services"
	"time"

	json "github.com/goccy/go-json"
)

const maxRequestBodySize = 1 << 20 // 1 MB

// IngestController is the process boundary for the chat-client sidecar: one
// POST per inbound message, one per observed member count. The response
// carries the pipeline outcome so the sidecar can decide whether to reply.
type IngestController struct {
	pipeline *services.PipelineService
}

func NewIngestController(pipeline *services.PipelineService) *IngestController {
	return &IngestController{pipeline: pipeline}
}

func (ic *IngestController) ReceiveMessage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var msg services.Inbound
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if msg.UserID == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if msg.At.IsZero() {
		msg.At = time.Now()
	}

	outcome := ic.pipeline.HandleMessage(r.Context(), msg)
	writeJSON(w, http.StatusOK, outcome)
}

type memberCountPayload struct {
	Count int64 `json:"count"`
}

func (ic *IngestController) ReceiveMemberCount(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var payload memberCountPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Count < 0 {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	ic.pipeline.OnMemberCount(r.Context(), payload.Count, time.Now())
	w.WriteHeader(http.StatusAccepted)
}
