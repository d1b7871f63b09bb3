package controllers

import (
	"fmt"
	"net/http"
	"rad/internal/event"
	"rad/internal/writequeue"
	"time"

	json "github.com/goccy/go-json"
)

type HealthController struct {
	queue     *writequeue.Queue
	event     *event.Manager
	startTime time.Time
}

type healthResponse struct {
	Status        string  `json:"status"`
	Uptime        string  `json:"uptime"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	QueueDepth    int     `json:"queue_depth"`
	EventActive   bool    `json:"event_active"`
}

func (hc *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(hc.startTime)
	resp := healthResponse{
		Status:        "ok",
		Uptime:        formatDuration(uptime),
		UptimeSeconds: uptime.Seconds(),
		QueueDepth:    hc.queue.Len(),
		EventActive:   hc.event.Snapshot().Active,
	}

	gson, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
}

func NewHealthController(queue *writequeue.Queue, ev *event.Manager) *HealthController {
	return &HealthController{
		queue:     queue,
		event:     ev,
		startTime: time.Now(),
	}
}
