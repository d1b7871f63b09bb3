package controllers

import (
	"net/http"
	"rad/internal/event"
	"rad/internal/milestone"
	"rad/internal/models"
	"rad/internal/providers"
	"rad/internal/services"
	"rad/internal/spam"
	"rad/internal/statistic"
	"rad/internal/storage"
	"rad/internal/structures"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
)

// ApiController serves the read-only status surface. Nothing here mutates
// state; admin mutations belong to the excluded orchestration layer.
type ApiController struct {
	logger   providers.Logger
	detector *spam.Detector
	event    *event.Manager
	tracker  *milestone.Tracker
	store    storage.Gateway
	archiver *statistic.Archiver
	config   *structures.Config
}

func NewApiController(logger providers.Logger, detector *spam.Detector, ev *event.Manager, tracker *milestone.Tracker, store storage.Gateway, archiver *statistic.Archiver, config *structures.Config) *ApiController {
	return &ApiController{
		logger:   logger,
		detector: detector,
		event:    ev,
		tracker:  tracker,
		store:    store,
		archiver: archiver,
		config:   config,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	gson, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(gson)
}

type statusResponse struct {
	Event      models.EventSnapshot `json:"event"`
	Bonus      models.BonusState    `json:"bonus"`
	IgnoredNow int                  `json:"ignored_now"`
}

func (ac *ApiController) GetStatus(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	writeJSON(w, http.StatusOK, statusResponse{
		Event:      ac.event.Snapshot(),
		Bonus:      ac.tracker.ActiveBonus(),
		IgnoredNow: len(ac.detector.IgnoredUsers(now)),
	})
}

func (ac *ApiController) GetProgress(w http.ResponseWriter, r *http.Request) {
	count, err := strconv.ParseInt(r.URL.Query().Get("count"), 10, 64)
	if err != nil || count < 0 {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	progress := ac.tracker.Progress(count)
	if progress == nil {
		writeJSON(w, http.StatusOK, map[string]any{"completed": true, "current": count})
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (ac *ApiController) GetIgnored(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ac.detector.IgnoredUsers(time.Now()))
}

type dailyStatsResponse struct {
	Date  string                 `json:"date"`
	Stats *models.DailyUserStats `json:"stats"`
	Tier  services.TierInfo      `json:"tier"`
}

// GetStats serves one user's daily activity with the tier grade derived
// from it. A user with no document yet grades as the bottom tier.
func (ac *ApiController) GetStats(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	date := r.URL.Query().Get("date")
	if date == "" {
		date = storage.DateKey(time.Now())
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	stats, err := ac.store.GetDailyStatsCached(r.Context(), userID, r.URL.Query().Get("group"), date)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if stats == nil {
		stats = &models.DailyUserStats{}
	}

	tier := services.GradeTier(ac.config.Reward, stats.Messages, ac.logger)
	stats.Tier = tier.Name
	writeJSON(w, http.StatusOK, dailyStatsResponse{Date: date, Stats: stats, Tier: tier})
}

// GetTop serves the daily leaderboard: today through the cached store, past
// days from the compressed archive when present.
func (ac *ApiController) GetTop(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	today := storage.DateKey(time.Now())
	if date == "" {
		date = today
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	limit := ac.config.Archive.TopLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > storage.MaxTopLimit {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	if date != today {
		snapshot, err := ac.archiver.ReadDaily(date)
		if err != nil {
			ac.logger.Errorf(providers.TypeGet, "archive read failed for %s: %s", date, err)
		} else if snapshot != nil {
			if limit < len(snapshot.Entries) {
				snapshot.Entries = snapshot.Entries[:limit]
			}
			writeJSON(w, http.StatusOK, snapshot)
			return
		}
	}

	// The cached-store entry is the only cache layer here, so a reward
	// credit's eviction is immediately visible to the next read.
	entries, err := ac.store.GetTopDailyCached(r.Context(), date, limit)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
