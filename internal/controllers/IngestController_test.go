package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"rad/internal/event"
	"rad/internal/milestone"
	"rad/internal/models"
	"rad/internal/services"
	"rad/internal/spam"
	"rad/internal/storage"
	"rad/internal/structures"
	"rad/internal/testutil"
	"rad/internal/writequeue"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIngestFixture(t *testing.T) (*IngestController, *event.Manager) {
	t.Helper()
	conf := &structures.Config{
		Spam: structures.SpamConfig{
			Enabled:        true,
			IgnoreDuration: 30 * time.Minute,
			BurstLimit:     100,
			BurstWindow:    10 * time.Second,
			Checks:         structures.SpamChecks{Burst: true},
		},
		Event: structures.EventConfig{MinTarget: 100, MaxTarget: 250, Loop: true, SaveEvery: 10},
		Mongo: structures.MongoConfig{Timeout: 2 * time.Second},
	}
	logger := &testutil.MockLogger{}
	store := testutil.NewMockStore()
	cache := testutil.NewMockCache()
	metrics := testutil.NewMockMetrics()
	gw := storage.NewCachedStore(store, cache, metrics, logger, conf)

	detector := spam.NewDetector(conf, logger)
	ev := event.NewManager(conf, gw, logger)
	tracker := milestone.NewTracker(models.MilestoneConfig{}, func(models.MilestoneConfig) error { return nil }, logger)
	queue := writequeue.NewQueue(store, logger, metrics)

	pipeline := services.NewPipelineService(conf, gw, detector, ev, tracker, queue,
		services.NewStockEligibility(gw, cache), services.NewStockRewarder(conf, logger), services.NoopNotifier{}, logger, metrics)

	return NewIngestController(pipeline), ev
}

func TestReceiveMessage_CountsAndReportsOutcome(t *testing.T) {
	ic, ev := newIngestFixture(t)
	ev.SetFixed(context.Background(), 100, true)

	body := `{"user_id":"u1","group_id":"g1","name":"Alice","text":"hello there"}`
	req := httptest.NewRequest(http.MethodPost, "/ingest", strings.NewReader(body))
	rr := httptest.NewRecorder()
	ic.ReceiveMessage(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var outcome services.Outcome
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &outcome))
	assert.Equal(t, services.OutcomeCounted, outcome.Kind)
	assert.Equal(t, 1, ev.Snapshot().Current)
}

func TestReceiveMessage_BadPayload(t *testing.T) {
	ic, _ := newIngestFixture(t)

	for _, body := range []string{"", "{", `{"text":"missing user"}`} {
		req := httptest.NewRequest(http.MethodPost, "/ingest", strings.NewReader(body))
		rr := httptest.NewRecorder()
		ic.ReceiveMessage(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code, "body %q", body)
	}
}

func TestReceiveMemberCount_Accepted(t *testing.T) {
	ic, _ := newIngestFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/members", strings.NewReader(`{"count":150}`))
	rr := httptest.NewRecorder()
	ic.ReceiveMemberCount(rr, req)
	assert.Equal(t, http.StatusAccepted, rr.Code)

	req = httptest.NewRequest(http.MethodPost, "/members", strings.NewReader(`{"count":-1}`))
	rr = httptest.NewRecorder()
	ic.ReceiveMemberCount(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
