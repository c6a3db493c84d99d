package audit

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cfornesa/ethics-risk-audit-assistant/internal/conf"
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/datastore"
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/ethics"
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/events"
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/llm"
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/notification"
)

const testBaseURL = "https://llm.test/v1"

type fakeProvider struct {
	mu   sync.Mutex
	sent []*notification.Notification
	err  error
}

func (p *fakeProvider) GetName() string      { return "fake" }
func (p *fakeProvider) ValidateConfig() error { return nil }
func (p *fakeProvider) IsEnabled() bool      { return true }

func (p *fakeProvider) Send(ctx context.Context, n *notification.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, n)
	return nil
}

func (p *fakeProvider) sentCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

func testSettings() *conf.Settings {
	settings := &conf.Settings{}
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = ":memory:"
	settings.LLM.APIKey = "test-key"
	settings.LLM.BaseURL = testBaseURL
	settings.LLM.Model = "test-model"
	settings.LLM.Timeout = 5
	settings.Ethics.RubricPrompt = "You are an ethics auditor."
	settings.Ethics.AutoHumanReviewThreshold = 50
	settings.Ethics.AutoNotifyThreshold = 51
	settings.Ethics.CategoryHighScoreThreshold = 8
	settings.Notification.Enabled = true
	settings.Queue.RetryAttempts = 3
	settings.Queue.RetryDelay = 0
	settings.Queue.Timeout = 5
	return settings
}

func newTestPipeline(t *testing.T) (*Service, datastore.Interface, *fakeProvider) {
	t.Helper()
	settings := testSettings()

	store := datastore.New(settings)
	require.NotNil(t, store)
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })

	client := llm.New(settings)
	httpmock.ActivateNonDefault(client.HTTPClient)
	t.Cleanup(httpmock.DeactivateAndReset)

	dispatcher, err := notification.NewDispatcher(settings)
	require.NoError(t, err)
	provider := &fakeProvider{}
	dispatcher.AddProvider(provider)

	svc := New(settings, store, client, dispatcher, nil)
	return svc, store, provider
}

func createPendingItem(t *testing.T, store datastore.Interface) *datastore.Item {
	t.Helper()
	project := &datastore.Project{OwnerID: 1, Name: "Test Project"}
	require.NoError(t, store.CreateProject(project))
	item := &datastore.Item{
		ProjectID:   project.ID,
		Title:       "Banner copy",
		Content:     "Guaranteed weight loss in one week.",
		ContentType: "ad",
		Status:      datastore.ItemStatusPending,
	}
	require.NoError(t, store.CreateItem(item))
	return item
}

func verdictResponder(verdict string) httpmock.Responder {
	return httpmock.NewJsonResponderOrPanic(http.StatusOK, map[string]any{
		"id":    "cmpl-1",
		"model": "test-model",
		"choices": []map[string]any{
			{"index": 0, "message": map[string]any{"role": "assistant", "content": verdict}, "finish_reason": "stop"},
		},
	})
}

const highRiskVerdict = `{
	"risk_score": 85,
	"risk_level": "high",
	"risk_summary": "unverifiable medical claim",
	"risk_breakdown": {"misinformation_accuracy": {"score": 9, "issues": ["no evidence"]}},
	"mitigation_suggestions": ["remove the guarantee"],
	"requires_human_review": false
}`

const lowRiskVerdict = `{
	"risk_score": 10,
	"risk_level": "low",
	"risk_summary": "benign content",
	"risk_breakdown": {"deception": {"score": 1, "issues": []}},
	"mitigation_suggestions": [],
	"requires_human_review": false
}`

func TestRunAudit_HighRisk(t *testing.T) {
	svc, store, provider := newTestPipeline(t)
	item := createPendingItem(t, store)

	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/chat/completions",
		verdictResponder(highRiskVerdict))

	require.NoError(t, svc.runAudit(context.Background(), item.ID))

	got, err := store.GetItem(item.ID)
	require.NoError(t, err)
	assert.Equal(t, datastore.ItemStatusCompleted, got.Status)
	require.NotNil(t, got.RiskScore)
	assert.Equal(t, 85, *got.RiskScore)
	require.NotNil(t, got.RiskLevel)
	assert.Equal(t, ethics.RiskLevelHigh, *got.RiskLevel)
	require.NotNil(t, got.AuditedAt)
	require.NotNil(t, got.LLMRawResponse)
	require.NotNil(t, got.LLMModel)
	assert.Equal(t, "test-model", *got.LLMModel)

	assert.True(t, got.RequiresHumanReview, "score above threshold forces review")
	assert.True(t, got.NotificationSent)
	assert.Equal(t, 1, provider.sentCount())
}

func TestRunAudit_LowRisk(t *testing.T) {
	svc, store, provider := newTestPipeline(t)
	item := createPendingItem(t, store)

	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/chat/completions",
		verdictResponder(lowRiskVerdict))

	require.NoError(t, svc.runAudit(context.Background(), item.ID))

	got, err := store.GetItem(item.ID)
	require.NoError(t, err)
	assert.Equal(t, datastore.ItemStatusCompleted, got.Status)
	assert.False(t, got.RequiresHumanReview)
	assert.False(t, got.NotificationSent)
	assert.Zero(t, provider.sentCount())
}

func TestRunAudit_MalformedVerdictFailsValidation(t *testing.T) {
	svc, store, _ := newTestPipeline(t)
	item := createPendingItem(t, store)

	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/chat/completions",
		verdictResponder("not json at all"))

	err := svc.runAudit(context.Background(), item.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing field: risk_score")
}

func TestExecute_FailureMarksItemFailed(t *testing.T) {
	svc, store, _ := newTestPipeline(t)
	item := createPendingItem(t, store)

	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/chat/completions",
		httpmock.NewStringResponder(http.StatusInternalServerError, `{"error":"upstream"}`))

	action := &auditAction{service: svc}
	err := action.Execute(context.Background(), &auditJobData{ItemID: item.ID})
	require.Error(t, err)

	got, err := store.GetItem(item.ID)
	require.NoError(t, err)
	assert.Equal(t, datastore.ItemStatusFailed, got.Status)
	assert.Equal(t, 1, got.AuditAttempts, "each attempt increments the counter exactly once")
	require.NotNil(t, got.LastError)
	assert.Contains(t, *got.LastError, "500")
}

func TestQueueRetriesUntilPermanentFailure(t *testing.T) {
	svc, store, _ := newTestPipeline(t)
	item := createPendingItem(t, store)

	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/chat/completions",
		httpmock.NewStringResponder(http.StatusServiceUnavailable, "down"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	t.Cleanup(func() { _ = svc.Stop(time.Second) })

	require.NoError(t, svc.EnqueueAudit(item.ID))

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		svc.queue.ProcessImmediately(ctx)
		svc.queue.Wait()
		if svc.queue.GetStats().FailedJobs > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	got, err := store.GetItem(item.ID)
	require.NoError(t, err)
	assert.Equal(t, datastore.ItemStatusFailed, got.Status)
	// 3 failed attempts plus the terminal hook recording the failure once
	// more after retries are exhausted.
	assert.Equal(t, 4, got.AuditAttempts)
	require.NotNil(t, got.LastError)
	assert.Contains(t, *got.LastError, "503")

	// Terminal failure released the lease, so the item can be requeued.
	require.NoError(t, svc.EnqueueAudit(item.ID))
}

func TestEnqueueAudit_CoalescesDuplicates(t *testing.T) {
	svc, store, _ := newTestPipeline(t)
	item := createPendingItem(t, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	t.Cleanup(func() { _ = svc.Stop(time.Second) })

	require.NoError(t, svc.EnqueueAudit(item.ID))
	require.NoError(t, svc.EnqueueAudit(item.ID), "duplicate enqueue is a silent no-op")

	stats := svc.queue.GetStats()
	assert.Equal(t, 1, stats.TotalJobs)
}

func TestNotificationSentOnlyOnce(t *testing.T) {
	svc, store, provider := newTestPipeline(t)
	item := createPendingItem(t, store)

	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/chat/completions",
		verdictResponder(highRiskVerdict))

	require.NoError(t, svc.runAudit(context.Background(), item.ID))
	require.Equal(t, 1, provider.sentCount())

	// Second audit of an already-notified item must not re-alert.
	require.NoError(t, svc.runAudit(context.Background(), item.ID))
	assert.Equal(t, 1, provider.sentCount())
}

func TestProcessItemEvent(t *testing.T) {
	svc, store, _ := newTestPipeline(t)
	item := createPendingItem(t, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	t.Cleanup(func() { _ = svc.Stop(time.Second) })

	t.Run("created pending item is enqueued", func(t *testing.T) {
		err := svc.ProcessItemEvent(events.NewItemEvent(events.ItemCreated, item.ID, item.ProjectID, datastore.ItemStatusPending))
		require.NoError(t, err)
		assert.Equal(t, 1, svc.queue.GetStats().TotalJobs)
	})

	t.Run("restored completed item is ignored", func(t *testing.T) {
		err := svc.ProcessItemEvent(events.NewItemEvent(events.ItemRestored, item.ID, item.ProjectID, datastore.ItemStatusCompleted))
		require.NoError(t, err)
		assert.Equal(t, 1, svc.queue.GetStats().TotalJobs)
	})
}
