package items

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cfornesa/ethics-risk-audit-assistant/internal/conf"
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/datastore"
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/errors"
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/ethics"
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/events"
)

type fakeBus struct {
	published []events.ItemEvent
}

func (b *fakeBus) Publish(event events.ItemEvent) bool {
	b.published = append(b.published, event)
	return true
}

type fakeAuditor struct {
	enqueued []uint
}

func (a *fakeAuditor) EnqueueAudit(itemID uint) error {
	a.enqueued = append(a.enqueued, itemID)
	return nil
}

func newTestService(t *testing.T) (*Service, *fakeBus, *fakeAuditor, datastore.Interface) {
	t.Helper()
	settings := &conf.Settings{}
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = ":memory:"
	settings.Ethics.ContentTypes = []string{"message", "ad", "script", "post", "other"}

	store := datastore.New(settings)
	require.NotNil(t, store)
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })

	bus := &fakeBus{}
	auditor := &fakeAuditor{}
	return New(settings, store, bus, auditor), bus, auditor, store
}

func createProjectAndItem(t *testing.T, svc *Service) *datastore.Item {
	t.Helper()
	project := &datastore.Project{OwnerID: 1, Name: "Launch Review"}
	require.NoError(t, svc.CreateProject(project))

	item := &datastore.Item{
		ProjectID:   project.ID,
		Title:       "Hero banner",
		Content:     "Guaranteed results or your money back.",
		ContentType: "ad",
	}
	require.NoError(t, svc.CreateItem(item))
	return item
}

func TestCreateItem(t *testing.T) {
	svc, bus, _, _ := newTestService(t)
	item := createProjectAndItem(t, svc)

	assert.Equal(t, datastore.ItemStatusPending, item.Status)
	require.Len(t, bus.published, 1)
	assert.Equal(t, events.ItemCreated, bus.published[0].Kind)
	assert.Equal(t, item.ID, bus.published[0].ItemID)
}

func TestCreateItem_StripsCallerAuditFields(t *testing.T) {
	svc, _, _, store := newTestService(t)
	project := &datastore.Project{OwnerID: 1, Name: "P"}
	require.NoError(t, svc.CreateProject(project))

	score := 99
	item := &datastore.Item{
		ProjectID:           project.ID,
		Title:               "smuggled verdict",
		Content:             "c",
		ContentType:         "message",
		Status:              datastore.ItemStatusCompleted,
		RiskScore:           &score,
		RequiresHumanReview: true,
		NotificationSent:    true,
		AuditAttempts:       5,
	}
	require.NoError(t, svc.CreateItem(item))

	got, err := store.GetItem(item.ID)
	require.NoError(t, err)
	assert.Equal(t, datastore.ItemStatusPending, got.Status)
	assert.Nil(t, got.RiskScore)
	assert.False(t, got.RequiresHumanReview)
	assert.False(t, got.NotificationSent)
	assert.Zero(t, got.AuditAttempts)
}

func TestCreateItem_Validation(t *testing.T) {
	svc, bus, _, _ := newTestService(t)
	project := &datastore.Project{OwnerID: 1, Name: "P"}
	require.NoError(t, svc.CreateProject(project))

	tests := []struct {
		name string
		item datastore.Item
	}{
		{"missing project", datastore.Item{Title: "t", Content: "c"}},
		{"missing title", datastore.Item{ProjectID: project.ID, Content: "c"}},
		{"missing content", datastore.Item{ProjectID: project.ID, Title: "t"}},
		{"unknown content type", datastore.Item{ProjectID: project.ID, Title: "t", Content: "c", ContentType: "movie"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := tt.item
			err := svc.CreateItem(&item)
			require.Error(t, err)
			assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
		})
	}
	assert.Empty(t, bus.published, "invalid items publish no events")
}

func auditItem(t *testing.T, store datastore.Interface, id uint) {
	t.Helper()
	require.NoError(t, store.SaveAuditResult(id, &datastore.AuditResultUpdate{
		RiskScore:             88,
		RiskLevel:             ethics.RiskLevelHigh,
		RiskSummary:           "s",
		RiskBreakdown:         ethics.RiskBreakdown{},
		MitigationSuggestions: []string{},
	}))
	require.NoError(t, store.MarkItemCompleted(id, time.Now()))
	require.NoError(t, store.SetRequiresHumanReview(id, true))
	require.NoError(t, store.SetNotificationSent(id, true))
	require.NoError(t, store.MarkItemFailed(id, "earlier failure"))
	require.NoError(t, store.MarkItemCompleted(id, time.Now()))
}

func TestUpdateItem_WithoutReaudit(t *testing.T) {
	svc, _, auditor, store := newTestService(t)
	item := createProjectAndItem(t, svc)
	auditItem(t, store, item.ID)

	got, err := svc.GetItem(item.ID)
	require.NoError(t, err)
	got.Title = "Hero banner v2"
	require.NoError(t, svc.UpdateItem(&got, false))

	after, err := svc.GetItem(item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hero banner v2", after.Title)
	assert.Equal(t, datastore.ItemStatusCompleted, after.Status, "plain update keeps the verdict")
	assert.NotNil(t, after.RiskScore)
	assert.Empty(t, auditor.enqueued)
}

func TestUpdateItem_WithReaudit(t *testing.T) {
	svc, _, auditor, store := newTestService(t)
	item := createProjectAndItem(t, svc)
	auditItem(t, store, item.ID)

	got, err := svc.GetItem(item.ID)
	require.NoError(t, err)
	got.Content = "Completely new copy."
	require.NoError(t, svc.UpdateItem(&got, true))

	after, err := svc.GetItem(item.ID)
	require.NoError(t, err)
	assert.Equal(t, datastore.ItemStatusPending, after.Status)
	assert.Nil(t, after.RiskScore)
	assert.False(t, after.NotificationSent)
	assert.Equal(t, 1, after.AuditAttempts, "update-triggered reaudit keeps attempt history")
	assert.Equal(t, []uint{item.ID}, auditor.enqueued)
}

func TestReaudit_ResetsAttemptHistory(t *testing.T) {
	svc, _, auditor, store := newTestService(t)
	item := createProjectAndItem(t, svc)
	auditItem(t, store, item.ID)

	require.NoError(t, svc.Reaudit(item.ID))

	after, err := svc.GetItem(item.ID)
	require.NoError(t, err)
	assert.Equal(t, datastore.ItemStatusPending, after.Status)
	assert.Nil(t, after.RiskScore)
	assert.Zero(t, after.AuditAttempts)
	assert.Nil(t, after.LastError)
	assert.Equal(t, []uint{item.ID}, auditor.enqueued)
}

func TestRestoreItem_PendingResumesAudit(t *testing.T) {
	svc, bus, _, _ := newTestService(t)
	item := createProjectAndItem(t, svc)
	bus.published = nil

	require.NoError(t, svc.DeleteItem(item.ID))
	restored, err := svc.RestoreItem(item.ID)
	require.NoError(t, err)
	assert.Equal(t, datastore.ItemStatusPending, restored.Status)

	require.Len(t, bus.published, 1)
	assert.Equal(t, events.ItemRestored, bus.published[0].Kind)
}

func TestRestoreItem_CompletedDoesNotResumeAudit(t *testing.T) {
	svc, bus, _, store := newTestService(t)
	item := createProjectAndItem(t, svc)
	auditItem(t, store, item.ID)
	bus.published = nil

	require.NoError(t, svc.DeleteItem(item.ID))
	restored, err := svc.RestoreItem(item.ID)
	require.NoError(t, err)
	assert.Equal(t, datastore.ItemStatusCompleted, restored.Status)
	assert.Empty(t, bus.published, "a completed item keeps its verdict on restore")
}

func TestMarkReviewed(t *testing.T) {
	svc, _, _, store := newTestService(t)
	item := createProjectAndItem(t, svc)
	auditItem(t, store, item.ID)

	before, err := svc.GetItem(item.ID)
	require.NoError(t, err)
	require.True(t, before.RequiresHumanReview)

	require.NoError(t, svc.MarkReviewed(item.ID))

	after, err := svc.GetItem(item.ID)
	require.NoError(t, err)
	assert.False(t, after.RequiresHumanReview)
	assert.Equal(t, datastore.ItemStatusCompleted, after.Status, "review does not touch the verdict")
	assert.NotNil(t, after.RiskScore)
}
