package file

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/conductor/pkg/models"
)

func newRequest(id, externalKey string, status models.RequestStatus, createdAt time.Time) *models.Request {
	return &models.Request{
		ID:          id,
		RequestType: "provisioning",
		ExternalKey: externalKey,
		Status:      status,
		RetryAt:     createdAt,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

func TestRequestRepository_UpsertPreservesIdentityOnSameKey(t *testing.T) {
	ctx := context.Background()
	repo := NewRequestRepository(t.TempDir())

	createdAt := time.Now().UTC().Add(-time.Hour)

	first, err := repo.Upsert(ctx, newRequest("req-1", "order-42", models.RequestStatusPending, createdAt))
	require.NoError(t, err)

	resubmitted := newRequest("req-2", "order-42", models.RequestStatusPending, time.Now().UTC())

	second, err := repo.Upsert(ctx, resubmitted)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt.Unix(), second.CreatedAt.Unix())

	stored, err := repo.GetByExternalKey(ctx, "order-42")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "req-1", stored.ID)
}

func TestRequestRepository_GetByIDMissing(t *testing.T) {
	repo := NewRequestRepository(t.TempDir())

	found, err := repo.GetByID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestRequestRepository_DueForProcessingFIFO(t *testing.T) {
	ctx := context.Background()
	repo := NewRequestRepository(t.TempDir())

	now := time.Now().UTC()

	older := newRequest("req-old", "key-old", models.RequestStatusFailed, now.Add(-2*time.Hour))
	newer := newRequest("req-new", "key-new", models.RequestStatusPending, now.Add(-time.Hour))
	resolved := newRequest("req-done", "key-done", models.RequestStatusResolved, now.Add(-3*time.Hour))
	future := newRequest("req-future", "key-future", models.RequestStatusPending, now.Add(-time.Hour))
	future.RetryAt = now.Add(time.Hour)

	for _, request := range []*models.Request{newer, older, resolved, future} {
		_, err := repo.Upsert(ctx, request)
		require.NoError(t, err)
	}

	due, err := repo.DueForProcessing(ctx, 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "req-old", due[0].ID)
	assert.Equal(t, "req-new", due[1].ID)

	limited, err := repo.DueForProcessing(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "req-old", limited[0].ID)
}

func TestRequestRepository_RecentlyResolved(t *testing.T) {
	ctx := context.Background()
	repo := NewRequestRepository(t.TempDir())

	now := time.Now().UTC()

	recent := newRequest("req-recent", "key-recent", models.RequestStatusResolved, now.Add(-time.Hour))
	recent.UpdatedAt = now.Add(-time.Minute)

	stale := newRequest("req-stale", "key-stale", models.RequestStatusResolved, now.Add(-time.Hour))
	stale.UpdatedAt = now.Add(-30 * time.Minute)

	pending := newRequest("req-pending", "key-pending", models.RequestStatusPending, now)

	for _, request := range []*models.Request{recent, stale, pending} {
		_, err := repo.Upsert(ctx, request)
		require.NoError(t, err)
	}

	resolved, err := repo.RecentlyResolved(ctx, now.Add(-5*time.Minute))
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, "req-recent", resolved[0].ID)
}

func TestWorkflowRepository_SaveAndFetch(t *testing.T) {
	ctx := context.Background()
	repo := NewWorkflowRepository(t.TempDir())

	workflow := &models.Workflow{
		ID:     "wf-1",
		Name:   "provision tenant",
		Type:   "provisioning",
		Status: models.WorkflowStatusPending,
		Nodes: []*models.NodeSpec{
			{ID: "n1", Kind: models.NodeKindTask, WorkerID: "log"},
		},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	require.NoError(t, repo.Save(ctx, workflow))

	fetched, err := repo.GetByID(ctx, "wf-1")
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, "provision tenant", fetched.Name)
	require.Len(t, fetched.Nodes, 1)
	assert.Equal(t, models.NodeKindTask, fetched.Nodes[0].Kind)

	missing, err := repo.GetByID(ctx, "wf-404")
	require.NoError(t, err)
	assert.Nil(t, missing)

	all, err := repo.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestPersistence_HealthCheck(t *testing.T) {
	persistence := NewPersistence(t.TempDir())

	require.NoError(t, persistence.HealthCheck(context.Background()))
	require.NoError(t, persistence.Close(context.Background()))
}
