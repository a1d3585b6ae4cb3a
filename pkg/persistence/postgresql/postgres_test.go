package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/dukex/conductor/pkg/models"
	"github.com/dukex/conductor/pkg/persistence/postgresql"
)

var postgresContainer *postgres.PostgresContainer

func dropDB(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	for _, table := range []string{"requests", "workflows", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	require.NoError(t, db.Close())
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("conductor_test"),
			postgres.WithUsername("conductor"),
			postgres.WithPassword("conductor"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDB(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	persistence, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDB(ctx, t, databaseURL)

		require.NoError(t, persistence.Close(ctx))
		cancel()
	})

	return persistence, ctx
}

func newStoredRequest(externalKey string, status models.RequestStatus, createdAt time.Time) *models.Request {
	return &models.Request{
		ID:          uuid.New().String(),
		RequestType: "provisioning",
		ExternalKey: externalKey,
		Payload:     map[string]any{"plan": "basic"},
		Status:      status,
		RetryAt:     createdAt,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

func TestPersistence_HealthCheckAndMigrations(t *testing.T) {
	persistence, ctx := setupTestDB(t)

	require.NoError(t, persistence.HealthCheck(ctx))
}

func TestRequestRepository_UpsertIsIdempotentByExternalKey(t *testing.T) {
	persistence, ctx := setupTestDB(t)
	repo := persistence.RequestRepository()

	createdAt := time.Now().UTC().Add(-time.Hour)

	first, err := repo.Upsert(ctx, newStoredRequest("order-1", models.RequestStatusPending, createdAt))
	require.NoError(t, err)

	// Resolve with a payload and an error so the reset is observable.
	first.Status = models.RequestStatusResolved
	first.ResolutionPayload = map[string]any{"instance": "i-1"}
	first.LastError = "old failure"
	first.UpdatedAt = time.Now().UTC()
	require.NoError(t, repo.Save(ctx, first))

	second, err := repo.Upsert(ctx, newStoredRequest("order-1", models.RequestStatusPending, time.Now().UTC()))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "existing row keeps its ID")
	assert.Equal(t, first.CreatedAt.Unix(), second.CreatedAt.Unix())
	assert.Equal(t, models.RequestStatusPending, second.Status)
	assert.Empty(t, second.LastError)
	assert.Nil(t, second.ResolutionPayload)
}

func TestRequestRepository_DueForProcessingOrderAndLimit(t *testing.T) {
	persistence, ctx := setupTestDB(t)
	repo := persistence.RequestRepository()

	now := time.Now().UTC()

	older := newStoredRequest("key-old", models.RequestStatusFailed, now.Add(-2*time.Hour))
	newer := newStoredRequest("key-new", models.RequestStatusPending, now.Add(-time.Hour))
	resolved := newStoredRequest("key-done", models.RequestStatusResolved, now.Add(-3*time.Hour))
	future := newStoredRequest("key-future", models.RequestStatusPending, now.Add(-time.Hour))
	future.RetryAt = now.Add(time.Hour)

	for _, request := range []*models.Request{newer, older, resolved, future} {
		_, err := repo.Upsert(ctx, request)
		require.NoError(t, err)
	}

	due, err := repo.DueForProcessing(ctx, 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "key-old", due[0].ExternalKey)
	assert.Equal(t, "key-new", due[1].ExternalKey)

	limited, err := repo.DueForProcessing(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "key-old", limited[0].ExternalKey)
}

func TestRequestRepository_RecentlyResolvedWindow(t *testing.T) {
	persistence, ctx := setupTestDB(t)
	repo := persistence.RequestRepository()

	now := time.Now().UTC()

	recent := newStoredRequest("key-recent", models.RequestStatusResolved, now.Add(-time.Hour))
	recent.UpdatedAt = now.Add(-time.Minute)

	stale := newStoredRequest("key-stale", models.RequestStatusResolved, now.Add(-time.Hour))
	stale.UpdatedAt = now.Add(-30 * time.Minute)

	for _, request := range []*models.Request{recent, stale} {
		_, err := repo.Upsert(ctx, request)
		require.NoError(t, err)
	}

	resolved, err := repo.RecentlyResolved(ctx, now.Add(-5*time.Minute))
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, "key-recent", resolved[0].ExternalKey)
}

func TestRequestRepository_SaveUnknownRow(t *testing.T) {
	persistence, ctx := setupTestDB(t)
	repo := persistence.RequestRepository()

	request := newStoredRequest("key-ghost", models.RequestStatusPending, time.Now().UTC())

	err := repo.Save(ctx, request)
	require.Error(t, err)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestWorkflowRepository_RoundTrip(t *testing.T) {
	persistence, ctx := setupTestDB(t)
	repo := persistence.WorkflowRepository()

	now := time.Now().UTC()

	workflow := &models.Workflow{
		ID:     uuid.New().String(),
		Name:   "tenant provisioning",
		Type:   "provisioning",
		Status: models.WorkflowStatusPending,
		Nodes: []*models.NodeSpec{
			{ID: "n1", Kind: models.NodeKindTask, WorkerID: "log", Args: map[string]any{"message": "hi"}},
			{ID: "n2", Kind: models.NodeKindApproval, Reason: "production"},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	require.NoError(t, repo.Save(ctx, workflow))

	fetched, err := repo.GetByID(ctx, workflow.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	require.Len(t, fetched.Nodes, 2)
	assert.Equal(t, models.NodeKindApproval, fetched.Nodes[1].Kind)

	workflow.Status = models.WorkflowStatusExecuted
	require.NoError(t, repo.Save(ctx, workflow))

	fetched, err = repo.GetByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusExecuted, fetched.Status)

	missing, err := repo.GetByID(ctx, uuid.New().String())
	require.NoError(t, err)
	assert.Nil(t, missing)

	all, err := repo.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
