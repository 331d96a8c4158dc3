package monitoring

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInitializer_ReconcileUpsertsEveryService(t *testing.T) {
	skipIfNoDatabase(t)

	repo, pool := newTestRepository(t)
	ctx := context.Background()
	cleanTables(t, pool)
	defer cleanTables(t, pool)

	init := NewInitializer(repo, nil)

	services := []ServiceConfig{
		{ID: "svc-1", Name: "One", URL: "https://one.example.com", CycleInterval: 60 * time.Second, Timeout: 5 * time.Second},
		{ID: "svc-2", Name: "Two", URL: "https://two.example.com", CycleInterval: 60 * time.Second, Timeout: 5 * time.Second},
	}

	require.NoError(t, init.Reconcile(ctx, services))

	all, err := repo.ListServices(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestInitializer_ReconcileIsIdempotent(t *testing.T) {
	skipIfNoDatabase(t)

	repo, pool := newTestRepository(t)
	ctx := context.Background()
	cleanTables(t, pool)
	defer cleanTables(t, pool)

	init := NewInitializer(repo, nil)
	svc := ServiceConfig{ID: "svc-1", Name: "One", URL: "https://one.example.com", CycleInterval: 60 * time.Second, Timeout: 5 * time.Second}

	require.NoError(t, init.Reconcile(ctx, []ServiceConfig{svc}))
	require.NoError(t, init.Reconcile(ctx, []ServiceConfig{svc}))

	all, err := repo.ListServices(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
}
