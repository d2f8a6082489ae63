//go:build integration

package proposal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "riskgate/pkg/domain-errors"
	"riskgate/pkg/testutil/containers"
)

func TestPostgresStore_SaveAndGet(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	store := NewPostgresStore(pg.DB)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Millisecond)
	p := Proposal{
		ID:         "11111111-1111-1111-1111-111111111111",
		Title:      "Data Platform Migration",
		ClientName: "Acme Corp",
		Status:     StatusDraft,
		Sections: map[string]string{
			"Executive Summary": "Migrate the platform.",
			"Risks":             "Legacy documentation gaps.",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, store.Save(ctx, p))

	got, err := store.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Title, got.Title)
	assert.Equal(t, p.ClientName, got.ClientName)
	assert.Equal(t, StatusDraft, got.Status)
	assert.Equal(t, p.Sections, got.Sections)
}

func TestPostgresStore_SaveUpsertsExisting(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	store := NewPostgresStore(pg.DB)
	ctx := context.Background()

	now := time.Now().UTC()
	p := Proposal{
		ID:         "22222222-2222-2222-2222-222222222222",
		Title:      "Original Title",
		ClientName: "Acme Corp",
		Status:     StatusDraft,
		Sections:   map[string]string{"Risks": "None known."},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, store.Save(ctx, p))

	p.Title = "Revised Title"
	p.Status = StatusInReview
	p.UpdatedAt = now.Add(time.Minute)
	require.NoError(t, store.Save(ctx, p))

	got, err := store.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Revised Title", got.Title)
	assert.Equal(t, StatusInReview, got.Status)
}

func TestPostgresStore_GetUnknownIsNotFound(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	store := NewPostgresStore(pg.DB)

	_, err := store.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestPostgresStore_UpdateStatus(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	store := NewPostgresStore(pg.DB)
	ctx := context.Background()

	now := time.Now().UTC()
	p := Proposal{
		ID:         "33333333-3333-3333-3333-333333333333",
		Title:      "Status Test",
		ClientName: "Acme Corp",
		Status:     StatusInReview,
		Sections:   map[string]string{"Risks": "None known."},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, store.Save(ctx, p))
	require.NoError(t, store.UpdateStatus(ctx, p.ID, StatusReleased))

	got, err := store.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusReleased, got.Status)

	err = store.UpdateStatus(ctx, "missing", StatusBlocked)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}
