package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spigell/bioinfo-job-tracker/internal/history"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "roles.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func record(id string, lastSeen time.Time, sources ...string) history.Record {
	return history.Record{
		ID:          id,
		Company:     "Acme Bio",
		JobTitle:    "Bioinformatics Scientist",
		Location:    "Boston, MA",
		JobURL:      "https://boards.greenhouse.io/acme/jobs/" + id,
		FirstSeen:   lastSeen.Add(-time.Hour),
		LastSeen:    lastSeen,
		SourcesSeen: sources,
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	require.NoError(t, db.Migrate(context.Background()))

	var v int
	require.NoError(t, db.Pool.QueryRow(`PRAGMA user_version;`).Scan(&v))
	require.Equal(t, schemaVersion, v)
}

func TestSyncAndList(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	err := db.Sync(ctx,
		[]history.Record{
			record("a", now, "greenhouse"),
			record("b", now.Add(-time.Hour), "lever"),
		},
		map[string]Verdict{
			"a": {Score: 9, Kept: true},
			"b": {DropReason: "too_old"},
		},
	)
	require.NoError(t, err)

	roles, err := db.ListRoles(ctx, 0)
	require.NoError(t, err)
	require.Len(t, roles, 2)
	require.Equal(t, "a", roles[0].ID)
	require.NotNil(t, roles[0].Score)
	require.Equal(t, 9, *roles[0].Score)
	require.Equal(t, now, roles[0].LastSeen)
	require.Nil(t, roles[1].Score)
	require.Equal(t, "too_old", roles[1].DropReason)

	// A later sync without a verdict for "a" keeps its score but refreshes
	// last_seen and sources.
	later := now.Add(24 * time.Hour)
	err = db.Sync(ctx, []history.Record{record("a", later, "greenhouse", "lever")}, nil)
	require.NoError(t, err)

	roles, err = db.ListRoles(ctx, 1)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	require.Equal(t, later, roles[0].LastSeen)
	require.Equal(t, []string{"greenhouse", "lever"}, roles[0].SourcesSeen)
	require.NotNil(t, roles[0].Score)
	require.Equal(t, 9, *roles[0].Score)

	// A fresh verdict overrides the stored one.
	err = db.Sync(ctx, []history.Record{record("a", later)}, map[string]Verdict{"a": {DropReason: "below_min_score"}})
	require.NoError(t, err)
	roles, err = db.ListRoles(ctx, 1)
	require.NoError(t, err)
	require.Nil(t, roles[0].Score)
	require.Equal(t, "below_min_score", roles[0].DropReason)
}
