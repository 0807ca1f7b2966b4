package blob

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDirStore_MoveRoundTrip(t *testing.T) {
	root := t.TempDir()
	store := NewDirStore(root)
	ctx := context.Background()

	require.NoError(t, store.EnsureContainer(ctx, "raw"))
	require.NoError(t, store.EnsureContainer(ctx, "done"))
	require.NoError(t, os.WriteFile(filepath.Join(root, "raw", "sales.xlsx"), []byte("data"), 0o644))

	g := NewGateway(store, Options{SourceContainer: "raw", ProcessedContainer: "done"})
	files, err := g.ListUnprocessed(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)

	moved, err := g.MoveToProcessed(ctx, "sales.xlsx")
	require.NoError(t, err)
	require.True(t, moved)

	files, err = g.ListUnprocessed(ctx)
	require.NoError(t, err)
	require.Empty(t, files)

	done, err := store.List(ctx, "done")
	require.NoError(t, err)
	require.Len(t, done, 1)
	require.Equal(t, "sales.xlsx", OriginalName(done[0].Name))

	rc, err := store.Get(ctx, "done", done[0].Name)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	require.Equal(t, "data", string(body))
}

func TestDirStore_RejectsEscapingNames(t *testing.T) {
	store := NewDirStore(t.TempDir())

	_, err := store.Get(context.Background(), "raw", "../secret.xlsx")
	require.Error(t, err)

	err = store.Delete(context.Background(), "raw", "missing.xlsx")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = store.List(context.Background(), "absent")
	require.ErrorIs(t, err, ErrNotFound)
}
