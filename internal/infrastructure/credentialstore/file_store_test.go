package credentialstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/halo-stats/internal/domain/credential"
)

func TestFileStore_MissingFileIsNotAnError(t *testing.T) {
	t.Parallel()

	store := NewFileStore(filepath.Join(t.TempDir(), "token.json"))
	_, ok, err := store.Load(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFileStore_SaveReplacesWholeBundle(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "token.json")
	store := NewFileStore(path)
	ctx := context.Background()

	expires := time.Date(2026, 10, 18, 16, 0, 0, 0, time.FixedZone("UTC+7", 7*3600))
	first := credential.Bundle{
		ClientID:      "client",
		RefreshToken:  "refresh-1",
		SpartanToken:  "spartan-1",
		UserHash:      "uhs",
		XboxXSTSToken: "xbox",
		ExpiresAt:     expires,
	}
	require.NoError(t, store.Save(ctx, first))

	second := credential.Bundle{ClientID: "client", SpartanToken: "spartan-2", ExpiresAt: expires.Add(time.Hour)}
	require.NoError(t, store.Save(ctx, second))

	got, ok, err := store.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "spartan-2", got.SpartanToken)
	require.Empty(t, got.RefreshToken, "save must overwrite every field")
	require.True(t, got.ExpiresAt.Equal(expires.Add(time.Hour)))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileStore_CorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, _, err := NewFileStore(path).Load(context.Background())
	require.Error(t, err)
}
