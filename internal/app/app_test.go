package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/halo-stats/internal/config"
	"github.com/riskibarqy/halo-stats/internal/infrastructure/credentialstore"
	"github.com/riskibarqy/halo-stats/internal/infrastructure/diagnostic"
	"github.com/riskibarqy/halo-stats/internal/usecase"
)

func TestNewDiagnosticSink(t *testing.T) {
	t.Parallel()

	sink, err := newDiagnosticSink(context.Background(), config.Config{})
	require.NoError(t, err)
	assert.IsType(t, diagnostic.NopSink{}, sink)

	sink, err = newDiagnosticSink(context.Background(), config.Config{DiagnosticDir: t.TempDir()})
	require.NoError(t, err)
	multi, ok := sink.(diagnostic.MultiSink)
	require.True(t, ok)
	require.Len(t, multi, 1)
	assert.IsType(t, &diagnostic.FileSink{}, multi[0])
}

func TestNewCredentialStore(t *testing.T) {
	t.Parallel()

	store, err := newCredentialStore(config.Config{
		CredentialStore: config.CredentialStoreFile,
		CredentialFile:  filepath.Join(t.TempDir(), "bundle.json"),
	})
	require.NoError(t, err)
	assert.IsType(t, &credentialstore.FileStore{}, store)

	store, err = newCredentialStore(config.Config{
		CredentialStore:    config.CredentialStoreRedis,
		RedisURL:           "redis://localhost:6379/0",
		CredentialRedisKey: "collector:bundle",
	})
	require.NoError(t, err)
	assert.IsType(t, &credentialstore.RedisStore{}, store)

	_, err = newCredentialStore(config.Config{CredentialStore: "vault"})
	require.Error(t, err)
}

func TestNewCollector_RequiresAzureClient(t *testing.T) {
	t.Parallel()

	_, err := NewCollector(context.Background(), config.Config{}, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AZURE_CLIENT_ID")
}

func TestIsOperatorError(t *testing.T) {
	t.Parallel()

	assert.True(t, IsOperatorError(errors.Wrap(usecase.ErrInvalidInput, "xuid is required")))
	assert.True(t, IsOperatorError(usecase.ErrNoPlayerQueued))
	assert.False(t, IsOperatorError(errors.New("connection refused")))
}
